package backup

import (
	"errors"
	"testing"
	"time"

	"agrocore/pkg/domain"
)

func TestBuildStampsVersionAndCounts(t *testing.T) {
	at := time.Date(2026, 8, 28, 15, 4, 5, 0, time.UTC)
	doc := Build("Safra 2025/2026", at, Entities{
		Services: []domain.Service{{Base: domain.Base{ID: "s1"}}, {Base: domain.Base{ID: "s2"}}},
		Clients:  []domain.Client{{Base: domain.Base{ID: "c1"}}},
		Crops:    []domain.Crop{{Base: domain.Base{ID: "cr1"}}},
	})

	if doc.Version != Version {
		t.Fatalf("unexpected version %q", doc.Version)
	}
	if !doc.ExportedAt.Equal(at) {
		t.Fatalf("unexpected export time %v", doc.ExportedAt)
	}
	if doc.Metadata.TotalServices != 2 || doc.Metadata.TotalClients != 1 || doc.Metadata.TotalCrops != 1 {
		t.Fatalf("unexpected metadata counts: %+v", doc.Metadata)
	}
	if doc.Metadata.TotalEmployees != 0 || doc.Metadata.TotalAircraft != 0 {
		t.Fatalf("empty collections must count zero: %+v", doc.Metadata)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	doc := Build("Safra 2025/2026", time.Now(), Entities{
		Services: []domain.Service{{Base: domain.Base{ID: "s1"}, Type: domain.ServiceFungicide, AreaHectares: 100}},
	})
	payload, err := Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Harvest != doc.Harvest || len(decoded.Entities.Services) != 1 {
		t.Fatalf("round trip lost data: %+v", decoded)
	}
	if decoded.Entities.Services[0].AreaHectares != 100 {
		t.Fatalf("service fields lost: %+v", decoded.Entities.Services[0])
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "{broken"},
		{"missing version", `{"harvest":"x","entities":{}}`},
		{"unsupported version", `{"version":"2.0","harvest":"x","entities":{}}`},
		{"missing entities", `{"version":"1.0","harvest":"Safra 2025/2026"}`},
		{"null entities", `{"version":"1.0","harvest":"x","entities":null}`},
		{"missing harvest", `{"version":"1.0","entities":{}}`},
		{"blank harvest", `{"version":"1.0","harvest":"   ","entities":{}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.payload))
			var bad domain.InvalidFormatError
			if !errors.As(err, &bad) {
				t.Fatalf("expected InvalidFormatError, got %v", err)
			}
		})
	}
}

func TestDecodeToleratesEmptyCollections(t *testing.T) {
	doc, err := Decode([]byte(`{"version":"1.0","harvest":"Safra 2024/2025","entities":{}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Entities.Services != nil || doc.Entities.Clients != nil {
		t.Fatalf("absent collections must decode as nil: %+v", doc.Entities)
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 8, 28, 23, 59, 0, 0, time.UTC)
	got := Filename("Safra 2025/2026", at)
	want := "agrocore-backup-Safra 2025-2026-2026-08-28.json"
	if got != want {
		t.Fatalf("filename %q, want %q", got, want)
	}
	if got := Filename("", at); got != "agrocore-backup-unnamed-2026-08-28.json" {
		t.Fatalf("unexpected fallback filename %q", got)
	}
}
