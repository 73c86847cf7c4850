// Package backup defines the versioned export document: a self-contained
// JSON envelope carrying the current harvest's services plus all shared
// reference entities. The envelope is the interchange format between
// installations, so its shape is validated strictly on the way in and never
// changed silently.
package backup

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"agrocore/pkg/domain"
)

// Version is the only backup document revision this build reads or writes.
const Version = "1.0"

// Entities holds the exported collections. Services carry only the current
// harvest's partition; the reference collections are global.
type Entities struct {
	Services  []domain.Service  `json:"services"`
	Clients   []domain.Client   `json:"clients"`
	Employees []domain.Employee `json:"employees"`
	Aircraft  []domain.Aircraft `json:"aircraft"`
	Crops     []domain.Crop     `json:"crops"`
}

// Metadata carries advisory record counts so a reader can summarize a backup
// without parsing the collections.
type Metadata struct {
	TotalServices  int `json:"total_services"`
	TotalClients   int `json:"total_clients"`
	TotalEmployees int `json:"total_employees"`
	TotalAircraft  int `json:"total_aircraft"`
	TotalCrops     int `json:"total_crops"`
}

// Document is the versioned backup envelope.
type Document struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Harvest    string    `json:"harvest"`
	Entities   Entities  `json:"entities"`
	Metadata   Metadata  `json:"metadata"`
}

// Build assembles a document for the named harvest from the given collections.
func Build(harvest string, at time.Time, entities Entities) Document {
	return Document{
		Version:    Version,
		ExportedAt: at.UTC(),
		Harvest:    harvest,
		Entities:   entities,
		Metadata: Metadata{
			TotalServices:  len(entities.Services),
			TotalClients:   len(entities.Clients),
			TotalEmployees: len(entities.Employees),
			TotalAircraft:  len(entities.Aircraft),
			TotalCrops:     len(entities.Crops),
		},
	}
}

// Decode parses and validates a backup payload. Validation happens before
// the caller touches any collection, so a malformed document can never
// partially replace store contents. The entities key must be present: import
// replaces collections wholesale, and a document without it would silently
// wipe every record.
func Decode(payload []byte) (Document, error) {
	var raw struct {
		Version    string    `json:"version"`
		ExportedAt time.Time `json:"exported_at"`
		Harvest    string    `json:"harvest"`
		Entities   *Entities `json:"entities"`
		Metadata   Metadata  `json:"metadata"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Document{}, domain.InvalidFormatError{Reason: fmt.Sprintf("not a JSON document: %v", err)}
	}
	doc := Document{
		Version:    raw.Version,
		ExportedAt: raw.ExportedAt,
		Harvest:    raw.Harvest,
		Metadata:   raw.Metadata,
	}
	if err := Validate(doc); err != nil {
		return Document{}, err
	}
	if raw.Entities == nil {
		return Document{}, domain.InvalidFormatError{Reason: "missing entities"}
	}
	doc.Entities = *raw.Entities
	return doc, nil
}

// Validate checks the document envelope: a known version and a harvest name
// to restore into. Collections inside entities may be empty, but the
// envelope fields themselves are mandatory.
func Validate(doc Document) error {
	if doc.Version == "" {
		return domain.InvalidFormatError{Reason: "missing version"}
	}
	if doc.Version != Version {
		return domain.InvalidFormatError{Reason: fmt.Sprintf("unsupported version %q", doc.Version)}
	}
	if strings.TrimSpace(doc.Harvest) == "" {
		return domain.InvalidFormatError{Reason: "missing harvest name"}
	}
	return nil
}

// Encode renders the document as indented JSON, matching the layout users
// expect when inspecting exported files by hand.
func Encode(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Filename derives the suggested export filename for a harvest at a given
// time, e.g. "agrocore-backup-Safra 2025-2026-2026-08-28.json".
func Filename(harvest string, at time.Time) string {
	name := strings.ReplaceAll(harvest, "/", "-")
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("agrocore-backup-%s-%s.json", name, at.UTC().Format("2006-01-02"))
}
