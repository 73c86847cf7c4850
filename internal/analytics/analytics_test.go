package analytics

import (
	"math"
	"testing"
	"time"

	"agrocore/pkg/domain"
)

func TestComputeServiceMetrics(t *testing.T) {
	m := Compute(domain.Service{
		HourMeterStart:    1250.0,
		HourMeterEnd:      1252.5,
		PricePerHour:      500,
		CommissionPercent: 10,
		AreaHectares:      100,
		FlowRateLPerHa:    12,
	})
	if m.FlightHours != 2.5 {
		t.Fatalf("flight hours = %v, want 2.5", m.FlightHours)
	}
	if m.Revenue != 1250 {
		t.Fatalf("revenue = %v, want 1250", m.Revenue)
	}
	if m.Commission != 125 {
		t.Fatalf("commission = %v, want 125", m.Commission)
	}
	if m.AppliedVolume != 1200 {
		t.Fatalf("applied volume = %v, want 1200", m.AppliedVolume)
	}
}

func TestComputeClampsBackwardsHourMeter(t *testing.T) {
	m := Compute(domain.Service{HourMeterStart: 100, HourMeterEnd: 90, PricePerHour: 500, CommissionPercent: 5})
	if m.FlightHours != 0 || m.Revenue != 0 || m.Commission != 0 {
		t.Fatalf("backwards hour meter must produce zeros, got %+v", m)
	}
}

func TestComputeSanitizesNonFiniteInputs(t *testing.T) {
	m := Compute(domain.Service{
		HourMeterStart: math.NaN(),
		HourMeterEnd:   math.Inf(1),
		PricePerHour:   500,
		AreaHectares:   math.Inf(-1),
		FlowRateLPerHa: 10,
	})
	if m.FlightHours != 0 || m.Revenue != 0 || m.AppliedVolume != 0 {
		t.Fatalf("non-finite inputs must compute as zero, got %+v", m)
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSummarize(t *testing.T) {
	services := []domain.Service{
		{Type: domain.ServiceFungicide, CropID: "soy", AreaHectares: 100, HourMeterStart: 10, HourMeterEnd: 12, PricePerHour: 500, CommissionPercent: 10, TransitHours: 0.5, Date: day(2026, time.January, 15)},
		{Type: domain.ServiceFungicide, CropID: "soy", AreaHectares: 50, HourMeterStart: 12, HourMeterEnd: 13, PricePerHour: 500, Date: day(2026, time.January, 20)},
		{Type: domain.ServiceSeeding, CropID: "ghost", AreaHectares: 30, HourMeterStart: 13, HourMeterEnd: 13.5, PricePerHour: 400, Date: day(2026, time.February, 2)},
		{CropID: "", AreaHectares: 20, Date: day(2026, time.February, 10)},
	}
	sum := Summarize(services, map[string]string{"soy": "Soja"})

	if sum.Totals.Services != 4 {
		t.Fatalf("services = %d, want 4", sum.Totals.Services)
	}
	if sum.Totals.AreaHectares != 200 {
		t.Fatalf("area = %v, want 200", sum.Totals.AreaHectares)
	}
	if sum.Totals.FlightHours != 3.5 {
		t.Fatalf("flight hours = %v, want 3.5", sum.Totals.FlightHours)
	}
	if sum.Totals.TransitHours != 0.5 {
		t.Fatalf("transit hours = %v, want 0.5", sum.Totals.TransitHours)
	}
	if sum.Totals.Revenue != 1700 {
		t.Fatalf("revenue = %v, want 1700", sum.Totals.Revenue)
	}
	if sum.Totals.Commission != 100 {
		t.Fatalf("commission = %v, want 100", sum.Totals.Commission)
	}

	if sum.ServiceTypes["fungicide"] != 2 || sum.ServiceTypes["seeding"] != 1 || sum.ServiceTypes["other"] != 1 {
		t.Fatalf("unexpected type counts: %+v", sum.ServiceTypes)
	}

	if sum.CropDistribution["Soja"] != 150 {
		t.Fatalf("soy area = %v, want 150", sum.CropDistribution["Soja"])
	}
	if sum.CropDistribution[UnspecifiedCrop] != 50 {
		t.Fatalf("unspecified area = %v, want 50 (unknown id plus empty id)", sum.CropDistribution[UnspecifiedCrop])
	}

	if sum.MonthlyHours["2026-01"] != 3 || sum.MonthlyHours["2026-02"] != 0.5 {
		t.Fatalf("unexpected monthly hours: %+v", sum.MonthlyHours)
	}
}

func TestFilterApply(t *testing.T) {
	services := []domain.Service{
		{Base: domain.Base{ID: "a"}, ClientID: "c1", Type: domain.ServiceFungicide, Date: day(2026, time.January, 1)},
		{Base: domain.Base{ID: "b"}, ClientID: "c2", Type: domain.ServiceFungicide, Date: day(2026, time.January, 15)},
		{Base: domain.Base{ID: "c"}, ClientID: "c1", Type: domain.ServiceSeeding, Date: day(2026, time.February, 1)},
	}

	got := Filter{}.Apply(services)
	if len(got) != 3 {
		t.Fatalf("zero filter must match all, got %d", len(got))
	}

	got = Filter{Start: day(2026, time.January, 15), End: day(2026, time.February, 1)}.Apply(services)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("date bounds must be inclusive, got %+v", ids(got))
	}

	got = Filter{ClientID: "c1"}.Apply(services)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("client filter mismatch: %+v", ids(got))
	}

	got = Filter{Type: domain.ServiceSeeding}.Apply(services)
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("type filter mismatch: %+v", ids(got))
	}

	got = Filter{ClientID: "c1", Type: domain.ServiceFungicide, End: day(2026, time.January, 31)}.Apply(services)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("combined filter mismatch: %+v", ids(got))
	}
}

func ids(services []domain.Service) []string {
	out := make([]string, 0, len(services))
	for _, s := range services {
		out = append(out, s.ID)
	}
	return out
}

func TestFilterIgnoresTimeOfDay(t *testing.T) {
	svc := domain.Service{Base: domain.Base{ID: "a"}, Date: time.Date(2026, time.March, 10, 23, 45, 0, 0, time.UTC)}
	got := Filter{Start: day(2026, time.March, 10), End: day(2026, time.March, 10)}.Apply([]domain.Service{svc})
	if len(got) != 1 {
		t.Fatalf("same-day service must match an inclusive same-day range")
	}
}

func TestBuildReport(t *testing.T) {
	services := []domain.Service{
		{ClientID: "c1", AircraftID: "a1", Type: domain.ServiceFungicide, AreaHectares: 100, HourMeterStart: 0, HourMeterEnd: 2, PricePerHour: 500, Date: day(2026, time.January, 10)},
		{ClientID: "c2", AircraftID: "a1", Type: domain.ServiceSeeding, AreaHectares: 40, HourMeterStart: 2, HourMeterEnd: 3, PricePerHour: 400, Date: day(2026, time.February, 5)},
		{ClientID: "gone", AircraftID: "gone", Type: domain.ServiceSeeding, AreaHectares: 10, HourMeterStart: 3, HourMeterEnd: 3.5, PricePerHour: 400, Date: day(2026, time.February, 20)},
	}
	names := map[string]string{"c1": "Fazenda Norte", "c2": "Fazenda Sul", "a1": "PT-ABC (Ipanema)"}
	lookup := func(id string) (string, bool) {
		n, ok := names[id]
		return n, ok
	}
	rep := BuildReport(services, Lookups{ClientName: lookup, AircraftName: lookup})

	if rep.Totals.Services != 3 || rep.Totals.Revenue != 1600 {
		t.Fatalf("unexpected totals: %+v", rep.Totals)
	}
	if len(rep.Monthly) != 2 {
		t.Fatalf("expected two month buckets, got %+v", rep.Monthly)
	}
	if rep.Monthly[0].Month != "2026-01" || rep.Monthly[0].Revenue != 1000 {
		t.Fatalf("unexpected january bucket: %+v", rep.Monthly[0])
	}
	if rep.Monthly[1].Month != "2026-02" || rep.Monthly[1].FlightHours != 1.5 {
		t.Fatalf("unexpected february bucket: %+v", rep.Monthly[1])
	}

	if rep.ClientRevenue[0].Name != "Fazenda Norte" || rep.ClientRevenue[0].Value != 1000 {
		t.Fatalf("unexpected top client: %+v", rep.ClientRevenue)
	}
	foundMissing := false
	for _, e := range rep.ClientRevenue {
		if e.Name == "client not found" && e.Value == 200 {
			foundMissing = true
		}
	}
	if !foundMissing {
		t.Fatalf("orphaned client reference must rank under a not-found label: %+v", rep.ClientRevenue)
	}

	if rep.AircraftHours[0].Name != "PT-ABC (Ipanema)" || rep.AircraftHours[0].Value != 3 {
		t.Fatalf("unexpected aircraft ranking: %+v", rep.AircraftHours)
	}
}
