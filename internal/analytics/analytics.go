// Package analytics derives dashboard and report figures from service
// records. Every function is pure: inputs are never mutated and no store
// access happens here, so the same service slice always yields the same
// numbers.
package analytics

import (
	"math"
	"sort"
	"time"

	"agrocore/pkg/domain"
)

// UnspecifiedCrop labels applied area whose service references a missing or
// empty crop id.
const UnspecifiedCrop = "unspecified"

// Metrics holds the derived figures for a single service.
type Metrics struct {
	FlightHours   float64 `json:"flight_hours"`
	Revenue       float64 `json:"revenue"`
	Commission    float64 `json:"commission"`
	AppliedVolume float64 `json:"applied_volume_liters"`
}

// Compute derives per-service metrics. A hour meter that ran backwards
// produces zero flight hours rather than negative billing; non-finite inputs
// are treated as zero.
func Compute(s domain.Service) Metrics {
	start := sanitize(s.HourMeterStart)
	end := sanitize(s.HourMeterEnd)
	hours := math.Max(0, end-start)
	revenue := hours * sanitize(s.PricePerHour)
	return Metrics{
		FlightHours:   hours,
		Revenue:       revenue,
		Commission:    revenue * sanitize(s.CommissionPercent) / 100,
		AppliedVolume: sanitize(s.AreaHectares) * sanitize(s.FlowRateLPerHa),
	}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Totals aggregates metrics across a set of services.
type Totals struct {
	Services     int     `json:"services"`
	AreaHectares float64 `json:"area_hectares"`
	FlightHours  float64 `json:"flight_hours"`
	TransitHours float64 `json:"transit_hours"`
	Revenue      float64 `json:"revenue"`
	Commission   float64 `json:"commission"`
}

// Summary is the dashboard aggregate for the current harvest.
type Summary struct {
	Totals           Totals             `json:"totals"`
	ServiceTypes     map[string]int     `json:"service_types"`
	CropDistribution map[string]float64 `json:"crop_distribution"`
	MonthlyHours     map[string]float64 `json:"monthly_hours"`
}

// Summarize computes the dashboard aggregate. cropNames maps crop id to
// display name; services referencing an unknown or empty crop accumulate
// under UnspecifiedCrop.
func Summarize(services []domain.Service, cropNames map[string]string) Summary {
	sum := Summary{
		ServiceTypes:     make(map[string]int),
		CropDistribution: make(map[string]float64),
		MonthlyHours:     make(map[string]float64),
	}
	for _, svc := range services {
		m := Compute(svc)
		sum.Totals.Services++
		sum.Totals.AreaHectares += sanitize(svc.AreaHectares)
		sum.Totals.FlightHours += m.FlightHours
		sum.Totals.TransitHours += sanitize(svc.TransitHours)
		sum.Totals.Revenue += m.Revenue
		sum.Totals.Commission += m.Commission

		typ := string(svc.Type)
		if typ == "" {
			typ = string(domain.ServiceOther)
		}
		sum.ServiceTypes[typ]++

		crop := cropNames[svc.CropID]
		if crop == "" {
			crop = UnspecifiedCrop
		}
		sum.CropDistribution[crop] += sanitize(svc.AreaHectares)

		sum.MonthlyHours[monthKey(svc.Date)] += m.FlightHours
	}
	return sum
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// Filter narrows a service set for reporting. Zero-value fields match
// everything; the date bounds are inclusive calendar days.
type Filter struct {
	Start    time.Time
	End      time.Time
	ClientID string
	Type     domain.ServiceType
}

// Apply returns the services matching every set criterion, preserving input
// order.
func (f Filter) Apply(services []domain.Service) []domain.Service {
	out := make([]domain.Service, 0, len(services))
	for _, svc := range services {
		if !f.matches(svc) {
			continue
		}
		out = append(out, svc)
	}
	return out
}

func (f Filter) matches(svc domain.Service) bool {
	if !f.Start.IsZero() && dayOf(svc.Date).Before(dayOf(f.Start)) {
		return false
	}
	if !f.End.IsZero() && dayOf(svc.Date).After(dayOf(f.End)) {
		return false
	}
	if f.ClientID != "" && svc.ClientID != f.ClientID {
		return false
	}
	if f.Type != "" && svc.Type != f.Type {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthBucket aggregates report figures for one calendar month.
type MonthBucket struct {
	Month        string  `json:"month"` // YYYY-MM
	AreaHectares float64 `json:"area_hectares"`
	FlightHours  float64 `json:"flight_hours"`
	Revenue      float64 `json:"revenue"`
}

// RankedEntry pairs a display name with an aggregated value, ordered
// descending by value.
type RankedEntry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Report is the filtered reporting aggregate.
type Report struct {
	Totals        Totals         `json:"totals"`
	ServiceTypes  map[string]int `json:"service_types"`
	Monthly       []MonthBucket  `json:"monthly"`
	ClientRevenue []RankedEntry  `json:"client_revenue"`
	AircraftHours []RankedEntry  `json:"aircraft_hours"`
}

// Lookups resolves foreign keys to display names for report rankings.
// Missing entries fall back to a "not found" label, matching how deleted
// references render in listings.
type Lookups struct {
	ClientName   func(id string) (string, bool)
	AircraftName func(id string) (string, bool)
}

const (
	clientNotFound   = "client not found"
	aircraftNotFound = "aircraft not found"
)

// BuildReport computes the report over an already-filtered service set.
func BuildReport(services []domain.Service, lookups Lookups) Report {
	rep := Report{ServiceTypes: make(map[string]int)}
	months := make(map[string]*MonthBucket)
	clientRevenue := make(map[string]float64)
	aircraftHours := make(map[string]float64)

	for _, svc := range services {
		m := Compute(svc)
		rep.Totals.Services++
		rep.Totals.AreaHectares += sanitize(svc.AreaHectares)
		rep.Totals.FlightHours += m.FlightHours
		rep.Totals.TransitHours += sanitize(svc.TransitHours)
		rep.Totals.Revenue += m.Revenue
		rep.Totals.Commission += m.Commission

		typ := string(svc.Type)
		if typ == "" {
			typ = string(domain.ServiceOther)
		}
		rep.ServiceTypes[typ]++

		key := monthKey(svc.Date)
		bucket, ok := months[key]
		if !ok {
			bucket = &MonthBucket{Month: key}
			months[key] = bucket
		}
		bucket.AreaHectares += sanitize(svc.AreaHectares)
		bucket.FlightHours += m.FlightHours
		bucket.Revenue += m.Revenue

		clientRevenue[resolveName(lookups.ClientName, svc.ClientID, clientNotFound)] += m.Revenue
		aircraftHours[resolveName(lookups.AircraftName, svc.AircraftID, aircraftNotFound)] += m.FlightHours
	}

	rep.Monthly = make([]MonthBucket, 0, len(months))
	for _, bucket := range months {
		rep.Monthly = append(rep.Monthly, *bucket)
	}
	sort.Slice(rep.Monthly, func(i, j int) bool { return rep.Monthly[i].Month < rep.Monthly[j].Month })

	rep.ClientRevenue = rank(clientRevenue)
	rep.AircraftHours = rank(aircraftHours)
	return rep
}

func resolveName(lookup func(string) (string, bool), id, missing string) string {
	if lookup == nil {
		return missing
	}
	if name, ok := lookup(id); ok && name != "" {
		return name
	}
	return missing
}

func rank(values map[string]float64) []RankedEntry {
	out := make([]RankedEntry, 0, len(values))
	for name, value := range values {
		out = append(out, RankedEntry{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}
