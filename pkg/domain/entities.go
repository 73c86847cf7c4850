// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by agrocore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityHarvest identifies a harvest ("safra") registry record.
	EntityHarvest EntityType = "harvest"
	// EntityClient identifies a client record.
	EntityClient EntityType = "client"
	// EntityEmployee identifies a ground-staff record.
	EntityEmployee EntityType = "employee"
	// EntityAircraft identifies an aircraft record.
	EntityAircraft EntityType = "aircraft"
	// EntityCrop identifies a crop record.
	EntityCrop EntityType = "crop"
	// EntityService identifies a billable flight-job record.
	EntityService EntityType = "service"
)

// ServiceType enumerates the kinds of aerial-application work a service can
// record. The set mirrors the categories operators bill under.
type ServiceType string

// Canonical service types used for dashboard distributions and report filters.
const (
	ServiceFungicide   ServiceType = "fungicide"
	ServiceInsecticide ServiceType = "insecticide"
	ServiceFertilizer  ServiceType = "fertilizer"
	ServiceBiological  ServiceType = "biological"
	ServiceSeeding     ServiceType = "seeding"
	ServiceDesiccation ServiceType = "desiccation"
	ServiceFire        ServiceType = "fire"
	ServiceOther       ServiceType = "other"
)

// LocationMethod describes how a service location fix was obtained.
type LocationMethod string

const (
	LocationGPS    LocationMethod = "gps"
	LocationManual LocationMethod = "manual"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Harvest is a named operating period ("safra"). Exactly one harvest is
// current at any time; service records are partitioned by harvest id.
type Harvest struct {
	Base
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Client represents a customer shared across all harvests.
type Client struct {
	Base
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Employee represents ground staff shared across all harvests.
type Employee struct {
	Base
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
}

// Aircraft captures an airframe and its cumulative hour-meter reading.
type Aircraft struct {
	Base
	Model            string  `json:"model"`
	TailNumber       string  `json:"tail_number"`
	CurrentHourMeter float64 `json:"current_hour_meter"`
}

// Crop names a cultivated culture shared across all harvests.
type Crop struct {
	Base
	Name string `json:"name"`
}

// ServicePhoto is an attached, pre-compressed photo. Image data is stored
// inline as a data URL so the snapshot stays a single self-contained blob.
type ServicePhoto struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ImageData      string `json:"image_data"`
	OriginalSize   int64  `json:"original_size"`
	CompressedSize int64  `json:"compressed_size"`
}

// ServiceLocation records where a service was flown.
type ServiceLocation struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Accuracy  *float64       `json:"accuracy,omitempty"`
	Method    LocationMethod `json:"method"`
	Timestamp time.Time      `json:"timestamp"`
}

// Service is a single billable aerial-application job. It is owned
// exclusively by the harvest referenced by HarvestID and stores only
// foreign-key references to the shared entities, never copies.
type Service struct {
	Base
	HarvestID         string           `json:"harvest_id"`
	Type              ServiceType      `json:"type"`
	ClientID          string           `json:"client_id"`
	EmployeeID        string           `json:"employee_id"`
	AircraftID        string           `json:"aircraft_id"`
	CropID            string           `json:"crop_id"`
	AreaHectares      float64          `json:"area_hectares"`
	FlowRateLPerHa    float64          `json:"flow_rate_l_per_ha"`
	Date              time.Time        `json:"date"`
	HourMeterStart    float64          `json:"hour_meter_start"`
	HourMeterEnd      float64          `json:"hour_meter_end"`
	TransitHours      float64          `json:"transit_hours"`
	PricePerHour      float64          `json:"price_per_hour"`
	CommissionPercent float64          `json:"commission_percent"`
	Notes             string           `json:"notes,omitempty"`
	Photos            []ServicePhoto   `json:"photos,omitempty"`
	Location          *ServiceLocation `json:"location,omitempty"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionReplace indicates a whole collection was swapped by bulk import.
	ActionReplace Action = "replace"
)
