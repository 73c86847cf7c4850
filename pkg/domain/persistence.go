package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Service operations always address the
// current harvest's partition.
type Transaction interface {
	CreateClient(Client) (Client, error)
	UpdateClient(id string, mutator func(*Client) error) (Client, error)
	DeleteClient(id string) error
	CreateEmployee(Employee) (Employee, error)
	UpdateEmployee(id string, mutator func(*Employee) error) (Employee, error)
	DeleteEmployee(id string) error
	CreateAircraft(Aircraft) (Aircraft, error)
	UpdateAircraft(id string, mutator func(*Aircraft) error) (Aircraft, error)
	DeleteAircraft(id string) error
	CreateCrop(Crop) (Crop, error)
	UpdateCrop(id string, mutator func(*Crop) error) (Crop, error)
	DeleteCrop(id string) error
	CreateService(Service) (Service, error)
	UpdateService(id string, mutator func(*Service) error) (Service, error)
	DeleteService(id string) error
	CreateHarvest(name string) (Harvest, error)
	DeleteHarvest(id string) error
	SetCurrentHarvest(id string) error
	ReplaceClients([]Client)
	ReplaceEmployees([]Employee)
	ReplaceAircraft([]Aircraft)
	ReplaceCrops([]Crop)
	ReplaceServices([]Service)
	FindHarvestByName(name string) (Harvest, bool)
	CurrentHarvest() Harvest
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListHarvests() []Harvest
	CurrentHarvestID() string
	FindHarvest(id string) (Harvest, bool)
	ListServices(harvestID string) []Service
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetClient(id string) (Client, bool)
	ListClients() []Client
	GetEmployee(id string) (Employee, bool)
	ListEmployees() []Employee
	GetAircraft(id string) (Aircraft, bool)
	ListAircraft() []Aircraft
	GetCrop(id string) (Crop, bool)
	ListCrops() []Crop
	GetService(id string) (Service, bool)
	ListCurrentServices() []Service
	ListHarvests() []Harvest
	CurrentHarvest() Harvest
	ExportState() Snapshot
}

// Snapshot is the persisted working-state document: the full store contents
// written (debounced) after every mutation. It is distinct from the backup
// document, which carries a version/metadata envelope for portability.
// Loading tolerates unknown fields so older snapshots keep working as the
// shape grows.
type Snapshot struct {
	CurrentHarvestID  string               `json:"current_harvest"`
	Harvests          []Harvest            `json:"harvests"`
	ServicesByHarvest map[string][]Service `json:"services_by_harvest"`
	Clients           []Client             `json:"clients"`
	Employees         []Employee           `json:"employees"`
	Aircraft          []Aircraft           `json:"aircraft"`
	Crops             []Crop               `json:"crops"`
}
