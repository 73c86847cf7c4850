package core

import (
	"bytes"
	"context"
	"time"

	"agrocore/internal/analytics"
	"agrocore/internal/backup"
	"agrocore/internal/blob"
	"agrocore/pkg/domain"
)

// Service exposes higher-level transactional operations over the domain
// store: reference-entity CRUD, harvest lifecycle, service records, backup
// export/import, and derived analytics.
type Service struct {
	store   domain.PersistentStore
	archive blob.Store
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	clock   func() time.Time
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		clock:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine. Intended for tests and ephemeral tooling.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(newMemoryStore(engine), opts...)
}

// WithBackupArchive installs a blob store that receives a copy of every
// exported backup document.
func WithBackupArchive(store blob.Store) Option {
	return func(s *Service) { s.archive = store }
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// instrument wraps one facade operation with tracing, metrics, audit, and
// logging. fn returns the affected entity id for the audit trail.
func (s *Service) instrument(ctx context.Context, op string, fn func(ctx context.Context) (string, Result, error)) (Result, error) {
	started := s.clock()
	ctx, span := s.tracer.Start(ctx, op)
	entityID, res, err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, s.clock().Sub(started))

	entry := AuditEntry{Operation: op, Status: AuditStatusSuccess, EntityID: entityID, Warnings: len(res.Warnings()), At: started}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)

	if err != nil {
		s.logger.Error("operation failed", "operation", op, "entity_id", entityID, "error", err)
		return res, err
	}
	for _, w := range res.Warnings() {
		s.logger.Warn("rule warning", "operation", op, "rule", w.Rule, "message", w.Message)
	}
	s.logger.Debug("operation completed", "operation", op, "entity_id", entityID)
	return res, nil
}

// Harvest lifecycle ----------------------------------------------------------

// CreateHarvest registers a new harvest. The first harvest ever created
// becomes current automatically.
func (s *Service) CreateHarvest(ctx context.Context, name string) (domain.Harvest, Result, error) {
	var created domain.Harvest
	res, err := s.instrument(ctx, "create_harvest", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateHarvest(name)
			return err
		})
		return created.ID, res, err
	})
	return created, res, err
}

// SetCurrentHarvest makes the identified harvest current.
func (s *Service) SetCurrentHarvest(ctx context.Context, id string) (Result, error) {
	return s.instrument(ctx, "set_current_harvest", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.SetCurrentHarvest(id)
		})
		return id, res, err
	})
}

// DeleteHarvest removes a harvest and its service partition.
func (s *Service) DeleteHarvest(ctx context.Context, id string) (Result, error) {
	return s.instrument(ctx, "delete_harvest", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteHarvest(id)
		})
		return id, res, err
	})
}

// Harvests lists the harvest registry ordered by creation time.
func (s *Service) Harvests() []domain.Harvest { return s.store.ListHarvests() }

// CurrentHarvest returns the harvest service operations address.
func (s *Service) CurrentHarvest() domain.Harvest { return s.store.CurrentHarvest() }

// Client operations ----------------------------------------------------------

// CreateClient persists a new client.
func (s *Service) CreateClient(ctx context.Context, client domain.Client) (domain.Client, Result, error) {
	var created domain.Client
	res, err := s.instrument(ctx, "create_client", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateClient(client)
			return err
		})
		return created.ID, res, err
	})
	return created, res, err
}

// UpdateClient mutates a client using the provided mutator.
func (s *Service) UpdateClient(ctx context.Context, id string, mutator func(*domain.Client) error) (domain.Client, Result, error) {
	var updated domain.Client
	res, err := s.instrument(ctx, "update_client", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			updated, err = tx.UpdateClient(id, mutator)
			return err
		})
		return id, res, err
	})
	return updated, res, err
}

// DeleteClient removes a client record.
func (s *Service) DeleteClient(ctx context.Context, id string) (Result, error) {
	return s.instrument(ctx, "delete_client", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteClient(id)
		})
		return id, res, err
	})
}

// Clients lists all clients.
func (s *Service) Clients() []domain.Client { return s.store.ListClients() }

// GetClient retrieves a client by id.
func (s *Service) GetClient(id string) (domain.Client, bool) { return s.store.GetClient(id) }

// Employee operations --------------------------------------------------------

// CreateEmployee persists a new employee.
func (s *Service) CreateEmployee(ctx context.Context, employee domain.Employee) (domain.Employee, Result, error) {
	var created domain.Employee
	res, err := s.instrument(ctx, "create_employee", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateEmployee(employee)
			return err
		})
		return created.ID, res, err
	})
	return created, res, err
}

// UpdateEmployee mutates an employee using the provided mutator.
func (s *Service) UpdateEmployee(ctx context.Context, id string, mutator func(*domain.Employee) error) (domain.Employee, Result, error) {
	var updated domain.Employee
	res, err := s.instrument(ctx, "update_employee", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			updated, err = tx.UpdateEmployee(id, mutator)
			return err
		})
		return id, res, err
	})
	return updated, res, err
}

// DeleteEmployee removes an employee record.
func (s *Service) DeleteEmployee(ctx context.Context, id string) (Result, error) {
	return s.instrument(ctx, "delete_employee", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteEmployee(id)
		})
		return id, res, err
	})
}

// Employees lists all employees.
func (s *Service) Employees() []domain.Employee { return s.store.ListEmployees() }

// GetEmployee retrieves an employee by id.
func (s *Service) GetEmployee(id string) (domain.Employee, bool) { return s.store.GetEmployee(id) }

// Aircraft operations --------------------------------------------------------

// CreateAircraft persists a new aircraft.
func (s *Service) CreateAircraft(ctx context.Context, aircraft domain.Aircraft) (domain.Aircraft, Result, error) {
	var created domain.Aircraft
	res, err := s.instrument(ctx, "create_aircraft", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateAircraft(aircraft)
			return err
		})
		return created.ID, res, err
	})
	return created, res, err
}

// UpdateAircraft mutates an aircraft using the provided mutator.
func (s *Service) UpdateAircraft(ctx context.Context, id string, mutator func(*domain.Aircraft) error) (domain.Aircraft, Result, error) {
	var updated domain.Aircraft
	res, err := s.instrument(ctx, "update_aircraft", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			updated, err = tx.UpdateAircraft(id, mutator)
			return err
		})
		return id, res, err
	})
	return updated, res, err
}

// DeleteAircraft removes an aircraft record.
func (s *Service) DeleteAircraft(ctx context.Context, id string) (Result, error) {
	return s.instrument(ctx, "delete_aircraft", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteAircraft(id)
		})
		return id, res, err
	})
}

// AircraftList lists all aircraft.
func (s *Service) AircraftList() []domain.Aircraft { return s.store.ListAircraft() }

// GetAircraft retrieves an aircraft by id.
func (s *Service) GetAircraft(id string) (domain.Aircraft, bool) { return s.store.GetAircraft(id) }

// Crop operations ------------------------------------------------------------

// CreateCrop persists a new crop.
func (s *Service) CreateCrop(ctx context.Context, crop domain.Crop) (domain.Crop, Result, error) {
	var created domain.Crop
	res, err := s.instrument(ctx, "create_crop", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateCrop(crop)
			return err
		})
		return created.ID, res, err
	})
	return created, res, err
}

// UpdateCrop mutates a crop using the provided mutator.
func (s *Service) UpdateCrop(ctx context.Context, id string, mutator func(*domain.Crop) error) (domain.Crop, Result, error) {
	var updated domain.Crop
	res, err := s.instrument(ctx, "update_crop", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			updated, err = tx.UpdateCrop(id, mutator)
			return err
		})
		return id, res, err
	})
	return updated, res, err
}

// DeleteCrop removes a crop record.
func (s *Service) DeleteCrop(ctx context.Context, id string) (Result, error) {
	return s.instrument(ctx, "delete_crop", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteCrop(id)
		})
		return id, res, err
	})
}

// Crops lists all crops.
func (s *Service) Crops() []domain.Crop { return s.store.ListCrops() }

// GetCrop retrieves a crop by id.
func (s *Service) GetCrop(id string) (domain.Crop, bool) { return s.store.GetCrop(id) }

// Service-record operations --------------------------------------------------

// CreateService records a new service in the current harvest's partition.
func (s *Service) CreateService(ctx context.Context, service domain.Service) (domain.Service, Result, error) {
	var created domain.Service
	res, err := s.instrument(ctx, "create_service", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateService(service)
			return err
		})
		return created.ID, res, err
	})
	return created, res, err
}

// UpdateService mutates a service in the current harvest's partition.
func (s *Service) UpdateService(ctx context.Context, id string, mutator func(*domain.Service) error) (domain.Service, Result, error) {
	var updated domain.Service
	res, err := s.instrument(ctx, "update_service", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			updated, err = tx.UpdateService(id, mutator)
			return err
		})
		return id, res, err
	})
	return updated, res, err
}

// DeleteService removes a service from the current harvest's partition.
func (s *Service) DeleteService(ctx context.Context, id string) (Result, error) {
	return s.instrument(ctx, "delete_service", func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteService(id)
		})
		return id, res, err
	})
}

// Services lists the current harvest's partition in insertion order.
func (s *Service) Services() []domain.Service { return s.store.ListCurrentServices() }

// GetService retrieves a service by id from the current harvest's partition.
func (s *Service) GetService(id string) (domain.Service, bool) { return s.store.GetService(id) }

// Analytics ------------------------------------------------------------------

// Dashboard computes the dashboard summary for the current harvest.
func (s *Service) Dashboard(ctx context.Context) analytics.Summary {
	_, span := s.tracer.Start(ctx, "dashboard")
	defer span.End(nil)
	crops := make(map[string]string)
	for _, c := range s.store.ListCrops() {
		crops[c.ID] = c.Name
	}
	return analytics.Summarize(s.store.ListCurrentServices(), crops)
}

// Report computes a filtered report over the current harvest's services.
func (s *Service) Report(ctx context.Context, filter analytics.Filter) analytics.Report {
	_, span := s.tracer.Start(ctx, "report")
	defer span.End(nil)
	services := filter.Apply(s.store.ListCurrentServices())
	return analytics.BuildReport(services, analytics.Lookups{
		ClientName: func(id string) (string, bool) {
			c, ok := s.store.GetClient(id)
			return c.Name, ok
		},
		AircraftName: func(id string) (string, bool) {
			a, ok := s.store.GetAircraft(id)
			if !ok {
				return "", false
			}
			return a.TailNumber + " (" + a.Model + ")", true
		},
	})
}

// Backup export/import -------------------------------------------------------

// Flusher is implemented by stores that buffer durable writes.
type Flusher interface {
	Flush(ctx context.Context) error
}

// ExportBackup builds the versioned backup document for the current harvest
// and returns it with its encoded payload. When a backup archive is
// configured, the payload is also stored there under a timestamped key.
func (s *Service) ExportBackup(ctx context.Context) (backup.Document, []byte, error) {
	var (
		doc     backup.Document
		payload []byte
	)
	_, err := s.instrument(ctx, "export_backup", func(ctx context.Context) (string, Result, error) {
		if flusher, ok := s.store.(Flusher); ok {
			if err := flusher.Flush(ctx); err != nil {
				s.logger.Warn("durable flush before export failed", "error", err)
			}
		}
		harvest := s.store.CurrentHarvest()
		doc = backup.Build(harvest.Name, s.clock(), backup.Entities{
			Services:  s.store.ListCurrentServices(),
			Clients:   s.store.ListClients(),
			Employees: s.store.ListEmployees(),
			Aircraft:  s.store.ListAircraft(),
			Crops:     s.store.ListCrops(),
		})
		var err error
		payload, err = backup.Encode(doc)
		if err != nil {
			return harvest.ID, Result{}, err
		}
		s.archiveBackup(ctx, doc, payload)
		return harvest.ID, Result{}, nil
	})
	if err != nil {
		return backup.Document{}, nil, err
	}
	return doc, payload, nil
}

func (s *Service) archiveBackup(ctx context.Context, doc backup.Document, payload []byte) {
	if s.archive == nil {
		return
	}
	key := "exports/" + doc.ExportedAt.Format("2006/01/02/") + backup.Filename(doc.Harvest, doc.ExportedAt)
	_, err := s.archive.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"harvest": doc.Harvest, "version": doc.Version},
	})
	if err != nil {
		// Archival is best effort; the caller still gets the payload.
		s.logger.Warn("backup archival failed", "key", key, "error", err)
		return
	}
	s.logger.Info("backup archived", "key", key, "driver", string(s.archive.Driver()))
}

// ImportBackup validates a backup payload and atomically replaces all
// collections with its contents. The document's harvest becomes current,
// created on the fly when no harvest with that name exists. A malformed
// payload leaves the store untouched.
func (s *Service) ImportBackup(ctx context.Context, payload []byte) (backup.Document, Result, error) {
	var doc backup.Document
	res, err := s.instrument(ctx, "import_backup", func(ctx context.Context) (string, Result, error) {
		var err error
		doc, err = backup.Decode(payload)
		if err != nil {
			return "", Result{}, err
		}
		var harvestID string
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			harvest, ok := tx.FindHarvestByName(doc.Harvest)
			if !ok {
				var err error
				harvest, err = tx.CreateHarvest(doc.Harvest)
				if err != nil {
					return err
				}
			}
			if err := tx.SetCurrentHarvest(harvest.ID); err != nil {
				return err
			}
			harvestID = harvest.ID
			tx.ReplaceClients(doc.Entities.Clients)
			tx.ReplaceEmployees(doc.Entities.Employees)
			tx.ReplaceAircraft(doc.Entities.Aircraft)
			tx.ReplaceCrops(doc.Entities.Crops)
			tx.ReplaceServices(doc.Entities.Services)
			return nil
		})
		return harvestID, res, err
	})
	if err != nil {
		return backup.Document{}, res, err
	}
	return doc, res, nil
}
