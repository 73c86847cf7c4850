// Package memory implements the authoritative in-memory store for the
// agrocore domain: reference collections shared across harvests, the harvest
// registry with its single current harvest, and the harvest-keyed service
// partitions. Mutations run against a cloned state and commit atomically
// after rule evaluation, so a failed operation never leaves partial writes
// visible to readers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"agrocore/pkg/domain"
	"agrocore/pkg/ident"
)

type state struct {
	currentHarvest string
	harvests       map[string]domain.Harvest
	services       map[string][]domain.Service
	clients        map[string]domain.Client
	employees      map[string]domain.Employee
	aircraft       map[string]domain.Aircraft
	crops          map[string]domain.Crop
}

func newState() state {
	return state{
		harvests:  make(map[string]domain.Harvest),
		services:  make(map[string][]domain.Service),
		clients:   make(map[string]domain.Client),
		employees: make(map[string]domain.Employee),
		aircraft:  make(map[string]domain.Aircraft),
		crops:     make(map[string]domain.Crop),
	}
}

func (s state) clone() state {
	cloned := newState()
	cloned.currentHarvest = s.currentHarvest
	for k, v := range s.harvests {
		cloned.harvests[k] = v
	}
	for k, partition := range s.services {
		cloned.services[k] = cloneServices(partition)
	}
	for k, v := range s.clients {
		cloned.clients[k] = v
	}
	for k, v := range s.employees {
		cloned.employees[k] = v
	}
	for k, v := range s.aircraft {
		cloned.aircraft[k] = v
	}
	for k, v := range s.crops {
		cloned.crops[k] = v
	}
	return cloned
}

func cloneService(s domain.Service) domain.Service {
	cp := s
	if s.Photos != nil {
		cp.Photos = append([]domain.ServicePhoto(nil), s.Photos...)
	}
	if s.Location != nil {
		loc := *s.Location
		if s.Location.Accuracy != nil {
			acc := *s.Location.Accuracy
			loc.Accuracy = &acc
		}
		cp.Location = &loc
	}
	return cp
}

func cloneServices(in []domain.Service) []domain.Service {
	out := make([]domain.Service, 0, len(in))
	for _, s := range in {
		out = append(out, cloneService(s))
	}
	return out
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  state
	engine *domain.RulesEngine
	nowFn  func() time.Time
	idFn   func() string
}

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
		idFn:   ident.NewID,
	}
}

// Transaction represents a mutation set applied to the store state.
type Transaction struct {
	store   *Store
	state   state
	changes []domain.Change
	now     time.Time
}

var _ domain.Transaction = (*Transaction)(nil)

// view exposes a read-only snapshot of the transactional state to rules.
type view struct {
	state *state
}

var _ domain.TransactionView = view{}

// ListHarvests returns all harvests within the snapshot.
func (v view) ListHarvests() []domain.Harvest {
	return sortedHarvests(v.state.harvests)
}

// CurrentHarvestID returns the id of the current harvest within the snapshot.
func (v view) CurrentHarvestID() string { return v.state.currentHarvest }

// FindHarvest retrieves a harvest by id from the snapshot.
func (v view) FindHarvest(id string) (domain.Harvest, bool) {
	h, ok := v.state.harvests[id]
	return h, ok
}

// ListServices returns the partition owned by the given harvest.
func (v view) ListServices(harvestID string) []domain.Service {
	return cloneServices(v.state.services[harvestID])
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The candidate state is evaluated by the rules engine before commit; a
// blocking violation discards the whole transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.InvariantViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

func (tx *Transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// Harvest operations ---------------------------------------------------------

// CreateHarvest registers a new harvest with an empty service partition. The
// first harvest ever created becomes current; later ones leave currency
// untouched.
func (tx *Transaction) CreateHarvest(name string) (domain.Harvest, error) {
	h := domain.Harvest{Name: name}
	h.ID = tx.store.idFn()
	h.CreatedAt = tx.now
	if len(tx.state.harvests) == 0 {
		h.Active = true
		tx.state.currentHarvest = h.ID
	}
	tx.state.harvests[h.ID] = h
	tx.state.services[h.ID] = nil
	tx.recordChange(domain.Change{Entity: domain.EntityHarvest, Action: domain.ActionCreate, After: h})
	return h, nil
}

// SetCurrentHarvest flips active flags so exactly one harvest is current.
func (tx *Transaction) SetCurrentHarvest(id string) error {
	if _, ok := tx.state.harvests[id]; !ok {
		return domain.NotFoundError{Entity: domain.EntityHarvest, ID: id}
	}
	tx.activateHarvest(id)
	return nil
}

func (tx *Transaction) activateHarvest(id string) {
	for hid, h := range tx.state.harvests {
		active := hid == id
		if h.Active != active {
			h.Active = active
			tx.state.harvests[hid] = h
		}
	}
	tx.state.currentHarvest = id
}

// DeleteHarvest removes a harvest and its entire service partition. The last
// remaining harvest cannot be deleted; deleting the current harvest hands
// currency to the newest remaining one before the target is removed.
func (tx *Transaction) DeleteHarvest(id string) error {
	current, ok := tx.state.harvests[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityHarvest, ID: id}
	}
	if len(tx.state.harvests) == 1 {
		return domain.InvariantViolationError{Reason: "cannot delete the last harvest"}
	}
	if tx.state.currentHarvest == id {
		var next domain.Harvest
		for hid, h := range tx.state.harvests {
			if hid == id {
				continue
			}
			if next.ID == "" || h.CreatedAt.After(next.CreatedAt) ||
				(h.CreatedAt.Equal(next.CreatedAt) && h.ID > next.ID) {
				next = h
			}
		}
		tx.activateHarvest(next.ID)
	}
	delete(tx.state.harvests, id)
	delete(tx.state.services, id)
	tx.recordChange(domain.Change{Entity: domain.EntityHarvest, Action: domain.ActionDelete, Before: current})
	return nil
}

// FindHarvestByName returns the first harvest with the given name.
func (tx *Transaction) FindHarvestByName(name string) (domain.Harvest, bool) {
	for _, h := range sortedHarvests(tx.state.harvests) {
		if h.Name == name {
			return h, true
		}
	}
	return domain.Harvest{}, false
}

// CurrentHarvest returns the harvest all service operations address.
func (tx *Transaction) CurrentHarvest() domain.Harvest {
	return tx.state.harvests[tx.state.currentHarvest]
}

// Client operations ----------------------------------------------------------

// CreateClient stores a new client record.
func (tx *Transaction) CreateClient(c domain.Client) (domain.Client, error) {
	c.ID = tx.store.idFn()
	c.CreatedAt = tx.now
	c.UpdatedAt = nil
	tx.state.clients[c.ID] = c
	tx.recordChange(domain.Change{Entity: domain.EntityClient, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateClient mutates a client using the provided mutator function.
func (tx *Transaction) UpdateClient(id string, mutator func(*domain.Client) error) (domain.Client, error) {
	current, ok := tx.state.clients[id]
	if !ok {
		return domain.Client{}, domain.NotFoundError{Entity: domain.EntityClient, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return domain.Client{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	now := tx.now
	current.UpdatedAt = &now
	tx.state.clients[id] = current
	tx.recordChange(domain.Change{Entity: domain.EntityClient, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteClient removes a client. Removal is idempotent; services referencing
// the client keep their foreign key and resolve to "not found" at read time.
func (tx *Transaction) DeleteClient(id string) error {
	current, ok := tx.state.clients[id]
	if !ok {
		return nil
	}
	delete(tx.state.clients, id)
	tx.recordChange(domain.Change{Entity: domain.EntityClient, Action: domain.ActionDelete, Before: current})
	return nil
}

// Employee operations --------------------------------------------------------

// CreateEmployee stores a new employee record.
func (tx *Transaction) CreateEmployee(e domain.Employee) (domain.Employee, error) {
	e.ID = tx.store.idFn()
	e.CreatedAt = tx.now
	e.UpdatedAt = nil
	tx.state.employees[e.ID] = e
	tx.recordChange(domain.Change{Entity: domain.EntityEmployee, Action: domain.ActionCreate, After: e})
	return e, nil
}

// UpdateEmployee mutates an employee record.
func (tx *Transaction) UpdateEmployee(id string, mutator func(*domain.Employee) error) (domain.Employee, error) {
	current, ok := tx.state.employees[id]
	if !ok {
		return domain.Employee{}, domain.NotFoundError{Entity: domain.EntityEmployee, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return domain.Employee{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	now := tx.now
	current.UpdatedAt = &now
	tx.state.employees[id] = current
	tx.recordChange(domain.Change{Entity: domain.EntityEmployee, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteEmployee removes an employee; idempotent.
func (tx *Transaction) DeleteEmployee(id string) error {
	current, ok := tx.state.employees[id]
	if !ok {
		return nil
	}
	delete(tx.state.employees, id)
	tx.recordChange(domain.Change{Entity: domain.EntityEmployee, Action: domain.ActionDelete, Before: current})
	return nil
}

// Aircraft operations --------------------------------------------------------

// CreateAircraft stores a new aircraft record.
func (tx *Transaction) CreateAircraft(a domain.Aircraft) (domain.Aircraft, error) {
	a.ID = tx.store.idFn()
	a.CreatedAt = tx.now
	a.UpdatedAt = nil
	tx.state.aircraft[a.ID] = a
	tx.recordChange(domain.Change{Entity: domain.EntityAircraft, Action: domain.ActionCreate, After: a})
	return a, nil
}

// UpdateAircraft mutates an aircraft record.
func (tx *Transaction) UpdateAircraft(id string, mutator func(*domain.Aircraft) error) (domain.Aircraft, error) {
	current, ok := tx.state.aircraft[id]
	if !ok {
		return domain.Aircraft{}, domain.NotFoundError{Entity: domain.EntityAircraft, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return domain.Aircraft{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	now := tx.now
	current.UpdatedAt = &now
	tx.state.aircraft[id] = current
	tx.recordChange(domain.Change{Entity: domain.EntityAircraft, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteAircraft removes an aircraft; idempotent.
func (tx *Transaction) DeleteAircraft(id string) error {
	current, ok := tx.state.aircraft[id]
	if !ok {
		return nil
	}
	delete(tx.state.aircraft, id)
	tx.recordChange(domain.Change{Entity: domain.EntityAircraft, Action: domain.ActionDelete, Before: current})
	return nil
}

// Crop operations ------------------------------------------------------------

// CreateCrop stores a new crop record.
func (tx *Transaction) CreateCrop(c domain.Crop) (domain.Crop, error) {
	c.ID = tx.store.idFn()
	c.CreatedAt = tx.now
	c.UpdatedAt = nil
	tx.state.crops[c.ID] = c
	tx.recordChange(domain.Change{Entity: domain.EntityCrop, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateCrop mutates a crop record.
func (tx *Transaction) UpdateCrop(id string, mutator func(*domain.Crop) error) (domain.Crop, error) {
	current, ok := tx.state.crops[id]
	if !ok {
		return domain.Crop{}, domain.NotFoundError{Entity: domain.EntityCrop, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return domain.Crop{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	now := tx.now
	current.UpdatedAt = &now
	tx.state.crops[id] = current
	tx.recordChange(domain.Change{Entity: domain.EntityCrop, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteCrop removes a crop; idempotent.
func (tx *Transaction) DeleteCrop(id string) error {
	current, ok := tx.state.crops[id]
	if !ok {
		return nil
	}
	delete(tx.state.crops, id)
	tx.recordChange(domain.Change{Entity: domain.EntityCrop, Action: domain.ActionDelete, Before: current})
	return nil
}

// Service operations ---------------------------------------------------------

// CreateService appends a service into the current harvest's partition. The
// harvest id is stamped by the store, never taken from the caller.
func (tx *Transaction) CreateService(s domain.Service) (domain.Service, error) {
	harvestID := tx.state.currentHarvest
	if _, ok := tx.state.harvests[harvestID]; !ok {
		return domain.Service{}, domain.NotFoundError{Entity: domain.EntityHarvest, ID: harvestID}
	}
	s.ID = tx.store.idFn()
	s.HarvestID = harvestID
	s.CreatedAt = tx.now
	s.UpdatedAt = nil
	stored := cloneService(s)
	tx.state.services[harvestID] = append(tx.state.services[harvestID], stored)
	tx.recordChange(domain.Change{Entity: domain.EntityService, Action: domain.ActionCreate, After: stored})
	return cloneService(stored), nil
}

// UpdateService mutates a service looked up inside the current harvest's
// partition only.
func (tx *Transaction) UpdateService(id string, mutator func(*domain.Service) error) (domain.Service, error) {
	partition := tx.state.services[tx.state.currentHarvest]
	for i, svc := range partition {
		if svc.ID != id {
			continue
		}
		before := cloneService(svc)
		current := cloneService(svc)
		if err := mutator(&current); err != nil {
			return domain.Service{}, err
		}
		current.ID = id
		current.HarvestID = before.HarvestID
		current.CreatedAt = before.CreatedAt
		now := tx.now
		current.UpdatedAt = &now
		partition[i] = cloneService(current)
		tx.recordChange(domain.Change{Entity: domain.EntityService, Action: domain.ActionUpdate, Before: before, After: partition[i]})
		return current, nil
	}
	return domain.Service{}, domain.NotFoundError{Entity: domain.EntityService, ID: id}
}

// DeleteService removes a service from the current partition; idempotent.
func (tx *Transaction) DeleteService(id string) error {
	harvestID := tx.state.currentHarvest
	partition := tx.state.services[harvestID]
	for i, svc := range partition {
		if svc.ID != id {
			continue
		}
		tx.state.services[harvestID] = append(partition[:i:i], partition[i+1:]...)
		tx.recordChange(domain.Change{Entity: domain.EntityService, Action: domain.ActionDelete, Before: svc})
		return nil
	}
	return nil
}

// Bulk replacement -----------------------------------------------------------

// ReplaceClients swaps the whole client collection.
func (tx *Transaction) ReplaceClients(items []domain.Client) {
	tx.state.clients = make(map[string]domain.Client, len(items))
	for _, c := range items {
		tx.state.clients[c.ID] = c
	}
	tx.recordChange(domain.Change{Entity: domain.EntityClient, Action: domain.ActionReplace})
}

// ReplaceEmployees swaps the whole employee collection.
func (tx *Transaction) ReplaceEmployees(items []domain.Employee) {
	tx.state.employees = make(map[string]domain.Employee, len(items))
	for _, e := range items {
		tx.state.employees[e.ID] = e
	}
	tx.recordChange(domain.Change{Entity: domain.EntityEmployee, Action: domain.ActionReplace})
}

// ReplaceAircraft swaps the whole aircraft collection.
func (tx *Transaction) ReplaceAircraft(items []domain.Aircraft) {
	tx.state.aircraft = make(map[string]domain.Aircraft, len(items))
	for _, a := range items {
		tx.state.aircraft[a.ID] = a
	}
	tx.recordChange(domain.Change{Entity: domain.EntityAircraft, Action: domain.ActionReplace})
}

// ReplaceCrops swaps the whole crop collection.
func (tx *Transaction) ReplaceCrops(items []domain.Crop) {
	tx.state.crops = make(map[string]domain.Crop, len(items))
	for _, c := range items {
		tx.state.crops[c.ID] = c
	}
	tx.recordChange(domain.Change{Entity: domain.EntityCrop, Action: domain.ActionReplace})
}

// ReplaceServices swaps only the current harvest's partition. Every imported
// record is stamped with the current harvest id.
func (tx *Transaction) ReplaceServices(items []domain.Service) {
	harvestID := tx.state.currentHarvest
	partition := make([]domain.Service, 0, len(items))
	for _, s := range items {
		cp := cloneService(s)
		cp.HarvestID = harvestID
		partition = append(partition, cp)
	}
	tx.state.services[harvestID] = partition
	tx.recordChange(domain.Change{Entity: domain.EntityService, Action: domain.ActionReplace})
}

// Read helpers ---------------------------------------------------------------

// GetClient retrieves a client by id from committed state.
func (s *Store) GetClient(id string) (domain.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.clients[id]
	return c, ok
}

// ListClients returns all clients ordered by creation time.
func (s *Store) ListClients() []domain.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Client, 0, len(s.state.clients))
	for _, c := range s.state.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return recordLess(out[i].Base, out[j].Base) })
	return out
}

// GetEmployee retrieves an employee by id.
func (s *Store) GetEmployee(id string) (domain.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.employees[id]
	return e, ok
}

// ListEmployees returns all employees ordered by creation time.
func (s *Store) ListEmployees() []domain.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Employee, 0, len(s.state.employees))
	for _, e := range s.state.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return recordLess(out[i].Base, out[j].Base) })
	return out
}

// GetAircraft retrieves an aircraft by id.
func (s *Store) GetAircraft(id string) (domain.Aircraft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.aircraft[id]
	return a, ok
}

// ListAircraft returns all aircraft ordered by creation time.
func (s *Store) ListAircraft() []domain.Aircraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Aircraft, 0, len(s.state.aircraft))
	for _, a := range s.state.aircraft {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return recordLess(out[i].Base, out[j].Base) })
	return out
}

// GetCrop retrieves a crop by id.
func (s *Store) GetCrop(id string) (domain.Crop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.crops[id]
	return c, ok
}

// ListCrops returns all crops ordered by creation time.
func (s *Store) ListCrops() []domain.Crop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Crop, 0, len(s.state.crops))
	for _, c := range s.state.crops {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return recordLess(out[i].Base, out[j].Base) })
	return out
}

// GetService retrieves a service by id from the current harvest's partition.
func (s *Store) GetService(id string) (domain.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, svc := range s.state.services[s.state.currentHarvest] {
		if svc.ID == id {
			return cloneService(svc), true
		}
	}
	return domain.Service{}, false
}

// ListCurrentServices returns the current harvest's partition in insertion order.
func (s *Store) ListCurrentServices() []domain.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneServices(s.state.services[s.state.currentHarvest])
}

// ListHarvests returns the harvest registry ordered by creation time.
func (s *Store) ListHarvests() []domain.Harvest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedHarvests(s.state.harvests)
}

// CurrentHarvest returns the harvest new services are recorded against.
func (s *Store) CurrentHarvest() domain.Harvest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.harvests[s.state.currentHarvest]
}

// ExportState captures the committed state as a value snapshot.
func (s *Store) ExportState() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := domain.Snapshot{
		CurrentHarvestID:  s.state.currentHarvest,
		Harvests:          sortedHarvests(s.state.harvests),
		ServicesByHarvest: make(map[string][]domain.Service, len(s.state.services)),
		Clients:           make([]domain.Client, 0, len(s.state.clients)),
		Employees:         make([]domain.Employee, 0, len(s.state.employees)),
		Aircraft:          make([]domain.Aircraft, 0, len(s.state.aircraft)),
		Crops:             make([]domain.Crop, 0, len(s.state.crops)),
	}
	for hid, partition := range s.state.services {
		snap.ServicesByHarvest[hid] = cloneServices(partition)
	}
	for _, c := range s.state.clients {
		snap.Clients = append(snap.Clients, c)
	}
	for _, e := range s.state.employees {
		snap.Employees = append(snap.Employees, e)
	}
	for _, a := range s.state.aircraft {
		snap.Aircraft = append(snap.Aircraft, a)
	}
	for _, c := range s.state.crops {
		snap.Crops = append(snap.Crops, c)
	}
	sort.Slice(snap.Clients, func(i, j int) bool { return recordLess(snap.Clients[i].Base, snap.Clients[j].Base) })
	sort.Slice(snap.Employees, func(i, j int) bool { return recordLess(snap.Employees[i].Base, snap.Employees[j].Base) })
	sort.Slice(snap.Aircraft, func(i, j int) bool { return recordLess(snap.Aircraft[i].Base, snap.Aircraft[j].Base) })
	sort.Slice(snap.Crops, func(i, j int) bool { return recordLess(snap.Crops[i].Base, snap.Crops[j].Base) })
	return snap
}

// ImportState replaces the committed state wholesale from a snapshot,
// normalizing harvest currency so the store never loads into an invalid
// shape: a missing or dangling current pointer resolves to the active
// harvest, then to the oldest one.
func (s *Store) ImportState(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := newState()
	for _, h := range snap.Harvests {
		st.harvests[h.ID] = h
	}
	for hid, partition := range snap.ServicesByHarvest {
		if _, ok := st.harvests[hid]; !ok {
			continue
		}
		st.services[hid] = cloneServices(partition)
	}
	for _, c := range snap.Clients {
		st.clients[c.ID] = c
	}
	for _, e := range snap.Employees {
		st.employees[e.ID] = e
	}
	for _, a := range snap.Aircraft {
		st.aircraft[a.ID] = a
	}
	for _, c := range snap.Crops {
		st.crops[c.ID] = c
	}
	st.currentHarvest = normalizeCurrent(snap.CurrentHarvestID, st.harvests)
	for hid, h := range st.harvests {
		h.Active = hid == st.currentHarvest
		st.harvests[hid] = h
	}
	s.state = st
}

func normalizeCurrent(candidate string, harvests map[string]domain.Harvest) string {
	if _, ok := harvests[candidate]; ok {
		return candidate
	}
	for id, h := range harvests {
		if h.Active {
			return id
		}
	}
	var oldest domain.Harvest
	for _, h := range harvests {
		if oldest.ID == "" || h.CreatedAt.Before(oldest.CreatedAt) ||
			(h.CreatedAt.Equal(oldest.CreatedAt) && h.ID < oldest.ID) {
			oldest = h
		}
	}
	return oldest.ID
}

func sortedHarvests(in map[string]domain.Harvest) []domain.Harvest {
	out := make([]domain.Harvest, 0, len(in))
	for _, h := range in {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return recordLess(out[i].Base, out[j].Base) })
	return out
}

func recordLess(a, b domain.Base) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
