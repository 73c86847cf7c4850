// Package snapshot provides debounced durable persistence of the store's
// working state. Mutations offer the latest snapshot to a scheduler; the
// scheduler coalesces bursts into a single write per quiet period, so a
// rapid editing session costs one disk write instead of dozens.
package snapshot

import (
	"context"
	"sync"
	"time"

	"agrocore/pkg/domain"
)

// Sink stores and retrieves the single working-state document. Save always
// overwrites the previous snapshot; Load returns ok=false when no snapshot
// has ever been written.
type Sink interface {
	Save(ctx context.Context, snap domain.Snapshot) error
	Load(ctx context.Context) (domain.Snapshot, bool, error)
	Close() error
}

// DefaultDebounce is the quiet period applied when no interval is configured.
const DefaultDebounce = 300 * time.Millisecond

// WarnFunc receives non-fatal persistence failures. The in-memory state is
// already committed when a warning fires; the next successful flush heals
// the durable copy.
type WarnFunc func(domain.PersistenceWarning)

// Scheduler coalesces snapshot offers into debounced sink writes. Only the
// most recent offer survives a quiet period; intermediate snapshots are
// discarded unwritten.
type Scheduler struct {
	sink     Sink
	debounce time.Duration
	warn     WarnFunc

	mu      sync.Mutex
	pending *domain.Snapshot
	timer   *time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// NewScheduler wires a scheduler to a sink. A non-positive debounce falls
// back to DefaultDebounce. warn may be nil.
func NewScheduler(sink Sink, debounce time.Duration, warn WarnFunc) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Scheduler{sink: sink, debounce: debounce, warn: warn}
}

// Offer replaces any pending snapshot and restarts the quiet-period timer.
// It never blocks on the sink.
func (s *Scheduler) Offer(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = &snap
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.wg.Add(1)
	s.timer = time.AfterFunc(s.debounce, func() {
		defer s.wg.Done()
		s.flushPending()
	})
}

func (s *Scheduler) flushPending() {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()
	if snap == nil {
		return
	}
	if err := s.sink.Save(context.Background(), *snap); err != nil && s.warn != nil {
		s.warn(domain.PersistenceWarning{Op: "snapshot.save", Err: err, At: time.Now().UTC()})
	}
}

// Flush writes any pending snapshot immediately, bypassing the quiet period.
// Export and shutdown paths use it to guarantee the durable copy is current.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		if s.timer.Stop() {
			s.wg.Done()
		}
		s.timer = nil
	}
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()
	if snap == nil {
		return nil
	}
	if err := s.sink.Save(ctx, *snap); err != nil {
		if s.warn != nil {
			s.warn(domain.PersistenceWarning{Op: "snapshot.flush", Err: err, At: time.Now().UTC()})
		}
		return err
	}
	return nil
}

// Close flushes pending work and stops accepting offers.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.Flush(context.Background())
	s.wg.Wait()
	if cerr := s.sink.Close(); err == nil {
		err = cerr
	}
	return err
}
