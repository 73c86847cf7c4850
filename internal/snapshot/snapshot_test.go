package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"agrocore/pkg/domain"
)

type recordingSink struct {
	mu    sync.Mutex
	saves []domain.Snapshot
	fail  error
}

func (r *recordingSink) Save(ctx context.Context, snap domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.saves = append(r.saves, snap)
	return nil
}

func (r *recordingSink) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	return domain.Snapshot{}, false, nil
}

func (r *recordingSink) Close() error { return nil }

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *recordingSink) last() domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves[len(r.saves)-1]
}

func TestSchedulerCoalescesBursts(t *testing.T) {
	sink := &recordingSink{}
	sched := NewScheduler(sink, 30*time.Millisecond, nil)
	defer sched.Close()

	for i := 0; i < 10; i++ {
		sched.Offer(domain.Snapshot{CurrentHarvestID: "h1"})
	}
	sched.Offer(domain.Snapshot{CurrentHarvestID: "final"})

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := sink.count(); got != 1 {
		t.Fatalf("expected one coalesced save, got %d", got)
	}
	if sink.last().CurrentHarvestID != "final" {
		t.Fatalf("expected last offer to win, got %q", sink.last().CurrentHarvestID)
	}
}

func TestFlushWritesPendingImmediately(t *testing.T) {
	sink := &recordingSink{}
	sched := NewScheduler(sink, time.Hour, nil)
	defer sched.Close()

	sched.Offer(domain.Snapshot{CurrentHarvestID: "pending"})
	if err := sched.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("expected flush to write, got %d saves", sink.count())
	}

	// A second flush with nothing pending is a no-op.
	if err := sched.Flush(context.Background()); err != nil {
		t.Fatalf("empty flush: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("empty flush must not write")
	}
}

func TestCloseFlushesAndStopsAcceptingOffers(t *testing.T) {
	sink := &recordingSink{}
	sched := NewScheduler(sink, time.Hour, nil)

	sched.Offer(domain.Snapshot{CurrentHarvestID: "shutdown"})
	if err := sched.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("close must flush pending snapshot, got %d saves", sink.count())
	}

	sched.Offer(domain.Snapshot{CurrentHarvestID: "late"})
	if err := sched.Flush(context.Background()); err != nil {
		t.Fatalf("flush after close: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("offers after close must be ignored")
	}
}

func TestSaveFailureReportsWarning(t *testing.T) {
	sink := &recordingSink{fail: errors.New("disk full")}
	var (
		mu    sync.Mutex
		warns []domain.PersistenceWarning
	)
	sched := NewScheduler(sink, time.Hour, func(w domain.PersistenceWarning) {
		mu.Lock()
		warns = append(warns, w)
		mu.Unlock()
	})
	defer sched.Close()

	sched.Offer(domain.Snapshot{CurrentHarvestID: "h1"})
	if err := sched.Flush(context.Background()); err == nil {
		t.Fatalf("expected flush to surface the sink error")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(warns) != 1 {
		t.Fatalf("expected one warning, got %d", len(warns))
	}
	if warns[0].Op != "snapshot.flush" {
		t.Fatalf("unexpected warning op %q", warns[0].Op)
	}
	if !errors.Is(warns[0], sink.fail) {
		t.Fatalf("warning must wrap the sink error")
	}
}

func TestZeroDebounceFallsBackToDefault(t *testing.T) {
	sched := NewScheduler(&recordingSink{}, 0, nil)
	defer sched.Close()
	if sched.debounce != DefaultDebounce {
		t.Fatalf("expected default debounce, got %v", sched.debounce)
	}
}
