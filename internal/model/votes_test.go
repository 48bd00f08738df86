package model

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestVoteLedgerReserveOnce(t *testing.T) {
	l := NewVoteLedger()

	if !l.Reserve(7) {
		t.Fatal("first Reserve should succeed")
	}
	if l.Reserve(7) {
		t.Error("Reserve while in flight should fail")
	}

	l.Confirm(7)
	if !l.Has(7) {
		t.Error("Has(7) should be true after Confirm")
	}
	if l.Reserve(7) {
		t.Error("Reserve after Confirm should fail")
	}
}

func TestVoteLedgerReleaseAllowsRetry(t *testing.T) {
	l := NewVoteLedger()

	l.Reserve(3)
	l.Release(3)

	if l.Has(3) {
		t.Error("released id should not be marked upvoted")
	}
	if !l.Reserve(3) {
		t.Error("Reserve after Release should succeed")
	}
}

func TestVoteLedgerConcurrentReserve(t *testing.T) {
	l := NewVoteLedger()
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Reserve(42) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one reservation, got %d", wins.Load())
	}
}

func TestVoteLedgerClampNeverDecreases(t *testing.T) {
	l := NewVoteLedger()

	first := l.Clamp([]Report{{ID: 1, Upvotes: 4}, {ID: 2, Upvotes: 0}})
	if first[0].Upvotes != 4 {
		t.Fatalf("expected 4, got %d", first[0].Upvotes)
	}

	// A stale response reports a lower count.
	stale := l.Clamp([]Report{{ID: 1, Upvotes: 3}, {ID: 2, Upvotes: 1}})
	if stale[0].Upvotes != 4 {
		t.Errorf("count for id 1 decreased to %d", stale[0].Upvotes)
	}
	if stale[1].Upvotes != 1 {
		t.Errorf("count for id 2 should rise to 1, got %d", stale[1].Upvotes)
	}
}

func TestVoteLedgerClampDoesNotAlias(t *testing.T) {
	l := NewVoteLedger()
	l.Clamp([]Report{{ID: 1, Upvotes: 9}})

	in := []Report{{ID: 1, Upvotes: 2}}
	out := l.Clamp(in)
	if in[0].Upvotes != 2 {
		t.Error("Clamp modified its input")
	}
	if out[0].Upvotes != 9 {
		t.Errorf("expected clamped 9, got %d", out[0].Upvotes)
	}
	if l.Clamp(nil) != nil {
		t.Error("Clamp(nil) should return nil")
	}
}
