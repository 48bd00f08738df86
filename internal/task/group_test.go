package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestGroupRunsTasks(t *testing.T) {
	g := NewGroup(context.Background(), "test")

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		if !g.Go("inc", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}) {
			t.Fatal("Go refused a task on a live group")
		}
	}
	g.Wait()

	if ran.Load() != 5 {
		t.Errorf("ran = %d, want 5", ran.Load())
	}
	st := g.Stats()
	if st.Started != 5 || st.Completed != 5 || st.Active != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestStopCancelsRunningTasks(t *testing.T) {
	g := NewGroup(context.Background(), "test")

	started := make(chan struct{})
	g.Go("block", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	g.Stop()

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not observe cancellation")
	}

	if !g.Stopped() {
		t.Error("Stopped() = false after Stop")
	}
	if st := g.Stats(); st.Cancelled != 1 {
		t.Errorf("cancelled = %d, want 1", st.Cancelled)
	}
}

func TestGoAfterStopIsRefused(t *testing.T) {
	g := NewGroup(context.Background(), "test")
	g.Stop()

	var ran atomic.Bool
	if g.Go("late", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}) {
		t.Error("Go accepted a task after Stop")
	}
	g.Wait()
	if ran.Load() {
		t.Error("task ran after Stop")
	}
}

func TestParentCancellationStopsGroup(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g := NewGroup(parent, "test")
	cancel()

	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Fatal("group not stopped by parent")
	}
	if g.Go("late", func(ctx context.Context) error { return nil }) {
		t.Error("Go accepted a task after parent cancellation")
	}
}

func TestPanicIsRecovered(t *testing.T) {
	g := NewGroup(context.Background(), "test")
	g.Go("boom", func(ctx context.Context) error {
		panic("boom")
	})
	g.Go("fail", func(ctx context.Context) error {
		return errors.New("nope")
	})
	g.Wait()

	if st := g.Stats(); st.Failed != 2 {
		t.Errorf("failed = %d, want 2", st.Failed)
	}
}
