package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	unlocked int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	l.unlocked++
	return nil
}

// fakeSweeper closes up to limit of its remaining expired attempts per call.
type fakeSweeper struct {
	remaining int
	calls     int
	err       error
}

func (s *fakeSweeper) SweepExpired(_ context.Context, limit int) (int, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	n := limit
	if s.remaining < n {
		n = s.remaining
	}
	s.remaining -= n
	return n, nil
}

func TestAutoSubmitWorker_RunOnce(t *testing.T) {
	tests := []struct {
		name       string
		backlog    int
		batchSize  int
		sweepErr   error
		wantClosed int
		wantCalls  int
	}{
		{name: "empty backlog", backlog: 0, batchSize: 10, wantClosed: 0, wantCalls: 1},
		{name: "partial batch", backlog: 7, batchSize: 10, wantClosed: 7, wantCalls: 1},
		{name: "drains full batches", backlog: 25, batchSize: 10, wantClosed: 25, wantCalls: 3},
		{name: "exact multiple needs one empty probe", backlog: 20, batchSize: 10, wantClosed: 20, wantCalls: 3},
		{name: "capped per tick", backlog: 1000, batchSize: 10, wantClosed: 10 * maxBatchesPerTick, wantCalls: maxBatchesPerTick},
		{name: "sweep error stops the tick", backlog: 5, batchSize: 10, sweepErr: errors.New("db down"), wantClosed: 0, wantCalls: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sweeper := &fakeSweeper{remaining: tc.backlog, err: tc.sweepErr}
			locker := newFakeLocker()
			w := NewAutoSubmitWorker(sweeper, locker, time.Second, tc.batchSize, zerolog.Nop())

			if got := w.RunOnce(context.Background()); got != tc.wantClosed {
				t.Errorf("RunOnce() = %d, want %d", got, tc.wantClosed)
			}
			if sweeper.calls != tc.wantCalls {
				t.Errorf("sweep calls = %d, want %d", sweeper.calls, tc.wantCalls)
			}
			if locker.unlocked != 1 || len(locker.held) != 0 {
				t.Errorf("lock not released: unlocked=%d held=%v", locker.unlocked, locker.held)
			}
		})
	}
}

func TestAutoSubmitWorker_SkipsWhenLockHeld(t *testing.T) {
	sweeper := &fakeSweeper{remaining: 5}
	locker := newFakeLocker()
	held, _ := locker.TryLock(context.Background(), "lock:auto_submit_sweep", time.Minute)
	if !held {
		t.Fatal("could not pre-acquire lock")
	}

	w := NewAutoSubmitWorker(sweeper, locker, time.Second, 10, zerolog.Nop())
	if got := w.RunOnce(context.Background()); got != 0 {
		t.Errorf("RunOnce() = %d, want 0", got)
	}
	if sweeper.calls != 0 {
		t.Errorf("sweep ran %d times without the lock", sweeper.calls)
	}
	if locker.unlocked != 0 {
		t.Error("released a lock it did not hold")
	}
}

func TestAutoSubmitWorker_LockError(t *testing.T) {
	sweeper := &fakeSweeper{remaining: 5}
	locker := newFakeLocker()
	locker.err = errors.New("redis unavailable")

	w := NewAutoSubmitWorker(sweeper, locker, time.Second, 10, zerolog.Nop())
	if got := w.RunOnce(context.Background()); got != 0 {
		t.Errorf("RunOnce() = %d, want 0", got)
	}
	if sweeper.calls != 0 {
		t.Errorf("sweep ran %d times after a lock error", sweeper.calls)
	}
}

func TestAutoSubmitWorker_StartStopsOnCancel(t *testing.T) {
	sweeper := &fakeSweeper{}
	w := NewAutoSubmitWorker(sweeper, newFakeLocker(), time.Hour, 10, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
