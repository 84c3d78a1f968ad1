package web

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAnalysisLimiter_AcquireRelease(t *testing.T) {
	limiter := NewAnalysisLimiter(2, time.Second)
	ctx := context.Background()

	if got := limiter.Available(); got != 2 {
		t.Errorf("initial Available = %d, want 2", got)
	}

	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}
	if got := limiter.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if got := limiter.Available(); got != 0 {
		t.Errorf("Available = %d, want 0", got)
	}

	limiter.Release()
	limiter.Release()
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("after Release, ActiveCount = %d, want 0", got)
	}
}

func TestAnalysisLimiter_TimesOutWhenFull(t *testing.T) {
	limiter := NewAnalysisLimiter(1, 100*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	start := time.Now()
	err := limiter.Acquire(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTooManyAnalyses) {
		t.Errorf("expected ErrTooManyAnalyses, got %v", err)
	}
	if elapsed < 90*time.Millisecond {
		t.Errorf("gave up too early: %v", elapsed)
	}
}

func TestAnalysisLimiter_NeverExceedsMax(t *testing.T) {
	const maxConcurrent = 3
	limiter := NewAnalysisLimiter(maxConcurrent, time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	maxObserved := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer limiter.Release()

			mu.Lock()
			if n := limiter.ActiveCount(); n > maxObserved {
				maxObserved = n
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
		}()
	}
	wg.Wait()

	if maxObserved > maxConcurrent {
		t.Errorf("observed %d concurrent analyses, max %d", maxObserved, maxConcurrent)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("final ActiveCount = %d, want 0", got)
	}
}

func TestAnalysisLimiter_TryAcquire(t *testing.T) {
	limiter := NewAnalysisLimiter(1, time.Second)

	if !limiter.TryAcquire() {
		t.Fatal("first TryAcquire should succeed")
	}
	if limiter.TryAcquire() {
		t.Error("second TryAcquire should fail")
		limiter.Release()
	}
	limiter.Release()

	if !limiter.TryAcquire() {
		t.Error("TryAcquire after Release should succeed")
	}
	limiter.Release()
}

func TestAnalysisLimiter_CallerCancellation(t *testing.T) {
	limiter := NewAnalysisLimiter(1, 5*time.Second)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- limiter.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestAnalysisLimiter_WaitForDrain(t *testing.T) {
	limiter := NewAnalysisLimiter(2, time.Second)
	ctx := context.Background()
	limiter.Acquire(ctx)
	limiter.Acquire(ctx)

	drained := make(chan error, 1)
	go func() { drained <- limiter.WaitForDrain(context.Background()) }()

	limiter.Release()
	select {
	case <-drained:
		t.Fatal("WaitForDrain returned with one analysis active")
	case <-time.After(80 * time.Millisecond):
	}

	limiter.Release()
	select {
	case err := <-drained:
		if err != nil {
			t.Errorf("WaitForDrain: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForDrain did not return after all slots were released")
	}
}

func TestAnalysisLimiter_WaitForDrainCancelled(t *testing.T) {
	limiter := NewAnalysisLimiter(1, time.Second)
	limiter.Acquire(context.Background())
	defer limiter.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := limiter.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestAnalysisLimiter_Status(t *testing.T) {
	limiter := NewAnalysisLimiter(3, time.Second)
	limiter.Acquire(context.Background())
	defer limiter.Release()

	got := limiter.Status()
	want := LimiterStatus{Active: 1, Available: 2, MaxConcurrent: 3}
	if got != want {
		t.Errorf("Status() = %+v, want %+v", got, want)
	}
}

func TestAnalysisLimiter_Defaults(t *testing.T) {
	limiter := NewAnalysisLimiter(0, 0)
	if got := limiter.MaxConcurrent(); got != DefaultMaxConcurrentAnalyses {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentAnalyses)
	}
}
