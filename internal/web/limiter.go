package web

// limiter.go bounds how many analyses run at once.
//
// Each analysis holds a whole file in memory while it walks it, so the
// server admits at most maxConcurrent of them. Further requests wait up to
// maxWait for a slot and then fail with ErrTooManyAnalyses. WaitForDrain
// lets shutdown wait for in-flight analyses.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyAnalyses is returned when every slot stayed busy for the whole
// wait. Clients should retry after a short delay.
var ErrTooManyAnalyses = errors.New("too many analyses in progress, please try again later")

const (
	DefaultMaxConcurrentAnalyses = 4
	DefaultMaxWaitTime           = 10 * time.Second
)

// AnalysisLimiter is a counting semaphore over analysis slots.
type AnalysisLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewAnalysisLimiter allows at most maxConcurrent simultaneous analyses.
func NewAnalysisLimiter(maxConcurrent int, maxWait time.Duration) *AnalysisLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentAnalyses
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &AnalysisLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot. The caller must Release it.
func (l *AnalysisLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// The caller's own cancellation wins over our timeout.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyAnalyses
	}
}

// TryAcquire takes a slot without blocking.
func (l *AnalysisLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *AnalysisLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of running analyses.
func (l *AnalysisLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

func (l *AnalysisLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

func (l *AnalysisLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no analysis is running or ctx ends.
func (l *AnalysisLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter for the status endpoint.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

func (l *AnalysisLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
