package core

import (
	"log/slog"
	"time"
)

// Default budgets.
const (
	DefaultMaxBytes        = 50 * 1024 * 1024
	DefaultMaxRows         = 100_000
	DefaultTimeout         = 25 * time.Second
	DefaultCheckInterval   = 5_000
	DefaultMaxUniqueValues = 1_000
	DefaultSampleRows      = 1_000
	DefaultPageSize        = 1_000
	DefaultMaxPageSize     = 10_000
)

// Limits holds the fixed resource ceilings of one engine.
// Zero fields fall back to the defaults above.
type Limits struct {
	MaxBytes        int64         // input size ceiling, checked before parsing
	MaxRows         int           // processed data rows ceiling
	Timeout         time.Duration // wall-clock ceiling per call
	CheckInterval   int           // rows between elapsed-time checks
	MaxUniqueValues int           // distinct values per crosstab axis
	SampleRows      int           // rows sampled by the type detector
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultLimits returns the default budgets.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:        DefaultMaxBytes,
		MaxRows:         DefaultMaxRows,
		Timeout:         DefaultTimeout,
		CheckInterval:   DefaultCheckInterval,
		MaxUniqueValues: DefaultMaxUniqueValues,
		SampleRows:      DefaultSampleRows,
		DefaultPageSize: DefaultPageSize,
		MaxPageSize:     DefaultMaxPageSize,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxBytes <= 0 {
		l.MaxBytes = d.MaxBytes
	}
	if l.MaxRows <= 0 {
		l.MaxRows = d.MaxRows
	}
	if l.Timeout <= 0 {
		l.Timeout = d.Timeout
	}
	if l.CheckInterval <= 0 {
		l.CheckInterval = d.CheckInterval
	}
	if l.MaxUniqueValues <= 0 {
		l.MaxUniqueValues = d.MaxUniqueValues
	}
	if l.SampleRows <= 0 {
		l.SampleRows = d.SampleRows
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = d.MaxPageSize
	}
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = d.DefaultPageSize
	}
	if l.DefaultPageSize > l.MaxPageSize {
		l.DefaultPageSize = l.MaxPageSize
	}
	return l
}

// Option customises an Engine, RowWalker or FilterEngine.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	now      func() time.Time
	detector *DetectorConfig
	lenient  bool
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// WithLogger sets the logger used for row-level warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now, for budgets and relative date operators.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithDetectorConfig replaces the type detection rules.
func WithDetectorConfig(cfg DetectorConfig) Option {
	return func(o *options) { o.detector = &cfg }
}

// WithLenientFilters makes unknown operators and invalid regex patterns
// evaluate to false instead of failing filter compilation.
func WithLenientFilters() Option {
	return func(o *options) { o.lenient = true }
}
