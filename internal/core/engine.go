package core

import (
	"context"
	"fmt"
	"strings"
)

// Engine runs analyses over CSV text under a fixed set of budgets.
//
// Every call normalizes its own copy of the text and allocates its own
// walker and accumulators, so one Engine may serve concurrent calls.
type Engine struct {
	limits   Limits
	opts     []Option
	o        options
	detector *TypeDetector
}

// NewEngine creates an engine. Zero Limits fields take their defaults.
func NewEngine(limits Limits, opts ...Option) *Engine {
	o := buildOptions(opts)
	cfg := DefaultDetectorConfig()
	if o.detector != nil {
		cfg = *o.detector
	}
	return &Engine{
		limits:   limits.withDefaults(),
		opts:     opts,
		o:        o,
		detector: NewTypeDetector(cfg),
	}
}

// Limits returns the effective budgets.
func (e *Engine) Limits() Limits {
	return e.limits
}

func (e *Engine) walker(text string) (*RowWalker, error) {
	if err := checkSize(int64(len(text)), e.limits); err != nil {
		return nil, err
	}
	return NewRowWalker(NormalizeText(text), e.limits, e.opts...)
}

// Columns returns the header of text. Empty input yields no columns.
func (e *Engine) Columns(text string) ([]string, error) {
	w, err := e.walker(text)
	if err != nil {
		return nil, err
	}
	if w.Header() == nil {
		return []string{}, nil
	}
	return w.Header(), nil
}

// Crosstab counts rowVar values, or (rowVar, colVar) pairs when colVar is
// not empty. Empty input yields an empty result.
func (e *Engine) Crosstab(ctx context.Context, text, rowVar, colVar string) (*CrosstabResult, error) {
	if strings.TrimSpace(rowVar) == "" {
		return nil, inputErrorf("VAL010", "row variable is required")
	}
	w, err := e.walker(text)
	if err != nil {
		return nil, err
	}
	header := w.Header()

	colIdx := -1
	if header == nil {
		return newCrosstabAggregator(0, colIdx, e.limits.MaxUniqueValues).result(rowVar, colVar), nil
	}
	rowIdx := ColumnIndex(header, rowVar)
	if rowIdx < 0 {
		return nil, errColumnNotFound(rowVar)
	}
	if strings.TrimSpace(colVar) != "" {
		if colIdx = ColumnIndex(header, colVar); colIdx < 0 {
			return nil, errColumnNotFound(colVar)
		}
	}

	agg := newCrosstabAggregator(rowIdx, colIdx, e.limits.MaxUniqueValues)
	err = w.Walk(ctx, func(_ int, row []string) error {
		return agg.add(row, w.Rows()-1)
	})
	if err != nil {
		return nil, err
	}

	res := agg.result(rowVar, colVar)
	res.RowsProcessed = w.Rows()
	res.SkippedRows = w.Skipped()
	e.o.logger.Debug("crosstab complete",
		"mode", res.Mode,
		"rows", res.RowsProcessed,
		"skipped", res.SkippedRows,
		"row_values", len(res.RowValues),
		"column_values", len(res.ColumnValues))
	return res, nil
}

// DetectTypes profiles every column from the first SampleRows data rows.
// Empty input yields no profiles.
func (e *Engine) DetectTypes(ctx context.Context, text string) ([]ColumnProfile, error) {
	w, err := e.walker(text)
	if err != nil {
		return nil, err
	}
	header := w.Header()
	if header == nil {
		return []ColumnProfile{}, nil
	}

	samplers := make([]*columnSampler, len(header))
	for i := range samplers {
		samplers[i] = newColumnSampler(e.detector.cfg)
	}
	sampled := 0
	err = w.Walk(ctx, func(_ int, row []string) error {
		for i, s := range samplers {
			s.add(CellAt(row, i))
		}
		sampled++
		if sampled >= e.limits.SampleRows {
			return ErrStopWalk
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	profiles := make([]ColumnProfile, len(header))
	for i, s := range samplers {
		profiles[i] = s.profile(e.detector, profileName(header, i), i)
	}
	e.o.logger.Debug("type detection complete", "columns", len(profiles), "sampled_rows", sampled)
	return profiles, nil
}

// Filter returns the page of rows matching req.Expression, projected onto
// req.Columns when given. Empty input yields an empty result.
func (e *Engine) Filter(ctx context.Context, text string, req FilterRequest) (*FilteredResult, error) {
	limit, offset, err := e.page(req.Page)
	if err != nil {
		return nil, err
	}

	start := e.o.now()
	w, err := e.walker(text)
	if err != nil {
		return nil, err
	}
	parsed := e.o.now()

	res := &FilteredResult{Columns: []string{}, Rows: [][]string{}}
	header := w.Header()
	if header == nil {
		return res, nil
	}

	proj, err := projection(header, req.Columns)
	if err != nil {
		return nil, err
	}
	fe, err := NewFilterEngine(header, req.Expression, e.opts...)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		res.Columns = header
	} else {
		res.Columns = make([]string, len(proj))
		for i, idx := range proj {
			res.Columns[i] = header[idx]
		}
	}

	err = w.Walk(ctx, func(_ int, row []string) error {
		if !fe.Match(row) {
			return nil
		}
		res.MatchedRowCount++
		if res.MatchedRowCount > offset && len(res.Rows) < limit {
			res.Rows = append(res.Rows, project(row, len(header), proj))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	end := e.o.now()
	res.TotalRowsScanned = w.Rows()
	res.ReturnedRowCount = len(res.Rows)
	res.HasMore = res.MatchedRowCount > offset+len(res.Rows)
	res.Metrics = PerformanceMetrics{
		ParseTime:   parsed.Sub(start),
		FilterTime:  end.Sub(parsed),
		TotalTime:   end.Sub(start),
		SkippedRows: w.Skipped(),
	}
	if secs := res.Metrics.TotalTime.Seconds(); secs > 0 {
		res.Metrics.RowsPerSecond = float64(res.TotalRowsScanned) / secs
	}
	e.o.logger.Debug("filter complete",
		"scanned", res.TotalRowsScanned,
		"matched", res.MatchedRowCount,
		"returned", res.ReturnedRowCount,
		"skipped", res.Metrics.SkippedRows,
		"duration", res.Metrics.TotalTime)
	return res, nil
}

// page resolves the effective limit and offset. A zero limit takes the
// default page size; larger limits are capped at the maximum page size.
func (e *Engine) page(p Pagination) (limit, offset int, err error) {
	if p.Offset < 0 || p.Limit < 0 {
		return 0, 0, inputErrorf("VAL009", "invalid pagination: limit %d, offset %d", p.Limit, p.Offset)
	}
	limit = p.Limit
	if limit == 0 {
		limit = e.limits.DefaultPageSize
	}
	if limit > e.limits.MaxPageSize {
		limit = e.limits.MaxPageSize
	}
	return limit, p.Offset, nil
}

// projection resolves the requested output columns. nil means all columns
// in header order. Repeated names collapse to their first occurrence.
func projection(header, columns []string) ([]int, error) {
	if len(columns) == 0 {
		return nil, nil
	}
	idx := make([]int, 0, len(columns))
	seen := make(map[int]bool, len(columns))
	for _, name := range columns {
		i := ColumnIndex(header, name)
		if i < 0 {
			return nil, fmt.Errorf("projection: %w", errColumnNotFound(name))
		}
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i)
		}
	}
	return idx, nil
}

// project shapes row to the output columns. Without a projection a row
// shorter than the header is padded with "" so every header column is
// present; extra cells are kept.
func project(row []string, width int, proj []int) []string {
	if proj == nil {
		if len(row) >= width {
			return row
		}
		out := make([]string, width)
		copy(out, row)
		return out
	}
	out := make([]string, len(proj))
	for i, idx := range proj {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}
