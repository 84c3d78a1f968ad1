package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RowVisitor receives each data row. line is the 1-based physical line on
// which the record starts. Returning ErrStopWalk ends the walk cleanly;
// returning a *RowParseError skips the row; any other error aborts.
type RowVisitor func(line int, row []string) error

// RowWalker traverses a normalized document record by record.
//
// The walker owns the only cursor over the buffer. It never splits the
// document into lines: it advances an index to the next unquoted newline.
type RowWalker struct {
	text   string
	pos    int
	line   int
	header []string

	limits  Limits
	logger  *slog.Logger
	now     func() time.Time
	started time.Time

	rows    int
	skipped int
}

// NewRowWalker checks the size budget, strips the BOM, skips leading blank
// lines and reads the header record.
// A document with no content yields a walker with an empty header.
func NewRowWalker(text string, limits Limits, opts ...Option) (*RowWalker, error) {
	limits = limits.withDefaults()
	o := buildOptions(opts)

	if err := checkSize(int64(len(text)), limits); err != nil {
		return nil, err
	}

	w := &RowWalker{
		limits:  limits,
		logger:  o.logger,
		now:     o.now,
		started: o.now(),
		line:    1,
	}

	w.text = strings.TrimPrefix(text, "\uFEFF")

	for {
		rec, line, ok, malformed := w.next()
		if !ok {
			return w, nil
		}
		if strings.TrimSpace(rec) == "" {
			continue
		}
		if malformed {
			return nil, inputErrorf("FILE002", "invalid csv: unterminated quote in header on line %d", line)
		}
		header := ParseLine(rec)
		degenerate := true
		for i, h := range header {
			header[i] = strings.TrimSpace(h)
			if header[i] != "" {
				degenerate = false
			}
		}
		if degenerate {
			return nil, inputErrorf("VAL004", "missing header: line %d has no column names", line)
		}
		w.header = header
		return w, nil
	}
}

func checkSize(n int64, limits Limits) error {
	if n > limits.MaxBytes {
		return &BudgetExceededError{Kind: BudgetSize, Limit: limits.MaxBytes, Observed: n}
	}
	return nil
}

// Header returns the parsed header, or nil for an empty document.
func (w *RowWalker) Header() []string {
	return w.header
}

// Rows returns the number of data rows processed so far.
func (w *RowWalker) Rows() int {
	return w.rows
}

// Skipped returns the number of malformed records skipped so far.
func (w *RowWalker) Skipped() int {
	return w.skipped
}

// Walk visits every remaining data row. Blank lines are skipped and not
// counted. The row ceiling is enforced per record; the timeout and ctx are
// checked every CheckInterval rows.
func (w *RowWalker) Walk(ctx context.Context, visit RowVisitor) error {
	if w.header == nil {
		return nil
	}
	for {
		rec, line, ok, malformed := w.next()
		if !ok {
			return nil
		}
		if strings.TrimSpace(rec) == "" {
			continue
		}
		if malformed {
			w.skip(&RowParseError{Line: line, Reason: "unterminated quoted field"})
			continue
		}

		if w.rows >= w.limits.MaxRows {
			return &BudgetExceededError{
				Kind:          BudgetRows,
				Limit:         int64(w.limits.MaxRows),
				Observed:      int64(w.rows + 1),
				RowsProcessed: w.rows,
			}
		}
		w.rows++

		if w.rows%w.limits.CheckInterval == 0 {
			if err := w.checkBudget(ctx); err != nil {
				return err
			}
		}

		err := visit(line, ParseLine(rec))
		if err == nil {
			continue
		}
		if errors.Is(err, ErrStopWalk) {
			return nil
		}
		var rowErr *RowParseError
		if errors.As(err, &rowErr) {
			w.rows--
			w.skip(rowErr)
			continue
		}
		return err
	}
}

func (w *RowWalker) checkBudget(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("walk cancelled after %d rows: %w", w.rows, err)
	}
	if elapsed := w.now().Sub(w.started); elapsed > w.limits.Timeout {
		return &BudgetExceededError{
			Kind:          BudgetTimeout,
			Limit:         int64(w.limits.Timeout),
			Observed:      int64(elapsed),
			RowsProcessed: w.rows,
		}
	}
	return nil
}

func (w *RowWalker) skip(err *RowParseError) {
	w.skipped++
	w.logger.Warn("skipping malformed row", "line", err.Line, "reason", err.Reason)
}

// next returns the record starting at the cursor and advances past it.
// LF, CRLF and a lone CR end a record only outside quotes; inside quotes
// they are cell content. A record whose quote never closes is reported
// malformed and only its first physical line is consumed, so the walk
// resumes on the following line.
func (w *RowWalker) next() (rec string, line int, ok bool, malformed bool) {
	if w.pos >= len(w.text) {
		return "", 0, false, false
	}
	start := w.pos
	line = w.line

	quoted := false
	firstEnd, firstNext := -1, -1
	end, next := -1, -1
	for i := start; i < len(w.text) && end < 0; i++ {
		switch w.text[i] {
		case '"':
			quoted = !quoted
		case '\n', '\r':
			after := i + 1
			if w.text[i] == '\r' && after < len(w.text) && w.text[after] == '\n' {
				after++
			}
			if firstEnd < 0 {
				firstEnd, firstNext = i, after
			}
			if !quoted {
				end, next = i, after
			}
			i = after - 1
		}
	}

	switch {
	case end >= 0:
		rec = w.text[start:end]
		w.pos = next
	case !quoted:
		rec = w.text[start:]
		w.pos = len(w.text)
	case firstEnd >= 0:
		rec = w.text[start:firstEnd]
		w.pos = firstNext
		malformed = true
	default:
		rec = w.text[start:]
		w.pos = len(w.text)
		malformed = true
	}

	w.line += lineBreaks(rec) + 1
	return rec, line, true, malformed
}

// lineBreaks counts physical line breaks in s, treating CRLF as one.
func lineBreaks(s string) int {
	return strings.Count(s, "\n") + strings.Count(s, "\r") - strings.Count(s, "\r\n")
}
