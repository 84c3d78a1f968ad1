package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrStopWalk may be returned by a RowVisitor to end a walk early without error.
var ErrStopWalk = errors.New("stop walk")

// InputError reports a structural or configuration problem detected before
// any row is processed.
type InputError struct {
	Code    string // catalogue code, see MapError
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func inputErrorf(code, format string, args ...any) *InputError {
	return &InputError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func errColumnNotFound(name string) *InputError {
	return inputErrorf("VAL005", "column not found: %q", name)
}

// BudgetKind identifies the exceeded budget.
type BudgetKind string

const (
	BudgetSize        BudgetKind = "size"
	BudgetRows        BudgetKind = "rows"
	BudgetTimeout     BudgetKind = "timeout"
	BudgetCardinality BudgetKind = "cardinality"
)

// BudgetExceededError reports that a fixed resource ceiling was hit.
// RowsProcessed carries the partial progress made before the abort.
type BudgetExceededError struct {
	Kind          BudgetKind
	Limit         int64
	Observed      int64
	RowsProcessed int
	Axis          string // "row" or "column" for cardinality
}

func (e *BudgetExceededError) Error() string {
	switch e.Kind {
	case BudgetSize:
		return fmt.Sprintf("file too large: %d bytes exceeds limit of %d bytes", e.Observed, e.Limit)
	case BudgetRows:
		return fmt.Sprintf("too many rows: limit of %d rows exceeded", e.Limit)
	case BudgetTimeout:
		return fmt.Sprintf("processing timeout: exceeded %s after %d rows",
			time.Duration(e.Limit), e.RowsProcessed)
	case BudgetCardinality:
		return fmt.Sprintf("too many unique values in %s variable: more than %d distinct values after %d rows",
			e.Axis, e.Limit, e.RowsProcessed)
	default:
		return fmt.Sprintf("budget exceeded: %s", e.Kind)
	}
}

// RowParseError reports a malformed record. The walker logs and skips it.
type RowParseError struct {
	Line   int
	Reason string
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}
