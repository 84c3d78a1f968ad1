package core

import (
	"strings"
	"time"
)

// EmptySentinel is the canonical representation of a missing or blank cell.
const EmptySentinel = "(empty)"

// FrequencyColumn is the single column key of a frequency-mode result.
const FrequencyColumn = "Frequency"

// Cell is a tagged cell value: either present with a trimmed value, or missing.
// Numeric, date and boolean interpretations are explicit conversions (see convert.go).
type Cell struct {
	Value   string
	Present bool
}

// Present returns a present cell holding s.
func Present(s string) Cell {
	return Cell{Value: s, Present: true}
}

// Missing returns the missing cell.
func Missing() Cell {
	return Cell{}
}

// CellAt returns the cell at idx in row. Out-of-range positions, blank values
// and the literal sentinel are all missing.
func CellAt(row []string, idx int) Cell {
	if idx < 0 || idx >= len(row) {
		return Missing()
	}
	v := strings.TrimSpace(row[idx])
	if v == "" || v == EmptySentinel {
		return Missing()
	}
	return Present(v)
}

// Key returns the value used for aggregation: the value itself or EmptySentinel.
func (c Cell) Key() string {
	if !c.Present {
		return EmptySentinel
	}
	return c.Value
}

// ColumnType is the inferred type of a column.
type ColumnType string

const (
	TypeInteger     ColumnType = "integer"
	TypeDecimal     ColumnType = "decimal"
	TypeDate        ColumnType = "date"
	TypeBoolean     ColumnType = "boolean"
	TypeCategorical ColumnType = "categorical"
	TypeText        ColumnType = "text"
)

// ColumnProfile summarises one column from a bounded sample.
type ColumnProfile struct {
	Name               string           `json:"name"`
	Index              int              `json:"index"`
	Type               ColumnType       `json:"inferredType"`
	Confidence         float64          `json:"confidence"`
	SampleValues       []string         `json:"sampleValues"`
	UniqueValueCount   int              `json:"uniqueValueCount"`
	NullCount          int              `json:"nullCount"`
	TotalSamples       int              `json:"totalSamples"`
	SuggestedOperators []FilterOperator `json:"suggestedOperators"`
}

// CrosstabMode distinguishes one-variable frequency counts from two-way tables.
type CrosstabMode string

const (
	ModeFrequency CrosstabMode = "frequency"
	ModeCrosstab  CrosstabMode = "crosstab"
)

// CrosstabResult holds a dense frequency matrix.
//
// GrandTotal always equals the sum of RowTotals, the sum of ColumnTotals and
// the sum of all Matrix cells. Every row key has an entry for every column key.
type CrosstabResult struct {
	Mode           CrosstabMode              `json:"mode"`
	RowVariable    string                    `json:"rowVariable"`
	ColumnVariable string                    `json:"columnVariable,omitempty"`
	Matrix         map[string]map[string]int `json:"matrix"`
	RowTotals      map[string]int            `json:"rowTotals"`
	ColumnTotals   map[string]int            `json:"columnTotals"`
	GrandTotal     int                       `json:"grandTotal"`
	RowValues      []string                  `json:"rowValues"`    // first-seen order
	ColumnValues   []string                  `json:"columnValues"` // first-seen order
	RowsProcessed  int                       `json:"rowsProcessed"`
	SkippedRows    int                       `json:"skippedRows"`
}

// FilterOperator names a predicate operator.
type FilterOperator string

const (
	// Null family
	OpIsNull  FilterOperator = "is_null"
	OpNotNull FilterOperator = "not_null"

	// String family (case-insensitive)
	OpContains   FilterOperator = "contains"
	OpEquals     FilterOperator = "equals"
	OpNotEquals  FilterOperator = "not_equals"
	OpStartsWith FilterOperator = "starts_with"
	OpEndsWith   FilterOperator = "ends_with"
	OpRegex      FilterOperator = "regex"
	OpInList     FilterOperator = "in_list"

	// Numeric family
	OpGreaterThan FilterOperator = "greater_than"
	OpLessThan    FilterOperator = "less_than"
	OpBetween     FilterOperator = "between"
	OpRange       FilterOperator = "range"

	// Date family
	OpBefore    FilterOperator = "before"
	OpAfter     FilterOperator = "after"
	OpDateRange FilterOperator = "date_range"
	OpLastNDays FilterOperator = "last_n_days"
	OpThisMonth FilterOperator = "this_month"
	OpThisYear  FilterOperator = "this_year"

	// Boolean family
	OpIsTrue  FilterOperator = "is_true"
	OpIsFalse FilterOperator = "is_false"
)

// LogicalOperator combines every predicate of a FilterExpression.
type LogicalOperator string

const (
	LogicAnd LogicalOperator = "AND"
	LogicOr  LogicalOperator = "OR"
)

// FilterPredicate is a single column condition.
type FilterPredicate struct {
	Column   string         `json:"columnName" yaml:"column"`
	Operator FilterOperator `json:"operator" yaml:"operator"`
	Value    string         `json:"value,omitempty" yaml:"value"`
	Negated  bool           `json:"negated,omitempty" yaml:"negated"`
}

// Negate returns a copy of p with Negated flipped.
func (p FilterPredicate) Negate() FilterPredicate {
	p.Negated = !p.Negated
	return p
}

// FilterExpression is a flat predicate list joined by one logical operator.
// Nested groups are not supported.
type FilterExpression struct {
	Predicates []FilterPredicate `json:"predicates" yaml:"predicates"`
	Logic      LogicalOperator   `json:"logic,omitempty" yaml:"logic"`
}

// Pagination selects a window of matched rows. Limit 0 means the default page size.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FilterRequest is the input of Engine.Filter.
type FilterRequest struct {
	Expression FilterExpression `json:"expression"`
	Page       Pagination       `json:"page"`
	// Columns optionally selects and orders the output columns.
	Columns []string `json:"columns,omitempty"`
}

// PerformanceMetrics reports timing diagnostics for a filter pass.
type PerformanceMetrics struct {
	ParseTime     time.Duration `json:"parseTimeNs"`
	FilterTime    time.Duration `json:"filterTimeNs"`
	TotalTime     time.Duration `json:"totalTimeNs"`
	RowsPerSecond float64       `json:"rowsPerSecond"`
	SkippedRows   int           `json:"skippedRows"`
}

// FilteredResult is the output of Engine.Filter.
type FilteredResult struct {
	Columns          []string           `json:"columns"`
	Rows             [][]string         `json:"rows"`
	TotalRowsScanned int                `json:"totalRowsScanned"`
	MatchedRowCount  int                `json:"matchedRowCount"`
	ReturnedRowCount int                `json:"returnedRowCount"`
	HasMore          bool               `json:"hasMore"`
	Metrics          PerformanceMetrics `json:"performanceMetrics"`
}
