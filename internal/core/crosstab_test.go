package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func testEngine(opts ...Option) *Engine {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewEngine(DefaultLimits(), opts...)
}

// checkTotals asserts the crosstab accounting invariants.
func checkTotals(t *testing.T, res *CrosstabResult) {
	t.Helper()
	sumRows, sumCols, sumCells := 0, 0, 0
	for _, v := range res.RowTotals {
		sumRows += v
	}
	for _, v := range res.ColumnTotals {
		sumCols += v
	}
	for _, rv := range res.RowValues {
		cells := res.Matrix[rv]
		if len(cells) != len(res.ColumnValues) {
			t.Errorf("row %q has %d cells, want %d (dense)", rv, len(cells), len(res.ColumnValues))
		}
		for _, cv := range res.ColumnValues {
			if _, ok := cells[cv]; !ok {
				t.Errorf("matrix[%q][%q] missing", rv, cv)
			}
			sumCells += cells[cv]
		}
	}
	if sumRows != res.GrandTotal || sumCols != res.GrandTotal || sumCells != res.GrandTotal {
		t.Errorf("totals disagree: rows=%d cols=%d cells=%d grand=%d", sumRows, sumCols, sumCells, res.GrandTotal)
	}
}

// ----------------------------------------------------------------------------
// Crosstab Mode Tests
// ----------------------------------------------------------------------------

func TestCrosstab_Votes(t *testing.T) {
	input := "state,vote\nCA,Yes\nCA,No\nNY,Yes\n"
	res, err := testEngine().Crosstab(context.Background(), input, "state", "vote")
	if err != nil {
		t.Fatalf("Crosstab() error = %v", err)
	}

	wantMatrix := map[string]map[string]int{
		"CA": {"Yes": 1, "No": 1},
		"NY": {"Yes": 1, "No": 0},
	}
	if !reflect.DeepEqual(res.Matrix, wantMatrix) {
		t.Errorf("Matrix = %v, want %v", res.Matrix, wantMatrix)
	}
	if !reflect.DeepEqual(res.RowTotals, map[string]int{"CA": 2, "NY": 1}) {
		t.Errorf("RowTotals = %v", res.RowTotals)
	}
	if !reflect.DeepEqual(res.ColumnTotals, map[string]int{"Yes": 2, "No": 1}) {
		t.Errorf("ColumnTotals = %v", res.ColumnTotals)
	}
	if res.GrandTotal != 3 {
		t.Errorf("GrandTotal = %d, want 3", res.GrandTotal)
	}
	if !reflect.DeepEqual(res.RowValues, []string{"CA", "NY"}) {
		t.Errorf("RowValues = %q", res.RowValues)
	}
	if !reflect.DeepEqual(res.ColumnValues, []string{"Yes", "No"}) {
		t.Errorf("ColumnValues = %q", res.ColumnValues)
	}
	if res.Mode != ModeCrosstab || res.RowsProcessed != 3 {
		t.Errorf("Mode = %s, RowsProcessed = %d", res.Mode, res.RowsProcessed)
	}
	checkTotals(t, res)
}

func TestCrosstab_MissingCellsUseSentinel(t *testing.T) {
	input := "state,vote\nCA,\n,Yes\nNY\nCA,(empty)\n"
	res, err := testEngine().Crosstab(context.Background(), input, "state", "vote")
	if err != nil {
		t.Fatalf("Crosstab() error = %v", err)
	}
	if got := res.Matrix["CA"][EmptySentinel]; got != 2 {
		t.Errorf("matrix[CA][(empty)] = %d, want 2", got)
	}
	if got := res.Matrix[EmptySentinel]["Yes"]; got != 1 {
		t.Errorf("matrix[(empty)][Yes] = %d, want 1", got)
	}
	if got := res.Matrix["NY"][EmptySentinel]; got != 1 {
		t.Errorf("matrix[NY][(empty)] = %d, want 1", got)
	}
	checkTotals(t, res)
}

func TestCrosstab_ColumnLookupCaseInsensitive(t *testing.T) {
	res, err := testEngine().Crosstab(context.Background(), "State,Vote\nCA,Yes\n", " state ", "VOTE")
	if err != nil {
		t.Fatalf("Crosstab() error = %v", err)
	}
	if res.GrandTotal != 1 {
		t.Errorf("GrandTotal = %d, want 1", res.GrandTotal)
	}
}

func TestCrosstab_TotalsInvariant(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("region,product,noise\n")
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&sb, "r%d,p%d,%d\n", i%7, (i*3)%11, i)
	}
	sb.WriteString("r1,,x\n")
	sb.WriteString(",p2,x\n")

	res, err := testEngine().Crosstab(context.Background(), sb.String(), "region", "product")
	if err != nil {
		t.Fatalf("Crosstab() error = %v", err)
	}
	if res.GrandTotal != 502 {
		t.Errorf("GrandTotal = %d, want 502", res.GrandTotal)
	}
	checkTotals(t, res)
}

// ----------------------------------------------------------------------------
// Frequency Mode Tests
// ----------------------------------------------------------------------------

func TestCrosstab_Frequency(t *testing.T) {
	input := "state,vote\nCA,Yes\nCA,No\nNY,Yes\n,No\n"
	res, err := testEngine().Crosstab(context.Background(), input, "state", "")
	if err != nil {
		t.Fatalf("Crosstab() error = %v", err)
	}
	if res.Mode != ModeFrequency {
		t.Errorf("Mode = %s, want frequency", res.Mode)
	}
	if len(res.ColumnTotals) != 1 || res.ColumnTotals[FrequencyColumn] != res.GrandTotal {
		t.Errorf("ColumnTotals = %v, want single %q key equal to %d", res.ColumnTotals, FrequencyColumn, res.GrandTotal)
	}
	if !reflect.DeepEqual(res.ColumnValues, []string{FrequencyColumn}) {
		t.Errorf("ColumnValues = %q", res.ColumnValues)
	}
	want := map[string]int{"CA": 2, "NY": 1, EmptySentinel: 1}
	if !reflect.DeepEqual(res.RowTotals, want) {
		t.Errorf("RowTotals = %v, want %v", res.RowTotals, want)
	}
	if res.ColumnVariable != "" {
		t.Errorf("ColumnVariable = %q, want empty", res.ColumnVariable)
	}
	checkTotals(t, res)
}

func TestCrosstab_FrequencyNoRows(t *testing.T) {
	res, err := testEngine().Crosstab(context.Background(), "state\n", "state", "")
	if err != nil {
		t.Fatalf("Crosstab() error = %v", err)
	}
	if len(res.ColumnTotals) != 1 || res.ColumnTotals[FrequencyColumn] != 0 {
		t.Errorf("ColumnTotals = %v", res.ColumnTotals)
	}
	if res.GrandTotal != 0 || len(res.RowValues) != 0 {
		t.Errorf("expected an empty frequency table, got %+v", res)
	}
}

// ----------------------------------------------------------------------------
// Error Tests
// ----------------------------------------------------------------------------

func TestCrosstab_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		rowVar   string
		colVar   string
		wantCode string
	}{
		{name: "unknown row variable", input: "a,b\n1,2\n", rowVar: "c", wantCode: "VAL005"},
		{name: "unknown column variable", input: "a,b\n1,2\n", rowVar: "a", colVar: "z", wantCode: "VAL005"},
		{name: "missing row variable", input: "a,b\n1,2\n", rowVar: " ", wantCode: "VAL010"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testEngine().Crosstab(context.Background(), tt.input, tt.rowVar, tt.colVar)
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected *InputError, got %v", err)
			}
			if inputErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", inputErr.Code, tt.wantCode)
			}
		})
	}
}

func TestCrosstab_Cardinality(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxUniqueValues = 5

	tests := []struct {
		name     string
		rowVar   string
		colVar   string
		wantAxis string
	}{
		{name: "row axis", rowVar: "id", colVar: "flag", wantAxis: "row"},
		{name: "column axis", rowVar: "flag", colVar: "id", wantAxis: "column"},
		{name: "frequency", rowVar: "id", wantAxis: "row"},
	}

	var sb strings.Builder
	sb.WriteString("id,flag\n")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&sb, "%d,x\n", i)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(limits, WithLogger(quietLogger()))
			res, err := e.Crosstab(context.Background(), sb.String(), tt.rowVar, tt.colVar)
			if res != nil {
				t.Error("expected no partial result")
			}
			var budget *BudgetExceededError
			if !errors.As(err, &budget) {
				t.Fatalf("expected *BudgetExceededError, got %v", err)
			}
			if budget.Kind != BudgetCardinality || budget.Axis != tt.wantAxis {
				t.Errorf("got kind=%s axis=%s, want cardinality/%s", budget.Kind, budget.Axis, tt.wantAxis)
			}
			if budget.RowsProcessed != 5 {
				t.Errorf("RowsProcessed = %d, want 5", budget.RowsProcessed)
			}
		})
	}
}

func TestCrosstab_CardinalityAtCeiling(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxUniqueValues = 5
	e := NewEngine(limits, WithLogger(quietLogger()))

	input := "id\n1\n2\n3\n4\n5\n5\n1\n"
	res, err := e.Crosstab(context.Background(), input, "id", "")
	if err != nil {
		t.Fatalf("exactly MaxUniqueValues distinct values should pass, got %v", err)
	}
	if len(res.RowValues) != 5 || res.GrandTotal != 7 {
		t.Errorf("RowValues = %d, GrandTotal = %d", len(res.RowValues), res.GrandTotal)
	}
}
