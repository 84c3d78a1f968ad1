package core

// crosstab.go builds frequency and two-way crosstab counts from a row stream.
//
// Memory is bounded by the cardinality ceiling, not by the number of rows:
// the aggregator only stores one counter per distinct (row, column) pair and
// aborts as soon as either axis grows past Limits.MaxUniqueValues.

type crosstabAggregator struct {
	rowIdx    int
	colIdx    int // -1 in frequency mode
	maxUnique int

	rowOrder  []string
	colOrder  []string
	matrix    map[string]map[string]int
	rowTotals map[string]int
	colTotals map[string]int
	grand     int
}

func newCrosstabAggregator(rowIdx, colIdx, maxUnique int) *crosstabAggregator {
	return &crosstabAggregator{
		rowIdx:    rowIdx,
		colIdx:    colIdx,
		maxUnique: maxUnique,
		matrix:    make(map[string]map[string]int),
		rowTotals: make(map[string]int),
		colTotals: make(map[string]int),
	}
}

func (a *crosstabAggregator) frequencyMode() bool {
	return a.colIdx < 0
}

// add counts one row. rowsSoFar is only used for error reporting.
func (a *crosstabAggregator) add(row []string, rowsSoFar int) error {
	rowKey := CellAt(row, a.rowIdx).Key()
	colKey := FrequencyColumn
	if !a.frequencyMode() {
		colKey = CellAt(row, a.colIdx).Key()
	}

	cells, seen := a.matrix[rowKey]
	if !seen {
		if len(a.rowOrder) >= a.maxUnique {
			return a.cardinalityError("row", rowsSoFar)
		}
		cells = make(map[string]int)
		a.matrix[rowKey] = cells
		a.rowOrder = append(a.rowOrder, rowKey)
	}
	if _, ok := a.colTotals[colKey]; !ok {
		if len(a.colOrder) >= a.maxUnique {
			return a.cardinalityError("column", rowsSoFar)
		}
		a.colOrder = append(a.colOrder, colKey)
	}

	cells[colKey]++
	a.rowTotals[rowKey]++
	a.colTotals[colKey]++
	a.grand++
	return nil
}

func (a *crosstabAggregator) cardinalityError(axis string, rows int) error {
	return &BudgetExceededError{
		Kind:          BudgetCardinality,
		Limit:         int64(a.maxUnique),
		Observed:      int64(a.maxUnique + 1),
		RowsProcessed: rows,
		Axis:          axis,
	}
}

// result densifies the matrix and returns the final counts.
func (a *crosstabAggregator) result(rowVar, colVar string) *CrosstabResult {
	if a.frequencyMode() && len(a.colOrder) == 0 {
		a.colOrder = []string{FrequencyColumn}
		a.colTotals[FrequencyColumn] = 0
	}
	if a.colOrder == nil {
		a.colOrder = []string{}
	}
	for _, rowKey := range a.rowOrder {
		cells := a.matrix[rowKey]
		for _, colKey := range a.colOrder {
			if _, ok := cells[colKey]; !ok {
				cells[colKey] = 0
			}
		}
	}

	mode := ModeCrosstab
	if a.frequencyMode() {
		mode = ModeFrequency
		colVar = ""
	}
	rowValues := a.rowOrder
	if rowValues == nil {
		rowValues = []string{}
	}
	return &CrosstabResult{
		Mode:           mode,
		RowVariable:    rowVar,
		ColumnVariable: colVar,
		Matrix:         a.matrix,
		RowTotals:      a.rowTotals,
		ColumnTotals:   a.colTotals,
		GrandTotal:     a.grand,
		RowValues:      rowValues,
		ColumnValues:   a.colOrder,
	}
}
