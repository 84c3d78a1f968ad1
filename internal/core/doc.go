// Package core provides the in-memory CSV analytics engine.
//
// This package is the heart of listcutter. It receives a raw text buffer and
// processing parameters and returns plain structured results. It performs no
// I/O and holds no state between calls, so independent calls can run
// concurrently without coordination.
//
// # Architecture
//
// Every operation runs as a single forward pass over the document:
//
//  1. [NormalizeText] cleans dash variants, smart quotes and exotic whitespace
//  2. [RowWalker] strips the BOM, reads the header with [ParseLine] and walks
//     the remaining records with a cursor, enforcing the [Limits] budgets
//  3. The per-row consumer aggregates ([Engine.Crosstab]), samples
//     ([Engine.DetectTypes]) or evaluates a [FilterExpression] ([Engine.Filter])
//  4. [WriteCrosstabCSV] and [WriteRowsCSV] render results back to CSV
//
// # Budgets
//
// Budgets are fixed values injected through [Limits]. They are enforced
// cooperatively inside the walker: the byte ceiling up front, the row ceiling
// per record and the wall-clock timeout every [Limits.CheckInterval] rows.
// Exceeding any budget returns a [*BudgetExceededError] carrying the number
// of rows processed so far.
//
//	engine := core.NewEngine(core.DefaultLimits())
//	result, err := engine.Crosstab(ctx, text, "state", "vote")
//	var budget *core.BudgetExceededError
//	if errors.As(err, &budget) {
//	    // retry with a smaller file or a narrower request
//	}
//
// # Error Handling
//
// Structural problems (missing header, unknown column, bad operator) are
// returned as [*InputError] before any row is processed. Malformed individual
// records are logged, counted and skipped; they never abort the pass. Callers
// map any error to a coded user message with [MapError].
package core
