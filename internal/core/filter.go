package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FilterEngine evaluates a compiled FilterExpression against rows.
//
// Column indexes, numeric and date bounds, list members and regex patterns
// are resolved once in NewFilterEngine; Match does no parsing of predicate
// arguments. A compiled engine holds no mutable state and may be shared.
type FilterEngine struct {
	preds []compiledPredicate
	logic LogicalOperator
}

type compiledPredicate struct {
	src   FilterPredicate
	index int // -1 when the column is unknown
	null  bool
	test  func(Cell) bool
}

func alwaysFalse(Cell) bool { return false }

// ParseLogic validates a logical operator. Empty means AND.
func ParseLogic(s LogicalOperator) (LogicalOperator, error) {
	switch LogicalOperator(strings.ToUpper(strings.TrimSpace(string(s)))) {
	case "", LogicAnd:
		return LogicAnd, nil
	case LogicOr:
		return LogicOr, nil
	default:
		return "", inputErrorf("VAL008", "invalid logical operator %q: use AND or OR", s)
	}
}

// NewFilterEngine compiles expr against header.
//
// Unknown columns compile to a predicate that is always false. Unknown
// operators and invalid regex patterns are InputErrors unless
// WithLenientFilters is set, in which case they too compile to false.
// Malformed numeric or date bounds always compile to false.
func NewFilterEngine(header []string, expr FilterExpression, opts ...Option) (*FilterEngine, error) {
	o := buildOptions(opts)
	logic, err := ParseLogic(expr.Logic)
	if err != nil {
		return nil, err
	}

	fe := &FilterEngine{logic: logic}
	for _, p := range expr.Predicates {
		cp, err := compilePredicate(header, p, o)
		if err != nil {
			return nil, err
		}
		fe.preds = append(fe.preds, cp)
	}
	return fe, nil
}

// Match reports whether row satisfies the expression. An empty predicate
// list matches every row.
func (fe *FilterEngine) Match(row []string) bool {
	if len(fe.preds) == 0 {
		return true
	}
	if fe.logic == LogicOr {
		for i := range fe.preds {
			if fe.preds[i].eval(row) {
				return true
			}
		}
		return false
	}
	for i := range fe.preds {
		if !fe.preds[i].eval(row) {
			return false
		}
	}
	return true
}

func (p *compiledPredicate) eval(row []string) bool {
	result := false
	if p.index >= 0 {
		cell := CellAt(row, p.index)
		if cell.Present || p.null {
			result = p.test(cell)
		}
	}
	if p.src.Negated {
		return !result
	}
	return result
}

func compilePredicate(header []string, p FilterPredicate, o options) (compiledPredicate, error) {
	op := FilterOperator(strings.ToLower(strings.TrimSpace(string(p.Operator))))
	cp := compiledPredicate{src: p, index: ColumnIndex(header, p.Column), test: alwaysFalse}
	if cp.index < 0 {
		o.logger.Warn("filter column not found", "column", p.Column, "operator", op)
	}

	value := strings.TrimSpace(p.Value)
	lower := strings.ToLower(value)

	switch op {
	case OpIsNull:
		cp.null = true
		cp.test = func(c Cell) bool { return !c.Present }
	case OpNotNull:
		cp.null = true
		cp.test = func(c Cell) bool { return c.Present }

	case OpContains:
		cp.test = func(c Cell) bool { return strings.Contains(strings.ToLower(c.Value), lower) }
	case OpEquals:
		cp.test = func(c Cell) bool { return strings.EqualFold(c.Value, value) }
	case OpNotEquals:
		cp.test = func(c Cell) bool { return !strings.EqualFold(c.Value, value) }
	case OpStartsWith:
		cp.test = func(c Cell) bool { return strings.HasPrefix(strings.ToLower(c.Value), lower) }
	case OpEndsWith:
		cp.test = func(c Cell) bool { return strings.HasSuffix(strings.ToLower(c.Value), lower) }
	case OpRegex:
		re, err := regexp.Compile("(?i)" + p.Value)
		if err != nil {
			if !o.lenient {
				return cp, inputErrorf("VAL007", "invalid regex pattern %q: %v", p.Value, err)
			}
			o.logger.Warn("invalid regex pattern", "column", p.Column, "pattern", p.Value, "error", err)
			break
		}
		cp.test = func(c Cell) bool { return re.MatchString(c.Value) }
	case OpInList:
		members := make(map[string]struct{})
		for _, m := range strings.Split(value, ",") {
			if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
				members[m] = struct{}{}
			}
		}
		cp.test = func(c Cell) bool {
			_, ok := members[strings.ToLower(c.Value)]
			return ok
		}

	case OpGreaterThan, OpLessThan:
		bound, ok := ParseNumber(value)
		if !ok {
			o.logger.Warn("malformed numeric bound", "column", p.Column, "operator", op, "value", p.Value)
			break
		}
		greater := op == OpGreaterThan
		cp.test = func(c Cell) bool {
			n, ok := c.Number()
			if !ok {
				return false
			}
			if greater {
				return n > bound
			}
			return n < bound
		}
	case OpBetween, OpRange:
		lo, hi, ok := parseNumberRange(value)
		if !ok {
			o.logger.Warn("malformed numeric range", "column", p.Column, "operator", op, "value", p.Value)
			break
		}
		cp.test = func(c Cell) bool {
			n, ok := c.Number()
			return ok && n >= lo && n <= hi
		}

	case OpBefore, OpAfter:
		ref := o.now()
		bound, ok := ParseDateAt(value, ref)
		if !ok {
			o.logger.Warn("malformed date bound", "column", p.Column, "operator", op, "value", p.Value)
			break
		}
		before := op == OpBefore
		cp.test = func(c Cell) bool {
			d, ok := c.DateAt(ref)
			if !ok {
				return false
			}
			if before {
				return d.Before(bound)
			}
			return d.After(bound)
		}
	case OpDateRange:
		ref := o.now()
		start, end, ok := parseDateRange(value, ref)
		if !ok {
			o.logger.Warn("malformed date range", "column", p.Column, "value", p.Value)
			break
		}
		cp.test = func(c Cell) bool {
			d, ok := c.DateAt(ref)
			return ok && !d.Before(start) && !d.After(end)
		}
	case OpLastNDays:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			o.logger.Warn("malformed day count", "column", p.Column, "value", p.Value)
			break
		}
		ref := o.now()
		today := truncateDay(ref)
		start := today.AddDate(0, 0, -n)
		cp.test = func(c Cell) bool {
			d, ok := c.DateAt(ref)
			if !ok {
				return false
			}
			d = truncateDay(d)
			return !d.Before(start) && !d.After(today)
		}
	case OpThisMonth:
		now := o.now().UTC()
		cp.test = func(c Cell) bool {
			d, ok := c.DateAt(now)
			return ok && d.UTC().Year() == now.Year() && d.UTC().Month() == now.Month()
		}
	case OpThisYear:
		now := o.now().UTC()
		cp.test = func(c Cell) bool {
			d, ok := c.DateAt(now)
			return ok && d.UTC().Year() == now.Year()
		}

	case OpIsTrue, OpIsFalse:
		want := op == OpIsTrue
		cp.test = func(c Cell) bool {
			b, ok := c.Bool()
			return ok && b == want
		}

	default:
		if !o.lenient {
			return cp, inputErrorf("VAL006", "unknown filter operator %q", p.Operator)
		}
		o.logger.Warn("unknown filter operator", "column", p.Column, "operator", p.Operator)
	}
	return cp, nil
}

// splitRange splits "lo..hi" or "lo,hi" into its two bounds.
func splitRange(value string) (string, string, bool) {
	if lo, hi, ok := strings.Cut(value, ".."); ok {
		return strings.TrimSpace(lo), strings.TrimSpace(hi), true
	}
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func parseNumberRange(value string) (lo, hi float64, ok bool) {
	a, b, ok := splitRange(value)
	if !ok {
		return 0, 0, false
	}
	lo, okLo := ParseNumber(a)
	hi, okHi := ParseNumber(b)
	return lo, hi, okLo && okHi
}

// parseDateRange reads an inclusive range. An end bound without a time of
// day covers that whole day.
func parseDateRange(value string, now time.Time) (start, end time.Time, ok bool) {
	a, b, ok := splitRange(value)
	if !ok {
		return start, end, false
	}
	start, okStart := ParseDateAt(a, now)
	end, okEnd := ParseDateAt(b, now)
	if !okStart || !okEnd {
		return start, end, false
	}
	if end.Equal(truncateDay(end)) {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	return start, end, true
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ColumnIndex resolves name against header: the first exact match wins,
// otherwise the first case-insensitive match after trimming. -1 if absent.
func ColumnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	want := strings.TrimSpace(name)
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), want) {
			return i
		}
	}
	return -1
}

// String renders the predicate for logs and reports.
func (p FilterPredicate) String() string {
	s := fmt.Sprintf("%s %s", p.Column, p.Operator)
	if p.Value != "" {
		s += fmt.Sprintf(" %q", p.Value)
	}
	if p.Negated {
		s = "NOT " + s
	}
	return s
}
