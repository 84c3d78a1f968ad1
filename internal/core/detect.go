package core

import (
	"regexp"
	"strconv"
	"strings"
)

// TypeRule classifies a column when at least Threshold of its unique sampled
// values satisfy Match. Rules are evaluated in order; the first that
// qualifies wins and its confidence is the match fraction.
type TypeRule struct {
	Type      ColumnType
	Match     func(value string) bool
	Threshold float64
}

// DetectorConfig holds the ordered rule table and the fallback thresholds.
type DetectorConfig struct {
	Rules                 []TypeRule
	CategoricalMaxUnique  int
	CategoricalConfidence float64
	TextConfidence        float64
	MaxSampleValues       int
	MaxTrackedUniques     int
}

var (
	integerPattern = regexp.MustCompile(`^-?\d+$`)
	decimalPattern = regexp.MustCompile(`^-?\d*\.\d+$`)
	datePatterns   = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),     // YYYY-MM-DD
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), // M/D/YYYY
		regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), // M-D-YYYY
		regexp.MustCompile(`^\d{2}/\d{2}/\d{2}$`),     // MM/DD/YY
	}
	booleanPattern = regexp.MustCompile(`(?i)^(true|false|yes|no|y|n|1|0)$`)
)

func matchesDate(v string) bool {
	for _, p := range datePatterns {
		if p.MatchString(v) {
			return true
		}
	}
	return false
}

// DefaultDetectorConfig returns the standard rule table:
// integer, decimal, date, boolean at a 0.7 threshold, then the categorical
// and text fallbacks.
func DefaultDetectorConfig() DetectorConfig {
	const threshold = 0.7
	return DetectorConfig{
		Rules: []TypeRule{
			{Type: TypeInteger, Match: integerPattern.MatchString, Threshold: threshold},
			{Type: TypeDecimal, Match: decimalPattern.MatchString, Threshold: threshold},
			{Type: TypeDate, Match: matchesDate, Threshold: threshold},
			{Type: TypeBoolean, Match: booleanPattern.MatchString, Threshold: threshold},
		},
		CategoricalMaxUnique:  20,
		CategoricalConfidence: 0.8,
		TextConfidence:        0.5,
		MaxSampleValues:       10,
		MaxTrackedUniques:     1_000,
	}
}

// TypeDetector classifies columns from sampled values. It has no mutable
// state and is safe for concurrent use.
type TypeDetector struct {
	cfg DetectorConfig
}

// NewTypeDetector creates a detector. The rule slice is copied.
func NewTypeDetector(cfg DetectorConfig) *TypeDetector {
	cfg.Rules = append([]TypeRule(nil), cfg.Rules...)
	return &TypeDetector{cfg: cfg}
}

// Classify returns the type and confidence for a column given its unique
// non-null values (in first-seen order) and its non-null sample count.
func (d *TypeDetector) Classify(uniques []string, nonNull int) (ColumnType, float64) {
	if len(uniques) == 0 {
		return TypeText, d.cfg.TextConfidence
	}
	for _, rule := range d.cfg.Rules {
		matched := 0
		for _, v := range uniques {
			if rule.Match(v) {
				matched++
			}
		}
		fraction := float64(matched) / float64(len(uniques))
		if fraction >= rule.Threshold {
			return rule.Type, fraction
		}
	}
	if len(uniques) <= d.cfg.CategoricalMaxUnique && nonNull > 2*len(uniques) {
		return TypeCategorical, d.cfg.CategoricalConfidence
	}
	return TypeText, d.cfg.TextConfidence
}

// SuggestedOperators returns the filter operators that suit a column type.
func SuggestedOperators(t ColumnType) []FilterOperator {
	switch t {
	case TypeInteger, TypeDecimal:
		return []FilterOperator{OpRange, OpGreaterThan, OpLessThan, OpEquals}
	case TypeDate:
		return []FilterOperator{OpDateRange, OpBefore, OpAfter, OpEquals}
	case TypeBoolean:
		return []FilterOperator{OpEquals, OpIsTrue, OpIsFalse}
	case TypeCategorical:
		return []FilterOperator{OpEquals, OpInList, OpNotEquals}
	default:
		return []FilterOperator{OpContains, OpStartsWith, OpEndsWith, OpEquals, OpNotEquals}
	}
}

// columnSampler accumulates one column's sample.
type columnSampler struct {
	uniques    []string
	seen       map[string]struct{}
	samples    []string
	nulls      int
	total      int
	maxUniques int
	maxSamples int
}

func newColumnSampler(cfg DetectorConfig) *columnSampler {
	return &columnSampler{
		seen:       make(map[string]struct{}),
		maxUniques: cfg.MaxTrackedUniques,
		maxSamples: cfg.MaxSampleValues,
	}
}

func (s *columnSampler) add(c Cell) {
	s.total++
	if !c.Present {
		s.nulls++
		return
	}
	if _, ok := s.seen[c.Value]; ok {
		return
	}
	if len(s.uniques) >= s.maxUniques {
		return
	}
	s.seen[c.Value] = struct{}{}
	s.uniques = append(s.uniques, c.Value)
	if len(s.samples) < s.maxSamples {
		s.samples = append(s.samples, c.Value)
	}
}

func (s *columnSampler) profile(d *TypeDetector, name string, idx int) ColumnProfile {
	typ, conf := d.Classify(s.uniques, s.total-s.nulls)
	samples := s.samples
	if samples == nil {
		samples = []string{}
	}
	return ColumnProfile{
		Name:               name,
		Index:              idx,
		Type:               typ,
		Confidence:         conf,
		SampleValues:       samples,
		UniqueValueCount:   len(s.uniques),
		NullCount:          s.nulls,
		TotalSamples:       s.total,
		SuggestedOperators: SuggestedOperators(typ),
	}
}

// profileName returns a display name for a header cell.
func profileName(header []string, idx int) string {
	if name := strings.TrimSpace(header[idx]); name != "" {
		return name
	}
	return "column_" + strconv.Itoa(idx+1)
}
