package core

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestTypeDetector_Classify(t *testing.T) {
	d := NewTypeDetector(DefaultDetectorConfig())

	tests := []struct {
		name     string
		uniques  []string
		nonNull  int
		wantType ColumnType
		wantConf float64
	}{
		{name: "integers", uniques: []string{"1", "-2", "30"}, nonNull: 3, wantType: TypeInteger, wantConf: 1},
		{name: "decimals", uniques: []string{"1.5", "-.25", "3.0"}, nonNull: 3, wantType: TypeDecimal, wantConf: 1},
		{name: "mostly integers", uniques: []string{"1", "2", "3", "x"}, nonNull: 4, wantType: TypeInteger, wantConf: 0.75},
		{name: "ISO dates", uniques: []string{"2024-01-01", "2024-02-01"}, nonNull: 2, wantType: TypeDate, wantConf: 1},
		{name: "US dates", uniques: []string{"1/2/2024", "12-31-2023", "01/02/24"}, nonNull: 3, wantType: TypeDate, wantConf: 1},
		{name: "booleans", uniques: []string{"Yes", "no", "TRUE"}, nonNull: 3, wantType: TypeBoolean, wantConf: 1},
		{name: "one/zero is integer first", uniques: []string{"1", "0"}, nonNull: 10, wantType: TypeInteger, wantConf: 1},
		{name: "categorical", uniques: []string{"red", "green", "blue"}, nonNull: 7, wantType: TypeCategorical, wantConf: 0.8},
		{name: "not enough repetition", uniques: []string{"red", "green", "blue"}, nonNull: 6, wantType: TypeText, wantConf: 0.5},
		{name: "no values", uniques: nil, nonNull: 0, wantType: TypeText, wantConf: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, conf := d.Classify(tt.uniques, tt.nonNull)
			if typ != tt.wantType || conf != tt.wantConf {
				t.Errorf("Classify() = (%s, %v), want (%s, %v)", typ, conf, tt.wantType, tt.wantConf)
			}
		})
	}
}

func TestTypeDetector_CustomRules(t *testing.T) {
	cfg := DefaultDetectorConfig()
	cfg.Rules = []TypeRule{{
		Type:      TypeBoolean,
		Match:     func(v string) bool { return v == "ja" || v == "nein" },
		Threshold: 1,
	}}
	e := testEngine(WithDetectorConfig(cfg))

	profiles, err := e.DetectTypes(context.Background(), "flag\nja\nnein\n")
	if err != nil {
		t.Fatal(err)
	}
	if profiles[0].Type != TypeBoolean {
		t.Errorf("Type = %s, want boolean", profiles[0].Type)
	}
}

func TestDetectTypes_Profiles(t *testing.T) {
	input := "id,price,joined,active,color,notes\n" +
		"1,1.50,2024-01-01,yes,red,first\n" +
		"2,2.25,2024-01-02,no,green,\n" +
		"3,3.00,2024-01-03,yes,red,third\n" +
		"4,4.75,2024-01-04,no,blue,fourth\n" +
		"5,5.10,2024-01-05,yes,red,fifth\n" +
		"6,6.00,2024-01-06,no,green,sixth\n" +
		"7,7.99,2024-01-07,yes,blue,seventh\n"

	profiles, err := testEngine().DetectTypes(context.Background(), input)
	if err != nil {
		t.Fatalf("DetectTypes() error = %v", err)
	}

	want := []ColumnType{TypeInteger, TypeDecimal, TypeDate, TypeBoolean, TypeCategorical, TypeText}
	if len(profiles) != len(want) {
		t.Fatalf("got %d profiles, want %d", len(profiles), len(want))
	}
	for i, p := range profiles {
		if p.Type != want[i] {
			t.Errorf("column %s: type = %s, want %s", p.Name, p.Type, want[i])
		}
		if p.Index != i || p.TotalSamples != 7 {
			t.Errorf("column %s: index = %d, total = %d", p.Name, p.Index, p.TotalSamples)
		}
		if !reflect.DeepEqual(p.SuggestedOperators, SuggestedOperators(p.Type)) {
			t.Errorf("column %s: operators = %v", p.Name, p.SuggestedOperators)
		}
	}

	notes := profiles[5]
	if notes.NullCount != 1 || notes.UniqueValueCount != 6 {
		t.Errorf("notes: nulls = %d, uniques = %d, want 1 and 6", notes.NullCount, notes.UniqueValueCount)
	}
	if !reflect.DeepEqual(profiles[4].SampleValues, []string{"red", "green", "blue"}) {
		t.Errorf("color samples = %q", profiles[4].SampleValues)
	}
}

// Twenty-one distinct values, each repeated, stay above the categorical
// ceiling of twenty and fall through to text. The values carry thousands
// separators so the integer rule does not claim them first.
func TestDetectTypes_CategoricalCeiling(t *testing.T) {
	build := func(distinct int) string {
		var sb strings.Builder
		sb.WriteString("code\n")
		for rep := 0; rep < 3; rep++ {
			for i := 1; i <= distinct; i++ {
				fmt.Fprintf(&sb, "\"%d,000\"\n", i)
			}
		}
		return sb.String()
	}

	tests := []struct {
		distinct int
		want     ColumnType
	}{
		{distinct: 20, want: TypeCategorical},
		{distinct: 21, want: TypeText},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d distinct", tt.distinct), func(t *testing.T) {
			profiles, err := testEngine().DetectTypes(context.Background(), build(tt.distinct))
			if err != nil {
				t.Fatal(err)
			}
			p := profiles[0]
			if p.Type != tt.want {
				t.Errorf("Type = %s, want %s", p.Type, tt.want)
			}
			if p.UniqueValueCount != tt.distinct {
				t.Errorf("UniqueValueCount = %d, want %d", p.UniqueValueCount, tt.distinct)
			}
		})
	}
}

func TestDetectTypes_SampleLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.SampleRows = 10
	e := NewEngine(limits, WithLogger(quietLogger()))

	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}
	profiles, err := e.DetectTypes(context.Background(), sb.String())
	if err != nil {
		t.Fatal(err)
	}
	if profiles[0].TotalSamples != 10 {
		t.Errorf("TotalSamples = %d, want 10", profiles[0].TotalSamples)
	}
	if len(profiles[0].SampleValues) != 10 {
		t.Errorf("SampleValues = %d, want 10", len(profiles[0].SampleValues))
	}
}

func TestDetectTypes_AllNullColumn(t *testing.T) {
	profiles, err := testEngine().DetectTypes(context.Background(), "a,b\n1,\n2,\n")
	if err != nil {
		t.Fatal(err)
	}
	b := profiles[1]
	if b.Type != TypeText || b.Confidence != 0.5 || b.NullCount != 2 {
		t.Errorf("all-null column = %+v", b)
	}
	if b.SampleValues == nil {
		t.Error("SampleValues should be empty, not nil")
	}
}

func TestDetectTypes_Deterministic(t *testing.T) {
	input := "a,b\n1,x\n2,y\n3.5,x\nfoo,y\n"
	first, err := testEngine().DetectTypes(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := testEngine().DetectTypes(context.Background(), input)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestSuggestedOperators(t *testing.T) {
	tests := []struct {
		typ  ColumnType
		want []FilterOperator
	}{
		{TypeInteger, []FilterOperator{OpRange, OpGreaterThan, OpLessThan, OpEquals}},
		{TypeDecimal, []FilterOperator{OpRange, OpGreaterThan, OpLessThan, OpEquals}},
		{TypeDate, []FilterOperator{OpDateRange, OpBefore, OpAfter, OpEquals}},
		{TypeBoolean, []FilterOperator{OpEquals, OpIsTrue, OpIsFalse}},
		{TypeCategorical, []FilterOperator{OpEquals, OpInList, OpNotEquals}},
		{TypeText, []FilterOperator{OpContains, OpStartsWith, OpEndsWith, OpEquals, OpNotEquals}},
	}
	for _, tt := range tests {
		if got := SuggestedOperators(tt.typ); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SuggestedOperators(%s) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}
