// Package safety evaluates water samples against fixed per-parameter safe
// ranges, independent of the trained classifier. It produces per-parameter
// verdicts for display and a priority-ordered list of remedial precautions.
package safety

import (
	"fmt"

	"waterqual/internal/sample"
)

// Range is a closed interval of acceptable values for one parameter.
type Range struct {
	Min float64
	Max float64
}

type rangeEntry struct {
	Param string
	Range Range
}

// safeRanges lists the per-parameter safe intervals in display order.
// Values follow WHO drinking-water guidance as used by the training rules.
var safeRanges = []rangeEntry{
	{"pH", Range{6.5, 8.5}},
	{"Solids", Range{0, 10000}},
	{"Sulfate", Range{0, 400}},
	{"Organic_carbon", Range{0, 20}},
	{"Turbidity", Range{0, 5}},
	{"Hardness", Range{0, 300}},
	{"Chloramines", Range{0, 2.5}},
	{"Conductivity", Range{0, 800}},
	{"Trihalomethanes", Range{0, 100}},
}

// Row is the analysis verdict for a single parameter.
type Row struct {
	Parameter string  `json:"parameter"`
	Value     float64 `json:"value"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Safe      bool    `json:"safe"`
}

// RangeFor returns the safe range for a parameter, if it has one.
func RangeFor(param string) (Range, bool) {
	for _, e := range safeRanges {
		if e.Param == param {
			return e.Range, true
		}
	}
	return Range{}, false
}

// Analyze returns one row per known parameter, in table order. A value is
// safe iff it lies within the closed interval [Min, Max].
func Analyze(s sample.Sample) []Row {
	rows := make([]Row, 0, len(safeRanges))
	for _, e := range safeRanges {
		v := s.Value(e.Param)
		rows = append(rows, Row{
			Parameter: e.Param,
			Value:     v,
			Min:       e.Range.Min,
			Max:       e.Range.Max,
			Safe:      v >= e.Range.Min && v <= e.Range.Max,
		})
	}
	return rows
}

// SafeCount returns how many of the nine parameters fall inside their safe
// range. The fallback predictor scores samples with this count.
func SafeCount(s sample.Sample) int {
	n := 0
	for _, r := range Analyze(s) {
		if r.Safe {
			n++
		}
	}
	return n
}

type precautionRule struct {
	applies func(sample.Sample) bool
	text    string
}

// Precaution rules fire independently, in this fixed priority order.
var precautionRules = []precautionRule{
	{func(s sample.Sample) bool { return s.PH < 6.5 || s.PH > 8.5 },
		"Maintain pH between 6.5 and 8.5."},
	{func(s sample.Sample) bool { return s.Turbidity > 5 },
		"Reduce turbidity using filtration methods."},
	{func(s sample.Sample) bool { return s.Chloramines > 2.5 },
		"Check for excess chlorination."},
	{func(s sample.Sample) bool { return s.Sulfate > 400 },
		"High sulfate levels can cause taste issues."},
	{func(s sample.Sample) bool { return s.Hardness > 300 },
		"Soften water to bring hardness below 300 mg/L."},
	{func(s sample.Sample) bool { return s.Conductivity > 800 },
		"Check ion concentration; conductivity exceeds 800 uS/cm."},
}

// Precautions returns the remedial suggestions for every violated rule, in
// rule-declaration order. Empty when no rule fires.
func Precautions(s sample.Sample) []string {
	var out []string
	for _, r := range precautionRules {
		if r.applies(s) {
			out = append(out, r.text)
		}
	}
	return out
}

// String renders a range the way the dashboards display it.
func (r Range) String() string {
	return fmt.Sprintf("%g-%g", r.Min, r.Max)
}
