// Package quality scores a table against a fixed battery of heuristics.
package quality

import (
	"encoding/json"
)

type Category string

const (
	MissingValues     Category = "missing_values"
	Duplicates        Category = "duplicates"
	InconsistentTypes Category = "inconsistent_types"
	RareCategories    Category = "rare_categories"
	DataLeakage       Category = "data_leakage"
	Outliers          Category = "outliers"
	PIIDetected       Category = "pii_detected"
)

// Categories lists every category in evaluation order.
var Categories = []Category{
	MissingValues,
	Duplicates,
	InconsistentTypes,
	RareCategories,
	DataLeakage,
	Outliers,
	PIIDetected,
}

var penalties = map[Category]int{
	MissingValues:     15,
	Duplicates:        15,
	InconsistentTypes: 10,
	RareCategories:    10,
	DataLeakage:       10,
	Outliers:          10,
	PIIDetected:       10,
}

const MaxScore = 100

// Magnitude is how bad a detected issue is: a count, or for sensitive data
// the annotated column labels.
type Magnitude struct {
	Count   int
	Columns []string
}

func (m Magnitude) MarshalJSON() ([]byte, error) {
	if m.Columns != nil {
		return json.Marshal(m.Columns)
	}
	return json.Marshal(m.Count)
}

func (m *Magnitude) UnmarshalJSON(b []byte) error {
	var cols []string
	if err := json.Unmarshal(b, &cols); err == nil {
		m.Columns = cols
		m.Count = len(cols)
		return nil
	}
	return json.Unmarshal(b, &m.Count)
}

// Issues maps each detected category to its magnitude. A key is present only
// when the issue was detected.
type Issues map[Category]Magnitude

func (is Issues) Has(c Category) bool {
	_, ok := is[c]
	return ok
}

// Keys returns the present categories in evaluation order.
func (is Issues) Keys() []Category {
	var out []Category
	for _, c := range Categories {
		if is.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (is Issues) count(c Category, n int) {
	if n > 0 {
		is[c] = Magnitude{Count: n}
	}
}

// Score subtracts the penalty of every present category from MaxScore.
func Score(is Issues) int {
	score := MaxScore
	for c := range is {
		score -= penalties[c]
	}
	return max(score, 0)
}
