package quality

import (
	"fmt"

	"data-quality-service/internal/table"
)

const (
	rareFrequency   = 0.01
	rareMinDistinct = 5
)

// Evaluate runs every check against t and returns the score with the issues
// it found. It never modifies t.
func Evaluate(t *table.Table) (int, Issues) {
	is := Issues{}

	is.count(MissingValues, countMissing(t))
	is.count(Duplicates, CountDuplicates(t))
	is.count(InconsistentTypes, len(MixedNumericColumns(t)))
	is.count(RareCategories, countRareColumns(t))
	is.count(DataLeakage, len(CorrelatedColumns(t)))
	is.count(Outliers, countOutliers(t))

	if labels := SensitiveColumns(t); len(labels) > 0 {
		is[PIIDetected] = Magnitude{Count: len(labels), Columns: labels}
	}

	return Score(is), is
}

func countMissing(t *table.Table) int {
	n := 0
	for _, c := range t.Columns {
		n += c.MissingCount()
	}
	return n
}

// CountDuplicates counts rows identical to an earlier row.
func CountDuplicates(t *table.Table) int {
	seen := make(map[string]struct{}, t.Rows())
	n := 0
	for r := 0; r < t.Rows(); r++ {
		key := t.RowKey(r)
		if _, ok := seen[key]; ok {
			n++
			continue
		}
		seen[key] = struct{}{}
	}
	return n
}

func countRareColumns(t *table.Table) int {
	n := 0
	for _, c := range t.ColumnsOf(table.Text) {
		freq := Frequencies(c)
		if len(freq) <= rareMinDistinct {
			continue
		}
		for _, f := range freq {
			if IsRare(f) {
				n++
				break
			}
		}
	}
	return n
}

// IsRare reports whether a value frequency falls under the rare-category line.
func IsRare(freq float64) bool {
	return freq < rareFrequency
}

func countOutliers(t *table.Table) int {
	n := 0
	for _, c := range t.ColumnsOf(table.Numeric) {
		n += CountOutliers(c.Floats())
	}
	return n
}

// SensitiveColumns returns "column (category)" for every column the
// classifier marks as sensitive.
func SensitiveColumns(t *table.Table) []string {
	var out []string
	for _, c := range t.Columns {
		if category, sensitive := Classify(c.Strings()); sensitive {
			out = append(out, fmt.Sprintf("%s (%s)", c.Name, category))
		}
	}
	return out
}
