package quality

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"data-quality-service/internal/table"
)

const (
	correlationLimit = 0.98
	iqrFence         = 1.5
)

// Quantile interpolates linearly between the closest ranks of the sorted
// values (h = (n-1)p). sorted must be ascending and non-empty.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// IQRBounds returns the Tukey fences of the values.
func IQRBounds(values []float64) (lower, upper float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	return q1 - iqrFence*iqr, q3 + iqrFence*iqr, true
}

// CountOutliers counts values outside the Tukey fences.
func CountOutliers(values []float64) int {
	lower, upper, ok := IQRBounds(values)
	if !ok {
		return 0
	}
	n := 0
	for _, v := range values {
		if v < lower || v > upper {
			n++
		}
	}
	return n
}

// Correlation is the absolute Pearson correlation over rows where both
// columns are present. ok is false when it is undefined.
func Correlation(a, b *table.Column) (r float64, ok bool) {
	var xs, ys []float64
	for i := range a.Cells {
		if a.Cells[i].Valid && b.Cells[i].Valid {
			xs = append(xs, a.Cells[i].Num)
			ys = append(ys, b.Cells[i].Num)
		}
	}
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return 0, false
	}
	r = math.Abs(stat.Correlation(xs, ys, nil))
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

// CorrelatedColumns walks the strictly-upper triangle of the numeric
// correlation matrix and returns every column that correlates above the
// limit with an earlier numeric column.
func CorrelatedColumns(t *table.Table) []string {
	numeric := t.ColumnsOf(table.Numeric)
	if len(numeric) < 2 {
		return nil
	}
	var out []string
	for j := 1; j < len(numeric); j++ {
		for i := 0; i < j; i++ {
			if r, ok := Correlation(numeric[i], numeric[j]); ok && r > correlationLimit {
				out = append(out, numeric[j].Name)
				break
			}
		}
	}
	return out
}

// Frequencies returns each distinct value's share of the non-missing cells.
func Frequencies(c *table.Column) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, cell := range c.Cells {
		if cell.Valid {
			counts[cell.Str]++
			total++
		}
	}
	out := make(map[string]float64, len(counts))
	for v, n := range counts {
		out[v] = float64(n) / float64(total)
	}
	return out
}

// NumericShare is the fraction of all rows, missing included, whose value
// parses as a number.
func NumericShare(c *table.Column) float64 {
	if len(c.Cells) == 0 {
		return 0
	}
	ok := 0
	for _, cell := range c.Cells {
		if !cell.Valid {
			continue
		}
		if _, parsed := table.ParseNumber(cell.Str); parsed {
			ok++
		}
	}
	return float64(ok) / float64(len(c.Cells))
}

// MixedNumericColumns returns text columns that mostly, but not entirely,
// hold numbers.
func MixedNumericColumns(t *table.Table) []string {
	var out []string
	for _, c := range t.ColumnsOf(table.Text) {
		share := NumericShare(c)
		if share > 0.5 && share < 1.0 {
			out = append(out, c.Name)
		}
	}
	return out
}
