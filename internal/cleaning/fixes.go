package cleaning

import (
	"slices"

	"gonum.org/v1/gonum/stat"

	"data-quality-service/internal/quality"
	"data-quality-service/internal/table"
)

const (
	unknownLabel = "Unknown"
	otherLabel   = "Other"
)

// CoerceMixedNumeric converts mostly-numeric text columns to numeric ones.
// Values that do not parse become missing.
func CoerceMixedNumeric(t *table.Table) *table.Table {
	out := t.Clone()
	for _, name := range quality.MixedNumericColumns(t) {
		c := out.Column(name)
		c.Kind = table.Numeric
		for i, cell := range c.Cells {
			if !cell.Valid {
				continue
			}
			if v, ok := table.ParseNumber(cell.Str); ok {
				c.Cells[i] = table.Number(v)
			} else {
				c.Cells[i] = table.Missing()
			}
		}
	}
	return out
}

// ImputeMissing fills numeric gaps with the column mean and text gaps with
// the most frequent value, or "Unknown" when the column has no values.
// Numeric columns without any value stay missing.
func ImputeMissing(t *table.Table) *table.Table {
	out := t.Clone()
	for _, c := range out.Columns {
		if c.MissingCount() == 0 {
			continue
		}

		var fill table.Cell
		if c.Kind == table.Numeric {
			vals := c.Floats()
			if len(vals) == 0 {
				continue
			}
			fill = table.Number(stat.Mean(vals, nil))
		} else {
			fill = table.String(mode(c))
		}

		for i, cell := range c.Cells {
			if !cell.Valid {
				c.Cells[i] = fill
			}
		}
	}
	return out
}

// mode returns the most frequent text value; ties go to the smallest value.
func mode(c *table.Column) string {
	counts := make(map[string]int)
	for _, cell := range c.Cells {
		if cell.Valid {
			counts[cell.Str]++
		}
	}
	if len(counts) == 0 {
		return unknownLabel
	}

	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	slices.Sort(values)

	best := values[0]
	for _, v := range values[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

// DropDuplicates keeps the first occurrence of every distinct row.
func DropDuplicates(t *table.Table) *table.Table {
	seen := make(map[string]struct{}, t.Rows())
	keep := make([]int, 0, t.Rows())
	for r := 0; r < t.Rows(); r++ {
		key := t.RowKey(r)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, r)
	}
	return t.SelectRows(keep)
}

// GroupRareCategories replaces every text value under the rare frequency
// with "Other".
func GroupRareCategories(t *table.Table) *table.Table {
	out := t.Clone()
	for _, c := range out.ColumnsOf(table.Text) {
		freq := quality.Frequencies(c)
		for i, cell := range c.Cells {
			if cell.Valid && quality.IsRare(freq[cell.Str]) {
				c.Cells[i] = table.String(otherLabel)
			}
		}
	}
	return out
}

// DropCorrelated removes the numeric columns the leakage check flags on t.
func DropCorrelated(t *table.Table) *table.Table {
	return t.Drop(quality.CorrelatedColumns(t)...)
}
