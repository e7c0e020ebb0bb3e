// Package table holds the in-memory row/column model the quality checks and
// fixes operate on, plus its CSV and XLSX codecs.
package table

import (
	"strconv"
	"strings"
)

type Kind int

const (
	Numeric Kind = iota
	Text
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "text"
}

// Cell is one value. Numeric columns use Num, text columns use Str.
// Valid=false marks a missing value.
type Cell struct {
	Valid bool
	Num   float64
	Str   string
}

func Missing() Cell            { return Cell{} }
func Number(v float64) Cell    { return Cell{Valid: true, Num: v} }
func String(s string) Cell     { return Cell{Valid: true, Str: s} }
func (c Cell) IsMissing() bool { return !c.Valid }

type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// Text renders a cell the way it is written back to disk. Missing cells
// render as the empty string.
func (c *Column) Text(i int) string {
	cell := c.Cells[i]
	if !cell.Valid {
		return ""
	}
	if c.Kind == Numeric {
		return strconv.FormatFloat(cell.Num, 'f', -1, 64)
	}
	return cell.Str
}

// Strings returns the non-missing values as text, in row order.
func (c *Column) Strings() []string {
	out := make([]string, 0, len(c.Cells))
	for i, cell := range c.Cells {
		if cell.Valid {
			out = append(out, c.Text(i))
		}
	}
	return out
}

// Floats returns the non-missing values of a numeric column.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Valid {
			out = append(out, cell.Num)
		}
	}
	return out
}

func (c *Column) MissingCount() int {
	n := 0
	for _, cell := range c.Cells {
		if !cell.Valid {
			n++
		}
	}
	return n
}

func (c *Column) clone() *Column {
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	return &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
}

// Table is an ordered set of equally long columns.
type Table struct {
	Columns []*Column
}

func New(cols ...*Column) *Table {
	return &Table{Columns: cols}
}

func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

func (t *Table) Shape() (rows, cols int) {
	return t.Rows(), len(t.Columns)
}

func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// ColumnsOf returns the columns of the given kind, in table order.
func (t *Table) ColumnsOf(k Kind) []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy; fixes work on clones so inputs stay untouched.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.clone()
	}
	return &Table{Columns: cols}
}

// RowKey identifies a full row for duplicate detection. Missing cells compare
// equal to each other and differ from every present value.
func (t *Table) RowKey(row int) string {
	var b strings.Builder
	for _, c := range t.Columns {
		cell := c.Cells[row]
		switch {
		case !cell.Valid:
			b.WriteString("\x00")
		case c.Kind == Numeric:
			b.WriteString("n")
			b.WriteString(strconv.FormatFloat(cell.Num, 'g', -1, 64))
		default:
			b.WriteString("s")
			b.WriteString(cell.Str)
		}
		b.WriteString("\x1f")
	}
	return b.String()
}

// SelectRows returns a new table holding only the given rows, in the given order.
func (t *Table) SelectRows(rows []int) *Table {
	cols := make([]*Column, len(t.Columns))
	for i, c := range t.Columns {
		cells := make([]Cell, len(rows))
		for j, r := range rows {
			cells[j] = c.Cells[r]
		}
		cols[i] = &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return &Table{Columns: cols}
}

// Drop returns a copy without the named columns.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := &Table{}
	for _, c := range t.Columns {
		if !skip[c.Name] {
			out.Columns = append(out.Columns, c.clone())
		}
	}
	return out
}
