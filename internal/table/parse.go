package table

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoColumns         = errors.New("no columns to parse from file")
)

var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Tokens read as missing values.
var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"NULL": {}, "null": {}, "None": {}, "<NA>": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {},
	"1.#IND": {}, "-1.#IND": {}, "1.#QNAN": {}, "-1.#QNAN": {},
}

func IsNA(raw string) bool {
	_, ok := naTokens[raw]
	return ok
}

// ParseNumber reports whether s is a plain decimal number and returns its value.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FromRecords builds a table from a header and raw string rows. Column kinds
// are inferred: a column is numeric when every present value parses as a number.
func FromRecords(header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, ErrNoColumns
	}

	names := dedupeNames(header)
	raw := make([][]string, len(names))
	for i := range raw {
		raw[i] = make([]string, len(rows))
	}
	for r, rec := range rows {
		if len(rec) > len(names) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", r+2, len(names), len(rec))
		}
		for c := range names {
			if c < len(rec) {
				raw[c][r] = rec[c]
			}
		}
	}

	t := &Table{Columns: make([]*Column, len(names))}
	for i, name := range names {
		t.Columns[i] = inferColumn(name, raw[i])
	}
	return t, nil
}

func inferColumn(name string, values []string) *Column {
	col := &Column{Name: name, Kind: Numeric, Cells: make([]Cell, len(values))}
	for _, v := range values {
		if IsNA(v) {
			continue
		}
		if _, ok := ParseNumber(v); !ok {
			col.Kind = Text
			break
		}
	}

	for i, v := range values {
		if IsNA(v) {
			continue
		}
		if col.Kind == Numeric {
			n, _ := ParseNumber(v)
			col.Cells[i] = Number(n)
		} else {
			col.Cells[i] = String(v)
		}
	}
	return col
}

func dedupeNames(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		n, dup := seen[name]
		if dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
