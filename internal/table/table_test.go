package table_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data-quality-service/internal/table"
)

func TestFromRecords_InfersKinds(t *testing.T) {
	tb, err := table.FromRecords(
		[]string{"id", "name", "score", "empty"},
		[][]string{
			{"1", "alice", "3.5", ""},
			{"2", "bob", "NA", ""},
			{"3", "carol", "-1e2", "null"},
		},
	)
	require.NoError(t, err)

	rows, cols := tb.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 4, cols)

	assert.Equal(t, table.Numeric, tb.Column("id").Kind)
	assert.Equal(t, table.Text, tb.Column("name").Kind)
	assert.Equal(t, table.Numeric, tb.Column("score").Kind)
	assert.Equal(t, table.Numeric, tb.Column("empty").Kind)

	score := tb.Column("score")
	assert.True(t, score.Cells[1].IsMissing())
	assert.Equal(t, -100.0, score.Cells[2].Num)
	assert.Equal(t, 3, tb.Column("empty").MissingCount())
}

func TestFromRecords_PadsShortRowsAndRejectsLongOnes(t *testing.T) {
	tb, err := table.FromRecords([]string{"a", "b"}, [][]string{{"1"}})
	require.NoError(t, err)
	assert.True(t, tb.Column("b").Cells[0].IsMissing())

	_, err = table.FromRecords([]string{"a"}, [][]string{{"1", "2"}})
	require.Error(t, err)
}

func TestFromRecords_DedupesHeader(t *testing.T) {
	tb, err := table.FromRecords([]string{"a", "a", "", "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2", "a.2"}, tb.Names())
}

func TestFormatFromPath(t *testing.T) {
	f, err := table.FormatFromPath("/data/x.CSV")
	require.NoError(t, err)
	assert.Equal(t, table.FormatCSV, f)

	f, err = table.FormatFromPath("x.xlsx")
	require.NoError(t, err)
	assert.Equal(t, table.FormatXLSX, f)

	_, err = table.FormatFromPath("x.json")
	assert.ErrorIs(t, err, table.ErrUnsupportedFormat)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := table.Read(strings.NewReader(""), table.FormatCSV)
	assert.ErrorIs(t, err, table.ErrNoColumns)
}

func TestCSVRoundTrip_KeepsMissingAndShortNumbers(t *testing.T) {
	in := "a,b\n1,x\n2.5,\n,z\n"
	tb, err := table.Read(strings.NewReader(in), table.FormatCSV)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, table.Write(&buf, tb, table.FormatCSV))
	assert.Equal(t, in, buf.String())
}

func TestXLSXRoundTrip(t *testing.T) {
	tb := table.New(
		&table.Column{Name: "n", Kind: table.Numeric, Cells: []table.Cell{table.Number(1), table.Missing(), table.Number(2.5)}},
		&table.Column{Name: "s", Kind: table.Text, Cells: []table.Cell{table.String("a"), table.String("b"), table.Missing()}},
	)

	var buf bytes.Buffer
	require.NoError(t, table.Write(&buf, tb, table.FormatXLSX))

	got, err := table.Read(&buf, table.FormatXLSX)
	require.NoError(t, err)

	assert.Equal(t, []string{"n", "s"}, got.Names())
	assert.Equal(t, 3, got.Rows())
	assert.Equal(t, table.Numeric, got.Column("n").Kind)
	assert.Equal(t, []float64{1, 2.5}, got.Column("n").Floats())
	assert.Equal(t, []string{"a", "b"}, got.Column("s").Strings())
}

func TestCloneIsDeep(t *testing.T) {
	tb := table.New(&table.Column{Name: "s", Kind: table.Text, Cells: []table.Cell{table.String("a")}})
	cp := tb.Clone()
	cp.Columns[0].Cells[0] = table.String("b")
	assert.Equal(t, "a", tb.Columns[0].Cells[0].Str)
}

func TestRowKey_MissingEqualsMissing(t *testing.T) {
	tb := table.New(
		&table.Column{Name: "n", Kind: table.Numeric, Cells: []table.Cell{table.Missing(), table.Missing(), table.Number(0)}},
	)
	assert.Equal(t, tb.RowKey(0), tb.RowKey(1))
	assert.NotEqual(t, tb.RowKey(0), tb.RowKey(2))
}
