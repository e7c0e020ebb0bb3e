package quality_test

import (
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data-quality-service/internal/quality"
	"data-quality-service/internal/table"
)

func numCol(name string, vals ...float64) *table.Column {
	c := &table.Column{Name: name, Kind: table.Numeric}
	for _, v := range vals {
		c.Cells = append(c.Cells, table.Number(v))
	}
	return c
}

func textCol(name string, vals ...string) *table.Column {
	c := &table.Column{Name: name, Kind: table.Text}
	for _, v := range vals {
		c.Cells = append(c.Cells, table.String(v))
	}
	return c
}

func repeat(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func cleanTable() *table.Table {
	return table.New(
		numCol("id", 1, 2, 3, 4, 5, 6),
		numCol("score", 10, 12, 9, 11, 8, 10),
		textCol("city", "Paris", "Lyon", "Nice", "Paris", "Lyon", "Nice"),
	)
}

func TestEvaluate_CleanTableScores100(t *testing.T) {
	score, issues := quality.Evaluate(cleanTable())
	assert.Equal(t, 100, score)
	assert.Empty(t, issues)
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	tb := cleanTable()
	before := tb.Clone()
	quality.Evaluate(tb)
	assert.Equal(t, before, tb)
}

func TestEvaluate_TwoDuplicateRows(t *testing.T) {
	tb := table.New(
		numCol("id", 1, 2, 3, 1, 2),
		textCol("city", "Paris", "Lyon", "Nice", "Paris", "Lyon"),
	)
	score, issues := quality.Evaluate(tb)
	assert.Equal(t, 85, score)
	assert.Equal(t, quality.Issues{quality.Duplicates: {Count: 2}}, issues)
}

func TestEvaluate_MissingValues(t *testing.T) {
	tb := cleanTable()
	tb.Columns[2].Cells[1] = table.Missing()
	tb.Columns[2].Cells[4] = table.Missing()

	score, issues := quality.Evaluate(tb)
	assert.Equal(t, 85, score)
	assert.Equal(t, 2, issues[quality.MissingValues].Count)
}

func TestEvaluate_AllCategoriesStackPenalties(t *testing.T) {
	var rows [][]string
	for i := 0; i < 200; i++ {
		a := float64(i)
		if i == 199 {
			a = 10000
		}
		mixed := strconv.Itoa(i)
		if i%10 == 0 {
			mixed = "abc"
		}
		c := "1"
		if i == 5 {
			c = ""
		}
		rows = append(rows, []string{
			strconv.FormatFloat(a, 'f', -1, 64),
			strconv.FormatFloat(2*a, 'f', -1, 64),
			fmt.Sprintf("u%d@example.com", i),
			mixed,
			c,
		})
	}
	rows = append(rows, rows[3])

	tb, err := table.FromRecords([]string{"a", "b", "email", "mixed", "c"}, rows)
	require.NoError(t, err)

	score, issues := quality.Evaluate(tb)
	for _, c := range quality.Categories {
		assert.True(t, issues.Has(c), "expected %s", c)
	}
	assert.Equal(t, 20, score)
	assert.Equal(t, []string{"email (email)"}, issues[quality.PIIDetected].Columns)
	assert.Equal(t, 1, issues[quality.DataLeakage].Count)
	assert.Equal(t, 1, issues[quality.InconsistentTypes].Count)
	assert.Equal(t, 1, issues[quality.MissingValues].Count)
	assert.Equal(t, 1, issues[quality.Duplicates].Count)
}

func TestScore_FlooredAtZeroAndMonotonic(t *testing.T) {
	is := quality.Issues{}
	prev := quality.Score(is)
	assert.Equal(t, 100, prev)
	for _, c := range quality.Categories {
		is[c] = quality.Magnitude{Count: 1}
		s := quality.Score(is)
		assert.LessOrEqual(t, s, prev)
		assert.GreaterOrEqual(t, s, 0)
		prev = s
	}
	assert.Equal(t, 20, prev)

	// Unknown categories carry no penalty.
	is["something_else"] = quality.Magnitude{Count: 1}
	assert.Equal(t, 20, quality.Score(is))
}

func TestOutliers_TukeyFences(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 100}
	assert.InDelta(t, 2.25, quality.Quantile(sorted, 0.25), 1e-9)
	assert.InDelta(t, 4.75, quality.Quantile(sorted, 0.75), 1e-9)

	lower, upper, ok := quality.IQRBounds(sorted)
	require.True(t, ok)
	assert.InDelta(t, -1.5, lower, 1e-9)
	assert.InDelta(t, 8.5, upper, 1e-9)

	assert.Equal(t, 1, quality.CountOutliers(sorted))

	_, issues := quality.Evaluate(table.New(numCol("x", 1, 2, 3, 4, 5, 100)))
	assert.Equal(t, 1, issues[quality.Outliers].Count)
}

func TestInconsistentTypes_StrictBounds(t *testing.T) {
	// 3 of 4 numeric: mixed.
	mixed := textCol("m", "1", "2", "3", "x")
	// 2 of 4 numeric: exactly half, not mixed.
	half := textCol("h", "1", "2", "x", "y")
	// all numeric strings: not mixed.
	all := textCol("a", "1", "2", "3", "4")

	tb := table.New(mixed, half, all)
	assert.Equal(t, []string{"m"}, quality.MixedNumericColumns(tb))
}

func TestInconsistentTypes_MissingCountsAsFailure(t *testing.T) {
	c := textCol("m", "1", "2", "x", "")
	c.Cells[3] = table.Missing()
	assert.InDelta(t, 0.5, quality.NumericShare(c), 1e-9)
}

func TestRareCategories_NeedsMoreThanFiveDistinct(t *testing.T) {
	var vals []string
	vals = append(vals, repeat("A", 150)...)
	vals = append(vals, repeat("B", 20)...)
	vals = append(vals, repeat("C", 10)...)
	vals = append(vals, repeat("D", 10)...)
	vals = append(vals, repeat("E", 9)...)
	vals = append(vals, "F")

	_, issues := quality.Evaluate(table.New(textCol("cat", vals...)))
	assert.Equal(t, 1, issues[quality.RareCategories].Count)

	// Five distinct values with a rare one are not flagged.
	few := append(repeat("A", 199), "B")
	_, issues = quality.Evaluate(table.New(textCol("cat", few...)))
	assert.False(t, issues.Has(quality.RareCategories))
}

func TestRareCategories_ExactlyOnePercentIsNotRare(t *testing.T) {
	var vals []string
	vals = append(vals, repeat("A", 90)...)
	for _, v := range []string{"B", "C", "D", "E"} {
		vals = append(vals, repeat(v, 2)...)
	}
	vals = append(vals, "F", "G")

	_, issues := quality.Evaluate(table.New(textCol("cat", vals...)))
	assert.False(t, issues.Has(quality.RareCategories))
}

func TestCorrelatedColumns_FlagsLaterColumnOnly(t *testing.T) {
	tb := table.New(
		numCol("a", 1, 2, 3, 4, 5),
		numCol("noise", 5, 1, 4, 2, 3),
		numCol("b", 2, 4, 6, 8, 10),
		numCol("c", -1, -2, -3, -4, -5),
	)
	assert.Equal(t, []string{"b", "c"}, quality.CorrelatedColumns(tb))
}

func TestCorrelatedColumns_ConstantColumnNeverFlags(t *testing.T) {
	tb := table.New(
		numCol("a", 1, 1, 1, 1),
		numCol("b", 1, 1, 1, 1),
	)
	assert.Empty(t, quality.CorrelatedColumns(tb))
}

func TestCorrelatedColumns_SingleNumericColumn(t *testing.T) {
	tb := table.New(numCol("a", 1, 2, 3), textCol("s", "x", "y", "z"))
	assert.Empty(t, quality.CorrelatedColumns(tb))
}

func TestClassify(t *testing.T) {
	var sixty []string
	for i := 0; i < 60; i++ {
		sixty = append(sixty, fmt.Sprintf("person%d@mail.org", i))
	}
	sixty = append(sixty, repeat("word", 40)...)

	cat, sensitive := quality.Classify(sixty)
	assert.Equal(t, "email", cat)
	assert.True(t, sensitive)

	forty := append(append([]string{}, sixty[:40]...), repeat("word", 60)...)
	cat, sensitive = quality.Classify(forty)
	assert.Equal(t, "text", cat)
	assert.False(t, sensitive)
}

func TestClassify_EmptyAndPatterns(t *testing.T) {
	cat, sensitive := quality.Classify(nil)
	assert.Equal(t, "empty", cat)
	assert.False(t, sensitive)

	cases := map[string][]string{
		"phone":       {"555-123-4567", "(555) 123-4567", "+1-555-123-4567"},
		"ssn":         {"123-45-6789", "987-65-4321", "111-22-3333"},
		"credit_card": {"4111 1111 1111 1111", "5500-0000-0000-0004", "4012888888881881"},
	}
	for want, values := range cases {
		got, sensitive := quality.Classify(values)
		assert.True(t, sensitive, want)
		assert.Equal(t, want, got)
	}
}

func TestClassify_OnlyFirstHundredSampled(t *testing.T) {
	values := append(repeat("plain", 100), repeat("a@b.io", 500)...)
	cat, sensitive := quality.Classify(values)
	assert.Equal(t, "text", cat)
	assert.False(t, sensitive)
}

func TestClassify_RequiresFullMatch(t *testing.T) {
	values := repeat("contact: a@b.io", 10)
	_, sensitive := quality.Classify(values)
	assert.False(t, sensitive)
}

func TestIssues_JSON(t *testing.T) {
	is := quality.Issues{
		quality.Duplicates:  {Count: 2},
		quality.PIIDetected: {Count: 1, Columns: []string{"mail (email)"}},
	}
	b, err := json.Marshal(is)
	require.NoError(t, err)
	assert.JSONEq(t, `{"duplicates":2,"pii_detected":["mail (email)"]}`, string(b))

	var back quality.Issues
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, is, back)
	assert.Equal(t, []quality.Category{quality.Duplicates, quality.PIIDetected}, back.Keys())
}
