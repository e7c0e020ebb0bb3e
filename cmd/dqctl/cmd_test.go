package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEvaluate_PrintsScoreAndIssues(t *testing.T) {
	path := writeCSV(t, "name,age\na,10\nb,20\nc,30\na,10\nb,20\n")

	out, err := execute(t, "evaluate", path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, float64(85), got["quality_score"])
	assert.Equal(t, float64(5), got["rows"])
	assert.Equal(t, float64(2), got["columns"])
	assert.Equal(t, map[string]any{"duplicates": float64(2)}, got["issues_found"])
}

func TestEvaluate_RejectsUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := execute(t, "evaluate", path)
	assert.ErrorContains(t, err, "unsupported file format")

	_, err = execute(t, "evaluate")
	assert.Error(t, err)
}

func TestClean_WritesCleanedFileAndSummary(t *testing.T) {
	path := writeCSV(t, "name,age\na,10\nb,20\nc,30\na,10\nb,20\n")
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "clean", path, "--out", outDir)
	require.NoError(t, err)

	var sum cleanSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 85, sum.InitialScore)
	assert.Equal(t, 100, sum.FinalScore)
	assert.Equal(t, []string{"Removed duplicates"}, sum.Actions)
	assert.Equal(t, filepath.Join(outDir, "cleaned_people.csv"), sum.Cleaned)

	cleaned, err := os.ReadFile(sum.Cleaned)
	require.NoError(t, err)
	assert.Equal(t, "name,age\na,10\nb,20\nc,30\n", string(cleaned))

	saved, err := os.ReadFile(sum.Cleaned + ".json")
	require.NoError(t, err)
	assert.JSONEq(t, out, string(saved))
}
