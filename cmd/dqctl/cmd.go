package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"data-quality-service/internal/cleaning"
	"data-quality-service/internal/logging"
	"data-quality-service/internal/quality"
	"data-quality-service/internal/table"
)

type evaluation struct {
	File   string         `json:"file"`
	Rows   int            `json:"rows"`
	Cols   int            `json:"columns"`
	Score  int            `json:"quality_score"`
	Issues quality.Issues `json:"issues_found"`
}

type cleanSummary struct {
	Source       string         `json:"source"`
	Cleaned      string         `json:"cleaned"`
	InitialScore int            `json:"initial_quality_score"`
	FinalScore   int            `json:"final_quality_score"`
	Issues       quality.Issues `json:"issues_found"`
	Actions      []string       `json:"actions_taken"`
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:          "dqctl",
		Short:        "Evaluate and clean tabular datasets from the command line",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	logger := func(cmd *cobra.Command) zerolog.Logger {
		return logging.NewWriter(cmd.ErrOrStderr(), logLevel, "console")
	}

	evaluateCmd := &cobra.Command{
		Use:   "evaluate <file>",
		Short: "Score a .csv or .xlsx file and list the detected issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := evaluateFile(args[0])
			if err != nil {
				return err
			}
			log := logger(cmd)
			log.Info().Str("file", ev.File).Int("score", ev.Score).Msg("evaluated")
			return printJSON(cmd.OutOrStdout(), ev)
		},
	}

	var outDir string
	cleanCmd := &cobra.Command{
		Use:   "clean <file>",
		Short: "Evaluate, clean and re-evaluate a file, writing the cleaned copy and a JSON summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := cleanFile(args[0], outDir, logger(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sum)
		},
	}
	cleanCmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the cleaned file and its summary")

	root.AddCommand(evaluateCmd, cleanCmd)
	return root
}

func readTable(path string) (*table.Table, table.Format, error) {
	format, err := table.FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	t, err := table.Read(f, format)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return t, format, nil
}

func evaluateFile(path string) (*evaluation, error) {
	t, _, err := readTable(path)
	if err != nil {
		return nil, err
	}
	score, issues := quality.Evaluate(t)
	rows, cols := t.Shape()
	return &evaluation{File: path, Rows: rows, Cols: cols, Score: score, Issues: issues}, nil
}

// cleanFile writes <out>/cleaned_<name> in the source format and
// <out>/cleaned_<name>.json with the summary.
func cleanFile(path, outDir string, log zerolog.Logger) (*cleanSummary, error) {
	t, format, err := readTable(path)
	if err != nil {
		return nil, err
	}

	initial, issues := quality.Evaluate(t)
	log.Info().Int("score", initial).Interface("issues", issues.Keys()).Msg("initial evaluation")

	cleaned, actions := cleaning.New(cleaning.DefaultSteps()...).Run(t, issues, func(s cleaning.Step) {
		log.Info().Str("category", string(s.Category)).Msg(s.Plan)
	})
	final, _ := quality.Evaluate(cleaned)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	target := filepath.Join(outDir, "cleaned_"+filepath.Base(path))
	if err := writeFile(target, func(w io.Writer) error { return table.Write(w, cleaned, format) }); err != nil {
		return nil, err
	}

	sum := &cleanSummary{
		Source:       path,
		Cleaned:      target,
		InitialScore: initial,
		FinalScore:   final,
		Issues:       issues,
		Actions:      actions,
	}
	if err := writeFile(target+".json", func(w io.Writer) error { return printJSON(w, sum) }); err != nil {
		return nil, err
	}
	log.Info().Int("score", final).Str("cleaned", target).Msg("final evaluation")
	return sum, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
