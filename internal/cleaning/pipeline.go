// Package cleaning applies the corrective transforms for detected quality
// issues, one per category, in a fixed order.
package cleaning

import (
	"data-quality-service/internal/quality"
	"data-quality-service/internal/table"
)

// Fix is a pure transform: it returns a new table and leaves its input alone.
type Fix func(*table.Table) *table.Table

// Step binds a category to its fix. Plan describes the intent before the
// fix runs, Action is recorded once it has.
type Step struct {
	Category quality.Category
	Plan     string
	Action   string
	Fix      Fix
}

type Pipeline struct {
	steps []Step
}

func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// DefaultSteps returns the fixes in priority order: structure first, then
// value cleaning, then cross-column analysis, then detection-only policies.
func DefaultSteps() []Step {
	return []Step{
		{
			Category: quality.InconsistentTypes,
			Plan:     "Fix inconsistent types (converting to numeric where applicable).",
			Action:   "Fixed inconsistent types",
			Fix:      CoerceMixedNumeric,
		},
		{
			Category: quality.MissingValues,
			Plan:     "Fix missing values using mean/mode imputation.",
			Action:   "Imputed missing values",
			Fix:      ImputeMissing,
		},
		{
			Category: quality.Duplicates,
			Plan:     "Remove duplicate rows.",
			Action:   "Removed duplicates",
			Fix:      DropDuplicates,
		},
		{
			Category: quality.RareCategories,
			Plan:     "Group rare categories into 'Other'.",
			Action:   "Grouped rare categories",
			Fix:      GroupRareCategories,
		},
		{
			Category: quality.DataLeakage,
			Plan:     "Remove highly correlated features (potential leakage).",
			Action:   "Removed correlated features",
			Fix:      DropCorrelated,
		},
		{
			Category: quality.PIIDetected,
			Plan:     "Flag PII columns (no transform applied).",
			Action:   "Detected PII (Flagged)",
		},
	}
}

// Steps returns a copy of the configured steps.
func (p *Pipeline) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// Run applies every step whose category is present in issues. issues is a
// snapshot taken before cleaning; problems introduced by an earlier fix are
// not re-detected. observe, when non-nil, sees each step before it runs.
func (p *Pipeline) Run(t *table.Table, issues quality.Issues, observe func(Step)) (*table.Table, []string) {
	out := t
	actions := []string{}
	for _, s := range p.steps {
		if !issues.Has(s.Category) {
			continue
		}
		if observe != nil {
			observe(s)
		}
		if s.Fix != nil {
			out = s.Fix(out)
		}
		actions = append(actions, s.Action)
	}
	if out == t {
		out = t.Clone()
	}
	return out, actions
}

// Clean runs the default pipeline.
func Clean(t *table.Table, issues quality.Issues) (*table.Table, []string) {
	return New(DefaultSteps()...).Run(t, issues, nil)
}
