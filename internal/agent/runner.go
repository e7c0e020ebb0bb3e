// Package agent drives one quality run end to end: load the dataset,
// evaluate it, clean it, evaluate again, store the cleaned copy and the
// report. Every failure ends in a terminal job status plus a log line.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"data-quality-service/internal/cleaning"
	"data-quality-service/internal/entity"
	"data-quality-service/internal/metrics"
	"data-quality-service/internal/quality"
	"data-quality-service/internal/repository"
	"data-quality-service/internal/table"
)

// ErrNotRunnable is returned for a job that has already left PENDING.
var ErrNotRunnable = errors.New("job is not pending")

// JobStore is the job side of the store (postgresql or sqlite JobRepository).
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.JobStatus) error
	AppendLog(ctx context.Context, id uuid.UUID, message string) error
	Complete(ctx context.Context, report *entity.Report) error
}

type DatasetStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Dataset, error)
}

// FileStore resolves the relative paths kept on datasets and reports.
type FileStore interface {
	Open(name string) (io.ReadCloser, error)
	Create(name string) (io.WriteCloser, error)
	CleanedName(name string) string
}

type Recorder interface {
	RunFinished(status string, d time.Duration)
	Score(phase string, score int)
	IssueDetected(category string)
}

type nopRecorder struct{}

func (nopRecorder) RunFinished(string, time.Duration) {}
func (nopRecorder) Score(string, int)                 {}
func (nopRecorder) IssueDetected(string)              {}

type Runner struct {
	jobs     JobStore
	datasets DatasetStore
	files    FileStore
	pipeline *cleaning.Pipeline
	rec      Recorder
	log      zerolog.Logger
}

type Option func(*Runner)

func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.rec = rec
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

func WithPipeline(p *cleaning.Pipeline) Option {
	return func(r *Runner) { r.pipeline = p }
}

func NewRunner(jobs JobStore, datasets DatasetStore, files FileStore, opts ...Option) *Runner {
	r := &Runner{
		jobs:     jobs,
		datasets: datasets,
		files:    files,
		pipeline: cleaning.New(cleaning.DefaultSteps()...),
		rec:      nopRecorder{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With().Str("component", "agent").Logger()
	return r
}

// Run executes job jobID. A job that cannot be read is returned as an error
// and left untouched, as is a job that is no longer PENDING (ErrNotRunnable).
// Once the job is claimed, failures are recorded on the job and Run returns
// nil; it only returns an error when the failure itself could not be
// recorded.
func (r *Runner) Run(ctx context.Context, jobID uuid.UUID) (err error) {
	// Shutdown must not leave a claimed job half written.
	ctx = context.WithoutCancel(ctx)

	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job %s: %w", jobID, err)
	}
	if job.Status != entity.StatusPending {
		return fmt.Errorf("%w: %s is %s", ErrNotRunnable, jobID, job.Status)
	}

	log := r.log.With().Str("job_id", jobID.String()).Logger()
	start := time.Now()
	status := entity.StatusFailed
	claimed := false
	defer func() {
		if !claimed {
			return
		}
		r.rec.RunFinished(string(status), time.Since(start))
		log.Info().
			Str("status", string(status)).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("run finished")
	}()
	defer func() {
		if p := recover(); p != nil {
			claimed = true
			err = r.fail(ctx, log, jobID, fmt.Errorf("panic: %v", p))
		}
	}()

	// The conditional PENDING->RUNNING write is the claim. Losing it means a
	// redelivered copy of this job got there first.
	if err := r.jobs.UpdateStatus(ctx, jobID, entity.StatusRunning); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return fmt.Errorf("%w: %s was claimed by another run", ErrNotRunnable, jobID)
		}
		claimed = true
		return r.fail(ctx, log, jobID, fmt.Errorf("mark running: %w", err))
	}
	claimed = true

	status, err = r.run(ctx, log, job)
	if err != nil {
		status = entity.StatusFailed
		return r.fail(ctx, log, jobID, err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, log zerolog.Logger, job *entity.Job) (entity.JobStatus, error) {
	id := job.ID

	if err := r.note(ctx, id, "Agent started. Loading dataset..."); err != nil {
		return "", err
	}

	t, source, format, loadErr := r.load(ctx, job.DatasetID)
	if loadErr != nil {
		log.Warn().Err(loadErr).Msg("dataset load failed")
		if err := r.jobs.UpdateStatus(ctx, id, entity.StatusFailed); err != nil {
			return "", fmt.Errorf("mark failed: %w", err)
		}
		if err := r.note(ctx, id, "Error loading file: "+loadErr.Error()); err != nil {
			return "", err
		}
		return entity.StatusFailed, nil
	}

	rows, cols := t.Shape()
	if err := r.note(ctx, id, fmt.Sprintf("Dataset loaded. Shape: (%d, %d)", rows, cols)); err != nil {
		return "", err
	}

	initialScore, issues := quality.Evaluate(t)
	r.rec.Score(metrics.PhaseInitial, initialScore)
	for _, c := range issues.Keys() {
		r.rec.IssueDetected(string(c))
	}
	if err := r.note(ctx, id, fmt.Sprintf("Initial Quality Score: %d/100", initialScore)); err != nil {
		return "", err
	}
	if err := r.note(ctx, id, fmt.Sprintf("Issues detected: %v", issues.Keys())); err != nil {
		return "", err
	}

	var noteErr error
	cleaned, actions := r.pipeline.Run(t, issues, func(s cleaning.Step) {
		if noteErr == nil {
			noteErr = r.note(ctx, id, planMessage(s, issues))
		}
	})
	if noteErr != nil {
		return "", noteErr
	}

	finalScore, _ := quality.Evaluate(cleaned)
	r.rec.Score(metrics.PhaseFinal, finalScore)
	if err := r.note(ctx, id, fmt.Sprintf("Final Quality Score: %d/100", finalScore)); err != nil {
		return "", err
	}

	cleanedPath := r.files.CleanedName(source)
	if err := r.save(cleanedPath, cleaned, format); err != nil {
		return "", err
	}

	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return "", fmt.Errorf("encode issues: %w", err)
	}
	report := &entity.Report{
		JobID:           id,
		InitialScore:    initialScore,
		FinalScore:      finalScore,
		Issues:          issuesJSON,
		Actions:         actions,
		CleanedFilePath: cleanedPath,
	}
	if err := r.jobs.Complete(ctx, report); err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}

	// The job is terminal now; a lost log line must not turn it into a failure.
	if err := r.note(ctx, id, "Job completed successfully."); err != nil {
		log.Warn().Err(err).Msg("append completion log")
	}
	log.Info().Int("initial_score", initialScore).Int("final_score", finalScore).Msg("job completed")
	return entity.StatusCompleted, nil
}

func planMessage(s cleaning.Step, issues quality.Issues) string {
	if s.Category == quality.PIIDetected {
		return fmt.Sprintf("Plan: Flagged PII columns: %v.", issues[quality.PIIDetected].Columns)
	}
	return "Plan: " + s.Plan
}

func (r *Runner) load(ctx context.Context, datasetID uuid.UUID) (*table.Table, string, table.Format, error) {
	ds, err := r.datasets.GetByID(ctx, datasetID)
	if err != nil {
		return nil, "", "", fmt.Errorf("get dataset %s: %w", datasetID, err)
	}
	format, err := table.FormatFromPath(ds.FilePath)
	if err != nil {
		return nil, "", "", err
	}
	f, err := r.files.Open(ds.FilePath)
	if err != nil {
		return nil, "", "", err
	}
	defer f.Close()

	t, err := table.Read(f, format)
	if err != nil {
		return nil, "", "", err
	}
	return t, ds.FilePath, format, nil
}

func (r *Runner) save(name string, t *table.Table, format table.Format) error {
	w, err := r.files.Create(name)
	if err != nil {
		return fmt.Errorf("create cleaned file: %w", err)
	}
	if err := table.Write(w, t, format); err != nil {
		w.Close()
		return fmt.Errorf("write cleaned file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close cleaned file: %w", err)
	}
	return nil
}

func (r *Runner) note(ctx context.Context, id uuid.UUID, msg string) error {
	if err := r.jobs.AppendLog(ctx, id, msg); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// fail is the safety net: it re-reads the job, forces it to FAILED and
// records the cause. It reports an error only when the job is unreachable.
func (r *Runner) fail(ctx context.Context, log zerolog.Logger, id uuid.UUID, cause error) error {
	log.Error().Err(cause).Msg("run failed")

	job, err := r.jobs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("record failure of job %s (%v): %w", id, cause, err)
	}
	if !job.Status.Terminal() {
		if err := r.jobs.UpdateStatus(ctx, id, entity.StatusFailed); err != nil && !errors.Is(err, repository.ErrInvalidTransition) {
			return fmt.Errorf("mark job %s failed (%v): %w", id, cause, err)
		}
	}
	if err := r.jobs.AppendLog(ctx, id, "Critical Error: "+cause.Error()); err != nil {
		return fmt.Errorf("log failure of job %s (%v): %w", id, cause, err)
	}
	return nil
}
