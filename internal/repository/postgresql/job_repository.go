package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"data-quality-service/internal/entity"
	"data-quality-service/internal/repository"
)

const foreignKeyViolation = "23503"

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, datasetID uuid.UUID) (uuid.UUID, error) {
	const q = `
INSERT INTO cleaning_jobs (id, dataset_id, status)
VALUES ($1, $2, 'PENDING');
`
	id := uuid.New()
	if _, err := r.pool.Exec(ctx, q, id, datasetID); err != nil {
		if isForeignKeyViolation(err) {
			return uuid.Nil, repository.ErrNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

// GetByID loads the job with its log and, once completed, its report.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	const q = `
SELECT id, dataset_id, status, created_at, updated_at
FROM cleaning_jobs
WHERE id = $1;
`
	var (
		job    entity.Job
		status string
	)
	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&job.ID,
		&job.DatasetID,
		&status,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	job.Status = entity.JobStatus(status)

	logs, err := r.logs(ctx, id)
	if err != nil {
		return nil, err
	}
	job.Logs = logs

	report, err := r.GetReport(ctx, id)
	switch {
	case err == nil:
		job.Report = report
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	return &job, nil
}

func (r *JobRepository) logs(ctx context.Context, id uuid.UUID) ([]entity.LogEntry, error) {
	const q = `
SELECT seq, message, created_at
FROM job_logs
WHERE job_id = $1
ORDER BY seq;
`
	rows, err := r.pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.LogEntry, error) {
		var e entity.LogEntry
		err := row.Scan(&e.Seq, &e.Message, &e.CreatedAt)
		return e, err
	})
}

// List returns the most recent jobs without logs or reports.
func (r *JobRepository) List(ctx context.Context, limit int) ([]entity.Job, error) {
	const q = `
SELECT id, dataset_id, status, created_at, updated_at
FROM cleaning_jobs
ORDER BY created_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Job, error) {
		var (
			j      entity.Job
			status string
		)
		err := row.Scan(&j.ID, &j.DatasetID, &status, &j.CreatedAt, &j.UpdatedAt)
		j.Status = entity.JobStatus(status)
		return j, err
	})
}

// UpdateStatus moves the job to status if its current status allows it.
func (r *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.JobStatus) error {
	const q = `UPDATE cleaning_jobs SET status=$2, updated_at=now() WHERE id=$1 AND status = ANY($3);`

	from := make([]string, 0, 2)
	for _, s := range entity.SourcesFor(status) {
		from = append(from, string(s))
	}

	tag, err := r.pool.Exec(ctx, q, id, string(status), from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, r.pool, id)
	}
	return nil
}

// AppendLog adds the next message to the job log.
func (r *JobRepository) AppendLog(ctx context.Context, id uuid.UUID, message string) error {
	const q = `
INSERT INTO job_logs (job_id, seq, message)
SELECT $1, COALESCE(MAX(seq), 0) + 1, $2
FROM job_logs
WHERE job_id = $1;
`
	if _, err := r.pool.Exec(ctx, q, id, message); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

// Complete stores the report and marks the job COMPLETED in one transaction.
func (r *JobRepository) Complete(ctx context.Context, report *entity.Report) error {
	actions, err := json.Marshal(report.Actions)
	if err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}
	issues := report.Issues
	if len(issues) == 0 {
		issues = json.RawMessage(`{}`)
	}
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const upd = `UPDATE cleaning_jobs SET status='COMPLETED', updated_at=now() WHERE id=$1 AND status='RUNNING';`
	tag, err := tx.Exec(ctx, upd, report.JobID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, tx, report.JobID)
	}

	const ins = `
INSERT INTO analysis_reports
    (id, job_id, initial_quality_score, final_quality_score, issues_found, actions_taken, cleaned_file_path)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at;
`
	if err := tx.QueryRow(ctx, ins,
		report.ID,
		report.JobID,
		report.InitialScore,
		report.FinalScore,
		issues,
		json.RawMessage(actions),
		report.CleanedFilePath,
	).Scan(&report.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *JobRepository) GetReport(ctx context.Context, jobID uuid.UUID) (*entity.Report, error) {
	const q = `
SELECT id, job_id, initial_quality_score, final_quality_score, issues_found, actions_taken, cleaned_file_path, created_at
FROM analysis_reports
WHERE job_id = $1;
`
	var (
		rep     entity.Report
		issues  []byte
		actions []byte
	)
	if err := r.pool.QueryRow(ctx, q, jobID).Scan(
		&rep.ID,
		&rep.JobID,
		&rep.InitialScore,
		&rep.FinalScore,
		&issues,
		&actions,
		&rep.CleanedFilePath,
		&rep.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	rep.Issues = json.RawMessage(issues)
	if err := json.Unmarshal(actions, &rep.Actions); err != nil {
		return nil, fmt.Errorf("decode actions: %w", err)
	}
	return &rep, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *JobRepository) missOrConflict(ctx context.Context, q querier, id uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cleaning_jobs WHERE id=$1);`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrInvalidTransition
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
