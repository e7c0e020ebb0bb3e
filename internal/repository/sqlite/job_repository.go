package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"data-quality-service/internal/entity"
	"data-quality-service/internal/repository"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, datasetID uuid.UUID) (uuid.UUID, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM datasets WHERE id = ?)`, datasetID.String()).Scan(&exists); err != nil {
		return uuid.Nil, err
	}
	if !exists {
		return uuid.Nil, repository.ErrNotFound
	}

	id := uuid.New()
	ts := now()
	const q = `INSERT INTO cleaning_jobs (id, dataset_id, status, created_at, updated_at) VALUES (?, ?, 'PENDING', ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, id.String(), datasetID.String(), ts, ts); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (entity.Job, error) {
	var (
		j                    entity.Job
		id, datasetID        string
		status               string
		createdAt, updatedAt string
	)
	if err := s.Scan(&id, &datasetID, &status, &createdAt, &updatedAt); err != nil {
		return j, err
	}
	var err error
	if j.ID, err = uuid.Parse(id); err != nil {
		return j, err
	}
	if j.DatasetID, err = uuid.Parse(datasetID); err != nil {
		return j, err
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return j, err
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return j, err
	}
	j.Status = entity.JobStatus(status)
	return j, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	const q = `SELECT id, dataset_id, status, created_at, updated_at FROM cleaning_jobs WHERE id = ?`

	job, err := scanJob(r.db.QueryRowContext(ctx, q, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if job.Logs, err = r.logs(ctx, id); err != nil {
		return nil, err
	}

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
	rows, err := r.db.QueryContext(ctx, `SELECT seq, message, created_at FROM job_logs WHERE job_id = ? ORDER BY seq`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.LogEntry{}
	for rows.Next() {
		var (
			e  entity.LogEntry
			ts string
		)
		if err := rows.Scan(&e.Seq, &e.Message, &ts); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *JobRepository) List(ctx context.Context, limit int) ([]entity.Job, error) {
	const q = `SELECT id, dataset_id, status, created_at, updated_at FROM cleaning_jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.JobStatus) error {
	from := entity.SourcesFor(status)
	if len(from) == 0 {
		return r.missOrConflict(ctx, r.db, id)
	}

	args := []any{string(status), now(), id.String()}
	marks := make([]string, len(from))
	for i, s := range from {
		marks[i] = "?"
		args = append(args, string(s))
	}
	q := `UPDATE cleaning_jobs SET status = ?, updated_at = ? WHERE id = ? AND status IN (` + strings.Join(marks, ", ") + `)`

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return r.missOrConflict(ctx, r.db, id)
	}
	return nil
}

func (r *JobRepository) AppendLog(ctx context.Context, id uuid.UUID, message string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cleaning_jobs WHERE id = ?)`, id.String()).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}

	const q = `
INSERT INTO job_logs (job_id, seq, message, created_at)
SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ? FROM job_logs WHERE job_id = ?`
	if _, err := tx.ExecContext(ctx, q, id.String(), message, now(), id.String()); err != nil {
		return err
	}
	return tx.Commit()
}

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

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	ts := now()
	res, err := tx.ExecContext(ctx,
		`UPDATE cleaning_jobs SET status = 'COMPLETED', updated_at = ? WHERE id = ? AND status = 'RUNNING'`,
		ts, report.JobID.String(),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return r.missOrConflict(ctx, tx, report.JobID)
	}

	const ins = `
INSERT INTO analysis_reports
    (id, job_id, initial_quality_score, final_quality_score, issues_found, actions_taken, cleaned_file_path, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins,
		report.ID.String(),
		report.JobID.String(),
		report.InitialScore,
		report.FinalScore,
		string(issues),
		string(actions),
		report.CleanedFilePath,
		ts,
	); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	report.CreatedAt, _ = parseTime(ts)
	return nil
}

func (r *JobRepository) GetReport(ctx context.Context, jobID uuid.UUID) (*entity.Report, error) {
	const q = `
SELECT id, job_id, initial_quality_score, final_quality_score, issues_found, actions_taken, cleaned_file_path, created_at
FROM analysis_reports WHERE job_id = ?`

	var (
		rep                      entity.Report
		id, job, issues, actions string
		createdAt                string
	)
	if err := r.db.QueryRowContext(ctx, q, jobID.String()).Scan(
		&id, &job, &rep.InitialScore, &rep.FinalScore, &issues, &actions, &rep.CleanedFilePath, &createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	var err error
	if rep.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if rep.JobID, err = uuid.Parse(job); err != nil {
		return nil, err
	}
	if rep.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	rep.Issues = json.RawMessage(issues)
	if err := json.Unmarshal([]byte(actions), &rep.Actions); err != nil {
		return nil, fmt.Errorf("decode actions: %w", err)
	}
	return &rep, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *JobRepository) missOrConflict(ctx context.Context, q rowQuerier, id uuid.UUID) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cleaning_jobs WHERE id = ?)`, id.String()).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrInvalidTransition
}
