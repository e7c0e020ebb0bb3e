package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"data-quality-service/internal/entity"
)

// ErrJobNotCompleted is returned when a report or cleaned file is asked for
// before the job completed.
var ErrJobNotCompleted = errors.New("job not completed")

// Repository port (implemented by postgresql.JobRepository and sqlite.JobRepository).
type JobRepository interface {
	Create(ctx context.Context, datasetID uuid.UUID) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	List(ctx context.Context, limit int) ([]entity.Job, error)
	GetReport(ctx context.Context, jobID uuid.UUID) (*entity.Report, error)
}

// JobQueue is the enqueue half of Queue.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}

type FileOpener interface {
	Open(name string) (io.ReadCloser, error)
}

type JobService struct {
	repo  JobRepository
	queue JobQueue
	files FileOpener
}

func NewJobService(repo JobRepository, queue JobQueue, files FileOpener) *JobService {
	return &JobService{repo: repo, queue: queue, files: files}
}

// CreateJob records a PENDING job for the dataset and hands it to the queue.
// The caller does not wait for the run.
func (s *JobService) CreateJob(ctx context.Context, datasetID uuid.UUID) (*entity.Job, error) {
	if datasetID == uuid.Nil {
		return nil, fmt.Errorf("%w: dataset_id is required", ErrInvalidInput)
	}

	id, err := s.repo.Create(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, id.String()); err != nil {
		return nil, fmt.Errorf("enqueue job %s: %w", id, err)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *JobService) ListJobs(ctx context.Context, limit int) ([]entity.Job, error) {
	return s.repo.List(ctx, clampLimit(limit))
}

func (s *JobService) GetReport(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != entity.StatusCompleted {
		return nil, fmt.Errorf("%w: status %s", ErrJobNotCompleted, job.Status)
	}
	return s.repo.GetReport(ctx, id)
}

// OpenCleaned opens the cleaned copy written by a completed job. The caller
// closes the reader.
func (s *JobService) OpenCleaned(ctx context.Context, id uuid.UUID) (string, io.ReadCloser, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return "", nil, err
	}
	f, err := s.files.Open(report.CleanedFilePath)
	if err != nil {
		return "", nil, fmt.Errorf("open cleaned file: %w", err)
	}
	return report.CleanedFilePath, f, nil
}

// ResumePending enqueues jobs still PENDING among the newest limit jobs. The
// inline dispatcher calls it on start since its queue does not outlive the
// process.
func (s *JobService) ResumePending(ctx context.Context, limit int) (int, error) {
	jobs, err := s.repo.List(ctx, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	// Oldest first.
	for i := len(jobs) - 1; i >= 0; i-- {
		j := jobs[i]
		if j.Status != entity.StatusPending {
			continue
		}
		if err := s.queue.Enqueue(ctx, j.ID.String()); err != nil {
			return n, fmt.Errorf("enqueue job %s: %w", j.ID, err)
		}
		n++
	}
	return n, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
