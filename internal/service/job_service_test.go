package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data-quality-service/internal/entity"
	"data-quality-service/internal/repository"
	"data-quality-service/internal/service"
)

type fakeRepo struct {
	createCalled  int
	lastDatasetID uuid.UUID

	createID  uuid.UUID
	createErr error

	jobs    map[uuid.UUID]*entity.Job
	list    []entity.Job
	reports map[uuid.UUID]*entity.Report
}

func (r *fakeRepo) Create(_ context.Context, datasetID uuid.UUID) (uuid.UUID, error) {
	r.createCalled++
	r.lastDatasetID = datasetID
	if r.createErr != nil {
		return uuid.Nil, r.createErr
	}
	if r.jobs == nil {
		r.jobs = map[uuid.UUID]*entity.Job{}
	}
	r.jobs[r.createID] = &entity.Job{ID: r.createID, DatasetID: datasetID, Status: entity.StatusPending}
	return r.createID, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	j, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return j, nil
}

func (r *fakeRepo) List(_ context.Context, limit int) ([]entity.Job, error) {
	if limit < len(r.list) {
		return r.list[:limit], nil
	}
	return r.list, nil
}

func (r *fakeRepo) GetReport(_ context.Context, id uuid.UUID) (*entity.Report, error) {
	rep, ok := r.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rep, nil
}

type fakeQueue struct {
	enqueuedIDs []string
	enqueueErr  error
}

func (q *fakeQueue) Enqueue(_ context.Context, jobID string) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueuedIDs = append(q.enqueuedIDs, jobID)
	return nil
}

type fakeFiles map[string]string

func (f fakeFiles) Open(name string) (io.ReadCloser, error) {
	s, ok := f[name]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(strings.NewReader(s)), nil
}

func TestJobService_CreateJob_EnqueuesNewJob(t *testing.T) {
	ctx := context.Background()
	id := uuid.MustParse("66666666-6666-6666-6666-666666666666")
	datasetID := uuid.New()

	repo := &fakeRepo{createID: id}
	queue := &fakeQueue{}
	svc := service.NewJobService(repo, queue, fakeFiles{})

	job, err := svc.CreateJob(ctx, datasetID)
	require.NoError(t, err)

	assert.Equal(t, id, job.ID)
	assert.Equal(t, entity.StatusPending, job.Status)
	assert.Equal(t, datasetID, repo.lastDatasetID)
	assert.Equal(t, []string{id.String()}, queue.enqueuedIDs)
}

func TestJobService_CreateJob_RequiresDataset(t *testing.T) {
	repo := &fakeRepo{}
	svc := service.NewJobService(repo, &fakeQueue{}, fakeFiles{})

	_, err := svc.CreateJob(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Zero(t, repo.createCalled)
}

func TestJobService_CreateJob_UnknownDatasetIsNotEnqueued(t *testing.T) {
	repo := &fakeRepo{createErr: repository.ErrNotFound}
	queue := &fakeQueue{}
	svc := service.NewJobService(repo, queue, fakeFiles{})

	_, err := svc.CreateJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, queue.enqueuedIDs)
}

func TestJobService_CreateJob_EnqueueError(t *testing.T) {
	queue := &fakeQueue{enqueueErr: errors.New("redis down")}
	svc := service.NewJobService(&fakeRepo{createID: uuid.New()}, queue, fakeFiles{})

	_, err := svc.CreateJob(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "redis down")
}

func TestJobService_GetReport_RequiresCompleted(t *testing.T) {
	ctx := context.Background()
	running := uuid.New()
	done := uuid.New()
	report := &entity.Report{JobID: done, InitialScore: 85, FinalScore: 100, CleanedFilePath: "cleaned/cleaned_a.csv"}

	repo := &fakeRepo{
		jobs: map[uuid.UUID]*entity.Job{
			running: {ID: running, Status: entity.StatusRunning},
			done:    {ID: done, Status: entity.StatusCompleted},
		},
		reports: map[uuid.UUID]*entity.Report{done: report},
	}
	svc := service.NewJobService(repo, &fakeQueue{}, fakeFiles{"cleaned/cleaned_a.csv": "a\n1\n"})

	_, err := svc.GetReport(ctx, running)
	assert.ErrorIs(t, err, service.ErrJobNotCompleted)

	_, err = svc.GetReport(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := svc.GetReport(ctx, done)
	require.NoError(t, err)
	assert.Equal(t, 100, got.FinalScore)

	name, f, err := svc.OpenCleaned(ctx, done)
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "cleaned/cleaned_a.csv", name)
	assert.Equal(t, "a\n1\n", string(body))

	_, _, err = svc.OpenCleaned(ctx, running)
	assert.ErrorIs(t, err, service.ErrJobNotCompleted)
}

func TestJobService_ListJobs_ClampsLimit(t *testing.T) {
	list := make([]entity.Job, 60)
	svc := service.NewJobService(&fakeRepo{list: list}, &fakeQueue{}, fakeFiles{})

	got, err := svc.ListJobs(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 50)
}

func TestJobService_ResumePending_OldestFirst(t *testing.T) {
	newest, middle, oldest := uuid.New(), uuid.New(), uuid.New()
	repo := &fakeRepo{list: []entity.Job{
		{ID: newest, Status: entity.StatusPending},
		{ID: middle, Status: entity.StatusCompleted},
		{ID: oldest, Status: entity.StatusPending},
	}}
	queue := &fakeQueue{}
	svc := service.NewJobService(repo, queue, fakeFiles{})

	n, err := svc.ResumePending(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{oldest.String(), newest.String()}, queue.enqueuedIDs)
}
