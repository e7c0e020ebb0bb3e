package service_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data-quality-service/internal/entity"
	"data-quality-service/internal/repository"
	"data-quality-service/internal/service"
	"data-quality-service/internal/table"
)

type fakeDatasets struct {
	created []*entity.Dataset
}

func (r *fakeDatasets) Create(_ context.Context, d *entity.Dataset) error {
	d.ID = uuid.New()
	r.created = append(r.created, d)
	return nil
}

func (r *fakeDatasets) GetByID(_ context.Context, id uuid.UUID) (*entity.Dataset, error) {
	for _, d := range r.created {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeDatasets) List(context.Context, int) ([]entity.Dataset, error) {
	out := make([]entity.Dataset, len(r.created))
	for i, d := range r.created {
		out[i] = *d
	}
	return out, nil
}

type uploads map[string]string

func (u uploads) SaveUpload(filename string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	name := "datasets/" + filename
	u[name] = string(b)
	return name, nil
}

func TestDatasetService_Upload(t *testing.T) {
	ctx := context.Background()
	repo := &fakeDatasets{}
	files := uploads{}
	svc := service.NewDatasetService(repo, files)

	d, err := svc.Upload(ctx, "", "people.csv", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "people.csv", d.Name)
	assert.Equal(t, "datasets/people.csv", d.FilePath)
	assert.Equal(t, "a,b\n1,2\n", files["datasets/people.csv"])

	named, err := svc.Upload(ctx, "Q3 sales", "../../sales.xlsx", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "Q3 sales", named.Name)
	assert.Equal(t, "datasets/sales.xlsx", named.FilePath)

	got, err := svc.GetDataset(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.FilePath, got.FilePath)

	list, err := svc.ListDatasets(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDatasetService_Upload_RejectsUnsupportedFormat(t *testing.T) {
	repo := &fakeDatasets{}
	files := uploads{}
	svc := service.NewDatasetService(repo, files)

	_, err := svc.Upload(context.Background(), "", "notes.txt", strings.NewReader("hello"))
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.ErrorIs(t, err, table.ErrUnsupportedFormat)
	assert.Empty(t, files)
	assert.Empty(t, repo.created)

	_, err = svc.Upload(context.Background(), "", "  ", strings.NewReader(""))
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
