package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"data-quality-service/internal/entity"
	"data-quality-service/internal/table"
)

// ErrInvalidInput marks request data the caller has to fix.
var ErrInvalidInput = errors.New("invalid input")

type DatasetRepository interface {
	Create(ctx context.Context, d *entity.Dataset) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Dataset, error)
	List(ctx context.Context, limit int) ([]entity.Dataset, error)
}

type UploadStore interface {
	SaveUpload(filename string, r io.Reader) (string, error)
}

type DatasetService struct {
	repo  DatasetRepository
	files UploadStore
}

func NewDatasetService(repo DatasetRepository, files UploadStore) *DatasetService {
	return &DatasetService{repo: repo, files: files}
}

// Upload stores the file and records the dataset. Only extensions a run can
// parse are accepted; name defaults to the file's base name.
func (s *DatasetService) Upload(ctx context.Context, name, filename string, r io.Reader) (*entity.Dataset, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if _, err := table.FormatFromPath(filename); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	path, err := s.files.SaveUpload(filename, r)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = filename
	}
	d := &entity.Dataset{Name: name, FilePath: path}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DatasetService) GetDataset(ctx context.Context, id uuid.UUID) (*entity.Dataset, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DatasetService) ListDatasets(ctx context.Context, limit int) ([]entity.Dataset, error) {
	return s.repo.List(ctx, clampLimit(limit))
}
