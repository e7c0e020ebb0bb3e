package postgresql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"data-quality-service/internal/entity"
	"data-quality-service/internal/repository"
)

type DatasetRepository struct {
	pool *pgxpool.Pool
}

func NewDatasetRepository(pool *pgxpool.Pool) *DatasetRepository {
	return &DatasetRepository{pool: pool}
}

func (r *DatasetRepository) Create(ctx context.Context, d *entity.Dataset) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	const q = `
INSERT INTO datasets (id, name, file_path)
VALUES ($1, $2, $3)
RETURNING uploaded_at;
`
	return r.pool.QueryRow(ctx, q, d.ID, d.Name, d.FilePath).Scan(&d.UploadedAt)
}

func (r *DatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Dataset, error) {
	const q = `SELECT id, name, file_path, uploaded_at FROM datasets WHERE id = $1;`

	var d entity.Dataset
	if err := r.pool.QueryRow(ctx, q, id).Scan(&d.ID, &d.Name, &d.FilePath, &d.UploadedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DatasetRepository) List(ctx context.Context, limit int) ([]entity.Dataset, error) {
	const q = `
SELECT id, name, file_path, uploaded_at
FROM datasets
ORDER BY uploaded_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[entity.Dataset])
}
