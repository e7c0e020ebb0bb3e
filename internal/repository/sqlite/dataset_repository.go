package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"data-quality-service/internal/entity"
	"data-quality-service/internal/repository"
)

type DatasetRepository struct {
	db *sql.DB
}

func NewDatasetRepository(db *sql.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

func (r *DatasetRepository) Create(ctx context.Context, d *entity.Dataset) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	ts := now()
	const q = `INSERT INTO datasets (id, name, file_path, uploaded_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, d.ID.String(), d.Name, d.FilePath, ts); err != nil {
		return err
	}
	d.UploadedAt, _ = parseTime(ts)
	return nil
}

func scanDataset(s scanner) (entity.Dataset, error) {
	var (
		d      entity.Dataset
		id, at string
	)
	if err := s.Scan(&id, &d.Name, &d.FilePath, &at); err != nil {
		return d, err
	}
	var err error
	if d.ID, err = uuid.Parse(id); err != nil {
		return d, err
	}
	d.UploadedAt, err = parseTime(at)
	return d, err
}

func (r *DatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Dataset, error) {
	const q = `SELECT id, name, file_path, uploaded_at FROM datasets WHERE id = ?`

	d, err := scanDataset(r.db.QueryRowContext(ctx, q, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DatasetRepository) List(ctx context.Context, limit int) ([]entity.Dataset, error) {
	const q = `SELECT id, name, file_path, uploaded_at FROM datasets ORDER BY uploaded_at DESC, rowid DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Dataset{}
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
