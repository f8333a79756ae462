package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"huddle/internal/models"
)

type FileStore struct {
	pool *pgxpool.Pool
}

func NewFileStore(pool *pgxpool.Pool) *FileStore {
	return &FileStore{pool: pool}
}

func (s *FileStore) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, name, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, now())`

	_, err := s.pool.Exec(ctx, query, file.ID, file.Name, file.ContentType, file.Size)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (s *FileStore) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	query := `
		SELECT id, name, content_type, size, created_at
		FROM files
		WHERE id = $1`

	var f models.File
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&f.ID,
		&f.Name,
		&f.ContentType,
		&f.Size,
		&f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &f, nil
}
