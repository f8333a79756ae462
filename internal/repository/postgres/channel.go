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

type ChannelStore struct {
	pool *pgxpool.Pool
}

func NewChannelStore(pool *pgxpool.Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

func (s *ChannelStore) Create(ctx context.Context, workspaceID uuid.UUID, name string) (*models.Channel, error) {
	query := `
		INSERT INTO channels (name, workspace_id, created_at)
		VALUES ($1, $2, now())
		RETURNING id, name, workspace_id, created_at`

	var ch models.Channel
	err := s.pool.QueryRow(ctx, query, name, workspaceID).Scan(
		&ch.ID,
		&ch.Name,
		&ch.WorkspaceID,
		&ch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	query := `
		SELECT id, name, workspace_id, created_at
		FROM channels
		WHERE id = $1`

	var ch models.Channel
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&ch.ID,
		&ch.Name,
		&ch.WorkspaceID,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Channel, error) {
	query := `
		SELECT id, name, workspace_id, created_at
		FROM channels
		WHERE workspace_id = $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := make([]models.Channel, 0)
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.WorkspaceID, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}

	return channels, nil
}

func (s *ChannelStore) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	_, err := s.pool.Exec(ctx, `UPDATE channels SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("update channel name: %w", err)
	}
	return nil
}

// Remove deletes the channel, its messages (thread replies included — they
// carry the channel id too), and the reactions on those messages, in one
// transaction.
func (s *ChannelStore) Remove(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`DELETE FROM reactions
		 WHERE message_id IN (SELECT id FROM messages WHERE channel_id = $1)`,
		`DELETE FROM messages WHERE channel_id = $1`,
		`DELETE FROM channels WHERE id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.Exec(ctx, step, id); err != nil {
			return fmt.Errorf("cascade channel delete: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
