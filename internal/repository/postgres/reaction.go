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

type ReactionStore struct {
	pool *pgxpool.Pool
}

func NewReactionStore(pool *pgxpool.Pool) *ReactionStore {
	return &ReactionStore{pool: pool}
}

func (s *ReactionStore) Create(ctx context.Context, workspaceID uuid.UUID, messageID int64, memberID uuid.UUID, value string) (*models.Reaction, error) {
	query := `
		INSERT INTO reactions (workspace_id, message_id, member_id, value, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, workspace_id, message_id, member_id, value, created_at`

	var r models.Reaction
	err := s.pool.QueryRow(ctx, query, workspaceID, messageID, memberID, value).Scan(
		&r.ID,
		&r.WorkspaceID,
		&r.MessageID,
		&r.MemberID,
		&r.Value,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reaction: %w", err)
	}
	return &r, nil
}

// Get resolves the exact (message, member, value) triple — the lookup the
// toggle operation pivots on.
func (s *ReactionStore) Get(ctx context.Context, messageID int64, memberID uuid.UUID, value string) (*models.Reaction, error) {
	query := `
		SELECT id, workspace_id, message_id, member_id, value, created_at
		FROM reactions
		WHERE message_id = $1 AND member_id = $2 AND value = $3`

	var r models.Reaction
	err := s.pool.QueryRow(ctx, query, messageID, memberID, value).Scan(
		&r.ID,
		&r.WorkspaceID,
		&r.MessageID,
		&r.MemberID,
		&r.Value,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reaction: %w", err)
	}
	return &r, nil
}

func (s *ReactionStore) ListByMessage(ctx context.Context, messageID int64) ([]models.Reaction, error) {
	query := `
		SELECT id, workspace_id, message_id, member_id, value, created_at
		FROM reactions
		WHERE message_id = $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	reactions := make([]models.Reaction, 0)
	for rows.Next() {
		var r models.Reaction
		if err := rows.Scan(&r.ID, &r.WorkspaceID, &r.MessageID, &r.MemberID, &r.Value, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		reactions = append(reactions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}

	return reactions, nil
}

func (s *ReactionStore) Remove(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM reactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	return nil
}
