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

type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

func (s *ConversationStore) Create(ctx context.Context, workspaceID, memberOneID, memberTwoID uuid.UUID) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (workspace_id, member_one_id, member_two_id, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, workspace_id, member_one_id, member_two_id, created_at`

	var conv models.Conversation
	err := s.pool.QueryRow(ctx, query, workspaceID, memberOneID, memberTwoID).Scan(
		&conv.ID,
		&conv.WorkspaceID,
		&conv.MemberOneID,
		&conv.MemberTwoID,
		&conv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return &conv, nil
}

func (s *ConversationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT id, workspace_id, member_one_id, member_two_id, created_at
		FROM conversations
		WHERE id = $1`

	var conv models.Conversation
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&conv.ID,
		&conv.WorkspaceID,
		&conv.MemberOneID,
		&conv.MemberTwoID,
		&conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

// GetByMembers finds the conversation for an unordered member pair. The
// pair is stored directionally, so both orderings are checked.
func (s *ConversationStore) GetByMembers(ctx context.Context, workspaceID, memberOneID, memberTwoID uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT id, workspace_id, member_one_id, member_two_id, created_at
		FROM conversations
		WHERE workspace_id = $1
		  AND ((member_one_id = $2 AND member_two_id = $3)
		    OR (member_one_id = $3 AND member_two_id = $2))`

	var conv models.Conversation
	err := s.pool.QueryRow(ctx, query, workspaceID, memberOneID, memberTwoID).Scan(
		&conv.ID,
		&conv.WorkspaceID,
		&conv.MemberOneID,
		&conv.MemberTwoID,
		&conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation by members: %w", err)
	}
	return &conv, nil
}
