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

type MemberStore struct {
	pool *pgxpool.Pool
}

func NewMemberStore(pool *pgxpool.Pool) *MemberStore {
	return &MemberStore{pool: pool}
}

func (s *MemberStore) Create(ctx context.Context, workspaceID, userID uuid.UUID, role string) (*models.Member, error) {
	query := `
		INSERT INTO members (user_id, workspace_id, role, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, user_id, workspace_id, role, created_at`

	var m models.Member
	err := s.pool.QueryRow(ctx, query, userID, workspaceID, role).Scan(
		&m.ID,
		&m.UserID,
		&m.WorkspaceID,
		&m.Role,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return &m, nil
}

// Get resolves (workspace, user) to the unique member row. This is the
// membership guard's lookup — it runs at the top of nearly every handler.
func (s *MemberStore) Get(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Member, error) {
	query := `
		SELECT id, user_id, workspace_id, role, created_at
		FROM members
		WHERE workspace_id = $1 AND user_id = $2`

	var m models.Member
	err := s.pool.QueryRow(ctx, query, workspaceID, userID).Scan(
		&m.ID,
		&m.UserID,
		&m.WorkspaceID,
		&m.Role,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (s *MemberStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	query := `
		SELECT id, user_id, workspace_id, role, created_at
		FROM members
		WHERE id = $1`

	var m models.Member
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.UserID,
		&m.WorkspaceID,
		&m.Role,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member by id: %w", err)
	}
	return &m, nil
}

func (s *MemberStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Member, error) {
	query := `
		SELECT id, user_id, workspace_id, role, created_at
		FROM members
		WHERE workspace_id = $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]models.Member, 0)
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.WorkspaceID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return members, nil
}

func (s *MemberStore) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	_, err := s.pool.Exec(ctx, `UPDATE members SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return nil
}

// Remove deletes the member and everything referencing it: messages the
// member authored, the member's reactions, and every 1:1 conversation the
// member is a side of — including the other side's messages in those
// conversations and replies to any deleted message, so no row is left
// pointing at a deleted one. All in one transaction.
func (s *MemberStore) Remove(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// doomed: messages authored by the member plus everything in the
	// member's conversations; doomed_all adds thread replies to those.
	const doomed = `
		WITH doomed AS (
			SELECT id FROM messages
			WHERE member_id = $1
			   OR conversation_id IN (
				SELECT id FROM conversations
				WHERE member_one_id = $1 OR member_two_id = $1
			   )
		), doomed_all AS (
			SELECT id FROM doomed
			UNION
			SELECT m.id FROM messages m
			JOIN doomed d ON m.parent_message_id = d.id
		)`

	steps := []string{
		doomed + `
		DELETE FROM reactions
		WHERE member_id = $1 OR message_id IN (SELECT id FROM doomed_all)`,
		doomed + `
		DELETE FROM messages WHERE id IN (SELECT id FROM doomed_all)`,
		`DELETE FROM conversations WHERE member_one_id = $1 OR member_two_id = $1`,
		`DELETE FROM members WHERE id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.Exec(ctx, step, id); err != nil {
			return fmt.Errorf("cascade member delete: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
