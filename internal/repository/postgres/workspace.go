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

type WorkspaceStore struct {
	pool *pgxpool.Pool
}

func NewWorkspaceStore(pool *pgxpool.Pool) *WorkspaceStore {
	return &WorkspaceStore{pool: pool}
}

// CreateWithOwner inserts the workspace, the creator's admin member row,
// and the default "general" channel in one transaction. A workspace is
// never observable without its first admin and default channel.
func (s *WorkspaceStore) CreateWithOwner(ctx context.Context, name, joinCode string, ownerUserID uuid.UUID) (*models.Workspace, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var ws models.Workspace
	err = tx.QueryRow(ctx, `
		INSERT INTO workspaces (name, owner_user_id, join_code, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, name, owner_user_id, join_code, created_at`,
		name, ownerUserID, joinCode,
	).Scan(&ws.ID, &ws.Name, &ws.OwnerUserID, &ws.JoinCode, &ws.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert workspace: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO members (user_id, workspace_id, role, created_at)
		VALUES ($1, $2, $3, now())`,
		ownerUserID, ws.ID, models.RoleAdmin,
	)
	if err != nil {
		return nil, fmt.Errorf("insert owner member: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO channels (name, workspace_id, created_at)
		VALUES ('general', $1, now())`,
		ws.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert default channel: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &ws, nil
}

func (s *WorkspaceStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	query := `
		SELECT id, name, owner_user_id, join_code, created_at
		FROM workspaces
		WHERE id = $1`

	var ws models.Workspace
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&ws.ID,
		&ws.Name,
		&ws.OwnerUserID,
		&ws.JoinCode,
		&ws.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return &ws, nil
}

func (s *WorkspaceStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Workspace, error) {
	query := `
		SELECT w.id, w.name, w.owner_user_id, w.join_code, w.created_at
		FROM workspaces w
		JOIN members m ON m.workspace_id = w.id
		WHERE m.user_id = $1
		ORDER BY w.created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	workspaces := make([]models.Workspace, 0)
	for rows.Next() {
		var ws models.Workspace
		if err := rows.Scan(
			&ws.ID,
			&ws.Name,
			&ws.OwnerUserID,
			&ws.JoinCode,
			&ws.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		workspaces = append(workspaces, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspaces: %w", err)
	}

	return workspaces, nil
}

func (s *WorkspaceStore) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	_, err := s.pool.Exec(ctx, `UPDATE workspaces SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("update workspace name: %w", err)
	}
	return nil
}

func (s *WorkspaceStore) UpdateJoinCode(ctx context.Context, id uuid.UUID, joinCode string) error {
	_, err := s.pool.Exec(ctx, `UPDATE workspaces SET join_code = $2 WHERE id = $1`, id, joinCode)
	if err != nil {
		return fmt.Errorf("update join code: %w", err)
	}
	return nil
}

// Remove deletes the workspace aggregate: reactions, messages,
// conversations, channels, members, then the workspace row itself, all in
// one transaction. A crash mid-cascade rolls everything back instead of
// leaving dangling references.
func (s *WorkspaceStore) Remove(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`DELETE FROM reactions WHERE workspace_id = $1`,
		`DELETE FROM messages WHERE workspace_id = $1`,
		`DELETE FROM conversations WHERE workspace_id = $1`,
		`DELETE FROM channels WHERE workspace_id = $1`,
		`DELETE FROM members WHERE workspace_id = $1`,
		`DELETE FROM workspaces WHERE id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.Exec(ctx, step, id); err != nil {
			return fmt.Errorf("cascade workspace delete: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
