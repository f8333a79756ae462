package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"huddle/internal/models"
	"huddle/internal/repository"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

const messageColumns = `id, body, image, member_id, workspace_id, channel_id,
	conversation_id, parent_message_id, updated_at, created_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	err := row.Scan(
		&msg.ID,
		&msg.Body,
		&msg.Image,
		&msg.MemberID,
		&msg.WorkspaceID,
		&msg.ChannelID,
		&msg.ConversationID,
		&msg.ParentMessageID,
		&msg.UpdatedAt,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *MessageStore) Create(ctx context.Context, params repository.CreateMessage) (*models.Message, error) {
	// Messages use bigserial ids; Postgres generates them and RETURNING
	// hands the row back with the cursor-ready id.
	query := `
		INSERT INTO messages (body, image, member_id, workspace_id, channel_id,
			conversation_id, parent_message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING ` + messageColumns

	msg, err := scanMessage(s.pool.QueryRow(ctx, query,
		params.Body,
		params.Image,
		params.MemberID,
		params.WorkspaceID,
		params.ChannelID,
		params.ConversationID,
		params.ParentMessageID,
	))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	msg, err := scanMessage(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

// List returns one page of a container's messages, newest first.
//
// The container match uses IS NOT DISTINCT FROM so unset selectors match
// NULL columns: a channel page (parent unset) never includes thread
// replies, and a thread page never includes top-level messages.
func (s *MessageStore) List(ctx context.Context, params repository.ListMessages) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE channel_id IS NOT DISTINCT FROM $1
		  AND parent_message_id IS NOT DISTINCT FROM $2
		  AND conversation_id IS NOT DISTINCT FROM $3
		  AND ($4 = 0 OR id < $4)
		ORDER BY id DESC
		LIMIT $5`

	rows, err := s.pool.Query(ctx, query,
		params.ChannelID,
		params.ParentMessageID,
		params.ConversationID,
		params.Before,
		params.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// ListThread returns all replies to a parent message, oldest first — the
// order the thread summary takes its "last reply" from.
func (s *MessageStore) ListThread(ctx context.Context, parentMessageID int64) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE parent_message_id = $1
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, parentMessageID)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// Update replaces the body and stamps updated_at — the edit marker whose
// presence, not value, marks the message "(edited)".
func (s *MessageStore) Update(ctx context.Context, id int64, body string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE messages SET body = $2, updated_at = now() WHERE id = $1`, id, body)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

// Remove deletes the message, its thread replies, and every reaction on
// any of them, in one transaction.
func (s *MessageStore) Remove(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`DELETE FROM reactions
		 WHERE message_id = $1
		    OR message_id IN (SELECT id FROM messages WHERE parent_message_id = $1)`,
		`DELETE FROM messages WHERE id = $1 OR parent_message_id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.Exec(ctx, step, id); err != nil {
			return fmt.Errorf("cascade message delete: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
