package db

import (
	"context"
	"fmt"
)

// schema is applied on startup. Every statement is idempotent, so boot
// against an already-migrated database is a no-op.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	email         text NOT NULL UNIQUE,
	name          text NOT NULL,
	image         text,
	password_hash text NOT NULL,
	created_at    timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workspaces (
	id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name          text NOT NULL,
	owner_user_id uuid NOT NULL REFERENCES users(id),
	join_code     text NOT NULL,
	created_at    timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS members (
	id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id      uuid NOT NULL REFERENCES users(id),
	workspace_id uuid NOT NULL REFERENCES workspaces(id),
	role         text NOT NULL DEFAULT 'member',
	created_at   timestamptz NOT NULL DEFAULT now(),
	UNIQUE (workspace_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_members_user ON members(user_id);

CREATE TABLE IF NOT EXISTS channels (
	id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name         text NOT NULL,
	workspace_id uuid NOT NULL REFERENCES workspaces(id),
	created_at   timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_channels_workspace ON channels(workspace_id);

CREATE TABLE IF NOT EXISTS conversations (
	id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	workspace_id  uuid NOT NULL REFERENCES workspaces(id),
	member_one_id uuid NOT NULL REFERENCES members(id),
	member_two_id uuid NOT NULL REFERENCES members(id),
	created_at    timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_conversations_workspace ON conversations(workspace_id);

CREATE TABLE IF NOT EXISTS files (
	id           uuid PRIMARY KEY,
	name         text NOT NULL,
	content_type text NOT NULL,
	size         bigint NOT NULL,
	created_at   timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id                bigserial PRIMARY KEY,
	body              text NOT NULL,
	image             uuid REFERENCES files(id),
	member_id         uuid NOT NULL REFERENCES members(id),
	workspace_id      uuid NOT NULL REFERENCES workspaces(id),
	channel_id        uuid REFERENCES channels(id),
	conversation_id   uuid REFERENCES conversations(id),
	parent_message_id bigint REFERENCES messages(id),
	updated_at        timestamptz,
	created_at        timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, id DESC);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id DESC);
CREATE INDEX IF NOT EXISTS idx_messages_parent ON messages(parent_message_id);
CREATE INDEX IF NOT EXISTS idx_messages_member ON messages(member_id);

CREATE TABLE IF NOT EXISTS reactions (
	id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	workspace_id uuid NOT NULL REFERENCES workspaces(id),
	message_id   bigint NOT NULL REFERENCES messages(id),
	member_id    uuid NOT NULL REFERENCES members(id),
	value        text NOT NULL,
	created_at   timestamptz NOT NULL DEFAULT now(),
	UNIQUE (message_id, member_id, value)
);
CREATE INDEX IF NOT EXISTS idx_reactions_message ON reactions(message_id);
CREATE INDEX IF NOT EXISTS idx_reactions_member ON reactions(member_id);
`

// Migrate applies the schema to the connected database.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	db.logger.Info("database schema applied")
	return nil
}
