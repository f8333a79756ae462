package models

import (
	"time"

	"github.com/google/uuid"
)

// Member roles. Validated at the handler layer, stored as plain text.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is a person with an account. A user can belong to many workspaces,
// each through its own Member row.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Image        *string   `json:"image,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Workspace is the top-level isolation boundary. Every member, channel,
// conversation, message, and reaction belongs to exactly one workspace.
//
// JoinCode is a 6-character lowercase base-36 shared secret; anyone who
// knows it can self-join. Admins can regenerate it at any time.
type Workspace struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	JoinCode    string    `json:"join_code"`
	CreatedAt   time.Time `json:"created_at"`
}

// Member is a user's membership record within one workspace.
// Unique per (workspace_id, user_id). Message, reaction, and conversation
// rows reference the member id, not the user id, so workspace data never
// points across the workspace boundary.
type Member struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// Channel is a named public message container within a workspace.
// Names are normalized on write: whitespace runs become single hyphens,
// everything lowercased.
type Channel struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversation is a 1:1 private container between two members of the same
// workspace. The pair is unordered: at most one conversation exists per
// {member_one_id, member_two_id} regardless of which side is stored first.
type Conversation struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	MemberOneID uuid.UUID `json:"member_one_id"`
	MemberTwoID uuid.UUID `json:"member_two_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is a single message. Body is a rich-text document serialized as
// JSON by the client; the server treats it as an opaque string.
//
// Messages use bigserial int64 ids: the highest-volume table, and the
// monotonically increasing id doubles as the pagination cursor.
//
// Exactly one of ChannelID/ConversationID is the primary container, except
// thread replies, which inherit ConversationID from their parent when the
// thread root lives in a 1:1 conversation.
//
// UpdatedAt is an edit marker: its presence (not its value) means the
// message was edited after creation.
type Message struct {
	ID              int64      `json:"id"`
	Body            string     `json:"body"`
	Image           *uuid.UUID `json:"image,omitempty"`
	MemberID        uuid.UUID  `json:"member_id"`
	WorkspaceID     uuid.UUID  `json:"workspace_id"`
	ChannelID       *uuid.UUID `json:"channel_id,omitempty"`
	ConversationID  *uuid.UUID `json:"conversation_id,omitempty"`
	ParentMessageID *int64     `json:"parent_message_id,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Reaction is an emoji annotation a member places on a message.
// At most one row exists per (message_id, member_id, value); toggling the
// same triple again removes the row instead of duplicating it.
type Reaction struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	MessageID   int64     `json:"message_id"`
	MemberID    uuid.UUID `json:"member_id"`
	Value       string    `json:"value"`
	CreatedAt   time.Time `json:"created_at"`
}

// File is the metadata row for an uploaded binary attachment. The bytes
// live under the configured upload directory, keyed by the file id.
type File struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
