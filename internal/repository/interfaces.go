package repository

import (
	"context"

	"github.com/google/uuid"

	"huddle/internal/models"
)

// Every method takes a context so request cancellation propagates into the
// database layer. Lookups return (nil, nil) when the row does not exist;
// list methods return empty slices (never nil) so JSON serializes to [].

// UserRepository handles account rows.
type UserRepository interface {
	Create(ctx context.Context, email, name, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// WorkspaceRepository handles workspaces and the multi-row writes that
// treat the workspace as an aggregate root.
type WorkspaceRepository interface {
	// CreateWithOwner inserts the workspace, its owner's admin member row,
	// and the default "general" channel in a single transaction.
	CreateWithOwner(ctx context.Context, name, joinCode string, ownerUserID uuid.UUID) (*models.Workspace, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error)

	// ListByUser returns the workspaces the user is a member of, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Workspace, error)

	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	UpdateJoinCode(ctx context.Context, id uuid.UUID, joinCode string) error

	// Remove deletes the workspace and every dependent row (reactions,
	// messages, conversations, channels, members) in a single transaction:
	// either the whole aggregate goes or none of it does.
	Remove(ctx context.Context, id uuid.UUID) error
}

// MemberRepository handles workspace membership. Get is the membership
// guard's hot-path lookup, called at the top of nearly every handler.
type MemberRepository interface {
	Create(ctx context.Context, workspaceID, userID uuid.UUID, role string) (*models.Member, error)

	// Get resolves the unique member row for (workspace, user).
	Get(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Member, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Member, error)

	UpdateRole(ctx context.Context, id uuid.UUID, role string) error

	// Remove deletes the member and every message, reaction, and
	// conversation referencing it, in a single transaction.
	Remove(ctx context.Context, id uuid.UUID) error
}

// ChannelRepository handles channel rows.
type ChannelRepository interface {
	Create(ctx context.Context, workspaceID uuid.UUID, name string) (*models.Channel, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Channel, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error

	// Remove deletes the channel together with its messages and their
	// reactions, in a single transaction.
	Remove(ctx context.Context, id uuid.UUID) error
}

// ConversationRepository handles 1:1 conversations.
type ConversationRepository interface {
	Create(ctx context.Context, workspaceID, memberOneID, memberTwoID uuid.UUID) (*models.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)

	// GetByMembers looks the pair up in both orderings — the relation is
	// symmetric but stored directionally.
	GetByMembers(ctx context.Context, workspaceID, memberOneID, memberTwoID uuid.UUID) (*models.Conversation, error)
}

// CreateMessage carries the optional container/attachment fields of a new
// message; the repository stores exactly what it is given.
type CreateMessage struct {
	Body            string
	Image           *uuid.UUID
	MemberID        uuid.UUID
	WorkspaceID     uuid.UUID
	ChannelID       *uuid.UUID
	ConversationID  *uuid.UUID
	ParentMessageID *int64
}

// ListMessages selects one container: a channel, a conversation, or a
// thread parent. Unset fields must match NULL, mirroring the composite
// (channel, parent, conversation) index the listing is keyed on — that is
// what keeps thread replies out of top-level channel pages.
type ListMessages struct {
	ChannelID       *uuid.UUID
	ConversationID  *uuid.UUID
	ParentMessageID *int64

	// Before is an exclusive upper bound on message id; 0 means newest.
	Before int64
	Limit  int
}

// MessageRepository handles message persistence.
type MessageRepository interface {
	Create(ctx context.Context, params CreateMessage) (*models.Message, error)
	GetByID(ctx context.Context, id int64) (*models.Message, error)

	// List returns messages in the selected container, newest first.
	List(ctx context.Context, params ListMessages) ([]models.Message, error)

	// ListThread returns every reply to a parent, oldest first.
	ListThread(ctx context.Context, parentMessageID int64) ([]models.Message, error)

	// Update replaces the body and stamps updated_at with the current time.
	Update(ctx context.Context, id int64, body string) error

	// Remove deletes the message and its reactions in a single transaction.
	Remove(ctx context.Context, id int64) error
}

// ReactionRepository handles emoji reactions.
type ReactionRepository interface {
	Create(ctx context.Context, workspaceID uuid.UUID, messageID int64, memberID uuid.UUID, value string) (*models.Reaction, error)

	// Get resolves the exact (message, member, value) triple.
	Get(ctx context.Context, messageID int64, memberID uuid.UUID, value string) (*models.Reaction, error)

	ListByMessage(ctx context.Context, messageID int64) ([]models.Reaction, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// FileRepository handles attachment metadata.
type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.File, error)
}
