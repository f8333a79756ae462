package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"huddle/internal/apperr"
	"huddle/internal/authz"
	"huddle/internal/middleware"
	"huddle/internal/models"
	"huddle/internal/realtime"
	"huddle/internal/repository"
)

// Page size bounds for message listing.
const (
	defaultMessageLimit = 20
	maxMessageLimit     = 100
)

type MessageHandler struct {
	messages      repository.MessageRepository
	channels      repository.ChannelRepository
	conversations repository.ConversationRepository
	guard         *authz.Guard
	aggregator    *Aggregator
	events        realtime.Publisher
	logger        *zap.Logger
}

func NewMessageHandler(
	messages repository.MessageRepository,
	channels repository.ChannelRepository,
	conversations repository.ConversationRepository,
	guard *authz.Guard,
	aggregator *Aggregator,
	events realtime.Publisher,
	logger *zap.Logger,
) *MessageHandler {
	return &MessageHandler{
		messages:      messages,
		channels:      channels,
		conversations: conversations,
		guard:         guard,
		aggregator:    aggregator,
		events:        events,
		logger:        logger,
	}
}

type createMessageRequest struct {
	Body            string     `json:"body" binding:"required"`
	Image           *uuid.UUID `json:"image"`
	WorkspaceID     uuid.UUID  `json:"workspace_id" binding:"required"`
	ChannelID       *uuid.UUID `json:"channel_id"`
	ConversationID  *uuid.UUID `json:"conversation_id"`
	ParentMessageID *int64     `json:"parent_message_id"`
}

// Create handles POST /v1/messages.
//
// A reply posted with only parent_message_id set inherits the parent's
// conversation id — that is how replies inside a 1:1 thread land in the
// right conversation without the client naming it.
func (h *MessageHandler) Create(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	member, err := h.guard.RequireMember(ctx, req.WorkspaceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	conversationID := req.ConversationID
	if req.ConversationID == nil && req.ChannelID == nil && req.ParentMessageID != nil {
		parent, err := h.messages.GetByID(ctx, *req.ParentMessageID)
		if err != nil {
			fail(c, h.logger, err)
			return
		}
		if parent == nil {
			fail(c, h.logger, apperr.ErrParentNotFound)
			return
		}
		conversationID = parent.ConversationID
	}

	msg, err := h.messages.Create(ctx, repository.CreateMessage{
		Body:            req.Body,
		Image:           req.Image,
		MemberID:        member.ID,
		WorkspaceID:     req.WorkspaceID,
		ChannelID:       req.ChannelID,
		ConversationID:  conversationID,
		ParentMessageID: req.ParentMessageID,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	h.events.Publish(ctx, realtime.Event{
		Type:           realtime.EventMessageCreated,
		WorkspaceID:    msg.WorkspaceID,
		ChannelID:      msg.ChannelID,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
	})

	c.JSON(http.StatusCreated, gin.H{"id": msg.ID})
}

// List handles GET /v1/messages?channel_id=&conversation_id=&parent_message_id=&before=&limit=.
//
// Exactly the supplied selectors are matched, so a channel page excludes
// thread replies and a thread page excludes top-level messages. A thread
// request with neither container set inherits the parent's conversation,
// the same way Create does. Non-members get an empty page.
func (h *MessageHandler) List(c *gin.Context) {
	params, workspaceID, err := h.resolveListParams(c)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if params == nil {
		// resolveListParams already wrote the 400.
		return
	}

	ctx := c.Request.Context()
	member, err := h.guard.Member(ctx, workspaceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if member == nil {
		c.JSON(http.StatusOK, []struct{}{})
		return
	}

	msgs, err := h.messages.List(ctx, *params)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	views, err := h.aggregator.HydrateList(ctx, msgs)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// resolveListParams parses the query, applies thread conversation
// inheritance, and derives the workspace the membership check runs
// against. A nil params return with nil error means a 400 was written.
func (h *MessageHandler) resolveListParams(c *gin.Context) (*repository.ListMessages, uuid.UUID, error) {
	ctx := c.Request.Context()
	params := repository.ListMessages{Limit: defaultMessageLimit}
	var workspaceID uuid.UUID

	if raw := c.Query("channel_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel_id"})
			return nil, uuid.Nil, nil
		}
		params.ChannelID = &id

		ch, err := h.channels.GetByID(ctx, id)
		if err != nil {
			return nil, uuid.Nil, err
		}
		if ch == nil {
			return nil, uuid.Nil, apperr.ErrChannelNotFound
		}
		workspaceID = ch.WorkspaceID
	}

	if raw := c.Query("conversation_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation_id"})
			return nil, uuid.Nil, nil
		}
		params.ConversationID = &id

		if workspaceID == uuid.Nil {
			conv, err := h.conversations.GetByID(ctx, id)
			if err != nil {
				return nil, uuid.Nil, err
			}
			if conv == nil {
				return nil, uuid.Nil, apperr.ErrUnauthorized
			}
			workspaceID = conv.WorkspaceID
		}
	}

	if raw := c.Query("parent_message_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parent_message_id"})
			return nil, uuid.Nil, nil
		}
		params.ParentMessageID = &id

		parent, err := h.messages.GetByID(ctx, id)
		if err != nil {
			return nil, uuid.Nil, err
		}
		if parent == nil {
			return nil, uuid.Nil, apperr.ErrParentNotFound
		}
		if params.ChannelID == nil && params.ConversationID == nil {
			params.ConversationID = parent.ConversationID
		}
		if workspaceID == uuid.Nil {
			workspaceID = parent.WorkspaceID
		}
	}

	if workspaceID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "one of channel_id, conversation_id, parent_message_id is required"})
		return nil, uuid.Nil, nil
	}

	if raw := c.Query("before"); raw != "" {
		before, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || before < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'before' parameter"})
			return nil, uuid.Nil, nil
		}
		params.Before = before
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter"})
			return nil, uuid.Nil, nil
		}
		if limit > maxMessageLimit {
			limit = maxMessageLimit
		}
		params.Limit = limit
	}

	return &params, workspaceID, nil
}

// GetByID handles GET /v1/messages/:id. Read path: null when the message
// is missing, the caller is not a member, or the author is unresolvable.
func (h *MessageHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	ctx := c.Request.Context()
	msg, err := h.messages.GetByID(ctx, id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if msg == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	member, err := h.guard.Member(ctx, msg.WorkspaceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if member == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	view, err := h.aggregator.Hydrate(ctx, *msg)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if view == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	c.JSON(http.StatusOK, view)
}

type updateMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// Update handles PATCH /v1/messages/:id. Only the authoring member may
// edit; the write stamps updated_at as the edit marker.
func (h *MessageHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	msg, err := h.authorOnly(c, id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	if err := h.messages.Update(ctx, id, req.Body); err != nil {
		fail(c, h.logger, err)
		return
	}

	h.events.Publish(ctx, realtime.Event{
		Type:           realtime.EventMessageUpdated,
		WorkspaceID:    msg.WorkspaceID,
		ChannelID:      msg.ChannelID,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
	})

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// Remove handles DELETE /v1/messages/:id. Author only; thread replies and
// reactions go with the message.
func (h *MessageHandler) Remove(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	ctx := c.Request.Context()
	msg, err := h.authorOnly(c, id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	if err := h.messages.Remove(ctx, id); err != nil {
		fail(c, h.logger, err)
		return
	}

	h.events.Publish(ctx, realtime.Event{
		Type:           realtime.EventMessageDeleted,
		WorkspaceID:    msg.WorkspaceID,
		ChannelID:      msg.ChannelID,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
	})

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// authorOnly loads the message and verifies the caller is its author.
func (h *MessageHandler) authorOnly(c *gin.Context, id int64) (*models.Message, error) {
	ctx := c.Request.Context()

	msg, err := h.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, apperr.ErrMessageNotFound
	}

	member, err := h.guard.Member(ctx, msg.WorkspaceID, middleware.GetUserID(c))
	if err != nil {
		return nil, err
	}
	if member == nil || member.ID != msg.MemberID {
		return nil, apperr.ErrUnauthorized
	}

	return msg, nil
}
