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
	"huddle/internal/realtime"
	"huddle/internal/repository"
)

type ReactionHandler struct {
	reactions repository.ReactionRepository
	messages  repository.MessageRepository
	guard     *authz.Guard
	events    realtime.Publisher
	logger    *zap.Logger
}

func NewReactionHandler(
	reactions repository.ReactionRepository,
	messages repository.MessageRepository,
	guard *authz.Guard,
	events realtime.Publisher,
	logger *zap.Logger,
) *ReactionHandler {
	return &ReactionHandler{
		reactions: reactions,
		messages:  messages,
		guard:     guard,
		events:    events,
		logger:    logger,
	}
}

type toggleReactionRequest struct {
	Value string `json:"value" binding:"required"`
}

// Toggle handles POST /v1/messages/:id/reactions.
//
// A second toggle of the same value by the same member removes the first
// one. Different members, or the same member with a different value, stack
// as separate reactions.
func (h *ReactionHandler) Toggle(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req toggleReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	msg, err := h.messages.GetByID(ctx, messageID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if msg == nil {
		fail(c, h.logger, apperr.ErrMessageNotFound)
		return
	}

	member, err := h.guard.RequireMember(ctx, msg.WorkspaceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	existing, err := h.reactions.Get(ctx, messageID, member.ID, req.Value)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	var affected uuid.UUID
	if existing != nil {
		if err := h.reactions.Remove(ctx, existing.ID); err != nil {
			fail(c, h.logger, err)
			return
		}
		affected = existing.ID
	} else {
		created, err := h.reactions.Create(ctx, msg.WorkspaceID, messageID, member.ID, req.Value)
		if err != nil {
			fail(c, h.logger, err)
			return
		}
		affected = created.ID
	}

	h.events.Publish(ctx, realtime.Event{
		Type:           realtime.EventReactionToggled,
		WorkspaceID:    msg.WorkspaceID,
		ChannelID:      msg.ChannelID,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
	})

	c.JSON(http.StatusOK, gin.H{"id": affected})
}
