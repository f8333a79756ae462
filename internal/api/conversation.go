package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"huddle/internal/apperr"
	"huddle/internal/authz"
	"huddle/internal/middleware"
	"huddle/internal/repository"
)

type ConversationHandler struct {
	conversations repository.ConversationRepository
	members       repository.MemberRepository
	guard         *authz.Guard
	logger        *zap.Logger
}

func NewConversationHandler(
	conversations repository.ConversationRepository,
	members repository.MemberRepository,
	guard *authz.Guard,
	logger *zap.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		members:       members,
		guard:         guard,
		logger:        logger,
	}
}

type createOrGetConversationRequest struct {
	WorkspaceID uuid.UUID `json:"workspace_id" binding:"required"`
	MemberID    uuid.UUID `json:"member_id" binding:"required"`
}

// CreateOrGet handles POST /v1/conversations — the idempotent 1:1 lookup.
// The pair is unordered, so (A,B) and (B,A) resolve to the same
// conversation; insert happens only when neither ordering exists.
func (h *ConversationHandler) CreateOrGet(c *gin.Context) {
	var req createOrGetConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	current, err := h.guard.RequireMember(ctx, req.WorkspaceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	other, err := h.members.GetByID(ctx, req.MemberID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if other == nil || other.WorkspaceID != req.WorkspaceID {
		fail(c, h.logger, apperr.ErrMemberNotFound)
		return
	}

	existing, err := h.conversations.GetByMembers(ctx, req.WorkspaceID, current.ID, other.ID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusOK, gin.H{"id": existing.ID})
		return
	}

	conv, err := h.conversations.Create(ctx, req.WorkspaceID, current.ID, other.ID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": conv.ID})
}
