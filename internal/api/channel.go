package api

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"huddle/internal/apperr"
	"huddle/internal/authz"
	"huddle/internal/middleware"
	"huddle/internal/repository"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeChannelName collapses whitespace runs into single hyphens and
// lowercases the result: "Team  Chat" → "team-chat".
func normalizeChannelName(name string) string {
	return strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// Channel name length bounds, checked after normalization. The old UI
// enforced these client-side only; the server is now the authority.
const (
	channelNameMinLen = 3
	channelNameMaxLen = 80
)

type ChannelHandler struct {
	channels repository.ChannelRepository
	guard    *authz.Guard
	logger   *zap.Logger
}

func NewChannelHandler(channels repository.ChannelRepository, guard *authz.Guard, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{channels: channels, guard: guard, logger: logger}
}

type createChannelRequest struct {
	Name        string    `json:"name" binding:"required"`
	WorkspaceID uuid.UUID `json:"workspace_id" binding:"required"`
}

// Create handles POST /v1/channels. Admin only.
func (h *ChannelHandler) Create(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.guard.RequireAdmin(c.Request.Context(), req.WorkspaceID, middleware.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}

	name := normalizeChannelName(req.Name)
	if n := utf8.RuneCountInString(name); n < channelNameMinLen || n > channelNameMaxLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel name must be 3-80 characters"})
		return
	}

	ch, err := h.channels.Create(c.Request.Context(), req.WorkspaceID, name)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": ch.ID})
}

// List handles GET /v1/workspaces/:id/channels. Read path: a non-member
// gets an empty list.
func (h *ChannelHandler) List(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return
	}

	member, err := h.guard.Member(c.Request.Context(), workspaceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if member == nil {
		c.JSON(http.StatusOK, []struct{}{})
		return
	}

	channels, err := h.channels.ListByWorkspace(c.Request.Context(), workspaceID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, channels)
}

// GetByID handles GET /v1/channels/:id. Read path: non-members get null.
func (h *ChannelHandler) GetByID(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	ch, err := h.channels.GetByID(c.Request.Context(), channelID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if ch == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	member, err := h.guard.Member(c.Request.Context(), ch.WorkspaceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if member == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	c.JSON(http.StatusOK, ch)
}

type updateChannelRequest struct {
	Name string `json:"name" binding:"required"`
}

// Update handles PATCH /v1/channels/:id (rename). Admin only; the new
// name goes through the same normalization as create.
func (h *ChannelHandler) Update(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	var req updateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, err := h.channels.GetByID(c.Request.Context(), channelID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if ch == nil {
		fail(c, h.logger, apperr.ErrChannelNotFound)
		return
	}

	if _, err := h.guard.RequireAdmin(c.Request.Context(), ch.WorkspaceID, middleware.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}

	name := normalizeChannelName(req.Name)
	if n := utf8.RuneCountInString(name); n < channelNameMinLen || n > channelNameMaxLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel name must be 3-80 characters"})
		return
	}

	if err := h.channels.UpdateName(c.Request.Context(), channelID, name); err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": channelID})
}

// Remove handles DELETE /v1/channels/:id. Admin only; the channel's
// messages go with it.
func (h *ChannelHandler) Remove(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	ch, err := h.channels.GetByID(c.Request.Context(), channelID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if ch == nil {
		fail(c, h.logger, apperr.ErrChannelNotFound)
		return
	}

	if _, err := h.guard.RequireAdmin(c.Request.Context(), ch.WorkspaceID, middleware.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}

	if err := h.channels.Remove(c.Request.Context(), channelID); err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": channelID})
}
