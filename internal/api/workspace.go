package api

import (
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"huddle/internal/apperr"
	"huddle/internal/authz"
	"huddle/internal/middleware"
	"huddle/internal/models"
	"huddle/internal/repository"
)

const joinCodeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateJoinCode returns a random 6-character lowercase base-36 code.
func generateJoinCode() string {
	var b [6]byte
	for i := range b {
		b[i] = joinCodeAlphabet[rand.IntN(len(joinCodeAlphabet))]
	}
	return string(b[:])
}

type WorkspaceHandler struct {
	workspaces repository.WorkspaceRepository
	members    repository.MemberRepository
	guard      *authz.Guard
	logger     *zap.Logger
}

func NewWorkspaceHandler(
	workspaces repository.WorkspaceRepository,
	members repository.MemberRepository,
	guard *authz.Guard,
	logger *zap.Logger,
) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaces: workspaces,
		members:    members,
		guard:      guard,
		logger:     logger,
	}
}

type createWorkspaceRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /v1/workspaces. The workspace, its creator's admin
// membership, and the default "general" channel appear together.
func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req createWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)

	ws, err := h.workspaces.CreateWithOwner(c.Request.Context(), req.Name, generateJoinCode(), userID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": ws.ID})
}

// List handles GET /v1/workspaces — the workspaces the caller belongs to.
func (h *WorkspaceHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	workspaces, err := h.workspaces.ListByUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, workspaces)
}

// GetByID handles GET /v1/workspaces/:id. Read path: a non-member gets
// null, not an error.
func (h *WorkspaceHandler) GetByID(c *gin.Context) {
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
		c.JSON(http.StatusOK, nil)
		return
	}

	ws, err := h.workspaces.GetByID(c.Request.Context(), workspaceID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, ws)
}

type workspaceInfoResponse struct {
	Name     string `json:"name"`
	IsMember bool   `json:"is_member"`
}

// GetInfoByID handles GET /v1/workspaces/:id/info — the join screen's
// peek at a workspace: its name and whether the caller already belongs.
// No join code, no membership details.
func (h *WorkspaceHandler) GetInfoByID(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return
	}

	ws, err := h.workspaces.GetByID(c.Request.Context(), workspaceID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if ws == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	member, err := h.guard.Member(c.Request.Context(), workspaceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, workspaceInfoResponse{
		Name:     ws.Name,
		IsMember: member != nil,
	})
}

type updateWorkspaceRequest struct {
	Name string `json:"name" binding:"required"`
}

// Update handles PATCH /v1/workspaces/:id (rename). Admin only.
func (h *WorkspaceHandler) Update(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return
	}

	var req updateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.guard.RequireAdmin(c.Request.Context(), workspaceID, middleware.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}

	if err := h.workspaces.UpdateName(c.Request.Context(), workspaceID, req.Name); err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": workspaceID})
}

// Remove handles DELETE /v1/workspaces/:id. Admin only; takes the whole
// aggregate with it.
func (h *WorkspaceHandler) Remove(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return
	}

	if _, err := h.guard.RequireAdmin(c.Request.Context(), workspaceID, middleware.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}

	if err := h.workspaces.Remove(c.Request.Context(), workspaceID); err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": workspaceID})
}

type joinWorkspaceRequest struct {
	JoinCode string `json:"join_code" binding:"required"`
}

// Join handles POST /v1/workspaces/:id/join. Requires the current join
// code (case-insensitive) and no existing membership.
func (h *WorkspaceHandler) Join(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return
	}

	var req joinWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	ctx := c.Request.Context()

	ws, err := h.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if ws == nil {
		fail(c, h.logger, apperr.ErrWorkspaceNotFound)
		return
	}

	if strings.ToLower(req.JoinCode) != ws.JoinCode {
		fail(c, h.logger, apperr.ErrInvalidJoinCode)
		return
	}

	existing, err := h.guard.Member(ctx, workspaceID, userID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if existing != nil {
		fail(c, h.logger, apperr.ErrAlreadyMember)
		return
	}

	if _, err := h.members.Create(ctx, workspaceID, userID, models.RoleMember); err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": workspaceID})
}

// NewJoinCode handles POST /v1/workspaces/:id/join-code — regenerates the
// code, invalidating the old one. Admin only.
func (h *WorkspaceHandler) NewJoinCode(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return
	}

	if _, err := h.guard.RequireAdmin(c.Request.Context(), workspaceID, middleware.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}

	if err := h.workspaces.UpdateJoinCode(c.Request.Context(), workspaceID, generateJoinCode()); err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": workspaceID})
}
