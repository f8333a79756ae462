package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"huddle/internal/apperr"
	"huddle/internal/authz"
	"huddle/internal/middleware"
	"huddle/internal/models"
	"huddle/internal/repository"
)

type MemberHandler struct {
	members repository.MemberRepository
	users   repository.UserRepository
	guard   *authz.Guard
	logger  *zap.Logger
}

func NewMemberHandler(
	members repository.MemberRepository,
	users repository.UserRepository,
	guard *authz.Guard,
	logger *zap.Logger,
) *MemberHandler {
	return &MemberHandler{members: members, users: users, guard: guard, logger: logger}
}

// memberView is a member row with its user embedded for display.
type memberView struct {
	models.Member
	User models.User `json:"user"`
}

// List handles GET /v1/workspaces/:id/members. Members whose user row has
// gone missing are dropped from the result.
func (h *MemberHandler) List(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return
	}

	ctx := c.Request.Context()
	current, err := h.guard.Member(ctx, workspaceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if current == nil {
		c.JSON(http.StatusOK, []struct{}{})
		return
	}

	members, err := h.members.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	views := make([]memberView, 0, len(members))
	for _, m := range members {
		user, err := h.users.GetByID(ctx, m.UserID)
		if err != nil {
			fail(c, h.logger, err)
			return
		}
		if user == nil {
			continue
		}
		views = append(views, memberView{Member: m, User: *user})
	}

	c.JSON(http.StatusOK, views)
}

// Current handles GET /v1/workspaces/:id/members/me — the caller's own
// membership, or null when they do not belong.
func (h *MemberHandler) Current(c *gin.Context) {
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

	c.JSON(http.StatusOK, member)
}

// GetByID handles GET /v1/members/:id. The caller must share the member's
// workspace; otherwise the read soft-fails to null.
func (h *MemberHandler) GetByID(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	ctx := c.Request.Context()
	member, err := h.members.GetByID(ctx, memberID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if member == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	current, err := h.guard.Member(ctx, member.WorkspaceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if current == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	user, err := h.users.GetByID(ctx, member.UserID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	c.JSON(http.StatusOK, memberView{Member: *member, User: *user})
}

type updateMemberRequest struct {
	Role string `json:"role" binding:"required,oneof=admin member"`
}

// Update handles PATCH /v1/members/:id — role changes. Admin only.
func (h *MemberHandler) Update(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	member, err := h.members.GetByID(ctx, memberID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if member == nil {
		fail(c, h.logger, apperr.ErrMemberNotFound)
		return
	}

	if _, err := h.guard.RequireAdmin(ctx, member.WorkspaceID, middleware.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}

	if err := h.members.UpdateRole(ctx, memberID, req.Role); err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": memberID})
}

// Remove handles DELETE /v1/members/:id.
//
// Two self-protection rules in order: an admin target can never be removed
// through this path (demote first), and an admin actor cannot remove
// themselves (transfer the role or have another admin act). Together they
// keep a workspace from losing its last admin by accident.
func (h *MemberHandler) Remove(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	ctx := c.Request.Context()
	member, err := h.members.GetByID(ctx, memberID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if member == nil {
		fail(c, h.logger, apperr.ErrMemberNotFound)
		return
	}

	current, err := h.guard.RequireMember(ctx, member.WorkspaceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	// Members may remove themselves (leave); removing anyone else
	// requires the admin role.
	if current.ID != member.ID && current.Role != models.RoleAdmin {
		fail(c, h.logger, apperr.ErrUnauthorized)
		return
	}

	if member.Role == models.RoleAdmin {
		fail(c, h.logger, apperr.ErrAdminDelete)
		return
	}
	// An admin removing themselves is already rejected above, so this
	// branch never fires. The check order and both error strings are
	// part of the API contract, so it stays.
	if current.ID == member.ID && current.Role == models.RoleAdmin {
		fail(c, h.logger, apperr.ErrSelfDelete)
		return
	}

	if err := h.members.Remove(ctx, memberID); err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": memberID})
}
