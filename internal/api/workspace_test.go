package api

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/internal/models"
)

func TestGenerateJoinCode_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9a-z]{6}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, pattern, generateJoinCode())
	}
}

func newWorkspaceRouter(env *testEnv, userID uuid.UUID) *gin.Engine {
	h := NewWorkspaceHandler(env.workspaces, env.members, env.guard, testLogger())
	r := newTestRouter()
	r.Use(asUser(userID))
	r.POST("/v1/workspaces", h.Create)
	r.GET("/v1/workspaces", h.List)
	r.GET("/v1/workspaces/:id", h.GetByID)
	r.GET("/v1/workspaces/:id/info", h.GetInfoByID)
	r.PATCH("/v1/workspaces/:id", h.Update)
	r.DELETE("/v1/workspaces/:id", h.Remove)
	r.POST("/v1/workspaces/:id/join", h.Join)
	r.POST("/v1/workspaces/:id/join-code", h.NewJoinCode)
	return r
}

func TestWorkspaceCreate_SeedsAdminAndGeneralChannel(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	user, err := env.users.Create(ctx, "alice@example.com", "Alice", "x")
	require.NoError(t, err)

	r := newWorkspaceRouter(env, user.ID)
	w := doJSON(r, "POST", "/v1/workspaces", map[string]string{"name": "acme"})
	require.Equal(t, http.StatusCreated, w.Code)

	body, err := decodeBody[map[string]uuid.UUID](w)
	require.NoError(t, err)

	member, err := env.members.Get(ctx, body["id"], user.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, models.RoleAdmin, member.Role)

	channels, err := env.channels.ListByWorkspace(ctx, body["id"])
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "general", channels[0].Name)
}

func TestWorkspaceGetByID_NonMemberGetsNull(t *testing.T) {
	env := newTestEnv()
	ws, _, _ := env.seedWorkspace(t, "owner@example.com")

	stranger, err := env.users.Create(context.Background(), "who@example.com", "Who", "x")
	require.NoError(t, err)

	r := newWorkspaceRouter(env, stranger.ID)
	w := doJSON(r, "GET", "/v1/workspaces/"+ws.ID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())
}

func TestWorkspaceInfo_VisibleToNonMembers(t *testing.T) {
	env := newTestEnv()
	ws, _, _ := env.seedWorkspace(t, "owner@example.com")

	stranger, err := env.users.Create(context.Background(), "who@example.com", "Who", "x")
	require.NoError(t, err)

	r := newWorkspaceRouter(env, stranger.ID)
	w := doJSON(r, "GET", "/v1/workspaces/"+ws.ID.String()+"/info", nil)
	require.Equal(t, http.StatusOK, w.Code)

	info, err := decodeBody[workspaceInfoResponse](w)
	require.NoError(t, err)
	assert.Equal(t, "acme", info.Name)
	assert.False(t, info.IsMember)
}

func TestWorkspaceUpdate_RequiresAdmin(t *testing.T) {
	env := newTestEnv()
	ws, _, _ := env.seedWorkspace(t, "owner@example.com")
	_, user := env.addMember(t, ws.ID, "bob@example.com", models.RoleMember)

	r := newWorkspaceRouter(env, user.ID)
	w := doJSON(r, "PATCH", "/v1/workspaces/"+ws.ID.String(), map[string]string{"name": "new name"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWorkspaceJoin_CodeIsCaseInsensitive(t *testing.T) {
	env := newTestEnv()
	ws, _, _ := env.seedWorkspace(t, "owner@example.com")

	joiner, err := env.users.Create(context.Background(), "bob@example.com", "Bob", "x")
	require.NoError(t, err)

	r := newWorkspaceRouter(env, joiner.ID)
	w := doJSON(r, "POST", "/v1/workspaces/"+ws.ID.String()+"/join", map[string]string{"join_code": "ABC123"})
	require.Equal(t, http.StatusOK, w.Code)

	member, err := env.members.Get(context.Background(), ws.ID, joiner.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, models.RoleMember, member.Role)
}

func TestWorkspaceJoin_WrongCode(t *testing.T) {
	env := newTestEnv()
	ws, _, _ := env.seedWorkspace(t, "owner@example.com")

	joiner, err := env.users.Create(context.Background(), "bob@example.com", "Bob", "x")
	require.NoError(t, err)

	r := newWorkspaceRouter(env, joiner.ID)
	w := doJSON(r, "POST", "/v1/workspaces/"+ws.ID.String()+"/join", map[string]string{"join_code": "zzzzzz"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	body, err := decodeBody[map[string]string](w)
	require.NoError(t, err)
	assert.Equal(t, "Invalid join code", body["error"])
}

func TestWorkspaceJoin_AlreadyMemberConflicts(t *testing.T) {
	env := newTestEnv()
	ws, _, owner := env.seedWorkspace(t, "owner@example.com")

	r := newWorkspaceRouter(env, owner.ID)
	w := doJSON(r, "POST", "/v1/workspaces/"+ws.ID.String()+"/join", map[string]string{"join_code": "abc123"})

	require.Equal(t, http.StatusConflict, w.Code)
	body, err := decodeBody[map[string]string](w)
	require.NoError(t, err)
	assert.Equal(t, "Already an active member", body["error"])
}

func TestWorkspaceNewJoinCode_InvalidatesOld(t *testing.T) {
	env := newTestEnv()
	ws, _, owner := env.seedWorkspace(t, "owner@example.com")

	r := newWorkspaceRouter(env, owner.ID)
	w := doJSON(r, "POST", "/v1/workspaces/"+ws.ID.String()+"/join-code", nil)
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := env.workspaces.GetByID(context.Background(), ws.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "abc123", updated.JoinCode)
	assert.Regexp(t, `^[0-9a-z]{6}$`, updated.JoinCode)
}
