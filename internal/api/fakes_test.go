package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"huddle/internal/authz"
	"huddle/internal/middleware"
	"huddle/internal/models"
	"huddle/internal/realtime"
	"huddle/internal/repository"
)

// In-memory repository fakes. They mirror the store semantics the handlers
// rely on: (nil, nil) for missing rows, empty slices for empty lists, and
// the same filtering/ordering the SQL produces.

type fakeUsers struct {
	rows map[uuid.UUID]models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: make(map[uuid.UUID]models.User)}
}

func (f *fakeUsers) Create(_ context.Context, email, name, passwordHash string) (*models.User, error) {
	u := models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	f.rows[u.ID] = u
	return &u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.rows[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.rows {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

type fakeWorkspaces struct {
	rows     map[uuid.UUID]models.Workspace
	members  *fakeMembers
	channels *fakeChannels
}

func newFakeWorkspaces(members *fakeMembers, channels *fakeChannels) *fakeWorkspaces {
	return &fakeWorkspaces{
		rows:     make(map[uuid.UUID]models.Workspace),
		members:  members,
		channels: channels,
	}
}

// CreateWithOwner mirrors the store contract: the workspace comes into
// existence with the creator's admin member row and a "general" channel.
func (f *fakeWorkspaces) CreateWithOwner(ctx context.Context, name, joinCode string, ownerUserID uuid.UUID) (*models.Workspace, error) {
	ws := models.Workspace{
		ID:          uuid.New(),
		Name:        name,
		OwnerUserID: ownerUserID,
		JoinCode:    joinCode,
		CreatedAt:   time.Now(),
	}
	f.rows[ws.ID] = ws
	if f.members != nil {
		f.members.Create(ctx, ws.ID, ownerUserID, models.RoleAdmin)
	}
	if f.channels != nil {
		f.channels.Create(ctx, ws.ID, "general")
	}
	return &ws, nil
}

func (f *fakeWorkspaces) GetByID(_ context.Context, id uuid.UUID) (*models.Workspace, error) {
	if ws, ok := f.rows[id]; ok {
		return &ws, nil
	}
	return nil, nil
}

func (f *fakeWorkspaces) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Workspace, error) {
	out := make([]models.Workspace, 0)
	if f.members == nil {
		return out, nil
	}
	for _, m := range f.members.rows {
		if m.UserID == userID {
			if ws, ok := f.rows[m.WorkspaceID]; ok {
				out = append(out, ws)
			}
		}
	}
	return out, nil
}

func (f *fakeWorkspaces) UpdateName(_ context.Context, id uuid.UUID, name string) error {
	if ws, ok := f.rows[id]; ok {
		ws.Name = name
		f.rows[id] = ws
	}
	return nil
}

func (f *fakeWorkspaces) UpdateJoinCode(_ context.Context, id uuid.UUID, joinCode string) error {
	if ws, ok := f.rows[id]; ok {
		ws.JoinCode = joinCode
		f.rows[id] = ws
	}
	return nil
}

func (f *fakeWorkspaces) Remove(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

type fakeMembers struct {
	rows map[uuid.UUID]models.Member

	// set by newTestEnv so Remove can cascade like the store does
	messages      *fakeMessages
	reactions     *fakeReactions
	conversations *fakeConversations
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{rows: make(map[uuid.UUID]models.Member)}
}

func (f *fakeMembers) Create(_ context.Context, workspaceID, userID uuid.UUID, role string) (*models.Member, error) {
	m := models.Member{
		ID:          uuid.New(),
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        role,
		CreatedAt:   time.Now(),
	}
	f.rows[m.ID] = m
	return &m, nil
}

func (f *fakeMembers) Get(_ context.Context, workspaceID, userID uuid.UUID) (*models.Member, error) {
	for _, m := range f.rows {
		if m.WorkspaceID == workspaceID && m.UserID == userID {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (f *fakeMembers) GetByID(_ context.Context, id uuid.UUID) (*models.Member, error) {
	if m, ok := f.rows[id]; ok {
		return &m, nil
	}
	return nil, nil
}

func (f *fakeMembers) ListByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]models.Member, error) {
	out := make([]models.Member, 0)
	for _, m := range f.rows {
		if m.WorkspaceID == workspaceID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMembers) UpdateRole(_ context.Context, id uuid.UUID, role string) error {
	if m, ok := f.rows[id]; ok {
		m.Role = role
		f.rows[id] = m
	}
	return nil
}

// Remove mirrors the store cascade: the member's conversations, every
// message the member authored or that lives in one of those
// conversations, replies to any deleted message, and reactions on those
// messages or by the member all go with the member row.
func (f *fakeMembers) Remove(_ context.Context, id uuid.UUID) error {
	doomedConvs := make(map[uuid.UUID]struct{})
	if f.conversations != nil {
		for convID, conv := range f.conversations.rows {
			if conv.MemberOneID == id || conv.MemberTwoID == id {
				doomedConvs[convID] = struct{}{}
			}
		}
	}

	doomed := make(map[int64]struct{})
	if f.messages != nil {
		for msgID, msg := range f.messages.rows {
			if msg.MemberID == id {
				doomed[msgID] = struct{}{}
				continue
			}
			if msg.ConversationID != nil {
				if _, gone := doomedConvs[*msg.ConversationID]; gone {
					doomed[msgID] = struct{}{}
				}
			}
		}
		for msgID, msg := range f.messages.rows {
			if msg.ParentMessageID != nil {
				if _, gone := doomed[*msg.ParentMessageID]; gone {
					doomed[msgID] = struct{}{}
				}
			}
		}
		for msgID := range doomed {
			delete(f.messages.rows, msgID)
		}
	}

	if f.reactions != nil {
		for rID, r := range f.reactions.rows {
			if _, gone := doomed[r.MessageID]; gone || r.MemberID == id {
				delete(f.reactions.rows, rID)
			}
		}
	}

	for convID := range doomedConvs {
		delete(f.conversations.rows, convID)
	}

	delete(f.rows, id)
	return nil
}

type fakeChannels struct {
	rows map[uuid.UUID]models.Channel
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{rows: make(map[uuid.UUID]models.Channel)}
}

func (f *fakeChannels) Create(_ context.Context, workspaceID uuid.UUID, name string) (*models.Channel, error) {
	ch := models.Channel{
		ID:          uuid.New(),
		Name:        name,
		WorkspaceID: workspaceID,
		CreatedAt:   time.Now(),
	}
	f.rows[ch.ID] = ch
	return &ch, nil
}

func (f *fakeChannels) GetByID(_ context.Context, id uuid.UUID) (*models.Channel, error) {
	if ch, ok := f.rows[id]; ok {
		return &ch, nil
	}
	return nil, nil
}

func (f *fakeChannels) ListByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]models.Channel, error) {
	out := make([]models.Channel, 0)
	for _, ch := range f.rows {
		if ch.WorkspaceID == workspaceID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeChannels) UpdateName(_ context.Context, id uuid.UUID, name string) error {
	if ch, ok := f.rows[id]; ok {
		ch.Name = name
		f.rows[id] = ch
	}
	return nil
}

func (f *fakeChannels) Remove(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

type fakeConversations struct {
	rows map[uuid.UUID]models.Conversation
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{rows: make(map[uuid.UUID]models.Conversation)}
}

func (f *fakeConversations) Create(_ context.Context, workspaceID, memberOneID, memberTwoID uuid.UUID) (*models.Conversation, error) {
	conv := models.Conversation{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		MemberOneID: memberOneID,
		MemberTwoID: memberTwoID,
		CreatedAt:   time.Now(),
	}
	f.rows[conv.ID] = conv
	return &conv, nil
}

func (f *fakeConversations) GetByID(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	if conv, ok := f.rows[id]; ok {
		return &conv, nil
	}
	return nil, nil
}

func (f *fakeConversations) GetByMembers(_ context.Context, workspaceID, memberOneID, memberTwoID uuid.UUID) (*models.Conversation, error) {
	for _, conv := range f.rows {
		if conv.WorkspaceID != workspaceID {
			continue
		}
		if (conv.MemberOneID == memberOneID && conv.MemberTwoID == memberTwoID) ||
			(conv.MemberOneID == memberTwoID && conv.MemberTwoID == memberOneID) {
			conv := conv
			return &conv, nil
		}
	}
	return nil, nil
}

type fakeMessages struct {
	rows   map[int64]models.Message
	nextID int64
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{rows: make(map[int64]models.Message)}
}

func (f *fakeMessages) Create(_ context.Context, params repository.CreateMessage) (*models.Message, error) {
	f.nextID++
	msg := models.Message{
		ID:              f.nextID,
		Body:            params.Body,
		Image:           params.Image,
		MemberID:        params.MemberID,
		WorkspaceID:     params.WorkspaceID,
		ChannelID:       params.ChannelID,
		ConversationID:  params.ConversationID,
		ParentMessageID: params.ParentMessageID,
		CreatedAt:       time.Now(),
	}
	f.rows[msg.ID] = msg
	return &msg, nil
}

func (f *fakeMessages) GetByID(_ context.Context, id int64) (*models.Message, error) {
	if msg, ok := f.rows[id]; ok {
		return &msg, nil
	}
	return nil, nil
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (f *fakeMessages) List(_ context.Context, params repository.ListMessages) ([]models.Message, error) {
	out := make([]models.Message, 0)
	for _, msg := range f.rows {
		if !uuidPtrEqual(msg.ChannelID, params.ChannelID) ||
			!uuidPtrEqual(msg.ConversationID, params.ConversationID) ||
			!int64PtrEqual(msg.ParentMessageID, params.ParentMessageID) {
			continue
		}
		if params.Before != 0 && msg.ID >= params.Before {
			continue
		}
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (f *fakeMessages) ListThread(_ context.Context, parentMessageID int64) ([]models.Message, error) {
	out := make([]models.Message, 0)
	for _, msg := range f.rows {
		if msg.ParentMessageID != nil && *msg.ParentMessageID == parentMessageID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMessages) Update(_ context.Context, id int64, body string) error {
	if msg, ok := f.rows[id]; ok {
		now := time.Now()
		msg.Body = body
		msg.UpdatedAt = &now
		f.rows[id] = msg
	}
	return nil
}

func (f *fakeMessages) Remove(_ context.Context, id int64) error {
	for replyID, msg := range f.rows {
		if msg.ParentMessageID != nil && *msg.ParentMessageID == id {
			delete(f.rows, replyID)
		}
	}
	delete(f.rows, id)
	return nil
}

type fakeReactions struct {
	rows map[uuid.UUID]models.Reaction
}

func newFakeReactions() *fakeReactions {
	return &fakeReactions{rows: make(map[uuid.UUID]models.Reaction)}
}

func (f *fakeReactions) Create(_ context.Context, workspaceID uuid.UUID, messageID int64, memberID uuid.UUID, value string) (*models.Reaction, error) {
	r := models.Reaction{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		MessageID:   messageID,
		MemberID:    memberID,
		Value:       value,
		CreatedAt:   time.Now(),
	}
	f.rows[r.ID] = r
	return &r, nil
}

func (f *fakeReactions) Get(_ context.Context, messageID int64, memberID uuid.UUID, value string) (*models.Reaction, error) {
	for _, r := range f.rows {
		if r.MessageID == messageID && r.MemberID == memberID && r.Value == value {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeReactions) ListByMessage(_ context.Context, messageID int64) ([]models.Reaction, error) {
	out := make([]models.Reaction, 0)
	for _, r := range f.rows {
		if r.MessageID == messageID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeReactions) Remove(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

type fakeFiles struct {
	rows map[uuid.UUID]models.File
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{rows: make(map[uuid.UUID]models.File)}
}

func (f *fakeFiles) Create(_ context.Context, file *models.File) error {
	file.CreatedAt = time.Now()
	f.rows[file.ID] = *file
	return nil
}

func (f *fakeFiles) GetByID(_ context.Context, id uuid.UUID) (*models.File, error) {
	if file, ok := f.rows[id]; ok {
		return &file, nil
	}
	return nil, nil
}

// fakePublisher records published events for assertions.
type fakePublisher struct {
	events []realtime.Event
}

func (f *fakePublisher) Publish(_ context.Context, event realtime.Event) {
	f.events = append(f.events, event)
}

// staticResolver resolves every file id to a fixed URL prefix.
type staticResolver struct{}

func (staticResolver) ResolveURL(_ context.Context, fileID uuid.UUID) (string, error) {
	return "/v1/files/" + fileID.String() + "?token=t", nil
}

// testEnv bundles one instance of every fake plus the guard built on
// them, the way main wires the real stores.
type testEnv struct {
	users         *fakeUsers
	workspaces    *fakeWorkspaces
	members       *fakeMembers
	channels      *fakeChannels
	conversations *fakeConversations
	messages      *fakeMessages
	reactions     *fakeReactions
	files         *fakeFiles
	guard         *authz.Guard
	publisher     *fakePublisher
}

func newTestEnv() *testEnv {
	members := newFakeMembers()
	channels := newFakeChannels()
	conversations := newFakeConversations()
	messages := newFakeMessages()
	reactions := newFakeReactions()
	members.messages = messages
	members.reactions = reactions
	members.conversations = conversations
	return &testEnv{
		users:         newFakeUsers(),
		workspaces:    newFakeWorkspaces(members, channels),
		members:       members,
		channels:      channels,
		conversations: conversations,
		messages:      messages,
		reactions:     reactions,
		files:         newFakeFiles(),
		guard:         authz.NewGuard(members),
		publisher:     &fakePublisher{},
	}
}

func (e *testEnv) aggregator() *Aggregator {
	return NewAggregator(e.members, e.users, e.reactions, e.messages, staticResolver{})
}

// seedWorkspace creates a user and a workspace they own, returning the
// workspace and the owner's admin member row.
func (e *testEnv) seedWorkspace(t *testing.T, email string) (*models.Workspace, *models.Member, *models.User) {
	t.Helper()
	ctx := context.Background()

	user, err := e.users.Create(ctx, email, email, "x")
	require.NoError(t, err)

	ws, err := e.workspaces.CreateWithOwner(ctx, "acme", "abc123", user.ID)
	require.NoError(t, err)

	member, err := e.members.Get(ctx, ws.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	return ws, member, user
}

// addMember creates a fresh user and joins them to the workspace.
func (e *testEnv) addMember(t *testing.T, workspaceID uuid.UUID, email, role string) (*models.Member, *models.User) {
	t.Helper()
	ctx := context.Background()

	user, err := e.users.Create(ctx, email, email, "x")
	require.NoError(t, err)

	member, err := e.members.Create(ctx, workspaceID, user.ID, role)
	require.NoError(t, err)
	return member, user
}

// asUser injects the auth context the same way AuthMiddleware would.
func asUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Next()
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](w *httptest.ResponseRecorder) (T, error) {
	var out T
	err := json.Unmarshal(w.Body.Bytes(), &out)
	return out, err
}
