package api

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/internal/models"
	"huddle/internal/repository"
)

func TestGroupReactions_CollapsesByValue(t *testing.T) {
	wsID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	rows := []models.Reaction{
		{ID: uuid.New(), WorkspaceID: wsID, MessageID: 1, MemberID: alice, Value: "👍"},
		{ID: uuid.New(), WorkspaceID: wsID, MessageID: 1, MemberID: bob, Value: "👍"},
		{ID: uuid.New(), WorkspaceID: wsID, MessageID: 1, MemberID: alice, Value: "🎉"},
	}

	groups := GroupReactions(rows)
	require.Len(t, groups, 2)

	// First-seen order is preserved.
	assert.Equal(t, "👍", groups[0].Value)
	assert.Equal(t, 2, groups[0].Count)
	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, groups[0].MemberIDs)

	assert.Equal(t, "🎉", groups[1].Value)
	assert.Equal(t, 1, groups[1].Count)
	assert.Equal(t, []uuid.UUID{alice}, groups[1].MemberIDs)
}

func TestGroupReactions_DedupesRepeatReactors(t *testing.T) {
	member := uuid.New()
	rows := []models.Reaction{
		{ID: uuid.New(), MessageID: 1, MemberID: member, Value: "👍"},
		{ID: uuid.New(), MessageID: 1, MemberID: member, Value: "👍"},
	}

	groups := GroupReactions(rows)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, []uuid.UUID{member}, groups[0].MemberIDs)
}

func TestGroupReactions_Empty(t *testing.T) {
	groups := GroupReactions(nil)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

// aggregateFixture wires an Aggregator over fresh fakes plus one
// workspace, member, and user to author messages with.
type aggregateFixture struct {
	users     *fakeUsers
	members   *fakeMembers
	messages  *fakeMessages
	reactions *fakeReactions
	agg       *Aggregator

	workspaceID uuid.UUID
	member      *models.Member
	user        *models.User
}

func newAggregateFixture(t *testing.T) *aggregateFixture {
	t.Helper()
	ctx := context.Background()

	users := newFakeUsers()
	members := newFakeMembers()
	messages := newFakeMessages()
	reactions := newFakeReactions()

	user, err := users.Create(ctx, "alice@example.com", "Alice", "x")
	require.NoError(t, err)

	wsID := uuid.New()
	member, err := members.Create(ctx, wsID, user.ID, models.RoleAdmin)
	require.NoError(t, err)

	return &aggregateFixture{
		users:       users,
		members:     members,
		messages:    messages,
		reactions:   reactions,
		agg:         NewAggregator(members, users, reactions, messages, staticResolver{}),
		workspaceID: wsID,
		member:      member,
		user:        user,
	}
}

func (f *aggregateFixture) post(t *testing.T, params repository.CreateMessage) *models.Message {
	t.Helper()
	if params.MemberID == uuid.Nil {
		params.MemberID = f.member.ID
	}
	if params.WorkspaceID == uuid.Nil {
		params.WorkspaceID = f.workspaceID
	}
	msg, err := f.messages.Create(context.Background(), params)
	require.NoError(t, err)
	return msg
}

func TestHydrate_ResolvesAuthorAndReactions(t *testing.T) {
	f := newAggregateFixture(t)
	ctx := context.Background()

	msg := f.post(t, repository.CreateMessage{Body: "hello"})
	_, err := f.reactions.Create(ctx, f.workspaceID, msg.ID, f.member.ID, "👍")
	require.NoError(t, err)

	view, err := f.agg.Hydrate(ctx, *msg)
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, f.member.ID, view.Member.ID)
	assert.Equal(t, "Alice", view.User.Name)
	require.Len(t, view.Reactions, 1)
	assert.Equal(t, "👍", view.Reactions[0].Value)
	assert.Equal(t, 0, view.ThreadCount)
}

func TestHydrate_OrphanedAuthorReturnsNil(t *testing.T) {
	f := newAggregateFixture(t)
	ctx := context.Background()

	msg := f.post(t, repository.CreateMessage{Body: "hello"})
	require.NoError(t, f.members.Remove(ctx, f.member.ID))

	view, err := f.agg.Hydrate(ctx, *msg)
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestHydrate_ThreadSummary(t *testing.T) {
	f := newAggregateFixture(t)
	ctx := context.Background()

	root := f.post(t, repository.CreateMessage{Body: "root"})
	f.post(t, repository.CreateMessage{Body: "first reply", ParentMessageID: &root.ID})
	last := f.post(t, repository.CreateMessage{Body: "last reply", ParentMessageID: &root.ID})

	view, err := f.agg.Hydrate(ctx, *root)
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, 2, view.ThreadCount)
	assert.Equal(t, "Alice", view.ThreadName)
	assert.Equal(t, last.CreatedAt.UnixMilli(), view.ThreadTimestamp)
}

func TestHydrate_ThreadCountSurvivesMissingReplyAuthor(t *testing.T) {
	f := newAggregateFixture(t)
	ctx := context.Background()

	ghost, err := f.members.Create(ctx, f.workspaceID, uuid.New(), models.RoleMember)
	require.NoError(t, err)

	root := f.post(t, repository.CreateMessage{Body: "root"})
	f.post(t, repository.CreateMessage{Body: "mine", ParentMessageID: &root.ID})
	f.post(t, repository.CreateMessage{Body: "theirs", MemberID: ghost.ID, ParentMessageID: &root.ID})

	// The last reply's author has no user row, so name and timestamp
	// degrade but the count stays truthful.
	view, err := f.agg.Hydrate(ctx, *root)
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, 2, view.ThreadCount)
	assert.Empty(t, view.ThreadName)
	assert.Zero(t, view.ThreadTimestamp)
}

func TestHydrate_ResolvesImageURL(t *testing.T) {
	f := newAggregateFixture(t)
	ctx := context.Background()

	fileID := uuid.New()
	msg := f.post(t, repository.CreateMessage{Body: "pic", Image: &fileID})

	view, err := f.agg.Hydrate(ctx, *msg)
	require.NoError(t, err)
	require.NotNil(t, view)
	require.NotNil(t, view.ImageURL)
	assert.Contains(t, *view.ImageURL, fileID.String())
}

type erroringResolver struct{}

func (erroringResolver) ResolveURL(context.Context, uuid.UUID) (string, error) {
	return "", assert.AnError
}

func TestHydrate_DanglingImageDegrades(t *testing.T) {
	f := newAggregateFixture(t)
	f.agg = NewAggregator(f.members, f.users, f.reactions, f.messages, erroringResolver{})
	ctx := context.Background()

	fileID := uuid.New()
	msg := f.post(t, repository.CreateMessage{Body: "pic", Image: &fileID})

	view, err := f.agg.Hydrate(ctx, *msg)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Nil(t, view.ImageURL)
}

func TestHydrateList_DropsOrphanedMessages(t *testing.T) {
	f := newAggregateFixture(t)
	ctx := context.Background()

	ghost, err := f.members.Create(ctx, f.workspaceID, uuid.New(), models.RoleMember)
	require.NoError(t, err)

	mine := f.post(t, repository.CreateMessage{Body: "mine"})
	orphan := f.post(t, repository.CreateMessage{Body: "orphan", MemberID: ghost.ID})

	views, err := f.agg.HydrateList(ctx, []models.Message{*mine, *orphan})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, mine.ID, views[0].ID)
}
