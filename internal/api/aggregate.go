package api

import (
	"context"

	"github.com/google/uuid"

	"huddle/internal/models"
	"huddle/internal/repository"
)

// URLResolver turns a stored file reference into a retrievable URL at
// read time. Resolved URLs are short-lived and never persisted.
type URLResolver interface {
	ResolveURL(ctx context.Context, fileID uuid.UUID) (string, error)
}

// ReactionGroup is one distinct reaction value on a message: the total
// count plus the deduplicated members who gave it. The per-row member id
// is deliberately absent from the shape — only the aggregate is exposed.
type ReactionGroup struct {
	ID          uuid.UUID   `json:"id"`
	WorkspaceID uuid.UUID   `json:"workspace_id"`
	MessageID   int64       `json:"message_id"`
	Value       string      `json:"value"`
	Count       int         `json:"count"`
	MemberIDs   []uuid.UUID `json:"member_ids"`
}

// ThreadSummary describes the replies under a message: how many, and who
// replied last. The zero value is the "no replies" form.
type ThreadSummary struct {
	Count     int     `json:"count"`
	Image     *string `json:"image,omitempty"`
	Timestamp int64   `json:"timestamp"`
	Name      string  `json:"name"`
}

// MessageView is the display-ready projection of a message: the raw row
// plus resolved author, grouped reactions, thread summary, and a signed
// attachment URL.
type MessageView struct {
	models.Message

	ImageURL *string       `json:"image_url,omitempty"`
	Member   models.Member `json:"member"`
	User     models.User   `json:"user"`

	Reactions []ReactionGroup `json:"reactions"`

	ThreadCount     int     `json:"thread_count"`
	ThreadImage     *string `json:"thread_image,omitempty"`
	ThreadName      string  `json:"thread_name"`
	ThreadTimestamp int64   `json:"thread_timestamp"`
}

// GroupReactions collapses raw reaction rows into one group per distinct
// value, in first-seen order. Count is the total number of rows with that
// value; MemberIDs dedupes repeat reactors.
func GroupReactions(reactions []models.Reaction) []ReactionGroup {
	groups := make([]ReactionGroup, 0)
	index := make(map[string]int)

	for _, r := range reactions {
		i, ok := index[r.Value]
		if !ok {
			index[r.Value] = len(groups)
			groups = append(groups, ReactionGroup{
				ID:          r.ID,
				WorkspaceID: r.WorkspaceID,
				MessageID:   r.MessageID,
				Value:       r.Value,
				Count:       0,
				MemberIDs:   []uuid.UUID{},
			})
			i = len(groups) - 1
		}
		groups[i].Count++

		seen := false
		for _, id := range groups[i].MemberIDs {
			if id == r.MemberID {
				seen = true
				break
			}
		}
		if !seen {
			groups[i].MemberIDs = append(groups[i].MemberIDs, r.MemberID)
		}
	}

	return groups
}

// Aggregator assembles MessageViews from raw rows.
type Aggregator struct {
	members   repository.MemberRepository
	users     repository.UserRepository
	reactions repository.ReactionRepository
	messages  repository.MessageRepository
	resolver  URLResolver
}

func NewAggregator(
	members repository.MemberRepository,
	users repository.UserRepository,
	reactions repository.ReactionRepository,
	messages repository.MessageRepository,
	resolver URLResolver,
) *Aggregator {
	return &Aggregator{
		members:   members,
		users:     users,
		reactions: reactions,
		messages:  messages,
		resolver:  resolver,
	}
}

// author resolves message author → member → user. (nil, nil, nil) means
// an orphaned reference; list results drop such messages.
func (a *Aggregator) author(ctx context.Context, memberID uuid.UUID) (*models.Member, *models.User, error) {
	member, err := a.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, nil, err
	}
	if member == nil {
		return nil, nil, nil
	}
	user, err := a.users.GetByID(ctx, member.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, nil
	}
	return member, user, nil
}

// threadSummary inspects the replies under a message. The reply count is
// always the true count, even when the last reply's author can no longer
// be resolved — in that case only the name/image/timestamp degrade.
func (a *Aggregator) threadSummary(ctx context.Context, messageID int64) (ThreadSummary, error) {
	replies, err := a.messages.ListThread(ctx, messageID)
	if err != nil {
		return ThreadSummary{}, err
	}
	if len(replies) == 0 {
		return ThreadSummary{}, nil
	}

	summary := ThreadSummary{Count: len(replies)}

	last := replies[len(replies)-1]
	member, user, err := a.author(ctx, last.MemberID)
	if err != nil {
		return ThreadSummary{}, err
	}
	if member == nil || user == nil {
		return summary, nil
	}

	summary.Image = user.Image
	summary.Name = user.Name
	summary.Timestamp = last.CreatedAt.UnixMilli()
	return summary, nil
}

// Hydrate builds the full projection for one message. Returns (nil, nil)
// when the author cannot be resolved; the caller decides whether that
// means "drop from page" or "not found".
func (a *Aggregator) Hydrate(ctx context.Context, msg models.Message) (*MessageView, error) {
	member, user, err := a.author(ctx, msg.MemberID)
	if err != nil {
		return nil, err
	}
	if member == nil || user == nil {
		return nil, nil
	}

	rows, err := a.reactions.ListByMessage(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	summary, err := a.threadSummary(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	view := &MessageView{
		Message:         msg,
		Member:          *member,
		User:            *user,
		Reactions:       GroupReactions(rows),
		ThreadCount:     summary.Count,
		ThreadImage:     summary.Image,
		ThreadName:      summary.Name,
		ThreadTimestamp: summary.Timestamp,
	}

	if msg.Image != nil {
		url, err := a.resolver.ResolveURL(ctx, *msg.Image)
		if err == nil {
			view.ImageURL = &url
		}
		// A dangling file reference degrades to a message without an
		// attachment rather than failing the whole page.
	}

	return view, nil
}

// HydrateList projects a page of messages. Items whose author cannot be
// resolved are dropped from the page, never an error.
func (a *Aggregator) HydrateList(ctx context.Context, msgs []models.Message) ([]MessageView, error) {
	views := make([]MessageView, 0, len(msgs))
	for _, msg := range msgs {
		view, err := a.Hydrate(ctx, msg)
		if err != nil {
			return nil, err
		}
		if view == nil {
			continue
		}
		views = append(views, *view)
	}
	return views, nil
}
