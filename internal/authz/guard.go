// Package authz is the membership guard: it resolves the authenticated
// principal to a workspace member row and enforces the role checks every
// mutation runs before touching data.
package authz

import (
	"context"

	"github.com/google/uuid"

	"huddle/internal/apperr"
	"huddle/internal/models"
	"huddle/internal/repository"
)

type Guard struct {
	members repository.MemberRepository
}

func NewGuard(members repository.MemberRepository) *Guard {
	return &Guard{members: members}
}

// Member is the soft lookup used by read paths: (nil, nil) when the
// principal is unauthenticated or holds no membership, so callers can
// render an empty result instead of an error.
func (g *Guard) Member(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Member, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	return g.members.Get(ctx, workspaceID, userID)
}

// RequireMember is the hard variant used by write paths: a missing
// membership is an authorization error.
func (g *Guard) RequireMember(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Member, error) {
	member, err := g.Member(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperr.ErrUnauthorized
	}
	return member, nil
}

// RequireAdmin guards administrative mutations. A non-admin member fails
// with the same error as a non-member — callers cannot probe whether a
// workspace exists or who belongs to it.
func (g *Guard) RequireAdmin(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Member, error) {
	member, err := g.RequireMember(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role != models.RoleAdmin {
		return nil, apperr.ErrUnauthorized
	}
	return member, nil
}
