// Package apperr defines the error taxonomy shared by every handler.
//
// Two propagation policies coexist on purpose: read endpoints swallow
// these errors and return an empty result, write endpoints surface the
// message verbatim as {"error": "..."} with the mapped HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// Unauthorized covers no session, not-a-member, and insufficient
	// role alike — callers cannot tell which, on purpose.
	ErrUnauthorized = errors.New("Unauthorized")

	ErrWorkspaceNotFound = errors.New("Workspace not found")
	ErrChannelNotFound   = errors.New("Channel not found")
	ErrMessageNotFound   = errors.New("Message not found")
	ErrParentNotFound    = errors.New("Parent message not found")
	ErrMemberNotFound    = errors.New("Member not found")
	ErrFileNotFound      = errors.New("File not found")

	ErrInvalidJoinCode = errors.New("Invalid join code")
	ErrAlreadyMember   = errors.New("Already an active member")
	ErrAdminDelete     = errors.New("Admin cannot be deleted")
	ErrSelfDelete      = errors.New("Cannot delete yourself")
)

// Status maps an error to its HTTP status code. Unknown errors are
// internal failures.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrWorkspaceNotFound),
		errors.Is(err, ErrChannelNotFound),
		errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrParentNotFound),
		errors.Is(err, ErrMemberNotFound),
		errors.Is(err, ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidJoinCode),
		errors.Is(err, ErrAdminDelete),
		errors.Is(err, ErrSelfDelete):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyMember):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsExpected reports whether err belongs to the taxonomy above, i.e. it is
// a client-visible outcome rather than a server fault worth error-logging.
func IsExpected(err error) bool {
	return Status(err) != http.StatusInternalServerError
}
