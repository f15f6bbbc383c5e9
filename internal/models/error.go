package models

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Session and role errors
	ErrSessionExchange = errors.New("session processing failed")
	ErrInvalidRole     = errors.New("invalid role")
	ErrRoleRequired    = errors.New("role required")

	// Domain errors
	ErrAlreadyFavorited        = errors.New("item already favorited")
	ErrUnsupportedItemType     = errors.New("unsupported item type")
	ErrAppointmentNotCompleted = errors.New("appointment not completed yet")
	ErrAlreadyReviewed         = errors.New("appointment already reviewed")
	ErrChatRoomClosed          = errors.New("chat room is closed")
	ErrNotForumMember          = errors.New("forum membership required")
	ErrSpecialtyMismatch       = errors.New("specialties do not match the forum category")
	ErrAdvisorUnavailable      = errors.New("treatment advisor unavailable")
)

// ForbiddenError reports which roles would have allowed the call.
// It matches ErrForbidden under errors.Is.
type ForbiddenError struct {
	Required []Role
}

func (e *ForbiddenError) Error() string {
	names := make([]string, len(e.Required))
	for i, r := range e.Required {
		names[i] = string(r)
	}
	return "requires " + strings.Join(names, " or ") + " role"
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}
