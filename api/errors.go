package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homeflow/auth"
	"homeflow/conversation"
	"homeflow/deal"
	"homeflow/property"
	"homeflow/social"
	"homeflow/tour"
	"homeflow/verification"
)

// writeError maps domain errors onto HTTP statuses with a {error, detail}
// JSON body.
func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": codeFor(err), "detail": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, conversation.ErrNotFound),
		errors.Is(err, deal.ErrNotFound),
		errors.Is(err, tour.ErrNotFound),
		errors.Is(err, verification.ErrNotFound),
		errors.Is(err, social.ErrNotFound),
		errors.Is(err, property.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, deal.ErrInvalidState),
		errors.Is(err, tour.ErrInvalidState),
		errors.Is(err, verification.ErrInvalidState),
		errors.Is(err, verification.ErrAlreadyPending),
		errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, conversation.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, verification.ErrOutOfRange),
		errors.Is(err, verification.ErrMissingEvidence),
		errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, conversation.ErrInvalidContent),
		errors.Is(err, conversation.ErrSameParticipant),
		errors.Is(err, deal.ErrNoProperty),
		errors.Is(err, tour.ErrNoTimes),
		errors.Is(err, tour.ErrPastTime),
		errors.Is(err, tour.ErrBadSlot),
		errors.Is(err, social.ErrSelfFollow),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error) string {
	switch statusFor(err) {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "invalid_state"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusUnprocessableEntity:
		return "invalid_request"
	default:
		return "server_error"
	}
}
