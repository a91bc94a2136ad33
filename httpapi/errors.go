package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gigflow/application"
	"gigflow/auth"
	"gigflow/conversation"
	"gigflow/job"
	"gigflow/profile"
	"gigflow/review"
)

// Stable machine-checkable error kinds exposed at the API boundary.
const (
	kindAccessDenied         = "ACCESS_DENIED"
	kindNotFound             = "NOT_FOUND"
	kindInvalidStatus        = "INVALID_STATUS"
	kindInvalidState         = "INVALID_STATE"
	kindAlreadyReviewed      = "ALREADY_REVIEWED"
	kindClosureNotConfirmed  = "CLOSURE_NOT_CONFIRMED"
	kindConversationLocked   = "CONVERSATION_LOCKED"
	kindDuplicateApplication = "DUPLICATE_APPLICATION"
	kindDuplicateEmail       = "DUPLICATE_EMAIL"
	kindInvalidCredentials   = "INVALID_CREDENTIALS"
	kindValidation           = "VALIDATION"
	kindInternal             = "INTERNAL"
)

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

// writeError turns a domain error into the client-facing envelope. Business
// rule violations keep their message; anything unexpected becomes a generic
// server error so internals do not leak.
func writeError(c *gin.Context, log zerolog.Logger, err error) {
	status, kind := classify(err)

	msg := err.Error()
	if kind == kindInternal {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "internal server error"
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: apiError{Kind: kind, Message: msg}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrNotFound),
		errors.Is(err, job.ErrNotFound),
		errors.Is(err, conversation.ErrNotFound),
		errors.Is(err, review.ErrNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, application.ErrAccessDenied),
		errors.Is(err, conversation.ErrAccessDenied),
		errors.Is(err, review.ErrAccessDenied),
		errors.Is(err, job.ErrNotOwner):
		return http.StatusForbidden, kindAccessDenied
	case errors.Is(err, application.ErrInvalidStatus):
		return http.StatusBadRequest, kindInvalidStatus
	case errors.Is(err, application.ErrInvalidState):
		return http.StatusConflict, kindInvalidState
	case errors.Is(err, application.ErrDuplicateApplication):
		return http.StatusConflict, kindDuplicateApplication
	case errors.Is(err, review.ErrAlreadyReviewed):
		return http.StatusConflict, kindAlreadyReviewed
	case errors.Is(err, review.ErrClosureNotConfirmed):
		return http.StatusConflict, kindClosureNotConfirmed
	case errors.Is(err, conversation.ErrLocked):
		return http.StatusConflict, kindConversationLocked
	case errors.Is(err, review.ErrInvalidRating),
		errors.Is(err, review.ErrCommentRequired),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, kindValidation
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusConflict, kindDuplicateEmail
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, kindInvalidCredentials
	default:
		return http.StatusInternalServerError, kindInternal
	}
}

func writeValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error: apiError{Kind: kindValidation, Message: err.Error()},
	})
}
