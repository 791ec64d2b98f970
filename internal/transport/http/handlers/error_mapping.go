package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/havenlane/estate-iam/internal/repository"
	"github.com/havenlane/estate-iam/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// commonErrorCases covers the sentinels shared across endpoints. Endpoint
// handlers prepend their own cases before falling through to these.
var commonErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "invalid request"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
	{Err: usecase.ErrAccountSuspended, Status: http.StatusForbidden, Message: "account suspended"},
	{Err: usecase.ErrAccountDeleted, Status: http.StatusForbidden, Message: "account deleted"},
	{Err: usecase.ErrAdminNotOnboarded, Status: http.StatusForbidden, Message: "admin onboarding incomplete"},
	{Err: usecase.ErrAdminNoAccess, Status: http.StatusForbidden, Message: "admin access revoked"},
	{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "insufficient permissions"},
	{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
	{Err: usecase.ErrInvalidCode, Status: http.StatusBadRequest, Message: "invalid or expired code"},
	{Err: usecase.ErrTooManyAttempts, Status: http.StatusTooManyRequests, Message: "too many attempts"},
	{Err: usecase.ErrAlreadySuspended, Status: http.StatusConflict, Message: "account already suspended"},
	{Err: usecase.ErrNoActiveSuspension, Status: http.StatusConflict, Message: "no active suspension"},
	{Err: usecase.ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "identity store unavailable"},
	{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "not found"},
}

// RespondWithMappedError resolves the provided error against the endpoint's
// cases, then the common ones, falling back to a generic 500. A locked
// account additionally gets a Retry-After hint.
func RespondWithMappedError(c *gin.Context, err error, cases ...ErrorCase) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var locked *usecase.LockedError
	if errors.As(err, &locked) {
		seconds := int(math.Ceil(time.Until(locked.RetryAfter).Seconds()))
		if seconds < 0 {
			seconds = 0
		}
		c.Writer.Header().Set("Retry-After", strconv.Itoa(seconds))
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "account temporarily locked"))
		return
	}
	if errors.Is(err, usecase.ErrAccountLocked) {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "account temporarily locked"))
		return
	}

	for _, cs := range append(cases, commonErrorCases...) {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal error"))
}
