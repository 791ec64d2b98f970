package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: GetRequestID(c),
	}
}

// Authenticate resolves the bearer token into a fresh identity and stores it
// in the context. Missing, malformed, and orphaned tokens all resolve to an
// anonymous request rather than an error; only a storage fault aborts.
func Authenticate(sessions *usecase.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)

		identity, err := sessions.ResolveIdentity(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, usecase.ErrStoreUnavailable) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable,
					newErrorResponse(c, "identity store unavailable"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authentication failed"))
			return
		}

		if identity != nil {
			SetIdentity(c, identity)
		}

		c.Next()
	}
}

// RequireIdentity rejects anonymous requests.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetIdentity(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}
		c.Next()
	}
}

// RequireRole admits only identities whose classified role matches one of the
// allowed roles. Anonymous requests get 401; everything else follows the
// guard's denial reason.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		decision := usecase.GuardRole(identity, time.Now().UTC(), roles...)
		if !decision.Allowed {
			respondDenied(c, decision)
			return
		}

		c.Next()
	}
}

// RequirePermission admits only identities holding the required permission in
// their effective set.
func RequirePermission(required domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		decision := usecase.GuardPermission(identity, time.Now().UTC(), required)
		if !decision.Allowed {
			respondDenied(c, decision)
			return
		}

		c.Next()
	}
}

// respondDenied maps a guard denial onto an HTTP response. Account-state
// reasons keep their specific message; role and permission mismatches share
// the generic one.
func respondDenied(c *gin.Context, decision usecase.Decision) {
	switch decision.Reason {
	case domain.DenyAccountDeleted:
		c.AbortWithStatusJSON(http.StatusForbidden,
			newErrorResponse(c, "account deleted"))
	case domain.DenyAccountSuspended:
		c.AbortWithStatusJSON(http.StatusForbidden,
			newErrorResponse(c, "account suspended"))
	case domain.DenyAccountLocked:
		seconds := int(math.Ceil(time.Until(decision.RetryAfter).Seconds()))
		if seconds < 0 {
			seconds = 0
		}
		c.Writer.Header().Set("Retry-After", strconv.Itoa(seconds))
		c.AbortWithStatusJSON(http.StatusForbidden,
			newErrorResponse(c, "account temporarily locked"))
	default:
		c.AbortWithStatusJSON(http.StatusForbidden,
			newErrorResponse(c, "insufficient permissions"))
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
