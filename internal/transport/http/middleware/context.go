package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/infra/logger"
)

const (
	// RequestIDHeader carries the correlation identifier across services.
	RequestIDHeader = "X-Request-ID"
	// IdentityKey is the gin context key holding the resolved identity.
	IdentityKey = "identity"

	requestIDKey = "request_id"
)

// RequestID injects a correlation identifier into the gin context, the
// request context, and the response headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		c.Set(requestIDKey, reqID)
		c.Writer.Header().Set(RequestIDHeader, reqID)

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID retrieves the correlation identifier from the gin context.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(requestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// SetIdentity stores the resolved identity for downstream guards and handlers.
func SetIdentity(c *gin.Context, identity *domain.Identity) {
	c.Set(IdentityKey, identity)
}

// GetIdentity retrieves the resolved identity. A nil identity means the
// request is anonymous: missing, malformed, and orphaned tokens all collapse
// to the same unauthenticated state.
func GetIdentity(c *gin.Context) *domain.Identity {
	raw, exists := c.Get(IdentityKey)
	if !exists {
		return nil
	}

	identity, ok := raw.(*domain.Identity)
	if !ok {
		return nil
	}
	return identity
}
