package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with the request ID for
// correlation.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: middleware.GetRequestID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AgentSummary describes the agent extension of an identity.
type AgentSummary struct {
	Agency        string  `json:"agency"`
	LicenseNumber *string `json:"license_number,omitempty"`
	Verified      bool    `json:"verified"`
}

// AdminSummary describes the dashboard sub-state of an elevated identity.
type AdminSummary struct {
	IsActivated bool               `json:"is_activated"`
	Access      domain.AdminAccess `json:"access"`
}

// IdentitySummary is the minimal identity view returned by the API. Password
// hashes and lockout counters never appear here.
type IdentitySummary struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	Role      domain.Role   `json:"role"`
	Verified  bool          `json:"verified"`
	Suspended bool          `json:"suspended"`
	CreatedAt time.Time     `json:"created_at"`
	Agent     *AgentSummary `json:"agent,omitempty"`
	Admin     *AdminSummary `json:"admin,omitempty"`
}

func newIdentitySummary(identity *domain.Identity) IdentitySummary {
	if identity == nil {
		return IdentitySummary{}
	}

	summary := IdentitySummary{
		ID:        identity.ID,
		Email:     identity.Email,
		Role:      domain.ClassifyRole(string(identity.Role)),
		Verified:  identity.Verified,
		Suspended: identity.Suspended,
		CreatedAt: identity.CreatedAt,
	}

	if agent := identity.Agent; agent != nil {
		summary.Agent = &AgentSummary{
			Agency:        agent.Agency,
			LicenseNumber: agent.LicenseNumber,
			Verified:      agent.Verified,
		}
	}

	if admin := identity.Admin; admin != nil {
		summary.Admin = &AdminSummary{
			IsActivated: admin.IsActivated,
			Access:      admin.Access,
		}
	}

	return summary
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required"`
	Role          string `json:"role" binding:"required"`
	Agency        string `json:"agency"`
	LicenseNumber string `json:"license_number"`
}

// RegisterResponse contains registration results and next steps.
type RegisterResponse struct {
	Identity IdentitySummary `json:"identity"`
	Message  string          `json:"message"`
}

// VerifyEmailRequest holds the email verification payload.
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	Token       string              `json:"token"`
	TokenType   string              `json:"token_type"`
	ExpiresAt   time.Time           `json:"expires_at"`
	Identity    IdentitySummary     `json:"identity"`
	Permissions []domain.Permission `json:"permissions,omitempty"`
}

// RecoveryRequestBody asks for a recovery code to be dispatched.
type RecoveryRequestBody struct {
	Email string `json:"email" binding:"required"`
}

// RecoveryVerifyRequest exchanges a recovery code for a session.
type RecoveryVerifyRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// SuspendRequest defines the payload to suspend an identity.
type SuspendRequest struct {
	Reason   string `json:"reason" binding:"required"`
	Duration string `json:"duration" binding:"required"`
}

// LiftRequest defines the payload to lift an active suspension.
type LiftRequest struct {
	Reason string `json:"reason"`
}

// AppealRequest defines the payload for a suspension appeal.
type AppealRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// SuspensionSummary is the API view of a suspension history entry.
type SuspensionSummary struct {
	ID         string     `json:"id"`
	IdentityID string     `json:"identity_id"`
	Action     string     `json:"action"`
	Actor      string     `json:"actor"`
	Reason     string     `json:"reason"`
	Duration   string     `json:"duration,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
}

func newSuspensionSummary(record *domain.SuspensionRecord) SuspensionSummary {
	if record == nil {
		return SuspensionSummary{}
	}

	return SuspensionSummary{
		ID:         record.ID,
		IdentityID: record.IdentityID,
		Action:     string(record.Action),
		Actor:      record.Actor,
		Reason:     record.Reason,
		Duration:   string(record.Duration),
		ExpiresAt:  record.ExpiresAt,
		Active:     record.Active,
		CreatedAt:  record.CreatedAt,
	}
}

// ListIdentitiesResponse pages through identities for admin views.
type ListIdentitiesResponse struct {
	Identities []IdentitySummary `json:"identities"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}

// SuspensionHistoryResponse lists an identity's suspension history.
type SuspensionHistoryResponse struct {
	History []SuspensionSummary `json:"history"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
