package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/havenlane/estate-iam/internal/usecase"
)

// RecoveryHandler exposes the admin access-recovery flow.
type RecoveryHandler struct {
	recovery *usecase.RecoveryService
}

// NewRecoveryHandler constructs RecoveryHandler.
func NewRecoveryHandler(recovery *usecase.RecoveryService) *RecoveryHandler {
	return &RecoveryHandler{recovery: recovery}
}

// RequestCode godoc
// @Summary Request a recovery code
// @Description Dispatches a one-time code to eligible admin-class accounts. The response never discloses whether the email is eligible.
// @Tags Recovery
// @Accept json
// @Produce json
// @Param request body RecoveryRequestBody true "Recovery request payload"
// @Success 202 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/auth/recovery/request [post]
func (h *RecoveryHandler) RequestCode(c *gin.Context) {
	var req RecoveryRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid recovery payload"))
		return
	}

	if err := h.recovery.RequestCode(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{Message: "if the account is eligible, a code has been sent"})
}

// VerifyCode godoc
// @Summary Exchange a recovery code for a session
// @Description A proven code issues a session and completes admin onboarding or restores dashboard access where needed.
// @Tags Recovery
// @Accept json
// @Produce json
// @Param request body RecoveryVerifyRequest true "Recovery verification payload"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/auth/recovery/verify [post]
func (h *RecoveryHandler) VerifyCode(c *gin.Context) {
	var req RecoveryVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid recovery payload"))
		return
	}

	result, err := h.recovery.VerifyCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:       result.Token,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
		Identity:    newIdentitySummary(&result.Identity),
		Permissions: result.Permissions,
	})
}
