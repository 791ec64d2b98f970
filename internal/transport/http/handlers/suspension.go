package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/transport/http/middleware"
	"github.com/havenlane/estate-iam/internal/usecase"
)

// SuspensionHandler exposes moderation endpoints and the appeal flow.
type SuspensionHandler struct {
	suspensions *usecase.SuspensionService
}

// NewSuspensionHandler constructs SuspensionHandler.
func NewSuspensionHandler(suspensions *usecase.SuspensionService) *SuspensionHandler {
	return &SuspensionHandler{suspensions: suspensions}
}

// Suspend godoc
// @Summary Suspend an identity
// @Description Places the target under a timed or indefinite suspension.
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Identity ID"
// @Param request body SuspendRequest true "Suspension payload"
// @Success 201 {object} SuspensionSummary
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/admin/identities/{id}/suspend [post]
func (h *SuspensionHandler) Suspend(c *gin.Context) {
	actor := middleware.GetIdentity(c)

	var req SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid suspension payload"))
		return
	}

	record, err := h.suspensions.Suspend(
		c.Request.Context(),
		actor,
		c.Param("id"),
		strings.TrimSpace(req.Reason),
		domain.SuspensionDuration(strings.TrimSpace(req.Duration)),
	)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newSuspensionSummary(record))
}

// Lift godoc
// @Summary Lift an active suspension
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Identity ID"
// @Param request body LiftRequest false "Lift payload"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/admin/identities/{id}/lift [post]
func (h *SuspensionHandler) Lift(c *gin.Context) {
	actor := middleware.GetIdentity(c)

	var req LiftRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid lift payload"))
		return
	}

	if err := h.suspensions.Lift(c.Request.Context(), actor, c.Param("id"), strings.TrimSpace(req.Reason)); err != nil {
		RespondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "suspension lifted"})
}

// History godoc
// @Summary Suspension history of an identity
// @Tags Admin
// @Produce json
// @Param id path string true "Identity ID"
// @Success 200 {object} SuspensionHistoryResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/admin/identities/{id}/suspensions [get]
func (h *SuspensionHandler) History(c *gin.Context) {
	actor := middleware.GetIdentity(c)

	records, err := h.suspensions.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	history := make([]SuspensionSummary, 0, len(records))
	for i := range records {
		history = append(history, newSuspensionSummary(&records[i]))
	}

	c.JSON(http.StatusOK, SuspensionHistoryResponse{History: history})
}

// Appeal godoc
// @Summary Appeal the caller's active suspension
// @Description A suspended identity files an appeal against its active suspension. The appeal is recorded; it does not lift anything.
// @Tags Identity
// @Accept json
// @Produce json
// @Param request body AppealRequest true "Appeal payload"
// @Success 201 {object} SuspensionSummary
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/appeals [post]
func (h *SuspensionHandler) Appeal(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req AppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid appeal payload"))
		return
	}

	record, err := h.suspensions.Appeal(c.Request.Context(), identity, strings.TrimSpace(req.Reason))
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newSuspensionSummary(record))
}
