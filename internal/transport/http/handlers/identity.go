package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/havenlane/estate-iam/internal/transport/http/middleware"
	"github.com/havenlane/estate-iam/internal/usecase"
)

// IdentityHandler exposes the caller's own profile and admin identity views.
type IdentityHandler struct {
	identities *usecase.IdentityService
}

// NewIdentityHandler constructs IdentityHandler.
func NewIdentityHandler(identities *usecase.IdentityService) *IdentityHandler {
	return &IdentityHandler{identities: identities}
}

// Me godoc
// @Summary Current identity profile
// @Description Returns the fresh identity resolved from the session token.
// @Tags Identity
// @Produce json
// @Success 200 {object} IdentitySummary
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/me [get]
func (h *IdentityHandler) Me(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, newIdentitySummary(identity))
}

// List godoc
// @Summary List identities
// @Description Pages through identities, optionally filtered by role or suspension flag.
// @Tags Admin
// @Produce json
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size (max 100)"
// @Param role query string false "Filter by canonical role"
// @Param suspended query bool false "Filter by suspension flag"
// @Success 200 {object} ListIdentitiesResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/admin/identities [get]
func (h *IdentityHandler) List(c *gin.Context) {
	actor := middleware.GetIdentity(c)

	input := usecase.ListIdentitiesInput{
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "page_size", 0),
		Role:    strings.TrimSpace(c.Query("role")),
	}

	if raw := c.Query("suspended"); raw != "" {
		suspended := strings.EqualFold(raw, "true") || raw == "1"
		input.Suspended = &suspended
	}

	identities, total, err := h.identities.List(c.Request.Context(), actor, input)
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	summaries := make([]IdentitySummary, 0, len(identities))
	for i := range identities {
		summaries = append(summaries, newIdentitySummary(&identities[i]))
	}

	c.JSON(http.StatusOK, ListIdentitiesResponse{
		Identities: summaries,
		Total:      total,
		Page:       input.Page,
		PageSize:   len(summaries),
	})
}

// Get godoc
// @Summary Fetch a single identity
// @Tags Admin
// @Produce json
// @Param id path string true "Identity ID"
// @Success 200 {object} IdentitySummary
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/admin/identities/{id} [get]
func (h *IdentityHandler) Get(c *gin.Context) {
	actor := middleware.GetIdentity(c)

	identity, err := h.identities.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusOK, newIdentitySummary(identity))
}

// Delete godoc
// @Summary Soft-delete an identity
// @Description Marks the identity deleted; the row is retained for audit. Self-deletion through this endpoint is refused.
// @Tags Admin
// @Produce json
// @Param id path string true "Identity ID"
// @Success 204 {string} string ""
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/admin/identities/{id} [delete]
func (h *IdentityHandler) Delete(c *gin.Context) {
	actor := middleware.GetIdentity(c)

	if err := h.identities.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		RespondWithMappedError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
