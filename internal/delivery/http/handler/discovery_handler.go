package handler

import (
	"net/http"

	"github.com/gdugdh24/nearmatch-backend/internal/usecase/discovery"
	"github.com/gin-gonic/gin"
)

type DiscoveryHandler struct {
	discoveryUseCase *discovery.DiscoveryUseCase
}

func NewDiscoveryHandler(discoveryUseCase *discovery.DiscoveryUseCase) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryUseCase: discoveryUseCase,
	}
}

// Discover handles GET /discover
// @Summary Discover nearby users
// @Description Paginated candidates sorted by distance
// @Tags discovery
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param maxDistance query number false "Radius in km (default 50)"
// @Success 200 {object} discovery.DiscoverResponse
// @Failure 400 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse
// @Router /discover [get]
func (h *DiscoveryHandler) Discover(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req discovery.DiscoverRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}
	req.Normalize()

	resp, err := h.discoveryUseCase.FindCandidates(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
