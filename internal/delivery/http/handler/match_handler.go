package handler

import (
	"net/http"

	"github.com/gdugdh24/nearmatch-backend/internal/usecase/matching"
	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	matchingUseCase *matching.MatchingUseCase
}

func NewMatchHandler(matchingUseCase *matching.MatchingUseCase) *MatchHandler {
	return &MatchHandler{
		matchingUseCase: matchingUseCase,
	}
}

// ListMatches handles GET /matches
// @Summary List my matches
// @Tags matches
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20)"
// @Success 200 {array} domain.MatchSummary
// @Router /matches [get]
func (h *MatchHandler) ListMatches(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}

	matches, err := h.matchingUseCase.ListMatches(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// GetMatch handles GET /matches/:id
func (h *MatchHandler) GetMatch(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	match, err := h.matchingUseCase.GetMatch(c.Request.Context(), userID, matchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, match)
}

// Unmatch handles DELETE /matches/:id
// @Summary Unmatch
// @Description Deactivates the match; history is kept
// @Tags matches
// @Security BearerAuth
// @Produce json
// @Param id path string true "Match ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /matches/{id} [delete]
func (h *MatchHandler) Unmatch(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.matchingUseCase.Unmatch(c.Request.Context(), userID, matchID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "unmatched"})
}
