package handler

import (
	"net/http"

	"github.com/gdugdh24/nearmatch-backend/internal/usecase/matching"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SwipeHandler struct {
	matchingUseCase *matching.MatchingUseCase
}

func NewSwipeHandler(matchingUseCase *matching.MatchingUseCase) *SwipeHandler {
	return &SwipeHandler{
		matchingUseCase: matchingUseCase,
	}
}

// bindTarget reads the swipe body and returns the caller and target ids.
func bindTarget(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	var req matching.SwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "targetUserId must be a valid id")
		return uuid.Nil, uuid.Nil, false
	}
	targetID, err := uuid.Parse(req.TargetUserID)
	if err != nil {
		badRequest(c, "targetUserId must be a valid id")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, targetID, true
}

// Like handles POST /swipe/like
// @Summary Like a user
// @Description Records a like and creates a match when it is mutual
// @Tags swipe
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body matching.SwipeRequest true "Target"
// @Success 200 {object} matching.LikeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /swipe/like [post]
func (h *SwipeHandler) Like(c *gin.Context) {
	userID, targetID, ok := bindTarget(c)
	if !ok {
		return
	}

	resp, err := h.matchingUseCase.Like(c.Request.Context(), userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SuperLike handles POST /swipe/superlike
func (h *SwipeHandler) SuperLike(c *gin.Context) {
	userID, targetID, ok := bindTarget(c)
	if !ok {
		return
	}

	resp, err := h.matchingUseCase.SuperLike(c.Request.Context(), userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Dislike handles POST /swipe/dislike
func (h *SwipeHandler) Dislike(c *gin.Context) {
	userID, targetID, ok := bindTarget(c)
	if !ok {
		return
	}

	if err := h.matchingUseCase.Dislike(c.Request.Context(), userID, targetID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "user passed"})
}
