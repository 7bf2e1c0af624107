package handler

import (
	"net/http"
	"strconv"

	"github.com/gdugdh24/nearmatch-backend/internal/usecase/profile"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileUseCase *profile.ProfileUseCase
}

func NewProfileHandler(profileUseCase *profile.ProfileUseCase) *ProfileHandler {
	return &ProfileHandler{
		profileUseCase: profileUseCase,
	}
}

// GetMyProfile handles GET /profile/me
// @Summary Get my profile
// @Description Get current user's profile
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} profile.MeResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /profile/me [get]
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	me, err := h.profileUseCase.GetMe(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, me)
}

// UpdateMyProfile handles PUT /profile/me
// @Summary Update my profile
// @Tags profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body profile.UpdateProfileRequest true "Profile update data"
// @Success 200 {object} profile.MeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /profile/me [put]
func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req profile.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	me, err := h.profileUseCase.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, me)
}

// UpdateLocation handles PUT /profile/me/location
// @Summary Update my location
// @Tags profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body profile.UpdateLocationRequest true "Coordinates"
// @Success 200 {object} profile.MeResponse
// @Failure 400 {object} ErrorResponse
// @Router /profile/me/location [put]
func (h *ProfileHandler) UpdateLocation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req profile.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "lat and lon are required")
		return
	}

	me, err := h.profileUseCase.UpdateLocation(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, me)
}

// AddPhoto handles POST /profile/me/photos
func (h *ProfileHandler) AddPhoto(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req profile.AddPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "url is required")
		return
	}

	me, err := h.profileUseCase.AddPhoto(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, me)
}

// RemovePhoto handles DELETE /profile/me/photos/:index
func (h *ProfileHandler) RemovePhoto(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "invalid index")
		return
	}

	me, err := h.profileUseCase.RemovePhoto(c.Request.Context(), userID, index)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, me)
}

// GetProfile handles GET /profile/:id
// @Summary Get user profile
// @Description Get another user's public profile with distance
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} domain.ProfileSummary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /profile/{id} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	summary, err := h.profileUseCase.GetProfile(c.Request.Context(), userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ListBlocked handles GET /blocks
func (h *ProfileHandler) ListBlocked(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	blocked, err := h.profileUseCase.ListBlocked(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": blocked})
}

// Block handles POST /blocks/:id
func (h *ProfileHandler) Block(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.profileUseCase.Block(c.Request.Context(), userID, targetID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "user blocked"})
}

// Unblock handles DELETE /blocks/:id
func (h *ProfileHandler) Unblock(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.profileUseCase.Unblock(c.Request.Context(), userID, targetID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "user unblocked"})
}
