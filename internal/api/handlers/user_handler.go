package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/realty/internal/models"
	"greendrake/realty/internal/services"
)

// UserHandler serves the signed-in user's profile, password, wishlist and saved searches.
type UserHandler struct {
	userService services.IUserService
}

func NewUserHandler(userService services.IUserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type updateProfileRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email" binding:"omitempty,email"`
	PhoneNumber *string `json:"phoneNumber"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type savedSearchRequest struct {
	Name  string            `json:"name" binding:"required"`
	Query map[string]string `json:"query"`
}

// GetProfile handles GET /users/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /users/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, services.ProfileUpdate{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword handles PUT /users/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	if err := h.userService.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// ListSavedHomes handles GET /users/saved-homes and GET /properties/wishlist
func (h *UserHandler) ListSavedHomes(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	homes, err := h.userService.ListSavedHomes(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	if homes == nil {
		homes = []models.Property{}
	}
	c.JSON(http.StatusOK, homes)
}

// AddSavedHome handles POST /properties/:id/wishlist
func (h *UserHandler) AddSavedHome(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	propertyID, ok := paramObjectID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.AddSavedHome(c.Request.Context(), userID, propertyID); err != nil {
		respondError(c, err, "Property")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property saved"})
}

// RemoveSavedHome handles DELETE /properties/:id/wishlist
func (h *UserHandler) RemoveSavedHome(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	propertyID, ok := paramObjectID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.RemoveSavedHome(c.Request.Context(), userID, propertyID); err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property removed"})
}

// ListSavedSearches handles GET /users/saved-searches
func (h *UserHandler) ListSavedSearches(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	searches, err := h.userService.ListSavedSearches(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	if searches == nil {
		searches = []models.SavedSearch{}
	}
	c.JSON(http.StatusOK, searches)
}

// AddSavedSearch handles POST /users/saved-searches
func (h *UserHandler) AddSavedSearch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req savedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	search, err := h.userService.AddSavedSearch(c.Request.Context(), userID, req.Name, req.Query)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusCreated, search)
}

// RemoveSavedSearch handles DELETE /users/saved-searches/:searchId
func (h *UserHandler) RemoveSavedSearch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	searchID, ok := paramObjectID(c, "searchId")
	if !ok {
		return
	}
	if err := h.userService.RemoveSavedSearch(c.Request.Context(), userID, searchID); err != nil {
		respondError(c, err, "Saved search")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Saved search removed"})
}

// GetPublicProfile handles GET /users/:id/public. Only agents have a public card.
func (h *UserHandler) GetPublicProfile(c *gin.Context) {
	userID, ok := paramObjectID(c, "id")
	if !ok {
		return
	}
	card, err := h.userService.FindAgentCard(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Agent")
		return
	}
	c.JSON(http.StatusOK, card)
}
