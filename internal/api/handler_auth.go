package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cudorms-backend/internal/apperr"
	"cudorms-backend/internal/service"
)

// Register handles POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var in service.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Login handles POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var in service.LoginInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.users.Login(c.Request.Context(), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetProfile handles GET /api/auth/profile
func (h *Handler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c).Public()})
}

// UpdateProfile handles PUT /api/auth/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	var in service.ProfileInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

// ChangePassword handles PUT /api/auth/change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	var in service.ChangePasswordInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), currentUser(c), in); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
