package api

import (
	"github.com/gin-gonic/gin"

	"cudorms-backend/internal/apperr"
	"cudorms-backend/internal/auth"
	"cudorms-backend/internal/cache"
	"cudorms-backend/internal/model"
	"cudorms-backend/internal/service"
	"cudorms-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store store.Store
	cache cache.Cache
	users *service.UserService
	dorms *service.DormService
	blogs *service.BlogService
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, c cache.Cache, tokens *auth.TokenManager) *Handler {
	return &Handler{
		store: s,
		cache: c,
		users: service.NewUserService(s, tokens),
		dorms: service.NewDormService(s),
		blogs: service.NewBlogService(s),
	}
}

// bindJSON decodes the request body into dst and answers 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		apperr.Respond(c, apperr.FromDecode(err))
		return false
	}
	return true
}

// currentUser returns the identity attached by mw.Authenticate.
func currentUser(c *gin.Context) *model.User {
	u, _ := auth.CurrentUser(c)
	return u
}
