package auth

import (
	"github.com/gin-gonic/gin"

	"cudorms-backend/internal/model"
)

const userKey = "auth.user"

// SetUser attaches the authenticated user to the request context.
func SetUser(c *gin.Context, u *model.User) {
	c.Set(userKey, u)
}

// CurrentUser returns the user attached by the authentication middleware.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*model.User)
	return u, ok && u != nil
}

func IsAdmin(u *model.User) bool {
	return u != nil && u.IsAdmin()
}

// OwnsOrAdmin reports whether u may act on a resource owned by ownerID.
func OwnsOrAdmin(u *model.User, ownerID string) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin() || (ownerID != "" && u.ID == ownerID)
}
