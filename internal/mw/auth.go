package mw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cudorms-backend/internal/apperr"
	"cudorms-backend/internal/auth"
	"cudorms-backend/internal/model"
)

// Authenticator resolves a bearer token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// attaches the resolved user to the context.
func Authenticate(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			apperr.Respond(c, apperr.New(apperr.Unauthenticated, "Access token required"))
			return
		}

		u, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		auth.SetUser(c, u)
		c.Next()
	}
}

// Require aborts with 403 msg unless allow accepts the authenticated user.
func Require(allow func(*model.User) bool, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, _ := auth.CurrentUser(c)
		if !allow(u) {
			apperr.Respond(c, apperr.New(apperr.Forbidden, msg))
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return Require(auth.IsAdmin, "Admin access required")
}

// maxOwnershipBody caps how much of a request body is buffered to find its
// "userId" field.
const maxOwnershipBody int64 = 1 << 20

// RequireOwnershipOrAdmin lets a request through when the user id in the
// :userId route parameter, or else in the body's "userId" field, belongs to
// the caller, or the caller is an admin. The body is left readable.
func RequireOwnershipOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, _ := auth.CurrentUser(c)
		owner := c.Param("userId")
		if owner == "" && c.Request.Body != nil {
			raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxOwnershipBody))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					apperr.Respond(c, apperr.Wrap(apperr.Validation, "Request body too large", err))
					return
				}
				apperr.Respond(c, apperr.Wrap(apperr.Validation, "Request body could not be read", err))
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			var payload struct {
				UserID string `json:"userId"`
			}
			_ = json.Unmarshal(raw, &payload)
			owner = payload.UserID
		}
		if !auth.OwnsOrAdmin(u, owner) {
			apperr.Respond(c, apperr.New(apperr.Forbidden, "Access denied"))
			return
		}
		c.Next()
	}
}
