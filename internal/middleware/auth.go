package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medhq/hms-core/internal/handler"
	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	"github.com/medhq/hms-core/pkg/auth"
)

// Context keys set by Authenticate.
const (
	ContextUserID = "user_id"
	ContextUser   = "user"
)

type AuthMiddleware struct {
	tokens *auth.TokenService
	users  repository.UserRepository
}

func NewAuthMiddleware(tokens *auth.TokenService, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Authenticate verifies the bearer token and loads the user into the
// request context. Requests without a token proceed unauthenticated;
// the access control middleware decides whether that is acceptable.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		user, err := m.users.Get(c.Request.Context(), claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unknown user"))
			c.Abort()
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("account disabled"))
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user from the context, or nil.
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(ContextUser); ok {
		if u, ok := v.(*model.User); ok {
			return u
		}
	}
	return nil
}

// CurrentUserID returns the authenticated user id, or uuid.Nil.
func CurrentUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
