package middleware

import (
	"context"
	"errors"
	"strings"

	"Lens_Community/internal/model"
	apierrors "Lens_Community/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey = "user_id"
	ContextUserKey   = "user"
	ContextTokenKey  = "session_token"
)

// SessionValidator resolves a session token to its user.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*model.User, error)
}

// TokenFromRequest 先取 cookie，再取 Authorization: Bearer
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// AuthMiddleware rejects requests without a valid session.
func AuthMiddleware(v SessionValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			abortWith(c, apierrors.ErrAuthenticationRequired)
			return
		}
		user, err := v.Validate(c.Request.Context(), token)
		if err != nil {
			abortWith(c, err)
			return
		}
		setUser(c, user, token)
		c.Next()
	}
}

// OptionalAuth 有合法会话时注入用户，否则按匿名访问继续
func OptionalAuth(v SessionValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := TokenFromRequest(c, cookieName); token != "" {
			if user, err := v.Validate(c.Request.Context(), token); err == nil {
				setUser(c, user, token)
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortWith(c, apierrors.ErrAuthenticationRequired)
			return
		}
		if !user.Role.IsAdmin() {
			abortWith(c, apierrors.Forbidden("admin access required"))
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*model.User)
	return u, ok
}

func setUser(c *gin.Context, user *model.User, token string) {
	c.Set(ContextUserIDKey, user.ID)
	c.Set(ContextUserKey, user)
	c.Set(ContextTokenKey, token)
}

func abortWith(c *gin.Context, err error) {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		_ = c.Error(err)
		apiErr = apierrors.ErrInternal
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, gin.H{"error": apiErr.Message, "code": apiErr.Code})
}
