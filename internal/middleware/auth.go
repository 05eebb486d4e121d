package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"santiye/internal/docstore"
	jwtsvc "santiye/internal/pkg/jwt"
	"santiye/internal/pkg/response"
)

// AuthContext builds the store-level caller identity from the validated
// request context.
func AuthContext(c *gin.Context) docstore.AuthContext {
	return docstore.AuthContext{
		UserID: c.GetString("user_id"),
		Role:   c.GetString("role"),
	}
}

// Auth validates the Bearer token and exposes the caller's identity in
// the request context under user_id / email / role.
func Auth(jwt *jwtsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing Authorization header")
			c.Abort()
			return
		}
		if !strings.HasPrefix(h, "Bearer ") {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid Authorization header")
			c.Abort()
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		if tokenStr == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Empty token")
			c.Abort()
			return
		}

		claims, err := jwt.ValidateToken(tokenStr)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		c.Next()
	}
}
