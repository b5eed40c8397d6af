package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pointstake/internal/auth"
)

const claimsKey = "auth_claims"

// AuthRequired rejects requests without a valid bearer token and stores the
// parsed claims on the context.
func AuthRequired(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			Error(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}
		claims, err := tokens.Parse(strings.TrimSpace(tokenString))
		if err != nil {
			Error(c, http.StatusUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func requestClaims(c *gin.Context) *auth.Claims {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*auth.Claims)
	return claims
}

// AdminOnly gates a route group behind the X-Admin-Key header. An empty
// configured key disables the whole group.
func AdminOnly(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			Error(c, http.StatusForbidden, "admin API disabled", nil)
			c.Abort()
			return
		}
		provided := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) != 1 {
			Error(c, http.StatusForbidden, "invalid admin key", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
