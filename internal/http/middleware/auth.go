// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides bearer-token authentication for the REST surface. The
// websocket endpoint authenticates separately (token travels as a query
// parameter, validated after the upgrade), but both paths share the same
// auth.Verifier, so a token valid for one is valid for the other.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/barnir16/PawfectPal-sub000/internal/auth"
)

// Auth returns a middleware that requires a valid "Authorization: Bearer"
// token and stores the authenticated identity in the Gin context under the
// "userID" and "displayName" keys for downstream handlers, the access log,
// and the rate limiter.
func Auth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := verifier.Verify(bearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "invalid or missing bearer token",
			})
			return
		}
		c.Set("userID", claims.UserID)
		c.Set("displayName", claims.DisplayName)
		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header; it returns
// "" when the header is absent or not a Bearer scheme.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
