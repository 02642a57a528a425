package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	sysutils "printfleet-system/internal/utils"
)

const claimsKey = "claims"

func extractBearer(c *gin.Context) string {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

// JWTAuth rejects requests without a valid bearer token and stores the claims on the context.
func JWTAuth(tokens *sysutils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		claims, err := tokens.ParseToken(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAccess must run after JWTAuth.
func RequireAccess(level int32) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if claims.AccessLevel < level {
			abort(c, http.StatusForbidden, "Insufficient access level")
			return
		}
		c.Next()
	}
}

func Claims(c *gin.Context) (*sysutils.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*sysutils.Claims)
	return claims, ok
}

// Actor is the username recorded on audit fields, falling back to fallback when unauthenticated.
func Actor(c *gin.Context, fallback string) string {
	if claims, ok := Claims(c); ok && claims.Username != "" {
		return claims.Username
	}
	return fallback
}
