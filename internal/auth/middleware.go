package auth

import (
	"errors"
	"net/http"
	"strings"

	"shapeup/internal/api"

	"github.com/gin-gonic/gin"
)

const (
	ctxMemberID = "member_id"
	ctxRole     = "user_role"
)

func AuthMiddleware(accessTokenSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
			abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "Token is empty")
			return
		}

		claims, err := ValidateToken(tokenString, accessTokenSecret)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				abort(c, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, ErrMissingSubject):
				abort(c, http.StatusUnauthorized, "Token has no subject")
			default:
				abort(c, http.StatusUnauthorized, "Invalid or malformed token")
			}
			return
		}

		if claims.TokenType != "access" {
			abort(c, http.StatusUnauthorized, "Access token required")
			return
		}

		c.Set(ctxMemberID, claims.MemberID())
		c.Set(ctxRole, claims.Role)

		c.Next()
	}
}

func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxRole)
		if !exists {
			abort(c, http.StatusUnauthorized, "User role not found")
			return
		}

		roleStr, ok := role.(string)
		if !ok {
			abort(c, http.StatusUnauthorized, "Invalid role type")
			return
		}

		if roleStr != requiredRole {
			abort(c, http.StatusForbidden, "Insufficient permissions")
			return
		}

		c.Next()
	}
}

func GetMemberID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxMemberID)
	if !exists {
		return "", false
	}

	id, ok := v.(string)
	if !ok || id == "" {
		return "", false
	}

	return id, true
}

func IsAdmin(c *gin.Context) bool {
	role, _ := c.Get(ctxRole)
	r, _ := role.(string)
	return r == RoleAdmin
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, api.ErrorResponse{Error: msg})
}
