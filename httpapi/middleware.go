package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gigflow/auth"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// TokenVerifier validates a bearer token and yields the authenticated user.
type TokenVerifier interface {
	VerifyToken(token string) (string, auth.Role, error)
}

// requireAuth extracts and verifies the bearer token, storing the caller's
// identity on the request context. The core never checks credentials beyond
// this point, only ownership.
func requireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Error: apiError{Kind: kindInvalidCredentials, Message: "missing bearer token"},
			})
			return
		}

		userID, role, err := verifier.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Error: apiError{Kind: kindInvalidCredentials, Message: "invalid token"},
			})
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// requireRole limits a route to one role.
func requireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if callerRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{
				Error: apiError{Kind: kindAccessDenied, Message: "role not permitted"},
			})
			return
		}
		c.Next()
	}
}

func callerID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func callerRole(c *gin.Context) auth.Role {
	if v, ok := c.Get(ctxRole); ok {
		if role, ok := v.(auth.Role); ok {
			return role
		}
	}
	return ""
}
