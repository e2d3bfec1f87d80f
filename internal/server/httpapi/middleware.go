package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", s.config.CORSOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header, accepting
// both "Bearer <token>" and a bare token.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	if token, found := strings.CutPrefix(h, "Bearer "); found {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(h)
}

// requireAuth resolves the bearer token and aborts with 401 when it does
// not map to a session. The username is stored on the request context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := s.auth.Resolve(c.Request.Context(), bearerToken(c))
		if username == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		c.Set(principalKey, username)
		c.Next()
	}
}

// optionalAuth resolves the bearer token when present but lets anonymous
// requests through. Handlers decide whether a principal is required.
func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if username := s.auth.Resolve(c.Request.Context(), bearerToken(c)); username != "" {
			c.Set(principalKey, username)
		}
		c.Next()
	}
}

func principal(c *gin.Context) string {
	return c.GetString(principalKey)
}
