package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gatherly/backend/internal/auth"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// JWT returns a middleware that validates the bearer token and sets the
// resolved caller identity in the request context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, jwtService)
		if !ok {
			response.Unauthorized(c, "missing or invalid authorization header")
			c.Abort()
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalJWT resolves the caller when a valid bearer token is present and
// leaves the request anonymous otherwise. Used on the public join endpoint
// so authenticated visitors get their entry linked to their account.
func OptionalJWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := bearerClaims(c, jwtService); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context, jwtService *auth.JWTService) (*auth.Claims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}
	claims, err := jwtService.Validate(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserRole, claims.Role)
	c.Set(ContextUserEmail, claims.Email)
}

// CallerFrom returns the resolved caller identity, or false for anonymous
// requests.
func CallerFrom(c *gin.Context) (models.Caller, bool) {
	idVal, ok := c.Get(ContextUserID)
	if !ok {
		return models.Caller{}, false
	}
	id, ok := idVal.(uuid.UUID)
	if !ok {
		return models.Caller{}, false
	}
	roleVal, _ := c.Get(ContextUserRole)
	role, _ := roleVal.(string)
	return models.Caller{ID: id, Role: models.Role(role)}, true
}
