package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
	"github.com/noah-isme/sma-library-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator verifies access tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if !authenticate(c, validator, header) {
			return
		}
		c.Next()
	}
}

// OptionalJWT attaches claims when a token is sent and lets anonymous
// requests through for the access policy to decide. A malformed or invalid
// token is still rejected.
func OptionalJWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		if !authenticate(c, validator, header) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, validator TokenValidator, header string) bool {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
		return false
	}

	claims, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
	if err != nil {
		response.Error(c, err)
		return false
	}

	c.Set(ContextUserKey, claims)
	return true
}

// Claims returns the verified claims, or nil for anonymous requests.
func Claims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// Actor maps the request's claims onto a policy actor.
func Actor(c *gin.Context) policy.Actor {
	claims := Claims(c)
	if claims == nil {
		return policy.Anonymous()
	}
	return policy.ActorFor(claims.UserID, claims.UserType)
}
