package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"greendrake/realty/internal/auth"
	"greendrake/realty/internal/models"
)

const (
	// ContextKeyUserID holds the authenticated user's ObjectID.
	ContextKeyUserID = "userID"
	// ContextKeyRole holds the authenticated user's models.Role.
	ContextKeyRole = "role"
)

// ErrNoUser is returned when a handler expects an authenticated user and there is none.
var ErrNoUser = errors.New("no authenticated user in context")

// Auth validates the Bearer access token and stores the user id and role in the context.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret, auth.TokenTypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		userID, err := claims.ObjectID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyRole, models.Role(claims.Role))
		c.Next()
	}
}

// RequireRole allows the request through only for the listed roles. Auth must run first.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied for role " + string(role)})
	}
}

// GetUserID returns the authenticated user's id.
func GetUserID(c *gin.Context) (primitive.ObjectID, error) {
	v, ok := c.Get(ContextKeyUserID)
	if !ok {
		return primitive.NilObjectID, ErrNoUser
	}
	switch id := v.(type) {
	case primitive.ObjectID:
		return id, nil
	case string:
		return primitive.ObjectIDFromHex(id)
	}
	return primitive.NilObjectID, ErrNoUser
}

// GetRole returns the authenticated user's role, or "" when there is none.
func GetRole(c *gin.Context) models.Role {
	v, _ := c.Get(ContextKeyRole)
	role, _ := v.(models.Role)
	return role
}
