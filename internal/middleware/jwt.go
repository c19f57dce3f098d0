package middleware

import (
	"context"  // Request context
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"tap_system/internal/domain" // Domain models
	"tap_system/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

// Context keys set by the auth middleware
const (
	UserIDKey      = "userID"      // Authenticated user ID
	CurrentUserKey = "currentUser" // *domain.User acting on the request
)

// UserLoader resolves the user behind a request
type UserLoader interface {
	FindUser(ctx context.Context, id uint) (*domain.User, error)
	Guest(ctx context.Context) (*domain.User, error)
}

// bearerToken extracts the token from the Authorization header
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization") // Get Authorization header
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true
}

// JWTAuthMiddleware validates JWT tokens and loads the authenticated user
func JWTAuthMiddleware(secret string, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		if !authenticate(c, tokenStr, secret, users) {
			return // Response already written
		}
		c.Next() // Proceed to the next handler
	}
}

// CurrentUserMiddleware authenticates when a token is present and falls back to the guest user otherwise
func CurrentUserMiddleware(secret string, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, ok := bearerToken(c); ok {
			if authenticate(c, tokenStr, secret, users) {
				c.Next()
			}
			return
		}
		guest, err := users.Guest(c.Request.Context()) // Idempotent get-or-create
		if err != nil {
			logrus.WithError(err).Error("Failed to load guest user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
			return
		}
		c.Set(CurrentUserKey, guest)
		c.Next()
	}
}

// authenticate parses the token and stores the user in the context, aborting on failure
func authenticate(c *gin.Context, tokenStr, secret string, users UserLoader) bool {
	claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return false
	}
	user, err := users.FindUser(c.Request.Context(), claims.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Token of a deleted user
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return false
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": claims.UserID, "error": err.Error()}).Error("Failed to load user")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return false
	}
	c.Set(UserIDKey, user.ID)   // Store userID in context
	c.Set(CurrentUserKey, user) // Store the user in context
	return true
}

// CurrentUser returns the user set by the auth middleware
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

// RequireAuthenticated rejects requests acting as the guest user
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || user.IsGuest() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
