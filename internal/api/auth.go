package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"regexp"   // Regular expressions
	"strings"  // String manipulation
	"time"     // Token timestamps

	"tap_system/internal/domain" // Importing domain models
	"tap_system/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// RegisterRequest is the body of a registration
type RegisterRequest struct {
	Nickname             string `json:"nickname" binding:"required"`              // Nickname must be provided
	Name                 string `json:"name" binding:"required"`                  // First name must be provided
	LastName             string `json:"last_name" binding:"required"`             // Last name must be provided
	Password             string `json:"password" binding:"required"`              // Password must be provided
	PasswordConfirmation string `json:"password_confirmation" binding:"required"` // Confirmation must be provided
}

// LoginRequest is the body of a login
type LoginRequest struct {
	Nickname string `json:"nickname" binding:"required"` // Nickname must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// AuthResponse carries a session token
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

// nicknamePattern restricts nicknames to URL safe characters
var nicknamePattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)

// RegisterHandler creates a user account
func RegisterHandler(users UserStore, cache ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		nickname := strings.ToLower(strings.TrimSpace(req.Nickname)) // Nicknames are case insensitive
		if !nicknamePattern.MatchString(nickname) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Nickname may only contain letters, digits, '.', '_' and '-'"})
			return
		}
		if nickname == domain.GuestNickname || nickname == domain.KoelkastNickname {
			respondError(c, domain.ErrNicknameTaken) // Reserved for the presets
			return
		}
		user := domain.User{
			Nickname: nickname,
			Name:     strings.TrimSpace(req.Name),
			LastName: strings.TrimSpace(req.LastName),
		}
		if err := user.Validate(); err != nil {
			respondError(c, err)
			return
		}
		if err := user.SetPassword(req.Password, req.PasswordConfirmation); err != nil {
			respondError(c, err)
			return
		}
		if err := users.CreateUser(c.Request.Context(), &user); err != nil {
			respondError(c, err)
			return
		}
		invalidateUserListings(c.Request.Context(), cache)
		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,       // User ID
			"nickname": user.Nickname, // Nickname
		}).Info("User registered")
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(users UserStore, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := users.FindUserByNickname(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Nickname)))
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			respondError(c, err)
			return
		}
		// Presets have no password and never match
		if err != nil || !user.CheckPassword(req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid nickname or password"})
			return
		}
		token, err := utils.GenerateJWT(user.ID, user.Nickname, jwtSecret, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}
