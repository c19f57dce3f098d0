package api

import (
	"context"  // Request context
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Cache TTLs

	"tap_system/internal/domain"     // Importing domain models
	"tap_system/internal/middleware" // Current user helpers
	"tap_system/internal/store"      // User queries

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// UserStore is the user persistence used by the handlers
type UserStore interface {
	FindUser(ctx context.Context, id uint) (*domain.User, error)
	FindUserByNickname(ctx context.Context, nickname string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateProfile(ctx context.Context, userID uint, changes map[string]any) (*domain.User, error)
	ListUsers(ctx context.Context, q store.UserQuery) ([]domain.User, int64, error)
	Guest(ctx context.Context) (*domain.User, error)
}

// ProductStore is the catalog persistence used by the handlers
type ProductStore interface {
	FindProduct(ctx context.Context, id uint) (*domain.Product, error)
	ProductsForSale(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
}

// OrderPlacer places and charges orders
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID, productID uint, count int) (*domain.Order, error)
	Quickpay(ctx context.Context, user *domain.User) (*domain.Order, error)
}

// Payer changes local balances
type Payer interface {
	Pay(ctx context.Context, userID uint, amount int64) (*domain.User, error)
}

// ResponseCache stores rendered listings, satisfied by utils.RedisCache
type ResponseCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// adminUsersCachePrefix prefixes every cached admin user listing
const adminUsersCachePrefix = "admin:users:"

// invalidateUserListings drops cached admin listings after a user changes
func invalidateUserListings(ctx context.Context, cache ResponseCache) {
	if cache == nil {
		return
	}
	if err := cache.DeletePrefix(ctx, adminUsersCachePrefix); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate user listings")
	}
}

// loadTarget resolves the :id user of the route
func loadTarget(c *gin.Context, users UserStore) (*domain.User, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64) // Parse user ID
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	}
	user, err := users.FindUser(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return user, true
}

// authorizeTarget allows the user itself and admins
func authorizeTarget(c *gin.Context, target *domain.User) bool {
	current, ok := middleware.CurrentUser(c)
	if !ok || current.IsGuest() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return false
	}
	if current.ID != target.ID && !current.Admin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to access this page."})
		return false
	}
	return true
}

// respondError maps an error to a JSON response
func respondError(c *gin.Context, err error) {
	if msg, ok := domain.IsValidation(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg})
		return
	}
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	default:
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Route of the request
			"error": err.Error(),  // Error message
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// pagination reads page and page_size query parameters
func pagination(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size if valid
		}
	}
	return page, pageSize
}
