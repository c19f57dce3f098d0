package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"tap_system/internal/balance"    // Remote balances
	"tap_system/internal/domain"     // Importing domain models
	"tap_system/internal/ledger"     // Order placement
	"tap_system/internal/metrics"    // Prometheus counters
	"tap_system/internal/middleware" // Current user helpers
	"tap_system/internal/store"      // User queries

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// UserResponse is the public view of a user
type UserResponse struct {
	domain.User
	Balance  *int64 `json:"balance"`   // Remote balance, null when unknown
	FullName string `json:"full_name"` // First and last name
	Guest    bool   `json:"guest"`     // Guest preset
}

// ListUsersHandler lists members or public users, optionally ranked by frecency
func ListUsersHandler(users UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := c.DefaultQuery("scope", "members") // members or publik
		if scope != "members" && scope != "publik" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown scope"})
			return
		}
		list, _, err := users.ListUsers(c.Request.Context(), store.UserQuery{
			Scope:      scope,
			ByFrecency: c.Query("sort") == "frecency",
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": list})
	}
}

// ShowUserHandler shows a user with its remote balance. Unknown ids show the current user.
func ShowUserHandler(users UserStore, balances balance.Fetcher, rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var user *domain.User
		if id, err := strconv.ParseUint(c.Param("id"), 10, 64); err == nil {
			user, _ = users.FindUser(ctx, uint(id)) // Missing users fall back below
		}
		if user == nil {
			current, ok := middleware.CurrentUser(c)
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			user = current
		}
		resp := UserResponse{User: *user, FullName: user.FullName(), Guest: user.IsGuest()}
		if !user.IsPreset() {
			if b, ok := balances.FetchBalance(ctx, user.ID, user.Nickname); ok {
				resp.Balance = &b
				rec.BalanceLookup(true)
			} else {
				rec.BalanceLookup(false)
			}
		}
		c.JSON(http.StatusOK, gin.H{"user": resp})
	}
}

// UpdateUserRequest lists the attributes a user may change
type UpdateUserRequest struct {
	Avatar         *string `json:"avatar"`          // Avatar location
	Private        *bool   `json:"private"`         // Hide from public listings
	DagschotelID   *uint   `json:"dagschotel_id"`   // Preferred product, 0 clears it
	QuickpayHidden *bool   `json:"quickpay_hidden"` // Hide the quickpay button
}

// UpdateUserHandler updates the profile of a user
func UpdateUserHandler(users UserStore, products ProductStore, cache ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, ok := loadTarget(c, users)
		if !ok || !authorizeTarget(c, target) {
			return
		}
		var req UpdateUserRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		ctx := c.Request.Context()
		changes := map[string]any{} // Only permitted attributes
		if req.Avatar != nil {
			changes["avatar"] = *req.Avatar
		}
		if req.Private != nil {
			changes["private"] = *req.Private
		}
		if req.QuickpayHidden != nil {
			changes["quickpay_hidden"] = *req.QuickpayHidden
		}
		if req.DagschotelID != nil {
			if *req.DagschotelID == 0 {
				changes["dagschotel_id"] = nil // Clear the dagschotel
			} else {
				product, err := products.FindProduct(ctx, *req.DagschotelID)
				if err != nil {
					respondError(c, err)
					return
				}
				if !product.ForSale {
					c.JSON(http.StatusUnprocessableEntity, gin.H{"error": product.Name + " is not for sale"})
					return
				}
				changes["dagschotel_id"] = product.ID
			}
		}
		updated, err := users.UpdateProfile(ctx, target.ID, changes)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateUserListings(ctx, cache)
		c.JSON(http.StatusOK, gin.H{"success": "Successfully updated!", "user": updated})
	}
}

// EditDagschotelHandler returns what is needed to pick a dagschotel
func EditDagschotelHandler(users UserStore, products ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, ok := loadTarget(c, users)
		if !ok || !authorizeTarget(c, target) {
			return
		}
		ctx := c.Request.Context()
		var dagschotel *domain.Product
		if target.DagschotelID != nil {
			p, err := products.FindProduct(ctx, *target.DagschotelID)
			if err == nil {
				dagschotel = p
			}
		}
		forSale, err := products.ProductsForSale(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"dagschotel": dagschotel,        // Current choice or null
			"products":   forSale,           // Orderable products
			"categories": domain.Categories, // Category order
		})
	}
}

// QuickpayHandler orders one dagschotel for the user
func QuickpayHandler(users UserStore, placer OrderPlacer, cache ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, ok := loadTarget(c, users)
		if !ok || !authorizeTarget(c, target) {
			return
		}
		if _, err := placer.Quickpay(c.Request.Context(), target); err != nil {
			if msg, isValidation := ledger.IsValidation(err); isValidation {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg, "redirect": "/"})
				return
			}
			logrus.WithFields(logrus.Fields{
				"user_id": target.ID,   // User ID
				"error":   err.Error(), // Error message
			}).Error("Quickpay failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Quick pay failed.", "redirect": "/"})
			return
		}
		invalidateUserListings(c.Request.Context(), cache) // Balance and counters changed
		c.JSON(http.StatusOK, gin.H{"success": "Quick pay succeeded.", "redirect": "/"})
	}
}
