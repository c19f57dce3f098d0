package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"tap_system/internal/domain" // Importing domain models
	"tap_system/internal/store"  // User queries

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// adminListTTL is how long a rendered admin listing stays cached
const adminListTTL = 60 * time.Second

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID          uint   `json:"id"`           // User ID
	Nickname    string `json:"nickname"`     // Nickname
	FullName    string `json:"full_name"`    // First and last name
	Admin       bool   `json:"admin"`        // Administrator flag
	Koelkast    bool   `json:"koelkast"`     // Shared fridge account
	Private     bool   `json:"private"`      // Hidden from public listings
	Balance     int64  `json:"balance"`      // Local balance
	OrdersCount int64  `json:"orders_count"` // Cached number of orders
	Frecency    int64  `json:"frecency"`     // Recency weighted order score
}

// adminUsersPage is the cached body of ListUsersHandler
type adminUsersPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
	Cached     bool                `json:"cached"`      // Served from cache
}

// AdminListUsersHandler returns all users, including presets, paginated and cached
func AdminListUsersHandler(users UserStore, cache ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pagination(c)
		byFrecency := c.Query("sort") == "frecency"
		// Create a cache key based on pagination parameters
		cacheKey := adminUsersCachePrefix + "page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize) + ":frecency=" + strconv.FormatBool(byFrecency)

		if cache != nil {
			var cached adminUsersPage
			found, err := cache.Get(ctx, cacheKey, &cached)
			if err == nil && found {
				cached.Cached = true // Indicate response is from cache
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		list, total, err := users.ListUsers(ctx, store.UserQuery{
			Scope:      "all",
			ByFrecency: byFrecency,
			Offset:     (page - 1) * pageSize, // Calculate offset for pagination
			Limit:      pageSize,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		resp := adminUsersPage{
			Users:      make([]UserAdminResponse, len(list)),
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: (int(total) + pageSize - 1) / pageSize, // Calculate total pages
		}
		for i := range list {
			resp.Users[i] = adminView(&list[i])
		}
		if cache != nil {
			// Cache the response for future requests
			if err := cache.Set(ctx, cacheKey, resp, adminListTTL); err != nil {
				logrus.WithError(err).Warn("Failed to cache user listing")
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// adminView maps a user to the admin response
func adminView(u *domain.User) UserAdminResponse {
	return UserAdminResponse{
		ID:          u.ID,
		Nickname:    u.Nickname,
		FullName:    u.FullName(),
		Admin:       u.Admin,
		Koelkast:    u.Koelkast,
		Private:     u.Private,
		Balance:     u.Balance,
		OrdersCount: u.OrdersCount,
		Frecency:    u.Frecency,
	}
}

// AdminPayRequest is the body of a manual charge, negative amounts credit the user
type AdminPayRequest struct {
	Amount int64 `json:"amount" binding:"required"` // Amount in cents
}

// AdminPayHandler charges a user outside of an order
func AdminPayHandler(payer Payer, cache ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64) // Parse user ID
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		var req AdminPayRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := payer.Pay(c.Request.Context(), uint(id), req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateUserListings(c.Request.Context(), cache)
		c.JSON(http.StatusOK, gin.H{"user": adminView(user)})
	}
}
