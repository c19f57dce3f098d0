package api

import (
	"net/http" // HTTP status codes

	"tap_system/internal/domain"     // Importing domain models
	"tap_system/internal/middleware" // Current user helpers

	"github.com/gin-gonic/gin" // Gin web framework
)

// PlaceOrderRequest is the body of an order
type PlaceOrderRequest struct {
	ProductID uint `json:"product_id" binding:"required"` // Ordered product
	Count     *int `json:"count"`                         // Units, defaults to 1
}

// PlaceOrderHandler orders a product for the authenticated user
func PlaceOrderHandler(placer OrderPlacer, cache ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c) // Get user from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req PlaceOrderRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		count := 1
		if req.Count != nil {
			count = *req.Count // Validated by the ledger
		}
		order, err := placer.PlaceOrder(c.Request.Context(), user.ID, req.ProductID, count)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateUserListings(c.Request.Context(), cache) // Balance and counters changed
		c.JSON(http.StatusCreated, gin.H{"order": order, "total": order.Total()})
	}
}

// ListProductsHandler returns the products for sale and the categories
func ListProductsHandler(products ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		forSale, err := products.ProductsForSale(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": forSale, "categories": domain.Categories})
	}
}

// CreateProductRequest is the body of a new product
type CreateProductRequest struct {
	Name     string `json:"name" binding:"required"`     // Product name
	Price    int64  `json:"price" binding:"gte=0"`       // Unit price in cents
	Category string `json:"category" binding:"required"` // One of domain.Categories
	ForSale  *bool  `json:"for_sale"`                    // Defaults to true
}

// CreateProductHandler adds a product to the catalog
func CreateProductHandler(products ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateProductRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if !domain.ValidCategory(req.Category) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Category is not included in the list"})
			return
		}
		product := domain.Product{Name: req.Name, Price: req.Price, Category: req.Category, ForSale: true}
		if req.ForSale != nil {
			product.ForSale = *req.ForSale
		}
		if err := products.CreateProduct(c.Request.Context(), &product); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"product": product})
	}
}
