package api

import (
	"tap_system/internal/balance"    // Remote balances
	"tap_system/internal/metrics"    // Prometheus counters
	"tap_system/internal/middleware" // Custom middleware

	"github.com/gin-gonic/gin"                       // Gin web framework
	"github.com/prometheus/client_golang/prometheus" // Metrics registry
	"github.com/sirupsen/logrus"                     // Logging library
)

// Ledger places orders and changes balances, satisfied by *ledger.Ledger
type Ledger interface {
	OrderPlacer
	Payer
}

// Deps are the collaborators of the HTTP handlers
type Deps struct {
	Users        UserStore               // User persistence, also resolves the current user
	Products     ProductStore            // Product catalog
	Ledger       Ledger                  // Orders and payments
	Balances     balance.Fetcher         // Remote balance lookups
	Metrics      metrics.Recorder        // Counters, Nop when nil
	Cache        ResponseCache           // Admin listing cache, disabled when nil
	Gatherer     prometheus.Gatherer     // Served on /metrics when set
	LoginLimiter *middleware.RateLimiter // Login throttle, disabled when nil
	JWTSecret    string                  // JWT secret key
	Log          logrus.FieldLogger      // Request logger, standard logger when nil
}

// NewRouter builds the gin engine with every route
func NewRouter(d Deps) *gin.Engine {
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}

	r := gin.New()                                         // Gin router instance
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Log)) // Recover panics and log requests

	// Auth routes
	login := []gin.HandlerFunc{LoginHandler(d.Users, d.JWTSecret)}
	if d.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{d.LoginLimiter.Middleware()}, login...)
	}
	r.POST("/user", RegisterHandler(d.Users, d.Cache)) // Registration endpoint
	r.POST("/user/login", login...)                    // Login endpoint

	// Read routes, guests allowed
	public := r.Group("")
	public.Use(middleware.CurrentUserMiddleware(d.JWTSecret, d.Users))
	public.GET("/users", ListUsersHandler(d.Users))                           // List users endpoint
	public.GET("/users/:id", ShowUserHandler(d.Users, d.Balances, d.Metrics)) // Show user endpoint
	public.GET("/products", ListProductsHandler(d.Products))                  // Catalog endpoint

	// Write routes, guests rejected
	member := r.Group("")
	member.Use(middleware.CurrentUserMiddleware(d.JWTSecret, d.Users), middleware.RequireAuthenticated())
	member.PATCH("/users/:id", UpdateUserHandler(d.Users, d.Products, d.Cache))          // Update profile endpoint
	member.GET("/users/:id/edit_dagschotel", EditDagschotelHandler(d.Users, d.Products)) // Dagschotel picker endpoint
	member.POST("/users/:id/quickpay", QuickpayHandler(d.Users, d.Ledger, d.Cache))      // Quickpay endpoint
	member.POST("/orders", PlaceOrderHandler(d.Ledger, d.Cache))                         // Place order endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(d.JWTSecret, d.Users), middleware.AdminOnlyMiddleware())
	adminGroup.GET("/users", AdminListUsersHandler(d.Users, d.Cache))     // List users endpoint
	adminGroup.POST("/users/:id/pay", AdminPayHandler(d.Ledger, d.Cache)) // Manual charge endpoint
	adminGroup.POST("/products", CreateProductHandler(d.Products))        // Create product endpoint

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer))) // Prometheus exposition
	}
	return r
}
