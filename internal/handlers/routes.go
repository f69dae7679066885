package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/services"
)

type Deps struct {
	Store    *repository.Store
	Catalog  *services.CatalogService
	Cart     *cart.Manager
	Checkout *services.CheckoutService
	Orders   *services.OrderService
	Users    *services.UserService
	Auth     *services.AuthService
	Admin    *services.AdminService
	Uploads  *services.UploadService

	JWTSecret      string
	AllowedOrigins []string
	StoreName      string
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Disposition", middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID(), cors.New(corsConfig(d.AllowedOrigins)))

	userAuth := middleware.UserAuth(d.JWTSecret, d.Store.Users)
	adminOnly := middleware.AdminOnly()

	r.GET("/", Home(d.StoreName))
	r.GET("/healthz", Health(d.Store.Ping))

	api := r.Group("/api")

	// raw body, provider signature instead of a bearer token
	api.POST("/webhook", Webhook(d.Checkout))

	auth := api.Group("/auth")
	{
		auth.POST("/register", Register(d.Auth))
		auth.POST("/login", Login(d.Auth))
	}

	users := api.Group("/users", userAuth)
	{
		users.GET("/profile", GetProfile(d.Users))
		users.PATCH("/profile", UpdateProfile(d.Users))
		users.GET("/addresses", GetUserAddresses(d.Users))
		users.POST("/addresses", CreateUserAddress(d.Users))
		users.PUT("/addresses/:id", UpdateUserAddress(d.Users))
		users.DELETE("/addresses/:id", DeleteUserAddress(d.Users))
		users.GET("/wishlist", GetWishlist(d.Users))
		users.POST("/wishlist/:productId", ToggleWishlist(d.Users))
	}

	products := api.Group("/products")
	{
		products.GET("", GetProducts(d.Catalog, d.Store.Ping))
		products.GET("/:id", GetProduct(d.Catalog))
		products.POST("", userAuth, adminOnly, CreateProduct(d.Catalog))
		products.POST("/upload", userAuth, adminOnly, UploadProduct(d.Catalog))
		products.PUT("/:id", userAuth, adminOnly, UpdateProduct(d.Catalog))
		products.DELETE("/:id", userAuth, adminOnly, DeleteProduct(d.Catalog))
	}

	cartRoutes := api.Group("/cart")
	{
		cartRoutes.POST("/add", AddToCart(d.Cart))
		cartRoutes.POST("/:action", UpdateCart())
	}

	api.POST("/payments/create-checkout-session", userAuth, CreateCheckoutSession(d.Checkout))

	orders := api.Group("/orders", userAuth)
	{
		orders.POST("/checkout", PlaceOrder(d.Checkout))
		orders.GET("/my-orders", MyOrders(d.Orders))
		orders.GET("/:id/invoice", DownloadInvoice(d.Orders))
		orders.GET("", adminOnly, GetOrders(d.Orders))
		orders.PUT("/:id/status", adminOnly, UpdateOrderStatus(d.Orders))
	}

	uploads := api.Group("/upload", userAuth)
	{
		uploads.POST("", UploadImage(d.Uploads))
		uploads.POST("/design", UploadDesign(d.Uploads))
	}

	admin := api.Group("/admin", userAuth, adminOnly)
	{
		admin.GET("/dashboard", DashboardStats(d.Admin))
		admin.GET("/orders/daily-revenue", DailyRevenue(d.Admin))
		admin.GET("/users", ListUsers(d.Admin))
		admin.DELETE("/users/:id", DeleteUser(d.Admin))
	}

	return r
}
