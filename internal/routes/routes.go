package routes

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"lunetier_back_end/internal/events"
	"lunetier_back_end/internal/handlers/admin"
	"lunetier_back_end/internal/handlers/cart"
	"lunetier_back_end/internal/handlers/payement"
	"lunetier_back_end/internal/handlers/product"
	"lunetier_back_end/internal/handlers/promotion"
	"lunetier_back_end/internal/handlers/user"
	"lunetier_back_end/internal/middleware"
	"lunetier_back_end/internal/payment"
	"lunetier_back_end/internal/services/checkout"
	"lunetier_back_end/internal/store"
)

// Deps : tout ce que les handlers consomment, câblé depuis main.
type Deps struct {
	Stores     *store.MongoStores
	Checkout   *checkout.Service
	Reconciler *checkout.Reconciler
	Provider   payment.Provider
	Bus        *events.Bus
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("FRONTEND_URL")},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	products := product.NewHandler(deps.Stores.Products, deps.Stores.Promotions)
	inventory := product.NewInventoryHandler(deps.Stores.Products, deps.Stores.Inventory)
	carts := cart.NewHandler(deps.Stores.Products, deps.Stores.Promotions)
	payments := payement.NewHandler(deps.Checkout, deps.Reconciler, deps.Stores.Orders, deps.Bus)
	promotions := promotion.NewHandler(deps.Stores.Promotions, deps.Bus)
	auth := user.NewHandler(deps.Stores.Users)
	myOrders := user.NewOrdersHandler(deps.Stores.Orders)
	adminOrders := admin.NewOrdersHandler(deps.Stores.Orders, deps.Bus)

	api := r.Group("/api")
	api.Use(middleware.APIRateLimit())

	// 🛍️ Catalogue public
	api.GET("/products", products.List)
	api.GET("/products/slug/:slug", products.GetBySlug)
	api.GET("/products/search", middleware.SearchRateLimit(), products.Search)
	api.GET("/promotions/active", promotions.GetActive)

	// 🔐 Auth
	api.POST("/auth/register", middleware.RegisterRateLimit(), auth.Register)
	api.POST("/auth/login", middleware.LoginRateLimit(), auth.Login)

	// 💳 Paiement
	api.POST("/webhook", payments.StripeWebhook)
	api.GET("/order-status", payments.GetOrderStatus)
	api.POST("/checkout-session", middleware.AuthOptional(), payments.CreateCheckoutSession)

	// 🛒 Espace client
	authed := api.Group("")
	authed.Use(middleware.AuthRequired())
	{
		authed.GET("/cart", carts.Get)
		authed.POST("/cart/add", carts.Add)
		authed.DELETE("/cart/:productId", carts.Remove)
		authed.DELETE("/cart", carts.Clear)
		authed.GET("/orders", myOrders.List)
	}

	// 🛠️ Back-office
	adm := api.Group("/admin")
	adm.Use(middleware.AuthRequired(), middleware.RequireAdmin)
	{
		adm.GET("/products", products.List)
		adm.GET("/products/:id", products.Get)
		adm.POST("/products", products.Create)
		adm.PUT("/products/:id", products.Update)
		adm.DELETE("/products/:id", products.Delete)
		adm.POST("/products/:id/images", products.UploadImage)
		adm.PATCH("/products/:id/stock", inventory.AdjustStock)
		adm.GET("/products/:id/movements", inventory.ListMovements)
		adm.GET("/stock-alerts", inventory.ListAlerts)
		adm.PATCH("/stock-alerts/:id/resolve", inventory.ResolveAlert)

		adm.GET("/orders", adminOrders.List)
		adm.GET("/orders/feed", adminOrders.Feed)
		adm.GET("/orders/:orderNumber", adminOrders.Get)
		adm.PATCH("/orders/:orderNumber/delivery", adminOrders.UpdateDelivery)
		adm.POST("/orders/:orderNumber/refund", payments.RefundOrder(deps.Provider))

		adm.GET("/promotions", promotions.List)
		adm.POST("/promotions", promotions.Create)
		adm.PUT("/promotions/:id", promotions.Update)
		adm.DELETE("/promotions/:id", promotions.Delete)
	}
}
