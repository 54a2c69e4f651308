package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"clouddesign.com.br/storefront/pkg/global"
)

// NewEngine builds the gin engine with logging, recovery and CORS. Routes
// are added by RegisterRoutes.
func NewEngine(settings global.Settings) *gin.Engine {
	if settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestID(), RequestLogger(), gin.CustomRecovery(recoverJSON))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     settings.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "X-Cache", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	return r
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		products := api.Group("/products")
		{
			products.GET("", h.ListProducts)
			products.GET("/recent", h.RecentProducts)
			products.GET("/:slug", h.GetProduct)
			products.GET("/:slug/quote", h.QuoteArea)
			products.POST("/:slug/increment_view", h.IncrementView)
		}

		api.GET("/categories", h.ListCategories)
		api.GET("/finishings", h.ListFinishings)
		api.GET("/kits", h.ListKits)
		api.GET("/kits/:slug", h.GetKit)
		api.GET("/banners", h.ListBanners)
		api.GET("/company-config", h.GetCompanyConfig)
		api.GET("/coupons/validate", h.ValidateCoupon)
		api.GET("/tracking/:orderId", h.TrackOrder)

		cart := api.Group("/cart/:sessionId")
		cart.Use(SessionMiddleware())
		{
			cart.GET("", h.GetCart)
			cart.POST("/items", h.AddToCart)
			cart.DELETE("/items/:index", h.RemoveFromCart)
			cart.DELETE("/clear", h.ClearCart)
			cart.POST("/coupon", h.ApplyCoupon)
			cart.DELETE("/coupon", h.RemoveCoupon)

			cart.GET("/checkout", h.GetCheckout)
			cart.POST("/checkout", h.Checkout)
			cart.POST("/checkout/identify", h.IdentifyCheckout)
			cart.POST("/checkout/back", h.BackCheckout)
			cart.POST("/checkout/reset", h.ResetCheckout)
		}

		api.POST("/admin/login", h.AdminLogin)
		admin := api.Group("/admin")
		admin.Use(AdminAuth(h.Sessions))
		{
			admin.POST("/logout", h.AdminLogout)
			admin.GET("/dashboard/stats", h.DashboardStats)
			admin.GET("/dashboard/insights", h.DashboardInsights)

			admin.GET("/coupons", h.ListCoupons)
			admin.POST("/coupons", h.CreateCoupon)
			admin.DELETE("/coupons/:code", h.DeleteCoupon)

			admin.POST("/products", h.CreateProduct)
			admin.DELETE("/products/:id", h.DeleteProduct)

			admin.POST("/cache/invalidate", h.InvalidateCache)
		}
	}
}
