package routes

import (
	"log/slog"
	"net/http"

	"github.com/01moynul/techxchange-golang/internal/handlers"
	"github.com/01moynul/techxchange-golang/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Options holds the router settings that do not belong to the handlers.
type Options struct {
	CORSOrigin string
	// UploadsDir, when set, is served under /uploads for the local disk
	// object store.
	UploadsDir string
	Logger     *slog.Logger
}

func SetupRouter(h *handlers.Handlers, authn middleware.Authenticator, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(opts.Logger))

	// --- APPLY THE CORS GUARD ---
	// This must run before any route handler
	router.Use(middleware.CORSMiddleware(opts.CORSOrigin))

	if opts.UploadsDir != "" {
		router.Static("/uploads", opts.UploadsDir)
	}

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Public Routes ---
		v1.GET("/home", h.Home)
		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)
		v1.POST("/auth/forgot-password", h.ForgotPassword)
		v1.POST("/auth/reset-password/:uidb64/:token", h.ResetPassword)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(authn))
		{
			auth.POST("/logout", h.Logout)

			// --- Profile ---
			auth.POST("/profile/picture", h.UploadProfilePicture)
			auth.POST("/profile/password", h.ChangePassword)

			// --- Products ---
			auth.GET("/products", h.ListProducts)
			auth.POST("/products", h.CreateProduct)
			auth.GET("/products/:id", h.GetProduct)
			auth.DELETE("/products/:id", h.DeleteProduct)
			auth.GET("/categories", h.GetAllCategories)

			// --- Dashboard ---
			auth.GET("/dashboard/profile", h.GetDashboardProfile)
			auth.GET("/dashboard/products", h.GetMyProducts)
			auth.GET("/dashboard/viewed-products", h.GetViewedProducts)
			auth.GET("/dashboard/viewers", h.GetProductViewers)

			// --- Subscription ---
			auth.GET("/subscription/upgrade", h.GetUpgradeOptions)
			auth.POST("/subscription/upgrade", h.RequestUpgrade)
			auth.GET("/subscription/price", h.GetPrice)

			// --- Notification Routes ---
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)
		}

		// --- Admin-Only Routes ---
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(authn))
		admin.Use(middleware.AdminMiddleware())
		{
			admin.GET("/users", h.GetUsers)
			admin.POST("/users/approve", h.ApproveUsers)
			admin.PATCH("/users/:id/activate", h.ActivateUser)
			admin.GET("/users/export", h.ExportUsers)
			admin.GET("/users/:id/password", h.GetUserPassword)

			admin.GET("/subscriptions", h.GetSubscriptions)
			admin.PATCH("/subscriptions/:id", h.UpdateSubscription)
			admin.GET("/subscriptions/:id/payments", h.GetSubscriptionPayments)
			admin.POST("/subscriptions/:id/approve", h.ApproveSubscription)
			admin.POST("/subscriptions/:id/reject", h.RejectSubscription)
			admin.POST("/subscriptions/:id/invoice", h.SendInvoice)

			admin.GET("/plans", h.GetPlanReference)
			admin.PUT("/plans", h.SetPlanPrice)
			admin.POST("/plan-types", h.CreatePlanType)
			admin.POST("/durations", h.CreateDuration)

			admin.POST("/categories", h.CreateCategory)
			admin.DELETE("/categories/:id", h.DeleteCategory)

			admin.GET("/banners", h.GetBanners)
			admin.POST("/banners", h.CreateBanner)
			admin.DELETE("/banners/:id", h.DeleteBanner)

			admin.GET("/stats", h.GetAdminStats)
		}
	}

	return router
}
