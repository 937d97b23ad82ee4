package router

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fnb-kiosk/controllers"
	"github.com/yeremiapane/fnb-kiosk/kds"
	"github.com/yeremiapane/fnb-kiosk/metrics"
	"github.com/yeremiapane/fnb-kiosk/middlewares"
	"github.com/yeremiapane/fnb-kiosk/services"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

// Deps is everything the HTTP layer needs. Metrics, Hub, Proofs and
// RateLimiter may be nil; the routes that need them are then left out.
type Deps struct {
	Orders  *services.OrderService
	Proofs  *services.ProofService
	Menu    *services.MenuService
	Storage controllers.StatusReporter
	Hub     *kds.Hub
	Metrics *metrics.Metrics

	RateLimiter *middlewares.RateLimiter
	Blacklist   *utils.TokenBlacklist

	AdminAuth  bool
	Admin      controllers.AdminCredentials
	JWTSecret  []byte
	TokenTTL   time.Duration
	CORSOrigin string
	UploadDir  string
}

var imageExt = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// onlyImages keeps the uploads mount from serving anything but pictures.
func onlyImages() gin.HandlerFunc {
	return func(c *gin.Context) {
		ext := strings.ToLower(filepath.Ext(c.Request.URL.Path))
		for _, e := range imageExt {
			if ext == e {
				c.Next()
				return
			}
		}
		c.AbortWithStatus(http.StatusForbidden)
	}
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	if d.Metrics != nil {
		r.Use(middlewares.Metrics(d.Metrics))
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	var rateLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.RateLimiter != nil {
		rateLimit = d.RateLimiter.RateLimit()
	}
	if d.Blacklist == nil {
		d.Blacklist = utils.NewTokenBlacklist()
	}

	// Inisialisasi controller
	orderCtrl := controllers.NewOrderController(d.Orders)
	adminCtrl := controllers.NewAdminController(d.Orders)
	menuCtrl := controllers.NewMenuController(d.Menu)
	healthCtrl := controllers.NewHealthController(d.Storage)
	userCtrl := controllers.NewUserController(d.Admin, d.JWTSecret, d.TokenTTL, d.Blacklist)

	adminOnly := []gin.HandlerFunc{
		middlewares.AdminAuth(d.AdminAuth, d.JWTSecret, d.Blacklist),
		middlewares.RequireRole(controllers.RoleAdmin),
	}
	protected := func(h ...gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, adminOnly...), h...)
	}
	admin := func(action string, h gin.HandlerFunc) []gin.HandlerFunc {
		return protected(middlewares.AuditLogger(action), h)
	}

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/health", healthCtrl.Health)
	r.GET("/api/status", healthCtrl.Health)
	r.GET("/api/menu", menuCtrl.GetAllMenus)

	api := r.Group("/api")
	{
		api.POST("/orders", rateLimit, orderCtrl.CreateOrder)
		api.GET("/orders", orderCtrl.GetAllOrders)
		api.GET("/orders/:id", orderCtrl.GetOrderByID)

		api.POST("/admin/login", rateLimit, userCtrl.Login)
		api.POST("/admin/logout", protected(userCtrl.Logout)...)
	}

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	{
		api.GET("/orders/export", admin("export_orders", adminCtrl.ExportOrders)...)
		api.PUT("/orders/:id/status", admin("update_status", orderCtrl.UpdateStatus)...)
		api.PUT("/orders/:id/payment", admin("update_payment", orderCtrl.UpdatePayment)...)
		api.DELETE("/orders/:id", admin("delete_order", orderCtrl.DeleteOrder)...)
		api.DELETE("/orders", admin("clear_orders", orderCtrl.ClearOrders)...)
		api.GET("/dashboard/stats", protected(adminCtrl.GetDashboardStats)...)
	}

	if d.Proofs != nil {
		payCtrl := controllers.NewPaymentController(d.Proofs)
		proofs := api.Group("", middlewares.PaymentSecurityHeaders())
		{
			proofs.POST("/orders/:id/payment-proof",
				rateLimit, middlewares.LimitBody(controllers.MaxProofUpload), payCtrl.SubmitProof)
			proofs.GET("/payment-proofs/:id", payCtrl.GetProof)

			proofs.GET("/payment-proofs", protected(payCtrl.ListProofs)...)
			proofs.POST("/payment-proofs/:id/verify", admin("verify_proof", payCtrl.VerifyProof)...)
			proofs.DELETE("/payment-proofs/:id", admin("delete_proof", payCtrl.DeleteProof)...)
			proofs.DELETE("/payment-proofs/:id/image", admin("delete_proof_image", payCtrl.DeleteProofImage)...)
		}
	}

	if d.Hub != nil {
		kdsCtrl := controllers.NewKDSController(d.Hub)
		r.GET("/ws/orders", append([]gin.HandlerFunc{middlewares.RequireWebSocket()}, protected(kdsCtrl.KDSHandler)...)...)
	}

	if d.UploadDir != "" {
		uploads := r.Group("/uploads/payment_proofs", onlyImages())
		uploads.Static("/", d.UploadDir)
	}

	return r
}
