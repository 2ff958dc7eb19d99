package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/controllers"
	"github.com/manasa1349/payment-gateway-task/events"
	"github.com/manasa1349/payment-gateway-task/middlewares"
	"github.com/manasa1349/payment-gateway-task/services"
)

// Deps are the services the HTTP API is built on. The entry point owns them.
type Deps struct {
	DB             controllers.Pinger
	Orders         *services.OrderService
	Payments       *services.PaymentService
	Refunds        *services.RefundService
	Webhooks       *services.WebhookService
	Merchants      *services.MerchantService
	Monitor        *services.PipelineMonitor
	Hub            *events.Hub
	TestMerchantID string

	CORSAllowedOrigins []string
	PublicLimiter      *middlewares.RateLimiter
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(deps.CORSAllowedOrigins))
	r.Use(middlewares.LoggerMiddleware())

	healthCtrl := controllers.NewHealthController(deps.DB)
	testCtrl := controllers.NewTestController(deps.Merchants, deps.Monitor, deps.TestMerchantID)
	authCtrl := controllers.NewAuthController(deps.Merchants)
	orderCtrl := controllers.NewOrderController(deps.Orders)
	paymentCtrl := controllers.NewPaymentController(deps.Payments, deps.Orders)
	refundCtrl := controllers.NewRefundController(deps.Refunds)
	webhookCtrl := controllers.NewWebhookController(deps.Webhooks, deps.Merchants)
	eventsCtrl := controllers.NewEventsController(deps.Hub)

	limiter := deps.PublicLimiter
	if limiter == nil {
		limiter = middlewares.NewRateLimiter(5, 10)
	}

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/health", healthCtrl.Health)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": services.CodeNotFound, "description": "Route not found"}})
	})

	api := r.Group("/api/v1")
	api.GET("/test/merchant", testCtrl.TestMerchant)
	api.GET("/test/jobs/status", testCtrl.JobStatus)

	// Checkout page and login
	public := api.Group("/")
	public.Use(limiter.RateLimit())
	{
		public.POST("/auth/login", authCtrl.Login)
		public.GET("/orders/:order_id/public", orderCtrl.GetPublicOrder)
		public.POST("/payments/public", paymentCtrl.CreatePublicPayment)
		public.GET("/payments/public/:payment_id", paymentCtrl.GetPublicPayment)
	}

	ws := api.Group("/events")
	ws.Use(middlewares.WebSocketAuthMiddleware(deps.Merchants))
	ws.GET("/ws", eventsCtrl.Stream)

	// ----------------------------------------------------------------
	//                      MERCHANT ROUTES
	// ----------------------------------------------------------------
	merchant := api.Group("/")
	merchant.Use(middlewares.AuthMiddleware(deps.Merchants))
	{
		merchant.POST("/orders", orderCtrl.CreateOrder)
		merchant.GET("/orders/:order_id", orderCtrl.GetOrder)

		merchant.POST("/payments", paymentCtrl.CreatePayment)
		merchant.GET("/payments/list", paymentCtrl.ListPayments)
		merchant.GET("/payments/:payment_id", paymentCtrl.GetPayment)
		merchant.POST("/payments/:payment_id/capture", paymentCtrl.CapturePayment)
		merchant.POST("/payments/:payment_id/refunds", refundCtrl.CreateRefund)

		merchant.GET("/refunds/:refund_id", refundCtrl.GetRefund)

		merchant.GET("/webhooks", webhookCtrl.ListWebhooks)
		merchant.GET("/webhooks/config", webhookCtrl.GetConfig)
		merchant.PUT("/webhooks/config", webhookCtrl.UpdateConfig)
		merchant.POST("/webhooks/regenerate-secret", webhookCtrl.RegenerateSecret)
		merchant.POST("/webhooks/test", webhookCtrl.SendTest)
		merchant.POST("/webhooks/:webhook_id/retry", webhookCtrl.RetryWebhook)
	}

	return r
}
