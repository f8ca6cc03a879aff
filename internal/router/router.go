package router

import (
	"time"

	"cartly/config"
	"cartly/internal/domain"
	"cartly/internal/handler"
	"cartly/internal/middleware"
	"cartly/internal/repository"
	"cartly/internal/service"
	"cartly/pkg/gateway"
	"cartly/pkg/orders"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Services bundles the wired core so main can hand it to the background
// workers as well.
type Services struct {
	Redemptions *service.RedemptionService
	Payments    *service.PaymentService
	Webhooks    *service.WebhookService
}

func Setup(cfg *config.Config, db *gorm.DB, gw gateway.Provider, orderProvider orders.Provider) (*gin.Engine, *Services) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	promoRepo := repository.NewPromotionRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	redemptionSvc := service.NewRedemptionService(promoRepo, usageRepo, orderProvider)
	paymentSvc := service.NewPaymentService(paymentRepo, txnRepo, redemptionSvc, gw, cfg.Payment.PendingTTL)
	webhookSvc := service.NewWebhookService(webhookRepo, paymentSvc, auditRepo, cfg.Webhook.Secrets, cfg.Webhook.MaxRetries, cfg.Webhook.RetryBackoff)

	// Handlers
	promotionHandler := handler.NewPromotionHandler(redemptionSvc, promoRepo, usageRepo)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, redemptionSvc, paymentRepo, auditRepo)
	webhookHandler := handler.NewWebhookHandler(webhookSvc, webhookRepo, cfg.Webhook.MaxRetries)
	auditHandler := handler.NewAuditHandler(auditRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adminMw := middleware.RequireRole(domain.RoleAdmin)

	api := r.Group("/api/v1")
	{
		promos := api.Group("/promotions")
		promos.Use(authMw)
		{
			promos.POST("/apply", promotionHandler.Apply)
			promos.POST("/validate", promotionHandler.Validate)
			promos.POST("/calculate", promotionHandler.Calculate)
			promos.GET("/auto", promotionHandler.AutoApply)
			promos.POST("/usages/:id/cancel", promotionHandler.CancelUsage)
			promos.POST("/usages/:id/refund", promotionHandler.RefundUsage)
		}

		payments := api.Group("/payments")
		payments.Use(authMw)
		{
			payments.POST("", paymentHandler.Create)
			payments.GET("/:ref", paymentHandler.Get)
			payments.POST("/:ref/cancel", paymentHandler.Cancel)
			payments.POST("/:ref/discount", paymentHandler.AttachDiscount)
			payments.DELETE("/:ref/discount", paymentHandler.DetachDiscount)
			// Gateway-side transitions are restricted to operators; the
			// normal path is the webhook intake.
			payments.POST("/:ref/process", adminMw, paymentHandler.BeginProcessing)
			payments.POST("/:ref/confirm", adminMw, paymentHandler.Confirm)
			payments.POST("/:ref/fail", adminMw, paymentHandler.Fail)
			payments.POST("/:ref/refund", adminMw, paymentHandler.Refund)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/payments", paymentHandler.ListMine)
			me.GET("/promotion-usages", promotionHandler.ListMyUsages)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, adminMw)
		{
			admin.POST("/promotions", promotionHandler.Create)
			admin.GET("/promotions", promotionHandler.List)
			admin.GET("/promotions/:code", promotionHandler.Get)
			admin.PUT("/promotions/:code", promotionHandler.Update)
			admin.DELETE("/promotions/:code", promotionHandler.Deactivate)
			admin.GET("/webhooks/failed", webhookHandler.ListFailed)
			admin.GET("/audit-logs", auditHandler.List)
		}

		// No auth: gateways authenticate via HMAC signature.
		api.POST("/webhooks/:gateway", webhookHandler.Ingest)
	}

	return r, &Services{
		Redemptions: redemptionSvc,
		Payments:    paymentSvc,
		Webhooks:    webhookSvc,
	}
}
