package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"unikrew/internal/config"
	"unikrew/internal/handler"
	"unikrew/internal/middleware"
	"unikrew/internal/service"
)

// Handlers groups the HTTP handlers mounted by Setup. Receipt may be nil
// when the server runs without persistence.
type Handlers struct {
	Health    *handler.HealthHandler
	Inference *handler.InferenceHandler
	Receipt   *handler.ReceiptHandler
}

// Setup configures the Gin engine with all routes and middleware. tokens
// may be nil, in which case /api/v1 is served without authentication.
func Setup(cfg *config.Config, logger *zap.Logger, tokens service.TokenService, h Handlers) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Stateless extraction
	r.POST("/unikrew/inference", h.Inference.Infer)

	if h.Receipt == nil {
		return r
	}

	v1 := r.Group("/api/v1")
	if tokens != nil {
		v1.Use(middleware.AuthMiddleware(tokens))
	}

	receipts := v1.Group("/receipts")
	receipts.POST("", h.Receipt.Upload)
	receipts.GET("", h.Receipt.List)
	receipts.GET("/export", h.Receipt.Export)
	receipts.GET("/:id", h.Receipt.GetByID)
	receipts.GET("/:id/image", h.Receipt.ImageURL)
	receipts.POST("/:id/retry", h.Receipt.Retry)
	receipts.DELETE("/:id", h.Receipt.Delete)

	return r
}
