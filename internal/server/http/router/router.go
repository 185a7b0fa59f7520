package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/weijianfa/ApolloOracle/internal/config"
	"github.com/weijianfa/ApolloOracle/internal/pkg/signature"
	"github.com/weijianfa/ApolloOracle/internal/server/http/handlers"
	"github.com/weijianfa/ApolloOracle/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware. The webhook
// endpoint stays outside the compressed API group: its signature covers
// the raw request body.
func Setup(facade handlers.Facade, verifier *signature.Verifier, cfg *config.Config, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))

	webhookHandler := handlers.NewWebhookHandler(facade, verifier, logger)
	orderHandler := handlers.NewOrderHandler(facade)

	engine.POST("/webhook/payment", webhookHandler.Receive)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	api.Use(middleware.TokenRequired(cfg.APIToken))
	api.Use(middleware.DecompressRequest())
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/:orderID", orderHandler.Status)

	return engine
}
