package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saastracker-backend/internal/core"
	"saastracker-backend/internal/middleware"
)

// HTTPFallbackPath is the plain HTTP endpoint for creating a user.
const HTTPFallbackPath = "/userCreateHttp"

// Services groups the services the routes dispatch to.
type Services struct {
	Users   core.UserService
	Tools   core.ToolService
	Billing core.BillingService
}

// NewRouter builds a gin engine with the global middleware (logging, recovery, CORS)
// and every route registered.
func NewRouter(logger *zap.Logger, clientURL string, authMW *middleware.AuthMiddleware, svc Services) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestLogger(logger),
		middleware.RecoveryMiddleware(logger),
		middleware.CORSMiddleware(clientURL, HTTPFallbackPath),
	)
	SetupRoutes(router, logger, authMW, svc)
	return router
}

// SetupRoutes registers the callable RPC surface under /rpc, the HTTP create-user
// fallback, the Stripe webhook and the health check.
func SetupRoutes(router *gin.Engine, logger *zap.Logger, authMW *middleware.AuthMiddleware, svc Services) {
	userHandler := NewUserHandler(svc.Users, logger)
	authHandler := NewAuthHandler(svc.Users)
	toolHandler := NewToolHandler(svc.Tools)
	billingHandler := NewBillingHandler(svc.Billing, logger)

	callables := NewCallables(logger)
	userHandler.Register(callables)
	authHandler.Register(callables)
	toolHandler.Register(callables)
	billingHandler.Register(callables)

	// Like callable functions, the token is optional here; each RPC decides whether
	// it needs an authenticated caller.
	rpc := router.Group("/rpc", authMW.Attach())
	{
		rpc.POST("/:name", callables.Serve)
	}

	router.OPTIONS(HTTPFallbackPath, userHandler.CreateHTTPPreflight)
	router.POST(HTTPFallbackPath, userHandler.CreateHTTP)

	router.POST("/billing/webhooks/stripe", billingHandler.HandleStripeWebhook)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	logger.Info("API routes configured", zap.Int("callables", callables.Len()))
}
