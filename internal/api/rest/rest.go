package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/chaintrace/provenance-api/internal/api/middleware"
	"github.com/chaintrace/provenance-api/internal/auth"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, verifier *auth.Verifier) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Session endpoints (the login itself is the authentication)
		v1.POST("/auth/login", handler.Login)
		v1.POST("/auth/refresh", handler.RefreshToken)
		v1.GET("/auth/verify", handler.VerifyToken)

		// Mutating product endpoints (require a session credential)
		authed := v1.Group("", middleware.Auth(verifier))
		{
			authed.POST("/products", handler.CreateProduct)
			authed.POST("/products/:productId/transfer", handler.TransferOwnership)
			authed.POST("/products/:productId/repair", handler.RecordRepair)
			authed.POST("/products/:productId/retire", handler.RetireProduct)
		}

		// Read endpoints (public)
		v1.GET("/products/:productId/history", handler.GetProductHistory)
		v1.GET("/transactions", handler.GetTransactions)
	}
}
