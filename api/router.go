package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"presale_api/internal/presale"
)

// InitRoutes registers all presale endpoints on the given Gin engine.
// The display layer polls the GET endpoints and drives purchases through
// the POST ones.
func InitRoutes(e *gin.Engine, service *presale.Service, logger *zap.Logger) {
	handler := NewPresaleHandler(service, logger)

	e.GET("/presale/price", handler.handleGetPrice)
	e.GET("/presale/status", handler.handleGetStatus)
	e.GET("/presale/transactions", handler.handleGetTransactions)
	e.POST("/presale/wallet", handler.handleConnectWallet)
	e.POST("/presale/quote", handler.handleQuote)
	e.POST("/presale/purchase", handler.handlePurchase)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}
