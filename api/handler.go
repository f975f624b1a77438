package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"presale_api/internal/presale"
)

// presaleHandler holds the presale service and implements the HTTP
// handlers the display layer reads from.
type presaleHandler struct {
	service *presale.Service
	logger  *zap.Logger
}

// NewPresaleHandler creates a new presale handler.
func NewPresaleHandler(service *presale.Service, logger *zap.Logger) *presaleHandler {
	return &presaleHandler{
		service: service,
		logger:  logger,
	}
}

type amountRequest struct {
	NativeAmount decimal.Decimal `json:"native_amount"`
}

// handleGetPrice handles GET /presale/price.
func (h *presaleHandler) handleGetPrice(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.service.Price())
}

// handleGetStatus handles GET /presale/status.
func (h *presaleHandler) handleGetStatus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.service.Status())
}

// handleConnectWallet handles POST /presale/wallet.
func (h *presaleHandler) handleConnectWallet(ctx *gin.Context) {
	address, err := h.service.ConnectWallet(ctx.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, presale.ErrNoProvider):
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "no wallet provider available"})
		case errors.Is(err, presale.ErrUserRejected):
			ctx.JSON(http.StatusForbidden, gin.H{"error": "wallet connection rejected"})
		default:
			ctx.JSON(http.StatusBadGateway, gin.H{"error": "wallet connection failed"})
		}
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"address": address,
		"display": presale.ShortAddress(address),
	})
}

// handleQuote handles POST /presale/quote: the live preview, clamped to
// the remaining supply.
func (h *presaleHandler) handleQuote(ctx *gin.Context) {
	var req amountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind quote request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	quote, err := h.service.Preview(req.NativeAmount)
	if err != nil {
		if errors.Is(err, presale.ErrInvalidAmount) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to compute quote", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute quote"})
		return
	}

	ctx.JSON(http.StatusOK, quote)
}

// handlePurchase handles POST /presale/purchase: the commit path, which
// rejects rather than clamps when the quote exceeds the remaining supply.
func (h *presaleHandler) handlePurchase(ctx *gin.Context) {
	var req amountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind purchase request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	record, err := h.service.Purchase(ctx.Request.Context(), req.NativeAmount)
	if err != nil {
		h.logger.Error("purchase failed", zap.Error(err), zap.String("native_amount", req.NativeAmount.String()))
		ctx.JSON(purchaseStatusCode(err), gin.H{
			"error": err.Error(),
			"state": presale.TerminalState(err).String(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"state":       presale.StateConfirmed.String(),
		"transaction": record,
	})
}

func purchaseStatusCode(err error) int {
	switch {
	case errors.Is(err, presale.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, presale.ErrNoWallet),
		errors.Is(err, presale.ErrNotStarted),
		errors.Is(err, presale.ErrEnded),
		errors.Is(err, presale.ErrSoldOut),
		errors.Is(err, presale.ErrExceedsRemaining):
		return http.StatusConflict
	case errors.Is(err, presale.ErrPriceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, presale.ErrTransferFailed), errors.Is(err, presale.ErrTimeout):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleGetTransactions handles GET /presale/transactions.
func (h *presaleHandler) handleGetTransactions(ctx *gin.Context) {
	records, err := h.service.Transactions()
	if err != nil {
		h.logger.Error("failed to load transactions", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transactions"})
		return
	}
	if records == nil {
		records = []*presale.TransactionRecord{}
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": records})
}
