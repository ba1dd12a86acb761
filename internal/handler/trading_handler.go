package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prop-engine/internal/middleware"
	"github.com/prop-engine/internal/repository"
	"github.com/prop-engine/internal/service"
	"github.com/prop-engine/pkg/response"
)

// TradingHandler handles trade API requests
type TradingHandler struct {
	tradingService *service.TradingService
}

// NewTradingHandler creates a new TradingHandler
func NewTradingHandler(tradingService *service.TradingService) *TradingHandler {
	return &TradingHandler{
		tradingService: tradingService,
	}
}

// OpenTrade handles opening a trade
// POST /api/v1/trading/:account_id/open
func (h *TradingHandler) OpenTrade(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accountID, err := strconv.ParseUint(c.Param("account_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}

	var req service.OpenTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.AccountID = uint(accountID)

	trade, rej, err := h.tradingService.OpenTrade(userID, &req)
	if err != nil {
		h.writeTradeError(c, err)
		return
	}
	if rej != nil {
		response.Rejected(c, rejectionPayload(rej))
		return
	}

	response.Created(c, trade)
}

// CloseTrade handles manually closing a trade
// POST /api/v1/trading/:account_id/trades/:trade_id/close
func (h *TradingHandler) CloseTrade(c *gin.Context) {
	userID := middleware.GetUserID(c)

	tradeID, err := strconv.ParseUint(c.Param("trade_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid trade id")
		return
	}

	trade, rej, err := h.tradingService.CloseTrade(userID, uint(tradeID))
	if err != nil {
		h.writeTradeError(c, err)
		return
	}
	if rej != nil {
		response.Rejected(c, rejectionPayload(rej))
		return
	}

	response.Success(c, trade)
}

// GetTrades returns the trade history for an account
// GET /api/v1/trading/:account_id/trades
func (h *TradingHandler) GetTrades(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accountID, err := strconv.ParseUint(c.Param("account_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	trades, total, err := h.tradingService.GetTrades(userID, uint(accountID), page, pageSize)
	if err != nil {
		h.writeTradeError(c, err)
		return
	}

	response.SuccessPaginated(c, trades, total, page, pageSize)
}

// GetOpenTrades returns the open trades for an account
// GET /api/v1/trading/:account_id/trades/open
func (h *TradingHandler) GetOpenTrades(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accountID, err := strconv.ParseUint(c.Param("account_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}

	trades, err := h.tradingService.GetOpenTrades(userID, uint(accountID))
	if err != nil {
		h.writeTradeError(c, err)
		return
	}

	response.Success(c, trades)
}

// PushEquity records a live equity observation for an account
// POST /api/v1/trading/:account_id/equity
func (h *TradingHandler) PushEquity(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accountID, err := strconv.ParseUint(c.Param("account_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}

	var req struct {
		Equity float64 `json:"equity" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	account, rej, err := h.tradingService.PushEquity(userID, uint(accountID), req.Equity)
	if err != nil {
		h.writeTradeError(c, err)
		return
	}
	if rej != nil {
		response.Rejected(c, rejectionPayload(rej))
		return
	}

	response.Success(c, account)
}

func (h *TradingHandler) writeTradeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		response.NotFound(c, "account not found")
	case errors.Is(err, repository.ErrTradeNotFound):
		response.NotFound(c, "trade not found")
	case errors.Is(err, service.ErrTradeAlreadyClosed):
		response.BadRequest(c, "trade is already closed")
	case errors.Is(err, service.ErrTradeNotOwned):
		response.Forbidden(c, "trade does not belong to this user")
	case errors.Is(err, service.ErrAccountNotTradeable):
		response.BadRequest(c, "account is not in a tradeable state")
	case errors.Is(err, service.ErrTradingDisabled):
		response.BadRequest(c, "trading is currently disabled")
	case errors.Is(err, service.ErrNoQuote):
		response.BadRequest(c, "no quote available for symbol")
	default:
		response.InternalError(c, "trade operation failed")
	}
}

func rejectionPayload(rej *service.Rejection) response.RejectionPayload {
	return response.RejectionPayload{
		RuleCode: string(rej.Code),
		Message:  rej.Message,
		Hint:     rej.Hint,
		Context:  rej.Context,
	}
}

// RegisterRoutes registers trading routes
func (h *TradingHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	trading := rg.Group("/trading")
	trading.Use(authMiddleware, middleware.TradeLoggerMiddleware())
	{
		trading.POST("/:account_id/open", h.OpenTrade)
		trading.POST("/:account_id/trades/:trade_id/close", h.CloseTrade)
		trading.GET("/:account_id/trades", h.GetTrades)
		trading.GET("/:account_id/trades/open", h.GetOpenTrades)
		trading.POST("/:account_id/equity", h.PushEquity)
	}
}
