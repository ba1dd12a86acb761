package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prop-engine/internal/feed"
	"github.com/prop-engine/internal/service"
	"github.com/prop-engine/pkg/response"
)

// PriceHandler handles quote API requests
type PriceHandler struct {
	priceService *service.PriceService
}

// NewPriceHandler creates a new PriceHandler
func NewPriceHandler(priceService *service.PriceService) *PriceHandler {
	return &PriceHandler{
		priceService: priceService,
	}
}

// quoteView is the API shape of a quote, with the midpoint precomputed
type quoteView struct {
	feed.Quote
	Mid float64 `json:"mid"`
}

// GetQuote returns the current quote for a symbol
// GET /api/v1/prices/:symbol
func (h *PriceHandler) GetQuote(c *gin.Context) {
	symbol := c.Param("symbol")

	quote, err := h.priceService.GetQuote(symbol)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.Success(c, quoteView{Quote: quote, Mid: quote.Mid()})
}

// GetQuotes returns all fresh quotes
// GET /api/v1/prices
func (h *PriceHandler) GetQuotes(c *gin.Context) {
	quotes := h.priceService.Snapshot()
	if len(quotes) == 0 {
		response.NotFound(c, "no quotes available")
		return
	}

	views := make(map[string]quoteView, len(quotes))
	for symbol, q := range quotes {
		views[symbol] = quoteView{Quote: q, Mid: q.Mid()}
	}
	response.Success(c, views)
}

// GetFeedStatus returns the upstream feed connection status
// GET /api/v1/feed/status
func (h *PriceHandler) GetFeedStatus(c *gin.Context) {
	response.Success(c, gin.H{
		"connected": h.priceService.IsConnected(),
	})
}

// RegisterRoutes registers price routes
func (h *PriceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	prices := rg.Group("/prices")
	{
		prices.GET("", h.GetQuotes)
		prices.GET("/:symbol", h.GetQuote)
	}

	feedGroup := rg.Group("/feed")
	{
		feedGroup.GET("/status", h.GetFeedStatus)
	}
}
