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

// AccountHandler handles account API requests
type AccountHandler struct {
	accountService *service.AccountService
	violationRepo  *repository.ViolationRepository
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService, violationRepo *repository.ViolationRepository) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		violationRepo:  violationRepo,
	}
}

// GetAccounts handles getting all accounts for the authenticated user
// GET /api/v1/accounts
func (h *AccountHandler) GetAccounts(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accounts, err := h.accountService.GetAccounts(userID)
	if err != nil {
		response.InternalError(c, "failed to load accounts")
		return
	}

	response.Success(c, accounts)
}

// GetAccount handles getting a single account
// GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accountID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}

	account, err := h.accountService.GetAccount(userID, uint(accountID))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			response.NotFound(c, "account not found")
			return
		}
		response.InternalError(c, "failed to load account")
		return
	}

	response.Success(c, account)
}

// GetDashboard returns the risk dashboard for an account
// GET /api/v1/accounts/:id/dashboard
func (h *AccountHandler) GetDashboard(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accountID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}

	dashboard, err := h.accountService.GetDashboard(userID, uint(accountID))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			response.NotFound(c, "account not found")
			return
		}
		response.InternalError(c, "failed to load dashboard")
		return
	}

	response.Success(c, dashboard)
}

// GetViolations returns the violation ledger for an account
// GET /api/v1/accounts/:id/violations
func (h *AccountHandler) GetViolations(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accountID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}

	// Ownership check before exposing the ledger
	if _, err := h.accountService.GetAccount(userID, uint(accountID)); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			response.NotFound(c, "account not found")
			return
		}
		response.InternalError(c, "failed to load account")
		return
	}

	violations, err := h.violationRepo.GetByAccountID(uint(accountID))
	if err != nil {
		response.InternalError(c, "failed to load violations")
		return
	}

	response.Success(c, violations)
}

// RegisterRoutes registers account routes
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	accounts := rg.Group("/accounts")
	accounts.Use(authMiddleware)
	{
		accounts.GET("", h.GetAccounts)
		accounts.GET("/:id", h.GetAccount)
		accounts.GET("/:id/dashboard", h.GetDashboard)
		accounts.GET("/:id/violations", h.GetViolations)
	}
}
