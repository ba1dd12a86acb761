package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prop-engine/internal/models"
	"github.com/prop-engine/internal/repository"
	"github.com/prop-engine/internal/service"
	"github.com/prop-engine/pkg/response"
)

// AdminHandler handles administrative API requests
type AdminHandler struct {
	accountService *service.AccountService
	challengeRepo  *repository.ChallengeRepository
	settingsRepo   *repository.SettingsRepository
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	accountService *service.AccountService,
	challengeRepo *repository.ChallengeRepository,
	settingsRepo *repository.SettingsRepository,
) *AdminHandler {
	return &AdminHandler{
		accountService: accountService,
		challengeRepo:  challengeRepo,
		settingsRepo:   settingsRepo,
	}
}

// ListAccounts returns all accounts, paginated
// GET /api/v1/admin/accounts
func (h *AdminHandler) ListAccounts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	accounts, total, err := h.accountService.ListAccounts(page, pageSize)
	if err != nil {
		response.InternalError(c, "failed to load accounts")
		return
	}

	response.SuccessPaginated(c, accounts, total, page, pageSize)
}

// ForcePass marks an account as passed and promotes it
// POST /api/v1/admin/accounts/:id/pass
func (h *AdminHandler) ForcePass(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	account, err := h.accountService.ForcePass(accountID)
	if err != nil {
		h.writeAdminError(c, err)
		return
	}

	response.Success(c, account)
}

// ForceFail marks an account as failed
// POST /api/v1/admin/accounts/:id/fail
func (h *AdminHandler) ForceFail(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	account, err := h.accountService.ForceFail(accountID, req.Reason)
	if err != nil {
		h.writeAdminError(c, err)
		return
	}

	response.Success(c, account)
}

// ExtendExpiry moves an account's deadline forward
// POST /api/v1/admin/accounts/:id/extend
func (h *AdminHandler) ExtendExpiry(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req struct {
		Days int `json:"days" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	account, err := h.accountService.ExtendExpiry(accountID, req.Days)
	if err != nil {
		h.writeAdminError(c, err)
		return
	}

	response.Success(c, account)
}

// ResetAccount restores an account to its purchase state
// POST /api/v1/admin/accounts/:id/reset
func (h *AdminHandler) ResetAccount(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	account, err := h.accountService.ResetAccount(accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotResettable) {
			response.BadRequest(c, "only challenge accounts can be reset")
			return
		}
		h.writeAdminError(c, err)
		return
	}

	response.Success(c, account)
}

// CreateChallenge adds a challenge rule set to the catalog
// POST /api/v1/admin/challenges
func (h *AdminHandler) CreateChallenge(c *gin.Context) {
	var challenge models.Challenge
	if err := c.ShouldBindJSON(&challenge); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	challenge.ID = 0

	if err := h.challengeRepo.Create(&challenge); err != nil {
		response.InternalError(c, "failed to create challenge")
		return
	}

	response.Created(c, challenge)
}

// UpdateSettings updates the platform settings row
// PUT /api/v1/admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	settings, err := h.settingsRepo.Get()
	if err != nil {
		response.InternalError(c, "failed to load settings")
		return
	}

	if err := c.ShouldBindJSON(settings); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.settingsRepo.Update(settings); err != nil {
		response.InternalError(c, "failed to update settings")
		return
	}

	response.Success(c, settings)
}

// GetSettings returns the platform settings row
// GET /api/v1/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsRepo.Get()
	if err != nil {
		response.InternalError(c, "failed to load settings")
		return
	}
	response.Success(c, settings)
}

func (h *AdminHandler) accountID(c *gin.Context) (uint, bool) {
	accountID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return 0, false
	}
	return uint(accountID), true
}

func (h *AdminHandler) writeAdminError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrAccountNotFound) {
		response.NotFound(c, "account not found")
		return
	}
	response.InternalError(c, "admin operation failed")
}

// RegisterRoutes registers admin routes
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware, adminMiddleware gin.HandlerFunc) {
	admin := rg.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.GET("/accounts", h.ListAccounts)
		admin.POST("/accounts/:id/pass", h.ForcePass)
		admin.POST("/accounts/:id/fail", h.ForceFail)
		admin.POST("/accounts/:id/extend", h.ExtendExpiry)
		admin.POST("/accounts/:id/reset", h.ResetAccount)
		admin.POST("/challenges", h.CreateChallenge)
		admin.GET("/settings", h.GetSettings)
		admin.PUT("/settings", h.UpdateSettings)
	}
}
