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

// ChallengeHandler handles challenge catalog and purchase API requests
type ChallengeHandler struct {
	challengeRepo  *repository.ChallengeRepository
	accountService *service.AccountService
}

// NewChallengeHandler creates a new ChallengeHandler
func NewChallengeHandler(challengeRepo *repository.ChallengeRepository, accountService *service.AccountService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeRepo:  challengeRepo,
		accountService: accountService,
	}
}

// ListChallenges returns the active challenge catalog
// GET /api/v1/challenges
func (h *ChallengeHandler) ListChallenges(c *gin.Context) {
	challenges, err := h.challengeRepo.GetActive()
	if err != nil {
		response.InternalError(c, "failed to load challenges")
		return
	}
	response.Success(c, challenges)
}

// GetChallenge returns a single challenge rule set
// GET /api/v1/challenges/:id
func (h *ChallengeHandler) GetChallenge(c *gin.Context) {
	challengeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid challenge id")
		return
	}

	challenge, err := h.challengeRepo.GetByID(uint(challengeID))
	if err != nil {
		if errors.Is(err, repository.ErrChallengeNotFound) {
			response.NotFound(c, "challenge not found")
			return
		}
		response.InternalError(c, "failed to load challenge")
		return
	}

	response.Success(c, challenge)
}

// PurchaseChallenge creates a new evaluation account for the user
// POST /api/v1/challenges/:id/purchase
func (h *ChallengeHandler) PurchaseChallenge(c *gin.Context) {
	userID := middleware.GetUserID(c)

	challengeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid challenge id")
		return
	}

	account, err := h.accountService.CreateChallengeAccount(userID, uint(challengeID))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrChallengeNotFound):
			response.NotFound(c, "challenge not found")
		case errors.Is(err, service.ErrChallengeInactive):
			response.BadRequest(c, "challenge is not active")
		case errors.Is(err, service.ErrChallengeModeDisabled):
			response.BadRequest(c, "challenge purchases are currently disabled")
		default:
			response.InternalError(c, "failed to create account")
		}
		return
	}

	response.Created(c, account)
}

// RegisterRoutes registers challenge routes
func (h *ChallengeHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	challenges := rg.Group("/challenges")
	{
		challenges.GET("", h.ListChallenges)
		challenges.GET("/:id", h.GetChallenge)
		challenges.POST("/:id/purchase", authMiddleware, h.PurchaseChallenge)
	}
}
