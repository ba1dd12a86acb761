package service

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prop-engine/internal/models"
	"github.com/prop-engine/internal/pricing"
	"github.com/prop-engine/internal/repository"
)

var (
	ErrTradingDisabled     = errors.New("challenge trading is disabled")
	ErrNoQuote             = errors.New("no quote available for symbol")
	ErrTradeAlreadyClosed  = errors.New("trade is already closed")
	ErrTradeNotOwned       = errors.New("trade does not belong to this account")
	ErrAccountNotTradeable = errors.New("account is not tradeable")
)

// OpenTradeRequest represents a request to open a trade
type OpenTradeRequest struct {
	AccountID  uint             `json:"account_id"`
	Symbol     string           `json:"symbol" binding:"required"`
	Segment    string           `json:"segment"`
	Side       models.TradeSide `json:"side" binding:"required,oneof=BUY SELL"`
	Quantity   float64          `json:"quantity" binding:"required,gt=0"`
	Leverage   int              `json:"leverage" binding:"omitempty,min=1"`
	StopLoss   *float64         `json:"stop_loss"`
	TakeProfit *float64         `json:"take_profit"`
}

// TradingService orchestrates the open/close paths: per-account locking,
// rule validation, execution pricing, persistence and lifecycle side effects.
// All mutation of one account is serialized through its lock; operations on
// different accounts run in parallel.
type TradingService struct {
	accountRepo    *repository.AccountRepository
	challengeRepo  *repository.ChallengeRepository
	tradeRepo      *repository.TradeRepository
	violationRepo  *repository.ViolationRepository
	settingsRepo   *repository.SettingsRepository
	riskService    *RiskService
	chargesService *ChargesService
	priceService   *PriceService
	accountService *AccountService
	notifier       *NotificationService

	accountLocks map[uint]*sync.Mutex
	locksMux     sync.Mutex
}

// NewTradingService creates a new TradingService
func NewTradingService(
	accountRepo *repository.AccountRepository,
	challengeRepo *repository.ChallengeRepository,
	tradeRepo *repository.TradeRepository,
	violationRepo *repository.ViolationRepository,
	settingsRepo *repository.SettingsRepository,
	riskService *RiskService,
	chargesService *ChargesService,
	priceService *PriceService,
	accountService *AccountService,
	notifier *NotificationService,
) *TradingService {
	return &TradingService{
		accountRepo:    accountRepo,
		challengeRepo:  challengeRepo,
		tradeRepo:      tradeRepo,
		violationRepo:  violationRepo,
		settingsRepo:   settingsRepo,
		riskService:    riskService,
		chargesService: chargesService,
		priceService:   priceService,
		accountService: accountService,
		notifier:       notifier,
		accountLocks:   make(map[uint]*sync.Mutex),
	}
}

// lockAccount acquires the per-account mutex and returns the unlock func
func (s *TradingService) lockAccount(accountID uint) func() {
	s.locksMux.Lock()
	mu, ok := s.accountLocks[accountID]
	if !ok {
		mu = &sync.Mutex{}
		s.accountLocks[accountID] = mu
	}
	s.locksMux.Unlock()

	mu.Lock()
	return mu.Unlock
}

// OpenTrade validates and executes a trade open. A *Rejection is returned
// when a rule refused the trade; error covers infrastructure failures.
func (s *TradingService) OpenTrade(userID uint, req *OpenTradeRequest) (*models.Trade, *Rejection, error) {
	unlock := s.lockAccount(req.AccountID)
	defer unlock()

	settings, err := s.settingsRepo.Get()
	if err != nil {
		return nil, nil, err
	}
	if !settings.ChallengeModeEnabled {
		return nil, nil, ErrTradingDisabled
	}

	account, err := s.accountRepo.GetByIDAndUserID(req.AccountID, userID)
	if err != nil {
		return nil, nil, err
	}
	challenge, err := s.challengeRepo.GetByID(account.ChallengeID)
	if err != nil {
		return nil, nil, err
	}

	quote, err := s.priceService.GetQuote(req.Symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoQuote, req.Symbol)
	}

	now := time.Now()
	params := &OpenTradeParams{
		Symbol:     req.Symbol,
		Segment:    req.Segment,
		Side:       req.Side,
		Quantity:   req.Quantity,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Leverage:   req.Leverage,
	}

	if rej := s.riskService.ValidateOpen(account, challenge, params, quote.Bid, quote.Ask, now); rej != nil {
		s.recordRejection(account, rej, now)
		return nil, rej, nil
	}

	charges, err := s.chargesService.GetChargesForTrade(userID, req.Symbol, req.Segment)
	if err != nil {
		return nil, nil, err
	}

	contractSize := pricing.ContractSize(req.Segment)
	leverage := effectiveLeverage(req.Leverage, challenge.MaxLeverage)
	execPrice := pricing.ExecutionPrice(req.Side, quote.Bid, quote.Ask, charges.SpreadType, charges.SpreadValue, req.Symbol)
	margin := pricing.RequiredMargin(req.Quantity, contractSize, execPrice, leverage)

	var commission float64
	if charges.AppliesTo(req.Side) {
		commission = pricing.Commission(charges.CommissionType, charges.CommissionValue, req.Quantity, contractSize, execPrice)
	}

	trade := &models.Trade{
		AccountID:     account.ID,
		ClientTradeID: uuid.New().String(),
		Symbol:        req.Symbol,
		Segment:       req.Segment,
		Side:          req.Side,
		Quantity:      req.Quantity,
		ContractSize:  contractSize,
		Leverage:      leverage,
		Margin:        margin,
		OpenPrice:     execPrice,
		StopLoss:      req.StopLoss,
		TakeProfit:    req.TakeProfit,
		Commission:    commission,
		Status:        models.TradeStatusOpen,
		OpenedAt:      now,
	}
	if err := s.tradeRepo.Create(trade); err != nil {
		return nil, nil, fmt.Errorf("failed to create trade: %w", err)
	}

	account.OnTradeOpened(now)
	account.CurrentBalance -= commission
	account.UpdateEquity(account.CurrentBalance)

	// Commission alone can tip an account over a drawdown limit
	if rej := s.riskService.CheckDrawdownBreach(account, challenge, now); rej != nil {
		s.notifier.SendFailureNotice(account, rej.Message)
	}

	if err := s.persistAccount(account); err != nil {
		return nil, nil, err
	}

	return trade, nil, nil
}

// CloseTrade validates and executes a manual close at the live market price
func (s *TradingService) CloseTrade(userID, tradeID uint) (*models.Trade, *Rejection, error) {
	trade, err := s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, nil, err
	}

	unlock := s.lockAccount(trade.AccountID)
	defer unlock()

	// Reload under the lock; another close may have won the race
	trade, err = s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, nil, err
	}
	if !trade.IsOpen() {
		return nil, nil, ErrTradeAlreadyClosed
	}

	account, err := s.accountRepo.GetByIDAndUserID(trade.AccountID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// The trade exists, the account behind it is someone else's
			return nil, nil, ErrTradeNotOwned
		}
		return nil, nil, err
	}
	challenge, err := s.challengeRepo.GetByID(account.ChallengeID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if rej := s.riskService.ValidateClose(account, challenge, trade, now); rej != nil {
		s.recordRejection(account, rej, now)
		return nil, rej, nil
	}

	quote, err := s.priceService.GetQuote(trade.Symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoQuote, trade.Symbol)
	}

	// Close at the opposite side's reference price
	closePrice := quote.Bid
	if trade.Side == models.TradeSideSell {
		closePrice = quote.Ask
	}

	closed, err := s.finishClose(account, challenge, trade, closePrice, models.CloseReasonManual, now)
	return closed, nil, err
}

// CloseTradeAt closes a trade at an exact price. The SL/TP evaluator uses
// this so triggered closes settle at the configured level, not the touched
// market price. Already-closed trades return ErrTradeAlreadyClosed.
func (s *TradingService) CloseTradeAt(tradeID uint, closePrice float64, reason string) (*models.Trade, error) {
	trade, err := s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockAccount(trade.AccountID)
	defer unlock()

	trade, err = s.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsOpen() {
		return nil, ErrTradeAlreadyClosed
	}

	account, err := s.accountRepo.GetByID(trade.AccountID)
	if err != nil {
		return nil, err
	}
	challenge, err := s.challengeRepo.GetByID(account.ChallengeID)
	if err != nil {
		return nil, err
	}

	return s.finishClose(account, challenge, trade, closePrice, reason, time.Now())
}

// finishClose settles a close: realized P&L into the balance, equity update,
// breach check and phase progression. Shared by manual and triggered closes.
func (s *TradingService) finishClose(account *models.ChallengeAccount, challenge *models.Challenge, trade *models.Trade, closePrice float64, reason string, now time.Time) (*models.Trade, error) {
	charges, err := s.chargesService.GetChargesForTrade(account.UserID, trade.Symbol, trade.Segment)
	if err != nil {
		return nil, err
	}

	closeSide := models.TradeSideSell
	if trade.Side == models.TradeSideSell {
		closeSide = models.TradeSideBuy
	}
	var closeCommission float64
	if charges.AppliesTo(closeSide) {
		closeCommission = pricing.Commission(charges.CommissionType, charges.CommissionValue, trade.Quantity, trade.ContractSize, closePrice)
	}

	pnl := pricing.RealizedPnL(trade.Side, trade.OpenPrice, closePrice, trade.Quantity, trade.ContractSize)

	trade.Status = models.TradeStatusClosed
	trade.ClosePrice = closePrice
	trade.CloseReason = reason
	trade.RealizedPnL = pnl
	trade.Commission += closeCommission
	closedAt := now
	trade.ClosedAt = &closedAt
	if err := s.tradeRepo.Update(trade); err != nil {
		return nil, fmt.Errorf("failed to update trade: %w", err)
	}

	account.OnTradeClosed()
	account.CurrentBalance += pnl - closeCommission
	account.UpdateEquity(account.CurrentBalance)

	outcome := s.riskService.ApplyTradeClose(account, challenge, now)

	if err := s.persistAccount(account); err != nil {
		return nil, err
	}

	switch outcome {
	case PhaseOutcomeFailed:
		log.Printf("[Trading] Account %s failed: %s", account.AccountNumber, account.FailReason)
		s.notifier.SendFailureNotice(account, account.FailReason)
	case PhaseOutcomeAdvanced:
		log.Printf("[Trading] Account %s advanced to phase %d/%d", account.AccountNumber, account.CurrentPhase, account.TotalPhases)
	case PhaseOutcomePassed:
		log.Printf("[Trading] Account %s passed all phases", account.AccountNumber)
		if _, err := s.accountService.PromoteToFunded(account); err != nil {
			// The maintenance sweep repairs the dangling link later
			log.Printf("[Trading] Funded promotion incomplete for account %d: %v", account.ID, err)
		}
		s.notifier.SendCompletionNotice(account)
	}

	return trade, nil
}

// PushEquity records a real-time equity observation for an account and runs
// breach detection. Trade counters are untouched, so this is safe on every
// price tick.
func (s *TradingService) PushEquity(userID, accountID uint, equity float64) (*models.ChallengeAccount, *Rejection, error) {
	unlock := s.lockAccount(accountID)
	defer unlock()

	account, err := s.accountRepo.GetByIDAndUserID(accountID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !account.CanTrade() {
		return nil, nil, ErrAccountNotTradeable
	}
	challenge, err := s.challengeRepo.GetByID(account.ChallengeID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	account.UpdateEquity(equity)
	rej := s.riskService.CheckDrawdownBreach(account, challenge, now)

	if err := s.persistAccount(account); err != nil {
		return nil, nil, err
	}
	if rej != nil {
		log.Printf("[Trading] Account %s failed on equity push: %s", account.AccountNumber, rej.Message)
		s.notifier.SendFailureNotice(account, rej.Message)
	}

	return account, rej, nil
}

// GetTrades returns trades for an account owned by the user
func (s *TradingService) GetTrades(userID, accountID uint, page, pageSize int) ([]models.Trade, int64, error) {
	if _, err := s.accountRepo.GetByIDAndUserID(accountID, userID); err != nil {
		return nil, 0, err
	}
	return s.tradeRepo.GetByAccountIDPaginated(accountID, page, pageSize)
}

// GetOpenTrades returns the open trades for an account owned by the user
func (s *TradingService) GetOpenTrades(userID, accountID uint) ([]models.Trade, error) {
	if _, err := s.accountRepo.GetByIDAndUserID(accountID, userID); err != nil {
		return nil, err
	}
	return s.tradeRepo.GetOpenByAccountID(accountID)
}

// recordRejection applies the escalation rules for a refused trade attempt
// and persists whatever state the checks changed (expiry transition, new
// ledger entries, escalation failure).
func (s *TradingService) recordRejection(account *models.ChallengeAccount, rej *Rejection, now time.Time) {
	escalated := false
	if rej.Code.IsRuleViolation() {
		escalated = s.riskService.TrackRuleViolation(account, rej.Code, rej.Message, nil, now)
	}

	if err := s.persistAccount(account); err != nil {
		log.Printf("[Trading] Failed to persist rejection state for account %d: %v", account.ID, err)
		return
	}

	if escalated {
		log.Printf("[Trading] Account %s failed by repeated %s violations", account.AccountNumber, rej.Code)
		s.notifier.SendFailureNotice(account, account.FailReason)
	}
}

// persistAccount saves the account and any ledger entries added in memory
func (s *TradingService) persistAccount(account *models.ChallengeAccount) error {
	for i := range account.Violations {
		if account.Violations[i].ID == 0 {
			account.Violations[i].AccountID = account.ID
			if err := s.violationRepo.Create(&account.Violations[i]); err != nil {
				return fmt.Errorf("failed to persist violation: %w", err)
			}
		}
	}
	// Save scalar fields only; the ledger is persisted above
	violations := account.Violations
	account.Violations = nil
	err := s.accountRepo.Update(account)
	account.Violations = violations
	if err != nil {
		return fmt.Errorf("failed to persist account: %w", err)
	}
	return nil
}
