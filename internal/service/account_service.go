package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prop-engine/internal/models"
	"github.com/prop-engine/internal/repository"
	"github.com/prop-engine/pkg/keygen"
)

var (
	ErrChallengeInactive     = errors.New("challenge is not active")
	ErrChallengeModeDisabled = errors.New("challenge mode is disabled")
	ErrAccountNumberExhaust  = errors.New("could not generate a unique account number")
	ErrAccountNotResettable  = errors.New("only challenge accounts can be reset")
)

const (
	accountNumberAttempts = 5

	challengeAccountPrefix = "CH"
	fundedAccountPrefix    = "FN"

	fundedExpiryDays = 365
)

// AccountService handles account lifecycle: creation at purchase, funded
// promotion, admin interventions and the dashboard read model
type AccountService struct {
	accountRepo   *repository.AccountRepository
	challengeRepo *repository.ChallengeRepository
	tradeRepo     *repository.TradeRepository
	violationRepo *repository.ViolationRepository
	settingsRepo  *repository.SettingsRepository
	notifier      *NotificationService
}

// NewAccountService creates a new AccountService
func NewAccountService(
	accountRepo *repository.AccountRepository,
	challengeRepo *repository.ChallengeRepository,
	tradeRepo *repository.TradeRepository,
	violationRepo *repository.ViolationRepository,
	settingsRepo *repository.SettingsRepository,
	notifier *NotificationService,
) *AccountService {
	return &AccountService{
		accountRepo:   accountRepo,
		challengeRepo: challengeRepo,
		tradeRepo:     tradeRepo,
		violationRepo: violationRepo,
		settingsRepo:  settingsRepo,
		notifier:      notifier,
	}
}

// CreateChallengeAccount creates the account for a settled challenge
// purchase, seeded from the template's fund size
func (s *AccountService) CreateChallengeAccount(userID, challengeID uint) (*models.ChallengeAccount, error) {
	settings, err := s.settingsRepo.Get()
	if err != nil {
		return nil, err
	}
	if !settings.ChallengeModeEnabled {
		return nil, ErrChallengeModeDisabled
	}

	challenge, err := s.challengeRepo.GetByID(challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.IsActive {
		return nil, ErrChallengeInactive
	}

	number, err := s.uniqueAccountNumber(challengeAccountPrefix)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account := seedAccount(challenge, userID)
	account.AccountNumber = number
	account.ExpiresAt = now.AddDate(0, 0, challenge.ExpiryDays)

	if err := s.accountRepo.Create(account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// seedAccount builds a fresh ACTIVE challenge account from the template
func seedAccount(challenge *models.Challenge, userID uint) *models.ChallengeAccount {
	fund := challenge.FundSize
	return &models.ChallengeAccount{
		UserID:              userID,
		ChallengeID:         challenge.ID,
		Type:                models.AccountTypeChallenge,
		Status:              models.StatusActive,
		CurrentPhase:        minPhase(challenge.StepsCount),
		TotalPhases:         challenge.StepsCount,
		InitialBalance:      fund,
		CurrentBalance:      fund,
		CurrentEquity:       fund,
		PhaseStartBalance:   fund,
		DayStartEquity:      fund,
		LowestEquityToday:   fund,
		LowestEquityOverall: fund,
		HighestEquity:       fund,
	}
}

func minPhase(steps int) int {
	if steps == 0 {
		return 0
	}
	return 1
}

// newFundedAccount builds the FUNDED record for a passed source account:
// balances reseeded from the template's fund size, no phases, back-linked to
// the source via SourceAccountID
func newFundedAccount(source *models.ChallengeAccount, challenge *models.Challenge, number string, now time.Time) *models.ChallengeAccount {
	fund := challenge.FundSize
	sourceID := source.ID
	return &models.ChallengeAccount{
		AccountNumber:       number,
		UserID:              source.UserID,
		ChallengeID:         source.ChallengeID,
		Type:                models.AccountTypeFunded,
		Status:              models.StatusFunded,
		CurrentPhase:        0,
		TotalPhases:         0,
		InitialBalance:      fund,
		CurrentBalance:      fund,
		CurrentEquity:       fund,
		PhaseStartBalance:   fund,
		DayStartEquity:      fund,
		LowestEquityToday:   fund,
		LowestEquityOverall: fund,
		HighestEquity:       fund,
		SourceAccountID:     &sourceID,
		ExpiresAt:           now.AddDate(0, 0, fundedExpiryDays),
	}
}

// PromoteToFunded creates the FUNDED account for a PASSED challenge account
// and links it back. Idempotent: an existing link or an existing funded
// record keyed by the source account is reused, so the two-step creation can
// be retried safely.
func (s *AccountService) PromoteToFunded(account *models.ChallengeAccount) (*models.ChallengeAccount, error) {
	if account.FundedAccountID != nil {
		return s.accountRepo.GetByID(*account.FundedAccountID)
	}

	// A previous attempt may have created the funded record without
	// completing the link.
	funded, err := s.accountRepo.GetBySourceAccountID(account.ID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		challenge, cerr := s.challengeRepo.GetByID(account.ChallengeID)
		if cerr != nil {
			return nil, cerr
		}

		number, nerr := s.uniqueAccountNumber(fundedAccountPrefix)
		if nerr != nil {
			return nil, nerr
		}

		funded = newFundedAccount(account, challenge, number, time.Now())
		if err := s.accountRepo.Create(funded); err != nil {
			return nil, fmt.Errorf("failed to create funded account: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	fundedID := funded.ID
	account.FundedAccountID = &fundedID
	if err := s.accountRepo.Update(account); err != nil {
		return nil, fmt.Errorf("failed to link funded account: %w", err)
	}

	log.Printf("[Account] Account %s promoted, funded account %s created", account.AccountNumber, funded.AccountNumber)
	return funded, nil
}

// RepairDanglingFundedLinks finds PASSED accounts whose funded promotion
// never completed and finishes it. Called by the maintenance sweep.
func (s *AccountService) RepairDanglingFundedLinks() error {
	accounts, err := s.accountRepo.GetPassedWithoutFundedLink()
	if err != nil {
		return err
	}

	for i := range accounts {
		if _, err := s.PromoteToFunded(&accounts[i]); err != nil {
			log.Printf("[Account] Failed to repair funded link for account %d: %v", accounts[i].ID, err)
		}
	}
	return nil
}

// uniqueAccountNumber generates an account number, retrying on collision a
// bounded number of times
func (s *AccountService) uniqueAccountNumber(prefix string) (string, error) {
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		number, err := keygen.AccountNumber(prefix)
		if err != nil {
			return "", err
		}
		taken, err := s.accountRepo.ExistsByAccountNumber(number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", ErrAccountNumberExhaust
}

// GetAccounts retrieves all accounts for a user
func (s *AccountService) GetAccounts(userID uint) ([]models.ChallengeAccount, error) {
	return s.accountRepo.GetByUserID(userID)
}

// GetAccount retrieves one account owned by the user
func (s *AccountService) GetAccount(userID, accountID uint) (*models.ChallengeAccount, error) {
	return s.accountRepo.GetByIDAndUserID(accountID, userID)
}

// ForcePass passes an account immediately and creates its funded promotion
func (s *AccountService) ForcePass(accountID uint) (*models.ChallengeAccount, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account.Status = models.StatusPassed
	account.PassedAt = &now
	if err := s.accountRepo.Update(account); err != nil {
		return nil, err
	}

	if _, err := s.PromoteToFunded(account); err != nil {
		return nil, err
	}
	s.notifier.SendCompletionNotice(account)
	return account, nil
}

// ForceFail fails an account with the given reason
func (s *AccountService) ForceFail(accountID uint, reason string) (*models.ChallengeAccount, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account.Status = models.StatusFailed
	account.FailReason = reason
	account.FailedAt = &now
	if err := s.accountRepo.Update(account); err != nil {
		return nil, err
	}

	s.notifier.SendFailureNotice(account, reason)
	return account, nil
}

// ExtendExpiry pushes the account's expiry out by the given number of days
func (s *AccountService) ExtendExpiry(accountID uint, days int) (*models.ChallengeAccount, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}

	account.ExpiresAt = account.ExpiresAt.AddDate(0, 0, days)
	if account.Status == models.StatusExpired && account.ExpiresAt.After(time.Now()) {
		account.Status = models.StatusActive
	}
	if err := s.accountRepo.Update(account); err != nil {
		return nil, err
	}
	return account, nil
}

// ResetAccount restores a challenge account to its initial state: balances
// reseeded from the template, counters zeroed, ledger cleared, open trades
// voided. Admin-only escape hatch.
func (s *AccountService) ResetAccount(accountID uint) (*models.ChallengeAccount, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account.Type != models.AccountTypeChallenge {
		return nil, ErrAccountNotResettable
	}

	challenge, err := s.challengeRepo.GetByID(account.ChallengeID)
	if err != nil {
		return nil, err
	}

	openTrades, err := s.tradeRepo.GetOpenByAccountID(account.ID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range openTrades {
		t := &openTrades[i]
		t.Status = models.TradeStatusClosed
		t.ClosePrice = t.OpenPrice
		t.CloseReason = models.CloseReasonAdminReset
		closedAt := now
		t.ClosedAt = &closedAt
		if err := s.tradeRepo.Update(t); err != nil {
			return nil, err
		}
	}

	if err := s.violationRepo.DeleteByAccountID(account.ID); err != nil {
		return nil, err
	}

	fresh := seedAccount(challenge, account.UserID)
	fresh.ID = account.ID
	fresh.AccountNumber = account.AccountNumber
	fresh.CreatedAt = account.CreatedAt
	fresh.ExpiresAt = now.AddDate(0, 0, challenge.ExpiryDays)

	if err := s.accountRepo.Update(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// ListAccounts returns a paginated admin listing
func (s *AccountService) ListAccounts(page, pageSize int) ([]models.ChallengeAccount, int64, error) {
	return s.accountRepo.GetAllPaginated(page, pageSize)
}

// Dashboard is the read model for the account overview UI
type Dashboard struct {
	Account *models.ChallengeAccount `json:"account"`

	ProfitTargetPercent   float64 `json:"profit_target_percent"`
	ProfitProgressPercent float64 `json:"profit_progress_percent"`

	DailyDrawdownUsed      float64 `json:"daily_drawdown_used"`
	DailyDrawdownLimit     float64 `json:"daily_drawdown_limit"`
	DailyDrawdownRemaining float64 `json:"daily_drawdown_remaining"`
	DailyAmountRemaining   float64 `json:"daily_amount_remaining"`

	OverallDrawdownUsed      float64 `json:"overall_drawdown_used"`
	OverallDrawdownLimit     float64 `json:"overall_drawdown_limit"`
	OverallDrawdownRemaining float64 `json:"overall_drawdown_remaining"`
	OverallAmountRemaining   float64 `json:"overall_amount_remaining"`

	TotalRealizedPnL  float64 `json:"total_realized_pnl"`
	TodayRealizedPnL  float64 `json:"today_realized_pnl"`
	TradesClosedToday int     `json:"trades_closed_today"`

	Violations []models.Violation `json:"violations"`
}

// GetDashboard builds the dashboard read model for an account
func (s *AccountService) GetDashboard(userID, accountID uint) (*Dashboard, error) {
	account, err := s.accountRepo.GetByIDAndUserID(accountID, userID)
	if err != nil {
		return nil, err
	}
	challenge, err := s.challengeRepo.GetByID(account.ChallengeID)
	if err != nil {
		return nil, err
	}

	totalPnL, err := s.tradeRepo.GetTotalRealizedPnL(account.ID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	closedToday, err := s.tradeRepo.GetClosedByDateRange(account.ID, dayStart, now)
	if err != nil {
		return nil, err
	}
	var todayPnL float64
	for i := range closedToday {
		todayPnL += closedToday[i].RealizedPnL
	}

	d := &Dashboard{
		Account:              account,
		TotalRealizedPnL:     totalPnL,
		TodayRealizedPnL:     todayPnL,
		TradesClosedToday:    len(closedToday),
		ProfitTargetPercent:  challenge.ProfitTargetForPhase(account.CurrentPhase),
		DailyDrawdownUsed:    account.CurrentDailyDrawdown,
		DailyDrawdownLimit:   challenge.MaxDailyDrawdownPercent,
		OverallDrawdownUsed:  account.CurrentOverallDrawdown,
		OverallDrawdownLimit: challenge.MaxOverallDrawdownPercent,
		Violations:           account.Violations,
	}

	if d.ProfitTargetPercent > 0 {
		d.ProfitProgressPercent = account.CurrentProfitPercent / d.ProfitTargetPercent * 100
	}
	if d.DailyDrawdownLimit > 0 {
		d.DailyDrawdownRemaining = d.DailyDrawdownLimit - d.DailyDrawdownUsed
		if d.DailyDrawdownRemaining < 0 {
			d.DailyDrawdownRemaining = 0
		}
	}
	if d.OverallDrawdownLimit > 0 {
		d.OverallDrawdownRemaining = d.OverallDrawdownLimit - d.OverallDrawdownUsed
		if d.OverallDrawdownRemaining < 0 {
			d.OverallDrawdownRemaining = 0
		}
	}
	if challenge.MaxDailyDrawdownAmount > 0 {
		used := account.DayStartEquity - account.LowestEquityToday
		d.DailyAmountRemaining = challenge.MaxDailyDrawdownAmount - used
		if d.DailyAmountRemaining < 0 {
			d.DailyAmountRemaining = 0
		}
	}
	if challenge.MaxOverallDrawdownAmount > 0 {
		used := account.InitialBalance - account.LowestEquityOverall
		d.OverallAmountRemaining = challenge.MaxOverallDrawdownAmount - used
		if d.OverallAmountRemaining < 0 {
			d.OverallAmountRemaining = 0
		}
	}

	return d, nil
}
