package repository

import (
	"errors"
	"time"

	"github.com/prop-engine/internal/models"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

// AccountRepository handles challenge account data access
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account
func (r *AccountRepository) Create(account *models.ChallengeAccount) error {
	return r.db.Create(account).Error
}

// GetByID retrieves an account by ID with its violation ledger loaded
func (r *AccountRepository) GetByID(id uint) (*models.ChallengeAccount, error) {
	var account models.ChallengeAccount
	result := r.db.Preload("Violations").First(&account, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, result.Error
	}
	return &account, nil
}

// GetByIDAndUserID retrieves an account by ID and user ID
func (r *AccountRepository) GetByIDAndUserID(id, userID uint) (*models.ChallengeAccount, error) {
	var account models.ChallengeAccount
	result := r.db.Preload("Violations").Where("id = ? AND user_id = ?", id, userID).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, result.Error
	}
	return &account, nil
}

// GetByUserID retrieves all accounts for a user
func (r *AccountRepository) GetByUserID(userID uint) ([]models.ChallengeAccount, error) {
	var accounts []models.ChallengeAccount
	result := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&accounts)
	return accounts, result.Error
}

// GetBySourceAccountID retrieves the funded account created from a source
// challenge account
func (r *AccountRepository) GetBySourceAccountID(sourceID uint) (*models.ChallengeAccount, error) {
	var account models.ChallengeAccount
	result := r.db.Where("source_account_id = ?", sourceID).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, result.Error
	}
	return &account, nil
}

// GetActiveExpiredBefore retrieves ACTIVE accounts whose expiry is past
func (r *AccountRepository) GetActiveExpiredBefore(now time.Time) ([]models.ChallengeAccount, error) {
	var accounts []models.ChallengeAccount
	result := r.db.Where("status = ? AND expires_at < ?", models.StatusActive, now).Find(&accounts)
	return accounts, result.Error
}

// GetPassedWithoutFundedLink retrieves PASSED accounts whose funded promotion
// has not been linked yet
func (r *AccountRepository) GetPassedWithoutFundedLink() ([]models.ChallengeAccount, error) {
	var accounts []models.ChallengeAccount
	result := r.db.Where("status = ? AND funded_account_id IS NULL", models.StatusPassed).Find(&accounts)
	return accounts, result.Error
}

// GetAllPaginated retrieves accounts with pagination (admin listing)
func (r *AccountRepository) GetAllPaginated(page, pageSize int) ([]models.ChallengeAccount, int64, error) {
	var accounts []models.ChallengeAccount
	var total int64

	if err := r.db.Model(&models.ChallengeAccount{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	result := r.db.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&accounts)

	return accounts, total, result.Error
}

// ExistsByAccountNumber checks whether an account number is taken
func (r *AccountRepository) ExistsByAccountNumber(number string) (bool, error) {
	var count int64
	err := r.db.Model(&models.ChallengeAccount{}).Where("account_number = ?", number).Count(&count).Error
	return count > 0, err
}

// Update updates an account
func (r *AccountRepository) Update(account *models.ChallengeAccount) error {
	return r.db.Save(account).Error
}
