package repository

import (
	"github.com/prop-engine/internal/models"
	"gorm.io/gorm"
)

// ViolationRepository handles violation ledger data access
type ViolationRepository struct {
	db *gorm.DB
}

// NewViolationRepository creates a new ViolationRepository
func NewViolationRepository(db *gorm.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// Create appends a violation to the ledger
func (r *ViolationRepository) Create(violation *models.Violation) error {
	return r.db.Create(violation).Error
}

// GetByAccountID retrieves the ledger for an account, oldest first
func (r *ViolationRepository) GetByAccountID(accountID uint) ([]models.Violation, error) {
	var violations []models.Violation
	result := r.db.Where("account_id = ?", accountID).Order("occurred_at ASC").Find(&violations)
	return violations, result.Error
}

// DeleteByAccountID removes the ledger for an account (admin reset)
func (r *ViolationRepository) DeleteByAccountID(accountID uint) error {
	return r.db.Where("account_id = ?", accountID).Delete(&models.Violation{}).Error
}
