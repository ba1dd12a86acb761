package repository

import (
	"errors"

	"github.com/prop-engine/internal/models"
	"gorm.io/gorm"
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
)

// ChallengeRepository handles challenge template data access
type ChallengeRepository struct {
	db *gorm.DB
}

// NewChallengeRepository creates a new ChallengeRepository
func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Create creates a new challenge template
func (r *ChallengeRepository) Create(challenge *models.Challenge) error {
	return r.db.Create(challenge).Error
}

// GetByID retrieves a challenge by ID
func (r *ChallengeRepository) GetByID(id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	result := r.db.First(&challenge, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, result.Error
	}
	return &challenge, nil
}

// GetActive retrieves all active challenge templates
func (r *ChallengeRepository) GetActive() ([]models.Challenge, error) {
	var challenges []models.Challenge
	result := r.db.Where("is_active = ?", true).Order("fund_size ASC").Find(&challenges)
	return challenges, result.Error
}

// Update updates a challenge template
func (r *ChallengeRepository) Update(challenge *models.Challenge) error {
	return r.db.Save(challenge).Error
}
