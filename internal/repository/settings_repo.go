package repository

import (
	"errors"

	"github.com/prop-engine/internal/models"
	"gorm.io/gorm"
)

var (
	ErrChargesNotFound = errors.New("trade charges not found")
)

// SettingsRepository handles the platform settings row and the per-symbol
// charges overrides
type SettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves the settings row, creating a default one on first access
func (r *SettingsRepository) Get() (*models.PlatformSettings, error) {
	var settings models.PlatformSettings
	result := r.db.First(&settings)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			settings = models.PlatformSettings{ChallengeModeEnabled: true}
			if err := r.db.Create(&settings).Error; err != nil {
				return nil, err
			}
			return &settings, nil
		}
		return nil, result.Error
	}
	return &settings, nil
}

// Update updates the settings row
func (r *SettingsRepository) Update(settings *models.PlatformSettings) error {
	return r.db.Save(settings).Error
}

// GetCharges resolves the charges for a user/symbol/segment. Lookup order:
// user+symbol override, symbol override, segment override. Returns
// ErrChargesNotFound when nothing matches; callers fall back to the platform
// defaults.
func (r *SettingsRepository) GetCharges(userID uint, symbol, segment string) (*models.TradeCharges, error) {
	var charges models.TradeCharges

	result := r.db.Where("user_id = ? AND symbol = ?", userID, symbol).First(&charges)
	if result.Error == nil {
		return &charges, nil
	}

	result = r.db.Where("user_id IS NULL AND symbol = ?", symbol).First(&charges)
	if result.Error == nil {
		return &charges, nil
	}

	result = r.db.Where("user_id IS NULL AND symbol = '' AND segment = ?", segment).First(&charges)
	if result.Error == nil {
		return &charges, nil
	}

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrChargesNotFound
	}
	return nil, result.Error
}

// CreateCharges creates a charges override
func (r *SettingsRepository) CreateCharges(charges *models.TradeCharges) error {
	return r.db.Create(charges).Error
}
