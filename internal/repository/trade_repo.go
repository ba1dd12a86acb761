package repository

import (
	"errors"
	"time"

	"github.com/prop-engine/internal/models"
	"gorm.io/gorm"
)

var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRepository handles trade data access
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new TradeRepository
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create creates a new trade
func (r *TradeRepository) Create(trade *models.Trade) error {
	return r.db.Create(trade).Error
}

// GetByID retrieves a trade by ID
func (r *TradeRepository) GetByID(id uint) (*models.Trade, error) {
	var trade models.Trade
	result := r.db.First(&trade, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, result.Error
	}
	return &trade, nil
}

// GetOpenByAccountID retrieves all open trades for an account
func (r *TradeRepository) GetOpenByAccountID(accountID uint) ([]models.Trade, error) {
	var trades []models.Trade
	result := r.db.Where("account_id = ? AND status = ?", accountID, models.TradeStatusOpen).Find(&trades)
	return trades, result.Error
}

// GetAllOpen retrieves every open trade across all accounts. The SL/TP sweep
// iterates this snapshot.
func (r *TradeRepository) GetAllOpen() ([]models.Trade, error) {
	var trades []models.Trade
	result := r.db.Where("status = ?", models.TradeStatusOpen).Find(&trades)
	return trades, result.Error
}

// GetByAccountIDPaginated retrieves trades with pagination
func (r *TradeRepository) GetByAccountIDPaginated(accountID uint, page, pageSize int) ([]models.Trade, int64, error) {
	var trades []models.Trade
	var total int64

	if err := r.db.Model(&models.Trade{}).Where("account_id = ?", accountID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	result := r.db.Where("account_id = ?", accountID).
		Order("opened_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&trades)

	return trades, total, result.Error
}

// GetClosedByDateRange retrieves closed trades within a date range
func (r *TradeRepository) GetClosedByDateRange(accountID uint, start, end time.Time) ([]models.Trade, error) {
	var trades []models.Trade
	result := r.db.Where("account_id = ? AND status = ? AND closed_at >= ? AND closed_at <= ?",
		accountID, models.TradeStatusClosed, start, end).
		Order("closed_at DESC").
		Find(&trades)
	return trades, result.Error
}

// Update updates a trade
func (r *TradeRepository) Update(trade *models.Trade) error {
	return r.db.Save(trade).Error
}

// GetTotalRealizedPnL calculates total realized PnL for an account
func (r *TradeRepository) GetTotalRealizedPnL(accountID uint) (float64, error) {
	var total struct {
		Sum float64
	}
	err := r.db.Model(&models.Trade{}).
		Select("COALESCE(SUM(realized_pnl), 0) as sum").
		Where("account_id = ? AND status = ?", accountID, models.TradeStatusClosed).
		Scan(&total).Error
	return total.Sum, err
}
