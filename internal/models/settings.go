package models

import (
	"time"
)

// SpreadType represents how the execution spread is applied
type SpreadType string

const (
	SpreadFixedPips SpreadType = "fixed_pips"
	SpreadPercent   SpreadType = "percent"
)

// CommissionType represents how the commission is computed
type CommissionType string

const (
	CommissionFlat    CommissionType = "flat"
	CommissionPerLot  CommissionType = "per_lot"
	CommissionPercent CommissionType = "percent"
)

// PlatformSettings is the single platform-wide settings row. It is loaded
// explicitly per operation through its repository, never held as a global.
type PlatformSettings struct {
	ID                   uint `gorm:"primaryKey" json:"id"`
	ChallengeModeEnabled bool `gorm:"default:true" json:"challenge_mode_enabled"`

	DefaultSpreadType      SpreadType     `gorm:"size:20;default:'fixed_pips'" json:"default_spread_type"`
	DefaultSpreadValue     float64        `gorm:"type:decimal(10,4);default:0" json:"default_spread_value"`
	DefaultCommissionType  CommissionType `gorm:"size:20;default:'per_lot'" json:"default_commission_type"`
	DefaultCommissionValue float64        `gorm:"type:decimal(10,4);default:0" json:"default_commission_value"`
	CommissionOnBuy        bool           `gorm:"default:true" json:"commission_on_buy"`
	CommissionOnSell       bool           `gorm:"default:true" json:"commission_on_sell"`

	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for PlatformSettings model
func (PlatformSettings) TableName() string {
	return "platform_settings"
}

// TradeCharges is a per-symbol/segment override of the platform's execution
// charges. UserID narrows the override to one user when set.
type TradeCharges struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  *uint  `gorm:"index" json:"user_id,omitempty"`
	Symbol  string `gorm:"size:20;index" json:"symbol"`
	Segment string `gorm:"size:20;index" json:"segment"`

	SpreadType       SpreadType     `gorm:"size:20;not null" json:"spread_type"`
	SpreadValue      float64        `gorm:"type:decimal(10,4);not null" json:"spread_value"`
	CommissionType   CommissionType `gorm:"size:20;not null" json:"commission_type"`
	CommissionValue  float64        `gorm:"type:decimal(10,4);not null" json:"commission_value"`
	CommissionOnBuy  bool           `gorm:"default:true" json:"commission_on_buy"`
	CommissionOnSell bool           `gorm:"default:true" json:"commission_on_sell"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for TradeCharges model
func (TradeCharges) TableName() string {
	return "trade_charges"
}
