package models

import (
	"time"
)

// Trade status constants
const (
	TradeStatusOpen   = "open"
	TradeStatusClosed = "closed"
)

// Trade close reasons
const (
	TradeOutcomeSold        = "sold"
	TradeOutcomeInvalidated = "invalidated"
)

// CitizenItemPrefix marks a trade item that refers to one citizen.
const CitizenItemPrefix = "citizen_"

type Trade struct {
	ID        uint       `gorm:"primaryKey"`
	SellerID  int64      `gorm:"not null;index"`
	BuyerID   *int64     `gorm:"index"`
	Item      string     `gorm:"type:varchar(50);not null"`
	Quantity  int64      `gorm:"not null"`
	Price     int64      `gorm:"not null"`
	Currency  string     `gorm:"type:varchar(50);not null"`
	Status    string     `gorm:"type:varchar(10);default:'open';not null;index"`
	Outcome   string     `gorm:"type:varchar(20)"`
	ClosedAt  *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (Trade) TableName() string {
	return "trades"
}
