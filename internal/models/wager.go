package models

import (
	"time"
)

// Wager status constants
const (
	WagerStatusOpen      = "open"
	WagerStatusWon       = "won"
	WagerStatusLost      = "lost"
	WagerStatusForfeited = "forfeited"
	WagerStatusRefunded  = "refunded"
)

type Wager struct {
	ID        uint      `gorm:"primaryKey"`
	PlayerID  int64     `gorm:"not null;index"`
	MatchID   uint      `gorm:"not null;index"`
	TeamID    uint      `gorm:"not null"`
	Amount    int64     `gorm:"not null"`
	Payout    int64     `gorm:"default:0;not null"`
	Status    string    `gorm:"type:varchar(10);default:'open';not null;index"`
	SettledAt *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Wager) TableName() string {
	return "wagers"
}
