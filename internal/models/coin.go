package models

import (
	"time"
)

type CoinTransaction struct {
	ID              uint      `gorm:"primaryKey"`
	PlayerID        int64     `gorm:"not null;index"`
	Amount          int64     `gorm:"not null"`
	TransactionType string    `gorm:"type:varchar(50);not null;index"`
	Description     string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index"`
}

// Transaction type constants
const (
	TxTypeWarReward     = "war_reward"
	TxTypeWarPenalty    = "war_penalty"
	TxTypeMatchReward   = "match_reward"
	TxTypeMatchPenalty  = "match_penalty"
	TxTypeWagerStake    = "wager_stake"
	TxTypeWagerPayout   = "wager_payout"
	TxTypeWagerRefund   = "wager_refund"
	TxTypeTradePurchase = "trade_purchase"
	TxTypeTradeSale     = "trade_sale"
	TxTypeUpgrade       = "quality_upgrade"
	TxTypeWelcomeBonus  = "welcome_bonus"
)

func (CoinTransaction) TableName() string {
	return "coin_transactions"
}
