package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CoinRepository struct {
	db *gorm.DB
}

func NewCoinRepository(db *gorm.DB) *CoinRepository {
	return &CoinRepository{db: db}
}

// Adjust changes a player's coin balance by delta and logs the change. With
// floor set, a debit larger than the balance empties it instead of failing.
// It returns the delta actually applied. Callers that also Save the player
// struct in the same transaction must change Coins on that struct and use
// Record instead, or the Save overwrites this update.
func (r *CoinRepository) Adjust(ctx context.Context, playerID int64, delta int64, floor bool, txType, description string) (int64, error) {
	var applied int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var player models.Player
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&player, playerID).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.NotFound("player %d not found", playerID)
			}
			return errors.Internal(err, "failed to get player")
		}

		newBalance := player.Coins + delta
		if newBalance < 0 {
			if !floor {
				return errors.Insufficient("insufficient coins: have %d, need %d", player.Coins, -delta)
			}
			newBalance = 0
		}
		applied = newBalance - player.Coins
		if applied == 0 {
			return nil
		}

		if err := tx.Model(&player).Update("coins", newBalance).Error; err != nil {
			return errors.Internal(err, "failed to update balance")
		}

		return r.record(tx, playerID, applied, txType, description)
	})
	if err != nil {
		return 0, errors.AsAppError(err, "failed to adjust coins")
	}
	return applied, nil
}

// Record appends a ledger row for a balance change made elsewhere
func (r *CoinRepository) Record(ctx context.Context, playerID int64, amount int64, txType, description string) error {
	if amount == 0 {
		return nil
	}
	return r.record(r.db.WithContext(ctx), playerID, amount, txType, description)
}

func (r *CoinRepository) record(tx *gorm.DB, playerID int64, amount int64, txType, description string) error {
	transaction := &models.CoinTransaction{
		PlayerID:        playerID,
		Amount:          amount,
		TransactionType: txType,
		Description:     description,
	}
	if err := tx.Create(transaction).Error; err != nil {
		return errors.Internal(err, "failed to create transaction")
	}
	return nil
}

// History retrieves a player's ledger, newest first
func (r *CoinRepository) History(ctx context.Context, playerID int64, limit int) ([]models.CoinTransaction, error) {
	var transactions []models.CoinTransaction
	result := r.db.WithContext(ctx).Where("player_id = ?", playerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&transactions)

	if result.Error != nil {
		return nil, errors.Internal(result.Error, "failed to get transaction history")
	}

	return transactions, nil
}
