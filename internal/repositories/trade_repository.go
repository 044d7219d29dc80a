package repositories

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

func (r *TradeRepository) Create(ctx context.Context, trade *models.Trade) error {
	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		return errors.Internal(err, "failed to create trade")
	}
	return nil
}

func (r *TradeRepository) GetForUpdate(ctx context.Context, id uint) (*models.Trade, error) {
	var trade models.Trade
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&trade, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("trade %d not found", id)
	}
	if err != nil {
		return nil, errors.Internal(err, "failed to get trade")
	}
	return &trade, nil
}

func (r *TradeRepository) ListOpen(ctx context.Context, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	err := r.db.WithContext(ctx).
		Where("status = ?", models.TradeStatusOpen).
		Order("id ASC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to list trades")
	}
	return trades, nil
}

// Close moves an open trade to closed once. Closing a closed trade reports
// false and changes nothing.
func (r *TradeRepository) Close(ctx context.Context, id uint, buyerID *int64, outcome string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Trade{}).
		Where("id = ? AND status = ?", id, models.TradeStatusOpen).
		Updates(map[string]interface{}{
			"status":    models.TradeStatusClosed,
			"buyer_id":  buyerID,
			"outcome":   outcome,
			"closed_at": at,
		})
	return affected(result, "failed to close trade")
}
