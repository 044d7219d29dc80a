package repositories

import (
	"context"
	"time"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/errors"
	"gorm.io/gorm"
)

type WagerRepository struct {
	db *gorm.DB
}

func NewWagerRepository(db *gorm.DB) *WagerRepository {
	return &WagerRepository{db: db}
}

func (r *WagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	if err := r.db.WithContext(ctx).Create(wager).Error; err != nil {
		return errors.Internal(err, "failed to create wager")
	}
	return nil
}

func (r *WagerRepository) ListOpenByMatch(ctx context.Context, matchID uint) ([]models.Wager, error) {
	var wagers []models.Wager
	err := r.db.WithContext(ctx).
		Where("match_id = ? AND status = ?", matchID, models.WagerStatusOpen).
		Order("id ASC").
		Find(&wagers).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to list wagers")
	}
	return wagers, nil
}

func (r *WagerRepository) ListByMatch(ctx context.Context, matchID uint) ([]models.Wager, error) {
	var wagers []models.Wager
	if err := r.db.WithContext(ctx).Where("match_id = ?", matchID).Order("id ASC").Find(&wagers).Error; err != nil {
		return nil, errors.Internal(err, "failed to list wagers")
	}
	return wagers, nil
}

// Close settles an open wager once. A wager that already left open reports
// false, so a repeated settlement pays nothing.
func (r *WagerRepository) Close(ctx context.Context, id uint, status string, payout int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Wager{}).
		Where("id = ? AND status = ?", id, models.WagerStatusOpen).
		Updates(map[string]interface{}{
			"status":     status,
			"payout":     payout,
			"settled_at": at,
		})
	return affected(result, "failed to settle wager")
}
