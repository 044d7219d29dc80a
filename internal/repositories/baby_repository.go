package repositories

import (
	"context"
	"time"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/errors"
	"gorm.io/gorm"
)

type BabyRepository struct {
	db *gorm.DB
}

func NewBabyRepository(db *gorm.DB) *BabyRepository {
	return &BabyRepository{db: db}
}

func (r *BabyRepository) CreateMany(ctx context.Context, babies []models.Baby) error {
	if len(babies) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(babies, 500).Error; err != nil {
		return errors.Internal(err, "failed to create babies")
	}
	return nil
}

// ListUnborn returns babies still gestating, oldest first
func (r *BabyRepository) ListUnborn(ctx context.Context, playerID int64) ([]models.Baby, error) {
	return r.list(ctx, playerID, false)
}

// ListBorn returns babies waiting to grow into citizens
func (r *BabyRepository) ListBorn(ctx context.Context, playerID int64) ([]models.Baby, error) {
	return r.list(ctx, playerID, true)
}

func (r *BabyRepository) list(ctx context.Context, playerID int64, born bool) ([]models.Baby, error) {
	var babies []models.Baby
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND born = ?", playerID, born).
		Order("conceived_at ASC").
		Order("id ASC").
		Find(&babies).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to list babies")
	}
	return babies, nil
}

func (r *BabyRepository) Count(ctx context.Context, playerID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Baby{}).Where("player_id = ?", playerID).Count(&count).Error; err != nil {
		return 0, errors.Internal(err, "failed to count babies")
	}
	return count, nil
}

func (r *BabyRepository) ListIDs(ctx context.Context, playerID int64) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Baby{}).Where("player_id = ?", playerID).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, errors.Internal(err, "failed to list babies")
	}
	return ids, nil
}

// MarkBorn flips the born flag once; a second call reports false
func (r *BabyRepository) MarkBorn(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Baby{}).
		Where("id = ? AND born = ?", id, false).
		Updates(map[string]interface{}{
			"born":    true,
			"born_at": at,
		})
	return affected(result, "failed to mark baby born")
}

func (r *BabyRepository) Delete(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Baby{}).Error; err != nil {
		return errors.Internal(err, "failed to delete babies")
	}
	return nil
}
