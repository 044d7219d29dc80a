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

type CitizenRepository struct {
	db *gorm.DB
}

func NewCitizenRepository(db *gorm.DB) *CitizenRepository {
	return &CitizenRepository{db: db}
}

func (r *CitizenRepository) Create(ctx context.Context, citizen *models.Citizen) error {
	if err := r.db.WithContext(ctx).Create(citizen).Error; err != nil {
		return errors.Internal(err, "failed to create citizen")
	}
	return nil
}

// CreateInBatches inserts a large population without one giant statement
func (r *CitizenRepository) CreateInBatches(ctx context.Context, citizens []models.Citizen, batchSize int) error {
	if len(citizens) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(citizens, batchSize).Error; err != nil {
		return errors.Internal(err, "failed to create citizens")
	}
	return nil
}

// GetForUpdate locks the citizen row for the rest of the transaction
func (r *CitizenRepository) GetForUpdate(ctx context.Context, id uint) (*models.Citizen, error) {
	var citizen models.Citizen
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&citizen, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("citizen %d not found", id)
	}
	if err != nil {
		return nil, errors.Internal(err, "failed to get citizen")
	}
	return &citizen, nil
}

type roleCount struct {
	Role  models.Role
	Count int64
}

// CountActiveByRole returns active head counts keyed by role
func (r *CitizenRepository) CountActiveByRole(ctx context.Context, playerID int64) (map[models.Role]int64, error) {
	var rows []roleCount
	err := r.db.WithContext(ctx).Model(&models.Citizen{}).
		Select("role, COUNT(*) AS count").
		Where("player_id = ? AND status = ?", playerID, models.CitizenStatusActive).
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to count citizens")
	}

	counts := make(map[models.Role]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// CountAlive counts every citizen that is not dead
func (r *CitizenRepository) CountAlive(ctx context.Context, playerID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Citizen{}).
		Where("player_id = ? AND status <> ?", playerID, models.CitizenStatusDead).
		Count(&count).Error
	if err != nil {
		return 0, errors.Internal(err, "failed to count citizens")
	}
	return count, nil
}

// ListActiveByRole returns up to limit active citizens of a role in id order
func (r *CitizenRepository) ListActiveByRole(ctx context.Context, playerID int64, role models.Role, limit int) ([]models.Citizen, error) {
	var citizens []models.Citizen
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND role = ? AND status = ?", playerID, role, models.CitizenStatusActive).
		Order("id ASC").
		Limit(limit).
		Find(&citizens).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to list citizens")
	}
	return citizens, nil
}

// ListActive returns up to limit active citizens of any role
func (r *CitizenRepository) ListActive(ctx context.Context, playerID int64, limit int) ([]models.Citizen, error) {
	var citizens []models.Citizen
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND status = ?", playerID, models.CitizenStatusActive).
		Order("id ASC").
		Limit(limit).
		Find(&citizens).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to list citizens")
	}
	return citizens, nil
}

// ListAliveIDs returns ids of citizens that are not dead
func (r *CitizenRepository) ListAliveIDs(ctx context.Context, playerID int64) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Citizen{}).
		Where("player_id = ? AND status <> ?", playerID, models.CitizenStatusDead).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to list citizens")
	}
	return ids, nil
}

// MarkDead moves citizens to the terminal dead state
func (r *CitizenRepository) MarkDead(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.Citizen{}).
		Where("id IN ? AND status <> ?", ids, models.CitizenStatusDead).
		Updates(map[string]interface{}{
			"status":        models.CitizenStatusDead,
			"injured_until": nil,
		}).Error
	if err != nil {
		return errors.Internal(err, "failed to update citizens")
	}
	return nil
}

// MarkInjured sidelines active citizens until the given time
func (r *CitizenRepository) MarkInjured(ctx context.Context, ids []uint, until time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.Citizen{}).
		Where("id IN ? AND status = ?", ids, models.CitizenStatusActive).
		Updates(map[string]interface{}{
			"status":        models.CitizenStatusInjured,
			"injured_until": until,
		}).Error
	if err != nil {
		return errors.Internal(err, "failed to update citizens")
	}
	return nil
}

// HealExpired returns injured citizens whose injury has run out to active
func (r *CitizenRepository) HealExpired(ctx context.Context, playerID int64, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Citizen{}).
		Where("player_id = ? AND status = ? AND injured_until <= ?", playerID, models.CitizenStatusInjured, now).
		Updates(map[string]interface{}{
			"status":        models.CitizenStatusActive,
			"injured_until": nil,
		})
	if result.Error != nil {
		return 0, errors.Internal(result.Error, "failed to heal citizens")
	}
	return result.RowsAffected, nil
}

// TransferOwner hands an active citizen to another player
func (r *CitizenRepository) TransferOwner(ctx context.Context, id uint, from, to int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Citizen{}).
		Where("id = ? AND player_id = ? AND status = ?", id, from, models.CitizenStatusActive).
		Update("player_id", to)
	return affected(result, "failed to transfer citizen")
}
