package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlayerRepository struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create inserts a new player
func (r *PlayerRepository) Create(ctx context.Context, player *models.Player) error {
	if err := r.db.WithContext(ctx).Create(player).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Newf(errors.ErrCodeAlreadyExists, "player %d already exists", player.ID)
		}
		return errors.Internal(err, "failed to create player")
	}
	return nil
}

// Get retrieves a player by chat user id
func (r *PlayerRepository) Get(ctx context.Context, id int64) (*models.Player, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate locks the player row for the rest of the transaction
func (r *PlayerRepository) GetForUpdate(ctx context.Context, id int64) (*models.Player, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *PlayerRepository) get(q *gorm.DB, id int64) (*models.Player, error) {
	var player models.Player
	err := q.First(&player, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("player %d not found", id)
	}
	if err != nil {
		return nil, errors.Internal(err, "failed to get player")
	}
	return &player, nil
}

func (r *PlayerRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Player{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, errors.Internal(err, "failed to check player existence")
	}
	return count > 0, nil
}

// Save writes every column of the player. BeforeSave rejects negative balances.
func (r *PlayerRepository) Save(ctx context.Context, player *models.Player) error {
	if err := r.db.WithContext(ctx).Save(player).Error; err != nil {
		if stderrors.Is(err, gorm.ErrInvalidData) {
			return errors.Insufficient("balance would go negative")
		}
		return errors.Internal(err, "failed to save player")
	}
	return nil
}

// ListIDs returns every player id in ascending order
func (r *PlayerRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&models.Player{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, errors.Internal(err, "failed to list players")
	}
	return ids, nil
}

// Leaderboard returns the richest players, war wins breaking ties
func (r *PlayerRepository) Leaderboard(ctx context.Context, limit int) ([]models.Player, error) {
	var players []models.Player
	err := r.db.WithContext(ctx).
		Order("coins DESC").
		Order("war_wins DESC").
		Order("id ASC").
		Limit(limit).
		Find(&players).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to load leaderboard")
	}
	return players, nil
}

func (r *PlayerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Player{}).Count(&n).Error; err != nil {
		return 0, errors.Internal(err, "failed to count players")
	}
	return n, nil
}
