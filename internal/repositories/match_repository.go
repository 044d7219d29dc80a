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

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	if err := r.db.WithContext(ctx).Create(match).Error; err != nil {
		return errors.Internal(err, "failed to create match")
	}
	return nil
}

func (r *MatchRepository) Get(ctx context.Context, id uint) (*models.Match, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate locks the match row for the rest of the transaction
func (r *MatchRepository) GetForUpdate(ctx context.Context, id uint) (*models.Match, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *MatchRepository) get(q *gorm.DB, id uint) (*models.Match, error) {
	var match models.Match
	err := q.First(&match, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("match %d not found", id)
	}
	if err != nil {
		return nil, errors.Internal(err, "failed to get match")
	}
	return &match, nil
}

// Transition moves a match from one of the given phases to the target phase
// in a single conditional UPDATE. It reports false when the stored phase no
// longer matches, which makes every transition safe to race and repeat.
func (r *MatchRepository) Transition(ctx context.Context, id uint, from []string, to string, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"phase": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).Model(&models.Match{}).
		Where("id = ? AND phase IN ?", id, from).
		Updates(updates)
	return affected(result, "failed to update match phase")
}

// SetRoster stores the participant list, capacity and phase of a match that
// is still recruiting. It reports false once recruiting has ended.
func (r *MatchRepository) SetRoster(ctx context.Context, match *models.Match) (bool, error) {
	result := r.db.WithContext(ctx).Model(match).
		Where("phase IN ?", models.RecruitingPhases).
		Select("team_ids", "phase", "capacity").
		Updates(match)
	return affected(result, "failed to update match roster")
}

// SaveProgress persists the per-tick state of a running match
func (r *MatchRepository) SaveProgress(ctx context.Context, id uint, standings []models.Standing, lastNotificationID int) error {
	m := models.Match{ID: id, Standings: standings, LastNotificationID: lastNotificationID}
	err := r.db.WithContext(ctx).Model(&m).
		Where("phase = ?", models.MatchPhaseRunning).
		Select("standings", "last_notification_id").
		Updates(&m).Error
	if err != nil {
		return errors.Internal(err, "failed to save match progress")
	}
	return nil
}

// SaveResult writes the final standings, winner and summary
func (r *MatchRepository) SaveResult(ctx context.Context, match *models.Match) error {
	err := r.db.WithContext(ctx).Model(match).
		Select("standings", "winner_team_id", "summary").
		Updates(match).Error
	if err != nil {
		return errors.Internal(err, "failed to save match result")
	}
	return nil
}

// ListOpen returns every match that has not closed, oldest first
func (r *MatchRepository) ListOpen(ctx context.Context) ([]models.Match, error) {
	var matches []models.Match
	err := r.db.WithContext(ctx).
		Where("status = ?", models.MatchStatusOpen).
		Order("id ASC").
		Find(&matches).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to list open matches")
	}
	return matches, nil
}

// ListRecruitingByChat returns matches a chat can still join
func (r *MatchRepository) ListRecruitingByChat(ctx context.Context, chatID int64) ([]models.Match, error) {
	var matches []models.Match
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND phase IN ?", chatID, models.RecruitingPhases).
		Order("id ASC").
		Find(&matches).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to list matches")
	}
	return matches, nil
}

// ListExpired returns recruiting matches whose join window has passed
func (r *MatchRepository) ListExpired(ctx context.Context, now time.Time) ([]models.Match, error) {
	var matches []models.Match
	err := r.db.WithContext(ctx).
		Where("phase IN ? AND join_deadline <= ?", models.RecruitingPhases, now).
		Order("join_deadline ASC").
		Find(&matches).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to list expired matches")
	}
	return matches, nil
}

func (r *MatchRepository) ListByPhase(ctx context.Context, phase string) ([]models.Match, error) {
	var matches []models.Match
	if err := r.db.WithContext(ctx).Where("phase = ?", phase).Order("id ASC").Find(&matches).Error; err != nil {
		return nil, errors.Internal(err, "failed to list matches")
	}
	return matches, nil
}

// Recent returns the latest matches, newest first
func (r *MatchRepository) Recent(ctx context.Context, limit int) ([]models.Match, error) {
	var matches []models.Match
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&matches).Error; err != nil {
		return nil, errors.Internal(err, "failed to list matches")
	}
	return matches, nil
}
