package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	if err := r.db.WithContext(ctx).Create(team).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Newf(errors.ErrCodeAlreadyExists, "team %q already exists", team.Name)
		}
		return errors.Internal(err, "failed to create team")
	}
	return nil
}

func (r *TeamRepository) Get(ctx context.Context, id uint) (*models.Team, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id), "team %d not found", id)
}

// GetForUpdate locks the team row for the rest of the transaction
func (r *TeamRepository) GetForUpdate(ctx context.Context, id uint) (*models.Team, error) {
	q := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
	return r.first(q, "team %d not found", id)
}

func (r *TeamRepository) GetByOwner(ctx context.Context, ownerID int64) (*models.Team, error) {
	return r.first(r.db.WithContext(ctx).Where("owner_id = ?", ownerID), "player %d has no team", ownerID)
}

func (r *TeamRepository) GetByName(ctx context.Context, name string) (*models.Team, error) {
	return r.first(r.db.WithContext(ctx).Where("name = ?", name), "team %q not found", name)
}

func (r *TeamRepository) first(q *gorm.DB, format string, args ...interface{}) (*models.Team, error) {
	var team models.Team
	err := q.First(&team).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound(format, args...)
	}
	if err != nil {
		return nil, errors.Internal(err, "failed to get team")
	}
	return &team, nil
}

// ListByIDs returns teams in the order of ids. Unknown ids are skipped.
func (r *TeamRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Team, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Team
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, errors.Internal(err, "failed to list teams")
	}

	byID := make(map[uint]models.Team, len(rows))
	for _, t := range rows {
		byID[t.ID] = t
	}
	teams := make([]models.Team, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			teams = append(teams, t)
		}
	}
	return teams, nil
}

// ListAI returns the computer-controlled teams
func (r *TeamRepository) ListAI(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := r.db.WithContext(ctx).Where("owner_id IS NULL").Order("id").Find(&teams).Error; err != nil {
		return nil, errors.Internal(err, "failed to list AI teams")
	}
	return teams, nil
}

// Ranking orders teams by wins, then power
func (r *TeamRepository) Ranking(ctx context.Context, limit int) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.WithContext(ctx).
		Order("wins DESC").
		Order("power DESC").
		Order("id ASC").
		Limit(limit).
		Find(&teams).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to rank teams")
	}
	return teams, nil
}

func (r *TeamRepository) Save(ctx context.Context, team *models.Team) error {
	if err := r.db.WithContext(ctx).Save(team).Error; err != nil {
		return errors.Internal(err, "failed to save team")
	}
	return nil
}

func (r *TeamRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Team{}).Count(&n).Error; err != nil {
		return 0, errors.Internal(err, "failed to count teams")
	}
	return n, nil
}
