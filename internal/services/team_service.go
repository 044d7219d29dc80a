package services

import (
	"context"
	"fmt"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/internal/security"
	"github.com/mroshb/battle_forge/pkg/errors"
)

const defaultRankingSize = 10

type TeamService struct {
	store *repositories.Store
}

func NewTeamService(store *repositories.Store) *TeamService {
	return &TeamService{store: store}
}

// TeamName derives the display name of a player's team
func TeamName(username string, playerID int64) string {
	name := security.SanitizeName(username)
	if name == "" {
		name = fmt.Sprintf("player%d", playerID)
	}
	return "@" + name + "_team"
}

// createPlayerTeam must run inside a transaction store
func createPlayerTeam(ctx context.Context, tx *repositories.Store, player *models.Player) (*models.Team, error) {
	name := TeamName(player.Username, player.ID)
	if _, err := tx.Teams.GetByName(ctx, name); err == nil {
		name = fmt.Sprintf("%s_%d", name, player.ID)
	} else if !errors.HasCode(err, errors.ErrCodeNotFound) {
		return nil, err
	}

	owner := player.ID
	team := &models.Team{
		OwnerID: &owner,
		Name:    name,
		Power:   models.DefaultTeamPower,
	}
	if err := tx.Teams.Create(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// EnsureTeam returns the player's team, creating it when missing
func (s *TeamService) EnsureTeam(ctx context.Context, playerID int64) (*models.Team, error) {
	team, err := s.store.Teams.GetByOwner(ctx, playerID)
	if err == nil {
		return team, nil
	}
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		player, err := tx.Players.Get(ctx, playerID)
		if err != nil {
			return err
		}
		team, err = createPlayerTeam(ctx, tx, player)
		return err
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *TeamService) Get(ctx context.Context, id uint) (*models.Team, error) {
	return s.store.Teams.Get(ctx, id)
}

func (s *TeamService) GetByName(ctx context.Context, name string) (*models.Team, error) {
	return s.store.Teams.GetByName(ctx, name)
}

func (s *TeamService) ListAI(ctx context.Context) ([]models.Team, error) {
	return s.store.Teams.ListAI(ctx)
}

// Ranking returns the strongest teams by wins, then power
func (s *TeamService) Ranking(ctx context.Context, limit int) ([]models.Team, error) {
	if limit <= 0 {
		limit = defaultRankingSize
	}
	return s.store.Teams.Ranking(ctx, limit)
}

func (s *TeamService) Count(ctx context.Context) (int64, error) {
	return s.store.Teams.Count(ctx)
}
