package services

import (
	"context"
	"fmt"

	"github.com/mroshb/battle_forge/internal/config"
	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/pkg/dice"
	"github.com/mroshb/battle_forge/pkg/errors"
	"github.com/mroshb/battle_forge/pkg/logger"
)

type PlayerService struct {
	store           *repositories.Store
	tuning          config.Tuning
	dice            *dice.Dice
	initialCitizens int
}

func NewPlayerService(store *repositories.Store, tuning config.Tuning, d *dice.Dice, initialCitizens int) *PlayerService {
	return &PlayerService{
		store:           store,
		tuning:          tuning,
		dice:            d,
		initialCitizens: initialCitizens,
	}
}

// EnsurePlayer returns the player with the given chat id, creating it with
// starting balances, its citizens and its team on first contact.
func (s *PlayerService) EnsurePlayer(ctx context.Context, id int64, username string) (*models.Player, bool, error) {
	player, err := s.store.Players.Get(ctx, id)
	if err == nil {
		return player, false, nil
	}
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		return nil, false, err
	}

	player, err = s.initialize(ctx, id, username)
	if errors.HasCode(err, errors.ErrCodeAlreadyExists) {
		// another update for the same user won the insert
		player, err = s.store.Players.Get(ctx, id)
		return player, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return player, true, nil
}

func (s *PlayerService) initialize(ctx context.Context, id int64, username string) (*models.Player, error) {
	start := s.tuning.Starting
	player := &models.Player{
		ID:              id,
		Username:        username,
		Water:           start.BaseResource,
		Food:            start.BaseResource,
		Medicine:        start.BaseResource,
		Ore:             start.BaseResource,
		WaterQuality:    models.QualityMedium,
		FoodQuality:     models.QualityMedium,
		MedicineQuality: models.QualityMedium,
		OreQuality:      models.QualityMedium,
		Coins:           start.Coins,
	}

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if err := tx.Players.Create(ctx, player); err != nil {
			return err
		}
		if err := tx.Coins.Record(ctx, id, start.Coins, models.TxTypeWelcomeBonus, "starting balance"); err != nil {
			return err
		}

		citizens := make([]models.Citizen, 0, s.initialCitizens)
		for i := 0; i < s.initialCitizens; i++ {
			citizens = append(citizens, rollCitizen(s.dice, id, fmt.Sprintf("citizen_%d", i), player.OreQuality))
		}
		if err := tx.Citizens.CreateInBatches(ctx, citizens, s.tuning.Economy.CitizenBatchSize); err != nil {
			return err
		}

		_, err := createPlayerTeam(ctx, tx, player)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Player initialized", "player_id", id, "username", username, "citizens", s.initialCitizens)
	return player, nil
}

func (s *PlayerService) Get(ctx context.Context, id int64) (*models.Player, error) {
	return s.store.Players.Get(ctx, id)
}

// History returns the latest coin ledger entries of a player
func (s *PlayerService) History(ctx context.Context, id int64, limit int) ([]models.CoinTransaction, error) {
	return s.store.Coins.History(ctx, id, limit)
}

func (s *PlayerService) Count(ctx context.Context) (int64, error) {
	return s.store.Players.Count(ctx)
}
