package services

import (
	"context"
	"fmt"

	"github.com/mroshb/battle_forge/internal/config"
	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/pkg/errors"
	"github.com/mroshb/battle_forge/pkg/logger"
)

// WagerResult reports how one wager closed.
type WagerResult struct {
	WagerID  uint
	PlayerID int64
	TeamID   uint
	Amount   int64
	Payout   int64
	Status   string
}

type WagerService struct {
	store  *repositories.Store
	tuning config.Tuning
	now    Clock
}

func NewWagerService(store *repositories.Store, tuning config.Tuning) *WagerService {
	return &WagerService{
		store:  store,
		tuning: tuning,
		now:    utcNow,
	}
}

func (s *WagerService) WithClock(now Clock) *WagerService {
	s.now = now
	return s
}

// Place stakes coins on a team in a match that has not kicked off. The
// stake leaves the balance immediately.
func (s *WagerService) Place(ctx context.Context, playerID int64, matchID uint, teamName string, amount int64) (*models.Wager, error) {
	if amount <= 0 {
		return nil, errors.Validation("wager amount must be positive")
	}

	var wager *models.Wager
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		match, err := tx.Matches.GetForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if match.IsClosed() || match.Phase == models.MatchPhaseRunning {
			return errors.InvalidState("betting on match %d is closed", matchID)
		}

		team, err := tx.Teams.GetByName(ctx, teamName)
		if err != nil {
			return err
		}
		if !match.HasTeam(team.ID) {
			return errors.Validation("team %s is not playing in match %d", team.Name, matchID)
		}

		desc := fmt.Sprintf("wager on %s in match %d", team.Name, matchID)
		if _, err := tx.Coins.Adjust(ctx, playerID, -amount, false, models.TxTypeWagerStake, desc); err != nil {
			return err
		}

		wager = &models.Wager{
			PlayerID: playerID,
			MatchID:  matchID,
			TeamID:   team.ID,
			Amount:   amount,
			Status:   models.WagerStatusOpen,
		}
		return tx.Wagers.Create(ctx, wager)
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Wager placed", "wager_id", wager.ID, "player_id", playerID, "match_id", matchID, "amount", amount)
	return wager, nil
}

// SettleTx pays winning wagers and closes the rest as lost. It must run on
// the store of the settling transaction. A wager that already closed is
// skipped, so a repeated call pays nothing.
func (s *WagerService) SettleTx(ctx context.Context, tx *repositories.Store, matchID uint, winner *uint) ([]WagerResult, error) {
	return s.closeAll(ctx, tx, matchID, func(w models.Wager) (string, int64) {
		if winner != nil && w.TeamID == *winner {
			return models.WagerStatusWon, w.Amount * s.tuning.Match.WagerMultiplier
		}
		return models.WagerStatusLost, 0
	})
}

// ForfeitTx closes the wagers of a cancelled match. Stakes are kept.
func (s *WagerService) ForfeitTx(ctx context.Context, tx *repositories.Store, matchID uint) ([]WagerResult, error) {
	return s.closeAll(ctx, tx, matchID, func(models.Wager) (string, int64) {
		return models.WagerStatusForfeited, 0
	})
}

// RefundTx returns the stakes of an abandoned match
func (s *WagerService) RefundTx(ctx context.Context, tx *repositories.Store, matchID uint) ([]WagerResult, error) {
	return s.closeAll(ctx, tx, matchID, func(w models.Wager) (string, int64) {
		return models.WagerStatusRefunded, w.Amount
	})
}

func (s *WagerService) closeAll(ctx context.Context, tx *repositories.Store, matchID uint, decide func(models.Wager) (string, int64)) ([]WagerResult, error) {
	wagers, err := tx.Wagers.ListOpenByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	results := make([]WagerResult, 0, len(wagers))
	for _, w := range wagers {
		status, payout := decide(w)
		closed, err := tx.Wagers.Close(ctx, w.ID, status, payout, now)
		if err != nil {
			return nil, err
		}
		if !closed {
			continue
		}

		if payout > 0 {
			txType := models.TxTypeWagerPayout
			if status == models.WagerStatusRefunded {
				txType = models.TxTypeWagerRefund
			}
			desc := fmt.Sprintf("wager %d on match %d", w.ID, matchID)
			if _, err := tx.Coins.Adjust(ctx, w.PlayerID, payout, false, txType, desc); err != nil {
				return nil, err
			}
		}
		results = append(results, WagerResult{
			WagerID:  w.ID,
			PlayerID: w.PlayerID,
			TeamID:   w.TeamID,
			Amount:   w.Amount,
			Payout:   payout,
			Status:   status,
		})
	}
	return results, nil
}

// Multiplier is what a winning wager pays per coin staked
func (s *WagerService) Multiplier() int64 {
	return s.tuning.Match.WagerMultiplier
}

func (s *WagerService) ListByMatch(ctx context.Context, matchID uint) ([]models.Wager, error) {
	return s.store.Wagers.ListByMatch(ctx, matchID)
}
