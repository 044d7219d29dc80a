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

// Casualties counts the fighters a side lost in one war.
type Casualties struct {
	Dead    int
	Injured int
}

func (c Casualties) Total() int {
	return c.Dead + c.Injured
}

// WarSide is one belligerent's view of the outcome.
type WarSide struct {
	PlayerID   int64
	Username   string
	Power      float64
	Score      float64
	Casualties Casualties
	CoinDelta  int64
}

type WarResult struct {
	Attacker WarSide
	Defender WarSide
	// WinnerID is nil on an exact tie
	WinnerID *int64
	Stolen   ResourceDelta
}

type WarService struct {
	store  *repositories.Store
	tuning config.Tuning
	dice   *dice.Dice
	now    Clock
}

func NewWarService(store *repositories.Store, tuning config.Tuning, d *dice.Dice) *WarService {
	return &WarService{
		store:  store,
		tuning: tuning,
		dice:   d,
		now:    utcNow,
	}
}

func (s *WarService) WithClock(now Clock) *WarService {
	s.now = now
	return s
}

// lockPlayers locks both rows in ascending id order so opposing wars
// cannot deadlock, and returns them in role order.
func lockPlayers(ctx context.Context, tx *repositories.Store, attackerID, defenderID int64) (*models.Player, *models.Player, error) {
	first, second := attackerID, defenderID
	if first > second {
		first, second = second, first
	}
	low, err := tx.Players.GetForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	high, err := tx.Players.GetForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}
	if attackerID == first {
		return low, high, nil
	}
	return high, low, nil
}

// Resolve fights one war between the first n active fighters of each side.
// Everything it changes is written in a single transaction.
func (s *WarService) Resolve(ctx context.Context, attackerID, defenderID int64, n int) (*WarResult, error) {
	if n <= 0 {
		return nil, errors.Validation("fighter count must be positive")
	}
	if attackerID == defenderID {
		return nil, errors.Validation("you can't war yourself")
	}

	var result *WarResult
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		attacker, defender, err := lockPlayers(ctx, tx, attackerID, defenderID)
		if err != nil {
			return err
		}

		aFighters, err := tx.Citizens.ListActiveByRole(ctx, attackerID, models.RoleFighter, n)
		if err != nil {
			return err
		}
		dFighters, err := tx.Citizens.ListActiveByRole(ctx, defenderID, models.RoleFighter, n)
		if err != nil {
			return err
		}
		if len(aFighters) < n || len(dFighters) < n {
			return errors.Insufficient("not enough fighters: you have %d, opponent has %d", len(aFighters), len(dFighters))
		}

		res := &WarResult{
			Attacker: WarSide{PlayerID: attackerID, Username: attacker.Username},
			Defender: WarSide{PlayerID: defenderID, Username: defender.Username},
			Stolen:   ResourceDelta{},
		}
		res.Attacker.Power = armyPower(aFighters, attacker.OreQuality)
		res.Defender.Power = armyPower(dFighters, defender.OreQuality)
		res.Attacker.Score = res.Attacker.Power + float64(s.dice.IntRange(0, 100))
		res.Defender.Score = res.Defender.Power + float64(s.dice.IntRange(0, 100))

		if res.Attacker.Casualties, err = s.inflictCasualties(ctx, tx, aFighters); err != nil {
			return err
		}
		if res.Defender.Casualties, err = s.inflictCasualties(ctx, tx, dFighters); err != nil {
			return err
		}

		var winner, loser *models.Player
		var winSide, loseSide *WarSide
		switch {
		case res.Attacker.Score > res.Defender.Score:
			winner, loser = attacker, defender
			winSide, loseSide = &res.Attacker, &res.Defender
		case res.Defender.Score > res.Attacker.Score:
			winner, loser = defender, attacker
			winSide, loseSide = &res.Defender, &res.Attacker
		default:
			result = res
			return nil
		}

		id := winner.ID
		res.WinnerID = &id
		s.plunder(winner, loser, res.Stolen)

		lost := min(loser.Coins, s.tuning.War.LossCoins)
		loser.Coins -= lost
		winner.Coins += s.tuning.War.WinCoins
		winner.WarWins++
		winSide.CoinDelta = s.tuning.War.WinCoins
		loseSide.CoinDelta = -lost

		if err := tx.Players.Save(ctx, winner); err != nil {
			return err
		}
		if err := tx.Players.Save(ctx, loser); err != nil {
			return err
		}
		desc := fmt.Sprintf("war %d vs %d", attackerID, defenderID)
		if err := tx.Coins.Record(ctx, winner.ID, winSide.CoinDelta, models.TxTypeWarReward, desc); err != nil {
			return err
		}
		if err := tx.Coins.Record(ctx, loser.ID, loseSide.CoinDelta, models.TxTypeWarPenalty, desc); err != nil {
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("War resolved",
		"attacker", attackerID, "defender", defenderID, "fighters", n,
		"attacker_score", result.Attacker.Score, "defender_score", result.Defender.Score)
	return result, nil
}

func armyPower(fighters []models.Citizen, ore models.Quality) float64 {
	var power float64
	for i := range fighters {
		power += fighters[i].Power()
	}
	return power * ore.Factor()
}

// inflictCasualties kills or injures a random share of the committed fighters
func (s *WarService) inflictCasualties(ctx context.Context, tx *repositories.Store, fighters []models.Citizen) (Casualties, error) {
	var c Casualties
	k := int(float64(len(fighters)) * s.dice.Uniform(0.1, 0.3))

	var dead, injured []uint
	for _, idx := range s.dice.Sample(len(fighters), k) {
		if s.dice.Chance(0.5) {
			dead = append(dead, fighters[idx].ID)
		} else {
			injured = append(injured, fighters[idx].ID)
		}
	}

	if err := tx.Citizens.MarkDead(ctx, dead); err != nil {
		return c, err
	}
	if err := tx.Citizens.MarkInjured(ctx, injured, s.now().Add(s.tuning.InjuryDuration())); err != nil {
		return c, err
	}
	c.Dead, c.Injured = len(dead), len(injured)
	return c, nil
}

// plunder moves up to StealFraction of each base resource from loser to winner
func (s *WarService) plunder(winner, loser *models.Player, stolen ResourceDelta) {
	for _, r := range models.BaseResources {
		limit := int64(float64(loser.Amount(r)) * s.tuning.War.StealFraction)
		amount := s.dice.Int64Range(0, limit)
		if amount <= 0 {
			continue
		}
		loser.Add(r, -amount)
		winner.Add(r, amount)
		stolen[r] = amount
	}
}
