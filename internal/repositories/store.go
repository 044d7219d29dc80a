package repositories

import (
	"context"

	"github.com/mroshb/battle_forge/pkg/errors"
	"gorm.io/gorm"
)

// Store groups the per-entity repositories over one handle. A Store built
// inside Transaction shares the transaction across every repository.
type Store struct {
	db *gorm.DB

	Players  *PlayerRepository
	Citizens *CitizenRepository
	Babies   *BabyRepository
	Teams    *TeamRepository
	Matches  *MatchRepository
	Trades   *TradeRepository
	Wagers   *WagerRepository
	Coins    *CoinRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Players:  NewPlayerRepository(db),
		Citizens: NewCitizenRepository(db),
		Babies:   NewBabyRepository(db),
		Teams:    NewTeamRepository(db),
		Matches:  NewMatchRepository(db),
		Trades:   NewTradeRepository(db),
		Wagers:   NewWagerRepository(db),
		Coins:    NewCoinRepository(db),
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a Store bound to a single database
// transaction. Code inside fn must use tx only; the outer Store would wait
// on a second connection. Errors that are not AppErrors come back as
// internal errors and roll the transaction back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
	return errors.AsAppError(err, "transaction failed")
}

// affected turns a conditional UPDATE into a transition flag.
func affected(result *gorm.DB, msg string) (bool, error) {
	if result.Error != nil {
		return false, errors.Internal(result.Error, msg)
	}
	return result.RowsAffected > 0, nil
}
