package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/pkg/dice"
	"github.com/mroshb/battle_forge/pkg/errors"
	"github.com/stretchr/testify/require"
)

const testCurrency = "arena coin"

func newTrade(store *repositories.Store, src dice.Source) *TradeService {
	return NewTradeService(store, dice.WithSource(src)).WithClock(fixedClock)
}

func TestFailChance(t *testing.T) {
	require.InDelta(t, 0.1, failChance(0), 1e-9)
	require.InDelta(t, 0.05, failChance(5), 1e-9)
	require.Zero(t, failChance(10))
	require.Zero(t, failChance(25))
}

func TestCurrencyLabel(t *testing.T) {
	require.Equal(t, "arena coin", CurrencyLabel("arena"))
	require.Equal(t, "group coin", CurrencyLabel(""))
}

func TestOffer_Validation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	createPlayer(t, store, 2, nil)
	other := addCitizens(t, store, 2, models.RoleWorker, 1, 10, 60)
	trade := newTrade(store, fixedSource{f: 0.99})

	tests := []struct {
		name     string
		item     string
		quantity int64
		price    int64
		code     string
	}{
		{"unknown item", "gold", 1, 1, errors.ErrCodeValidation},
		{"zero quantity", "water", 0, 1, errors.ErrCodeValidation},
		{"zero price", "water", 1, 0, errors.ErrCodeValidation},
		{"more than held", "water", 101, 1, errors.ErrCodeInsufficientResource},
		{"someone else's citizen", fmt.Sprintf("citizen_%d", other[0].ID), 1, 5, errors.ErrCodeInsufficientResource},
		{"missing citizen", "citizen_9999", 1, 5, errors.ErrCodeInsufficientResource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := trade.Offer(ctx, 1, tt.item, tt.quantity, tt.price, testCurrency)
			require.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
}

func TestOffer_MarketFluctuation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)

	_, err := newTrade(store, fixedSource{f: 0}).Offer(ctx, 1, "water", 10, 5, testCurrency)
	require.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))

	addCitizens(t, store, 1, models.RoleTrader, 10, 10, 60)
	offer, err := newTrade(store, fixedSource{f: 0}).Offer(ctx, 1, "water", 10, 5, testCurrency)
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusOpen, offer.Status)
}

func TestAccept_Resource(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, func(p *models.Player) { p.Sperm = 1000 })
	createPlayer(t, store, 2, nil)
	trade := newTrade(store, fixedSource{f: 0.99})

	offer, err := trade.Offer(ctx, 1, "sperms", 400, 7, testCurrency)
	require.NoError(t, err)
	require.Equal(t, "sperm", offer.Item)

	_, err = trade.Accept(ctx, offer.ID, 2, "other coin")
	require.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	_, err = trade.Accept(ctx, offer.ID, 1, testCurrency)
	require.True(t, errors.HasCode(err, errors.ErrCodeValidation))

	closed, err := trade.Accept(ctx, offer.ID, 2, testCurrency)
	require.NoError(t, err)
	require.Equal(t, models.TradeOutcomeSold, closed.Outcome)

	seller := reloadPlayer(t, store, 1)
	buyer := reloadPlayer(t, store, 2)
	require.Equal(t, int64(600), seller.Sperm)
	require.Equal(t, int64(400), buyer.Sperm)
	require.Equal(t, int64(17), seller.Coins)
	require.Equal(t, int64(3), buyer.Coins)

	_, err = trade.Accept(ctx, offer.ID, 2, testCurrency)
	require.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
	require.Equal(t, int64(3), reloadPlayer(t, store, 2).Coins)
}

func TestAccept_BuyerShortOfCoins(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	createPlayer(t, store, 2, nil)
	trade := newTrade(store, fixedSource{f: 0.99})

	offer, err := trade.Offer(ctx, 1, "food", 10, 50, testCurrency)
	require.NoError(t, err)

	_, err = trade.Accept(ctx, offer.ID, 2, testCurrency)
	require.True(t, errors.HasCode(err, errors.ErrCodeInsufficientResource))

	open, err := trade.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
}

func TestAccept_InvalidatesWhenGoodsAreGone(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := createPlayer(t, store, 1, nil)
	createPlayer(t, store, 2, nil)
	trade := newTrade(store, fixedSource{f: 0.99})

	offer, err := trade.Offer(ctx, 1, "ore", 80, 5, testCurrency)
	require.NoError(t, err)

	seller.Ore = 10
	require.NoError(t, store.Players.Save(ctx, seller))

	_, err = trade.Accept(ctx, offer.ID, 2, testCurrency)
	require.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))

	open, err := trade.ListOpen(ctx)
	require.NoError(t, err)
	require.Empty(t, open)
	require.Equal(t, int64(10), reloadPlayer(t, store, 2).Coins)
}

func TestAccept_Citizen(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	createPlayer(t, store, 2, nil)
	citizens := addCitizens(t, store, 1, models.RoleFighter, 1, 20, 70)
	trade := newTrade(store, fixedSource{f: 0.99})

	offer, err := trade.Offer(ctx, 1, fmt.Sprintf("citizen_%d", citizens[0].ID), 3, 4, testCurrency)
	require.NoError(t, err)
	require.Equal(t, int64(1), offer.Quantity)

	_, err = trade.Accept(ctx, offer.ID, 2, testCurrency)
	require.NoError(t, err)

	counts, err := store.Citizens.CountActiveByRole(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[models.RoleFighter])
	require.Equal(t, int64(14), reloadPlayer(t, store, 1).Coins)
}

func TestSellable(t *testing.T) {
	store := newTestStore(t)
	createPlayer(t, store, 1, func(p *models.Player) { p.Egg = 12 })
	addCitizens(t, store, 1, models.RoleScout, 2, 10, 60)

	view, err := newTrade(store, fixedSource{}).Sellable(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(12), view.Balances[models.ResourceEgg])
	require.Len(t, view.Citizens, 2)
}
