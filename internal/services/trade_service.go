package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/pkg/dice"
	"github.com/mroshb/battle_forge/pkg/errors"
	"github.com/mroshb/battle_forge/pkg/logger"
)

const (
	openTradesLimit = 50
	sellableLimit   = 20
)

// CurrencyLabel names the coin of a chat group
func CurrencyLabel(group string) string {
	if group == "" {
		group = "group"
	}
	return group + " coin"
}

// Sellable lists what a player could offer right now.
type Sellable struct {
	Balances map[models.Resource]int64
	Citizens []models.Citizen
}

type TradeService struct {
	store *repositories.Store
	dice  *dice.Dice
	now   Clock
}

func NewTradeService(store *repositories.Store, d *dice.Dice) *TradeService {
	return &TradeService{
		store: store,
		dice:  d,
		now:   utcNow,
	}
}

func (s *TradeService) WithClock(now Clock) *TradeService {
	s.now = now
	return s
}

// tradeItem is a parsed offer item: either a stockpile or one citizen.
type tradeItem struct {
	resource  models.Resource
	citizenID uint
}

func (it tradeItem) isCitizen() bool {
	return it.citizenID != 0
}

func (it tradeItem) String() string {
	if it.isCitizen() {
		return models.CitizenItemPrefix + strconv.FormatUint(uint64(it.citizenID), 10)
	}
	return string(it.resource)
}

func parseTradeItem(raw string) (tradeItem, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if r, ok := models.ParseResource(raw); ok {
		return tradeItem{resource: r}, nil
	}
	if rest, ok := strings.CutPrefix(raw, models.CitizenItemPrefix); ok {
		id, err := strconv.ParseUint(rest, 10, 64)
		if err == nil && id > 0 {
			return tradeItem{citizenID: uint(id)}, nil
		}
	}
	return tradeItem{}, errors.Validation("invalid item, use sperms, eggs, water, food, medicine, ore or citizen_<id>")
}

// failChance is the market's rejection probability for a seller
func failChance(traders int64) float64 {
	return math.Max(0, 0.1-0.01*float64(traders))
}

// Offer lists goods for sale. Goods stay with the seller until a buyer
// accepts, so availability is checked again at acceptance.
func (s *TradeService) Offer(ctx context.Context, sellerID int64, rawItem string, quantity, price int64, currency string) (*models.Trade, error) {
	item, err := parseTradeItem(rawItem)
	if err != nil {
		return nil, err
	}
	if item.isCitizen() {
		quantity = 1
	}
	if quantity <= 0 || price <= 0 {
		return nil, errors.Validation("quantity and price must be positive")
	}

	seller, err := s.store.Players.Get(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if err := s.checkHolding(ctx, s.store, seller, item, quantity); err != nil {
		return nil, err
	}

	counts, err := s.store.Citizens.CountActiveByRole(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if s.dice.Chance(failChance(counts[models.RoleTrader])) {
		return nil, errors.InvalidState("trade failed due to market fluctuations")
	}

	trade := &models.Trade{
		SellerID: sellerID,
		Item:     item.String(),
		Quantity: quantity,
		Price:    price,
		Currency: currency,
		Status:   models.TradeStatusOpen,
	}
	if err := s.store.Trades.Create(ctx, trade); err != nil {
		return nil, err
	}

	logger.Debug("Trade created", "trade_id", trade.ID, "seller", sellerID, "item", trade.Item, "quantity", quantity, "price", price)
	return trade, nil
}

func (s *TradeService) checkHolding(ctx context.Context, store *repositories.Store, seller *models.Player, item tradeItem, quantity int64) error {
	if !item.isCitizen() {
		if seller.Amount(item.resource) < quantity {
			return errors.Insufficient("not enough %s", item.resource)
		}
		return nil
	}

	citizen, err := store.Citizens.GetForUpdate(ctx, item.citizenID)
	if err != nil && !errors.HasCode(err, errors.ErrCodeNotFound) {
		return err
	}
	if citizen == nil || citizen.PlayerID != seller.ID || citizen.Status != models.CitizenStatusActive {
		return errors.Insufficient("citizen %d is not available", item.citizenID)
	}
	return nil
}

// Accept buys an open trade. When the seller no longer holds the goods the
// trade is invalidated and an InvalidState error is returned.
func (s *TradeService) Accept(ctx context.Context, tradeID uint, buyerID int64, currency string) (*models.Trade, error) {
	var trade *models.Trade
	invalidated := false

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		trade, err = tx.Trades.GetForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}
		if trade.Status != models.TradeStatusOpen {
			return errors.InvalidState("trade %d is already closed", tradeID)
		}
		if trade.Currency != currency {
			return errors.Validation("trade uses a different currency: %s", trade.Currency)
		}
		if trade.SellerID == buyerID {
			return errors.Validation("you can't accept your own trade")
		}

		buyer, err := tx.Players.GetForUpdate(ctx, buyerID)
		if err != nil {
			return err
		}
		if buyer.Coins < trade.Price {
			return errors.Insufficient("not enough coins: have %d, need %d", buyer.Coins, trade.Price)
		}
		seller, err := tx.Players.GetForUpdate(ctx, trade.SellerID)
		if err != nil {
			return err
		}

		item, err := parseTradeItem(trade.Item)
		if err != nil {
			return err
		}
		now := s.now()
		if err := s.checkHolding(ctx, tx, seller, item, trade.Quantity); err != nil {
			if !errors.HasCode(err, errors.ErrCodeInsufficientResource) {
				return err
			}
			if _, err := tx.Trades.Close(ctx, trade.ID, nil, models.TradeOutcomeInvalidated, now); err != nil {
				return err
			}
			invalidated = true
			return nil
		}

		if item.isCitizen() {
			ok, err := tx.Citizens.TransferOwner(ctx, item.citizenID, seller.ID, buyer.ID)
			if err != nil {
				return err
			}
			if !ok {
				return errors.InvalidState("citizen %d is no longer available", item.citizenID)
			}
		} else {
			seller.Add(item.resource, -trade.Quantity)
			buyer.Add(item.resource, trade.Quantity)
		}
		buyer.Coins -= trade.Price
		seller.Coins += trade.Price

		if err := tx.Players.Save(ctx, buyer); err != nil {
			return err
		}
		if err := tx.Players.Save(ctx, seller); err != nil {
			return err
		}

		desc := fmt.Sprintf("trade %d: %d %s", trade.ID, trade.Quantity, trade.Item)
		if err := tx.Coins.Record(ctx, buyer.ID, -trade.Price, models.TxTypeTradePurchase, desc); err != nil {
			return err
		}
		if err := tx.Coins.Record(ctx, seller.ID, trade.Price, models.TxTypeTradeSale, desc); err != nil {
			return err
		}

		closed, err := tx.Trades.Close(ctx, trade.ID, &buyerID, models.TradeOutcomeSold, now)
		if err != nil {
			return err
		}
		if !closed {
			return errors.InvalidState("trade %d is already closed", tradeID)
		}
		trade.Status = models.TradeStatusClosed
		trade.Outcome = models.TradeOutcomeSold
		trade.BuyerID = &buyerID
		trade.ClosedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if invalidated {
		logger.Debug("Trade invalidated", "trade_id", tradeID)
		return nil, errors.InvalidState("seller no longer has the goods, trade %d closed", tradeID)
	}

	logger.Debug("Trade accepted", "trade_id", tradeID, "buyer", buyerID)
	return trade, nil
}

// ListOpen returns the open trades, oldest first
func (s *TradeService) ListOpen(ctx context.Context) ([]models.Trade, error) {
	return s.store.Trades.ListOpen(ctx, openTradesLimit)
}

// Sellable returns a player's balances and some of their active citizens
func (s *TradeService) Sellable(ctx context.Context, playerID int64) (*Sellable, error) {
	player, err := s.store.Players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	citizens, err := s.store.Citizens.ListActive(ctx, playerID, sellableLimit)
	if err != nil {
		return nil, err
	}

	balances := make(map[models.Resource]int64, len(models.AllResources))
	for _, r := range models.AllResources {
		balances[r] = player.Amount(r)
	}
	return &Sellable{Balances: balances, Citizens: citizens}, nil
}
