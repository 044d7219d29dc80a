package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/utils"
)

func (h *HandlerManager) HandleSellable(ctx context.Context, req *Request, bot BotInterface) {
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}
	sellable, err := h.Trades.Sellable(ctx, req.UserID)
	if err != nil {
		h.replyError(bot, req, "viewing sellable items", err)
		return
	}

	var b strings.Builder
	b.WriteString("Sellable items:\n")
	for _, r := range models.AllResources {
		fmt.Fprintf(&b, "%s: %d\n", r, sellable.Balances[r])
	}
	if len(sellable.Citizens) > 0 {
		b.WriteString("\nCitizens:\n")
		for _, c := range sellable.Citizens {
			fmt.Fprintf(&b, "%s%d: %s (%s, attack %d, health %d)\n", models.CitizenItemPrefix, c.ID, c.Name, c.Role, c.Attack, c.Health)
		}
	}
	bot.SendMessage(req.ChatID, strings.TrimRight(b.String(), "\n"), nil)
}

func (h *HandlerManager) HandleTrade(ctx context.Context, req *Request, bot BotInterface) {
	if len(req.Args) != 3 {
		bot.SendMessage(req.ChatID, usageTrade(req.Currency()), nil)
		return
	}
	quantity, err1 := parseInt(req.Args[1])
	price, err2 := parseInt(req.Args[2])
	if err1 != nil || err2 != nil {
		bot.SendMessage(req.ChatID, "Quantity and price must be numbers!", nil)
		return
	}
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}

	trade, err := h.Trades.Offer(ctx, req.UserID, strings.ToLower(req.Args[0]), quantity, price, req.Currency())
	if err != nil {
		h.replyError(bot, req, "creating the trade", err)
		return
	}
	bot.SendMessage(req.ChatID, fmt.Sprintf("✅ Trade %d offered: %d %s for %d %s. Accept with /accepttrade %d",
		trade.ID, trade.Quantity, trade.Item, trade.Price, trade.Currency, trade.ID), nil)
}

func (h *HandlerManager) HandleTrades(ctx context.Context, req *Request, bot BotInterface) {
	trades, err := h.Trades.ListOpen(ctx)
	if err != nil {
		h.replyError(bot, req, "listing trades", err)
		return
	}
	if len(trades) == 0 {
		bot.SendMessage(req.ChatID, "No open trades.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("Open trades:\n")
	for _, t := range trades {
		fmt.Fprintf(&b, "#%d: %d %s for %d %s (seller %d)\n", t.ID, t.Quantity, t.Item, t.Price, t.Currency, t.SellerID)
	}
	for _, chunk := range utils.SplitMessage(strings.TrimRight(b.String(), "\n"), utils.MaxMessageLength) {
		bot.SendMessage(req.ChatID, chunk, nil)
	}
}

func (h *HandlerManager) HandleAcceptTrade(ctx context.Context, req *Request, bot BotInterface) {
	if len(req.Args) != 1 {
		bot.SendMessage(req.ChatID, UsageAccept, nil)
		return
	}
	id, err := parseInt(req.Args[0])
	if err != nil || id <= 0 {
		bot.SendMessage(req.ChatID, "Trade id must be a number!", nil)
		return
	}
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}

	trade, err := h.Trades.Accept(ctx, uint(id), req.UserID, req.Currency())
	if err != nil {
		h.replyError(bot, req, "accepting the trade", err)
		return
	}
	bot.SendMessage(req.ChatID, fmt.Sprintf("✅ Trade %d completed: you bought %d %s for %d %s!",
		trade.ID, trade.Quantity, trade.Item, trade.Price, trade.Currency), nil)
}
