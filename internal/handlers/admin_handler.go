package handlers

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mroshb/battle_forge/pkg/logger"
)

const exportFileName = "battle_forge.xlsx"

// HandleAdminStats shows bot statistics
func (h *HandlerManager) HandleAdminStats(ctx context.Context, req *Request, bot BotInterface) {
	if !h.isAdmin(req) {
		bot.SendMessage(req.ChatID, MsgAdminOnly, nil)
		return
	}

	players, err := h.Players.Count(ctx)
	if err != nil {
		h.replyError(bot, req, "loading statistics", err)
		return
	}
	teams, err := h.Teams.Count(ctx)
	if err != nil {
		h.replyError(bot, req, "loading statistics", err)
		return
	}
	matches, err := h.Engine.Open(ctx)
	if err != nil {
		h.replyError(bot, req, "loading statistics", err)
		return
	}
	trades, err := h.Trades.ListOpen(ctx)
	if err != nil {
		h.replyError(bot, req, "loading statistics", err)
		return
	}

	bot.SendMessage(req.ChatID, fmt.Sprintf(`📊 Bot statistics:

👥 Players: %d
🛡️ Teams: %d
🏟️ Open matches: %d
💱 Open trades: %d`, players, teams, len(matches), len(trades)), nil)
}

// HandleRandomMatches starts the random AI match loop for this chat
func (h *HandlerManager) HandleRandomMatches(ctx context.Context, req *Request, bot BotInterface) {
	if !h.isAdmin(req) {
		bot.SendMessage(req.ChatID, MsgAdminOnly, nil)
		return
	}
	if !h.Scheduler.RegisterChat(req.ChatID) {
		bot.SendMessage(req.ChatID, "Random matches are already running in this chat.", nil)
		return
	}
	bot.SendMessage(req.ChatID, "✅ Random matches enabled for this chat.", nil)
}

func (h *HandlerManager) HandleEconomyStep(ctx context.Context, req *Request, bot BotInterface) {
	if !h.isAdmin(req) {
		bot.SendMessage(req.ChatID, MsgAdminOnly, nil)
		return
	}
	if len(req.Args) != 1 {
		bot.SendMessage(req.ChatID, UsageEconomy, nil)
		return
	}
	playerID, err := parseInt(req.Args[0])
	if err != nil {
		bot.SendMessage(req.ChatID, UsageEconomy, nil)
		return
	}

	report, err := h.Scheduler.RunEconomyStep(ctx, playerID)
	if err != nil {
		h.replyError(bot, req, "running the economy step", err)
		return
	}
	bot.SendMessage(req.ChatID, fmt.Sprintf("✅ Economy step for %d: %s. Born %d, grown up %d, recovered %d.",
		playerID, formatDelta(report.Production), report.Gestation.Born, report.Gestation.Matured, report.Healed), nil)
}

// HandleExport sends the players, teams and matches workbook
func (h *HandlerManager) HandleExport(ctx context.Context, req *Request, bot BotInterface) {
	if !h.isAdmin(req) {
		bot.SendMessage(req.ChatID, MsgAdminOnly, nil)
		return
	}

	var buf bytes.Buffer
	if err := h.Reports.Write(ctx, &buf); err != nil {
		h.replyError(bot, req, "building the export", err)
		return
	}
	caption := "Export " + time.Now().UTC().Format("2006-01-02 15:04")
	if err := bot.SendDocument(req.ChatID, exportFileName, buf.Bytes(), caption); err != nil {
		logger.Error("Failed to send export", "chat_id", req.ChatID, "error", err)
		bot.SendMessage(req.ChatID, "❌ An error occurred while sending the export.", nil)
	}
}
