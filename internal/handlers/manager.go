package handlers

import (
	"context"
	"strings"

	"github.com/mroshb/battle_forge/internal/config"
	"github.com/mroshb/battle_forge/internal/match"
	"github.com/mroshb/battle_forge/internal/middleware"
	"github.com/mroshb/battle_forge/internal/reports"
	"github.com/mroshb/battle_forge/internal/scheduler"
	"github.com/mroshb/battle_forge/internal/services"
	"github.com/mroshb/battle_forge/pkg/errors"
	"github.com/mroshb/battle_forge/pkg/logger"
)

// BotInterface is what the handlers need from the chat transport
type BotInterface interface {
	SendMessage(chatID int64, text string, keyboard interface{}) int
	SendDocument(chatID int64, name string, data []byte, caption string) error
}

// Request is one parsed chat command
type Request struct {
	ChatID    int64
	ChatTitle string
	UserID    int64
	Username  string
	Args      []string
}

// Currency is the coin name used in this chat
func (r *Request) Currency() string {
	return services.CurrencyLabel(r.ChatTitle)
}

type handlerFunc func(h *HandlerManager, ctx context.Context, req *Request, bot BotInterface)

type HandlerManager struct {
	Config    *config.Config
	Players   *services.PlayerService
	Economy   *services.EconomyService
	Teams     *services.TeamService
	Trades    *services.TradeService
	Wagers    *services.WagerService
	Engine    *match.Engine
	Scheduler *scheduler.Scheduler
	Reports   *reports.Exporter
	Limiter   *middleware.RateLimiter

	commands map[string]handlerFunc
}

func NewHandlerManager(
	cfg *config.Config,
	players *services.PlayerService,
	economy *services.EconomyService,
	teams *services.TeamService,
	trades *services.TradeService,
	wagers *services.WagerService,
	engine *match.Engine,
	sched *scheduler.Scheduler,
	exporter *reports.Exporter,
	limiter *middleware.RateLimiter,
) *HandlerManager {
	h := &HandlerManager{
		Config:    cfg,
		Players:   players,
		Economy:   economy,
		Teams:     teams,
		Trades:    trades,
		Wagers:    wagers,
		Engine:    engine,
		Scheduler: sched,
		Reports:   exporter,
		Limiter:   limiter,
	}
	h.commands = map[string]handlerFunc{
		"start":            (*HandlerManager).HandleStart,
		"help":             (*HandlerManager).HandleStart,
		"mystats":          (*HandlerManager).HandleMyStats,
		"collectresources": (*HandlerManager).HandleCollectResources,
		"collectsupplies":  (*HandlerManager).HandleCollectSupplies,
		"upgradequality":   (*HandlerManager).HandleUpgradeQuality,
		"merge":            (*HandlerManager).HandleMerge,
		"currencies":       (*HandlerManager).HandleCurrencies,
		"leaderboard":      (*HandlerManager).HandleLeaderboard,
		"history":          (*HandlerManager).HandleHistory,
		"sellable":         (*HandlerManager).HandleSellable,
		"trade":            (*HandlerManager).HandleTrade,
		"trades":           (*HandlerManager).HandleTrades,
		"accepttrade":      (*HandlerManager).HandleAcceptTrade,
		"war":              (*HandlerManager).HandleWar,
		"sportevent":       (*HandlerManager).HandleSportEvent,
		"acceptsport":      (*HandlerManager).HandleAcceptSport,
		"cancelsport":      (*HandlerManager).HandleCancelSport,
		"matches":          (*HandlerManager).HandleMatches,
		"gamble":           (*HandlerManager).HandleGamble,
		"teamstats":        (*HandlerManager).HandleTeamStats,
		"teamranking":      (*HandlerManager).HandleTeamRanking,
		"adminstats":       (*HandlerManager).HandleAdminStats,
		"randommatches":    (*HandlerManager).HandleRandomMatches,
		"economystep":      (*HandlerManager).HandleEconomyStep,
		"export":           (*HandlerManager).HandleExport,
	}
	return h
}

// Dispatch runs the handler for command. It reports false for unknown
// commands.
func (h *HandlerManager) Dispatch(ctx context.Context, command string, req *Request, bot BotInterface) bool {
	command = strings.ToLower(strings.TrimPrefix(command, "/"))
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	fn, ok := h.commands[command]
	if !ok {
		return false
	}

	if h.Limiter != nil && !h.Limiter.CheckUserLimit(req.UserID) {
		logger.Debug("Rate limited", "user_id", req.UserID, "command", command)
		bot.SendMessage(req.ChatID, MsgRateLimited, nil)
		return true
	}

	logger.Debug("Command", "user_id", req.UserID, "chat_id", req.ChatID, "command", command, "args", len(req.Args))
	fn(h, ctx, req, bot)
	return true
}

// Commands lists the registered command names
func (h *HandlerManager) Commands() []string {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	return names
}

// replyError turns a service error into a chat reply. Rule violations are
// shown as they are; anything else is logged and hidden behind a generic
// message.
func (h *HandlerManager) replyError(bot BotInterface, req *Request, action string, err error) {
	switch errors.CodeOf(err) {
	case errors.ErrCodeValidation, errors.ErrCodeInsufficientResource, errors.ErrCodeInvalidState,
		errors.ErrCodeNotFound, errors.ErrCodeAlreadyExists:
		bot.SendMessage(req.ChatID, "❌ "+errors.MessageOf(err), nil)
	default:
		logger.Error("Command failed", "action", action, "user_id", req.UserID, "error", err)
		bot.SendMessage(req.ChatID, "❌ An error occurred while "+action+".", nil)
	}
}

func (h *HandlerManager) isAdmin(req *Request) bool {
	return h.Config != nil && h.Config.SuperAdminTgID != 0 && req.UserID == h.Config.SuperAdminTgID
}
