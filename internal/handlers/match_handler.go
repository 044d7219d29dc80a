package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mroshb/battle_forge/internal/match"
	"github.com/mroshb/battle_forge/internal/models"
)

const rankingSize = 10

func disciplineList() string {
	names := make([]string, len(match.Disciplines))
	for i, d := range match.Disciplines {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}

func (h *HandlerManager) HandleSportEvent(ctx context.Context, req *Request, bot BotInterface) {
	if len(req.Args) != 2 {
		bot.SendMessage(req.ChatID, usageSportEvent(disciplineList()), nil)
		return
	}
	d, ok := match.ParseDiscipline(req.Args[0])
	if !ok {
		bot.SendMessage(req.ChatID, "Invalid sport! Choose from: "+disciplineList(), nil)
		return
	}
	capacity, err := parseInt(req.Args[1])
	if err != nil {
		bot.SendMessage(req.ChatID, "Number of teams must be a number!", nil)
		return
	}
	if err := d.ValidateCapacity(int(capacity)); err != nil {
		h.replyError(bot, req, "creating the match", err)
		return
	}
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}
	team, err := h.Teams.EnsureTeam(ctx, req.UserID)
	if err != nil {
		h.replyError(bot, req, "loading your team", err)
		return
	}

	m, err := h.Scheduler.ProposeMatch(ctx, d, team.ID, int(capacity), req.ChatID)
	if err != nil {
		h.replyError(bot, req, "creating the match", err)
		return
	}
	bot.SendMessage(req.ChatID, fmt.Sprintf(
		"🏟️ New %s match %d created by %s (1/%d teams).\nJoin with /acceptsport %d within %s.\nBet with /gamble %d <team_name> <amount>",
		d.Title(), m.ID, team.Name, m.Capacity, m.ID, h.Engine.JoinWindow(), m.ID), nil)
}

func (h *HandlerManager) HandleAcceptSport(ctx context.Context, req *Request, bot BotInterface) {
	matchID, ok := matchArg(req, bot, UsageAcceptSport)
	if !ok {
		return
	}
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}
	team, err := h.Teams.EnsureTeam(ctx, req.UserID)
	if err != nil {
		h.replyError(bot, req, "loading your team", err)
		return
	}

	outcome, err := h.Scheduler.JoinMatch(ctx, matchID, team.ID)
	if err != nil {
		h.replyError(bot, req, "joining the match", err)
		return
	}

	var text string
	switch outcome {
	case match.JoinJoined:
		text = fmt.Sprintf("✅ %s joined match %d!", team.Name, matchID)
	case match.JoinStarting:
		text = fmt.Sprintf("✅ %s joined match %d. The roster is full, kick-off in %s!", team.Name, matchID, h.Config.GetSettleDelay())
	case match.JoinFull:
		text = "This match is already full!"
	case match.JoinAlreadyJoined:
		text = "You have already joined this match!"
	default:
		text = "Invalid or closed match id!"
	}
	bot.SendMessage(req.ChatID, text, nil)
}

func (h *HandlerManager) HandleCancelSport(ctx context.Context, req *Request, bot BotInterface) {
	matchID, ok := matchArg(req, bot, UsageCancelSport)
	if !ok {
		return
	}
	m, err := h.Engine.Get(ctx, matchID)
	if err != nil {
		h.replyError(bot, req, "cancelling the match", err)
		return
	}
	if !h.isAdmin(req) && !h.createdBy(ctx, m, req.UserID) {
		bot.SendMessage(req.ChatID, "❌ Only the match creator can cancel it!", nil)
		return
	}

	cancelled, err := h.Scheduler.CancelMatch(ctx, matchID)
	if err != nil {
		h.replyError(bot, req, "cancelling the match", err)
		return
	}
	if !cancelled {
		bot.SendMessage(req.ChatID, "This match can no longer be cancelled.", nil)
		return
	}
	bot.SendMessage(req.ChatID, fmt.Sprintf("Match %d cancelled. Wagers on it are forfeited.", matchID), nil)
}

func (h *HandlerManager) createdBy(ctx context.Context, m *models.Match, playerID int64) bool {
	if len(m.TeamIDs) == 0 {
		return false
	}
	team, err := h.Teams.Get(ctx, m.TeamIDs[0])
	return err == nil && team.OwnerID != nil && *team.OwnerID == playerID
}

func (h *HandlerManager) HandleMatches(ctx context.Context, req *Request, bot BotInterface) {
	matches, err := h.Engine.Recruiting(ctx, req.ChatID)
	if err != nil {
		h.replyError(bot, req, "listing matches", err)
		return
	}
	if len(matches) == 0 {
		bot.SendMessage(req.ChatID, "No matches are recruiting in this chat.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("Recruiting matches:\n")
	for _, m := range matches {
		fmt.Fprintf(&b, "#%d %s (%d/%d): %s\n", m.ID, match.Discipline(m.Discipline).Title(),
			len(m.TeamIDs), m.Capacity, strings.Join(h.teamNames(ctx, m.TeamIDs), ", "))
	}
	bot.SendMessage(req.ChatID, strings.TrimRight(b.String(), "\n"), nil)
}

func (h *HandlerManager) teamNames(ctx context.Context, ids []uint) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, err := h.Teams.Get(ctx, id); err == nil {
			names = append(names, t.Name)
		}
	}
	return names
}

func (h *HandlerManager) HandleGamble(ctx context.Context, req *Request, bot BotInterface) {
	if len(req.Args) != 3 {
		bot.SendMessage(req.ChatID, UsageGamble, nil)
		return
	}
	matchID, err1 := parseInt(req.Args[0])
	amount, err2 := parseInt(req.Args[2])
	if err1 != nil || err2 != nil || matchID <= 0 {
		bot.SendMessage(req.ChatID, "Match id and amount must be numbers!", nil)
		return
	}
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}

	wager, err := h.Wagers.Place(ctx, req.UserID, uint(matchID), req.Args[1], amount)
	if err != nil {
		h.replyError(bot, req, "placing the bet", err)
		return
	}
	bot.SendMessage(req.ChatID, fmt.Sprintf("🎲 Bet %d %ss on %s in match %d! A win pays %dx.",
		wager.Amount, req.Currency(), req.Args[1], matchID, h.Wagers.Multiplier()), nil)
}

func (h *HandlerManager) HandleTeamStats(ctx context.Context, req *Request, bot BotInterface) {
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}
	team, err := h.Teams.EnsureTeam(ctx, req.UserID)
	if err != nil {
		h.replyError(bot, req, "viewing team stats", err)
		return
	}
	bot.SendMessage(req.ChatID, fmt.Sprintf("Team: %s\nWins: %d\nWin streak: %d\nPower: %d",
		team.Name, team.Wins, team.WinStreak, team.Power), nil)
}

func (h *HandlerManager) HandleTeamRanking(ctx context.Context, req *Request, bot BotInterface) {
	teams, err := h.Teams.Ranking(ctx, rankingSize)
	if err != nil {
		h.replyError(bot, req, "ranking teams", err)
		return
	}

	var b strings.Builder
	b.WriteString("🏅 Team ranking:\n")
	for i, t := range teams {
		fmt.Fprintf(&b, "%d. %s: %d wins, power %d\n", i+1, t.Name, t.Wins, t.Power)
	}
	bot.SendMessage(req.ChatID, strings.TrimRight(b.String(), "\n"), nil)
}

func matchArg(req *Request, bot BotInterface, usage string) (uint, bool) {
	if len(req.Args) != 1 {
		bot.SendMessage(req.ChatID, usage, nil)
		return 0, false
	}
	id, err := parseInt(req.Args[0])
	if err != nil || id <= 0 {
		bot.SendMessage(req.ChatID, "Match id must be a number!", nil)
		return 0, false
	}
	return uint(id), true
}
