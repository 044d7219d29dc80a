package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/services"
	"github.com/mroshb/battle_forge/pkg/logger"
	"github.com/mroshb/battle_forge/pkg/utils"
)

const historyLimit = 10

func (r *Request) displayName() string {
	if r.Username != "" {
		return r.Username
	}
	return fmt.Sprintf("user_%d", r.UserID)
}

// ensurePlayer registers the caller on first use. It replies and returns
// nil when the player cannot be loaded.
func (h *HandlerManager) ensurePlayer(ctx context.Context, req *Request, bot BotInterface) *models.Player {
	player, created, err := h.Players.EnsurePlayer(ctx, req.UserID, req.displayName())
	if err != nil {
		h.replyError(bot, req, "loading your player", err)
		return nil
	}
	if created {
		logger.Info("Player joined", "user_id", req.UserID, "chat_id", req.ChatID)
	}
	return player
}

func (h *HandlerManager) HandleStart(ctx context.Context, req *Request, bot BotInterface) {
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}
	bot.SendMessage(req.ChatID, welcomeText(req.ChatTitle, req.Currency()), nil)
}

func (h *HandlerManager) HandleMyStats(ctx context.Context, req *Request, bot BotInterface) {
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}
	stats, err := h.Economy.Stats(ctx, req.UserID)
	if err != nil {
		h.replyError(bot, req, "viewing stats", err)
		return
	}
	for _, chunk := range utils.SplitMessage(formatStats(stats, req.Currency()), utils.MaxMessageLength) {
		bot.SendMessage(req.ChatID, chunk, nil)
	}
}

func formatStats(s *services.PlayerStats, currency string) string {
	p := s.Player
	var b strings.Builder
	fmt.Fprintf(&b, "Your stats:\nSperms: %d\nEggs: %d\n", p.Sperm, p.Egg)
	for _, r := range models.BaseResources {
		fmt.Fprintf(&b, "%s: %d (%s)\n", title(string(r)), p.Amount(r), p.Quality(r))
	}
	fmt.Fprintf(&b, "%ss: %d\nWar wins: %d\n", currency, p.Coins, p.WarWins)
	fmt.Fprintf(&b, "@%s coin value: %.2f %ss\n", p.Username, s.CurrencyValue, currency)

	if s.Step != nil {
		if !s.Step.Production.IsZero() {
			fmt.Fprintf(&b, "New supplies: %s\n", formatDelta(s.Step.Production))
		}
		g := s.Step.Gestation
		if g.Born > 0 || g.Matured > 0 {
			fmt.Fprintf(&b, "Born: %d, grown up: %d\n", g.Born, g.Matured)
		}
		if s.Step.Healed > 0 {
			fmt.Fprintf(&b, "Recovered from injury: %d\n", s.Step.Healed)
		}
	}

	fmt.Fprintf(&b, "\nBabies: %d\nPopulation: %d\n", s.Babies, s.Alive)
	for _, role := range models.Roles {
		if n := s.Citizens[role]; n > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", role, n)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDelta(d services.ResourceDelta) string {
	parts := make([]string, 0, len(d))
	for _, r := range models.AllResources {
		if n, ok := d[r]; ok && n != 0 {
			parts = append(parts, fmt.Sprintf("%+d %s", n, r))
		}
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, ", ")
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (h *HandlerManager) HandleCollectResources(ctx context.Context, req *Request, bot BotInterface) {
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}
	gained, err := h.Economy.CollectResources(ctx, req.UserID)
	if err != nil {
		h.replyError(bot, req, "collecting resources", err)
		return
	}
	bot.SendMessage(req.ChatID, "✅ Collected "+formatDelta(gained)+"!", nil)
}

func (h *HandlerManager) HandleCollectSupplies(ctx context.Context, req *Request, bot BotInterface) {
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}
	gained, err := h.Economy.CollectSupplies(ctx, req.UserID)
	if err != nil {
		h.replyError(bot, req, "collecting supplies", err)
		return
	}
	bot.SendMessage(req.ChatID, "✅ Collected "+formatDelta(gained)+"!", nil)
}

func (h *HandlerManager) HandleUpgradeQuality(ctx context.Context, req *Request, bot BotInterface) {
	if len(req.Args) != 1 {
		bot.SendMessage(req.ChatID, UsageUpgrade, nil)
		return
	}
	resource, ok := models.ParseResource(strings.ToLower(req.Args[0]))
	if !ok {
		bot.SendMessage(req.ChatID, UsageUpgrade, nil)
		return
	}
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}

	quality, err := h.Economy.UpgradeQuality(ctx, req.UserID, resource)
	if err != nil {
		h.replyError(bot, req, "upgrading quality", err)
		return
	}
	bot.SendMessage(req.ChatID, fmt.Sprintf("✅ %s quality upgraded to %s!", title(string(resource)), quality), nil)
}

func (h *HandlerManager) HandleMerge(ctx context.Context, req *Request, bot BotInterface) {
	if len(req.Args) != 2 {
		bot.SendMessage(req.ChatID, UsageMerge, nil)
		return
	}
	sperm, err1 := parseInt(req.Args[0])
	egg, err2 := parseInt(req.Args[1])
	if err1 != nil || err2 != nil {
		bot.SendMessage(req.ChatID, "Sperm and egg counts must be numbers!", nil)
		return
	}
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}

	born, err := h.Economy.Merge(ctx, req.UserID, sperm, egg)
	if err != nil {
		h.replyError(bot, req, "merging", err)
		return
	}
	bot.SendMessage(req.ChatID, fmt.Sprintf("✅ Merged %d sperms and eggs to create babies!", born), nil)
}

func (h *HandlerManager) HandleCurrencies(ctx context.Context, req *Request, bot BotInterface) {
	entries, err := h.Economy.Currencies(ctx)
	if err != nil {
		h.replyError(bot, req, "viewing currencies", err)
		return
	}
	if len(entries) == 0 {
		bot.SendMessage(req.ChatID, "No players have currencies yet!", nil)
		return
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "@%s coin: %.2f %ss\n", e.Username, e.Value, req.Currency())
	}
	for _, chunk := range utils.SplitMessage(strings.TrimRight(b.String(), "\n"), utils.MaxMessageLength) {
		bot.SendMessage(req.ChatID, chunk, nil)
	}
}

func (h *HandlerManager) HandleLeaderboard(ctx context.Context, req *Request, bot BotInterface) {
	players, err := h.Economy.Leaderboard(ctx)
	if err != nil {
		h.replyError(bot, req, "viewing the leaderboard", err)
		return
	}
	if len(players) == 0 {
		bot.SendMessage(req.ChatID, "No players on the leaderboard yet!", nil)
		return
	}

	var b strings.Builder
	b.WriteString("🏆 Leaderboard:\n")
	for i, p := range players {
		fmt.Fprintf(&b, "%d. @%s: %d coins, %d war wins\n", i+1, p.Username, p.Coins, p.WarWins)
	}
	bot.SendMessage(req.ChatID, strings.TrimRight(b.String(), "\n"), nil)
}

func (h *HandlerManager) HandleHistory(ctx context.Context, req *Request, bot BotInterface) {
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}
	txs, err := h.Players.History(ctx, req.UserID, historyLimit)
	if err != nil {
		h.replyError(bot, req, "viewing your history", err)
		return
	}
	if len(txs) == 0 {
		bot.SendMessage(req.ChatID, "No coin transactions yet.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("Latest transactions:\n")
	for _, tx := range txs {
		fmt.Fprintf(&b, "%s %+d (%s) %s\n", tx.CreatedAt.UTC().Format("01-02 15:04"), tx.Amount, tx.TransactionType, tx.Description)
	}
	bot.SendMessage(req.ChatID, strings.TrimRight(b.String(), "\n"), nil)
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(utils.NormalizeDigits(strings.TrimSpace(s)), 10, 64)
}
