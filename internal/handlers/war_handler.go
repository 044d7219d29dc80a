package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mroshb/battle_forge/internal/services"
)

func (h *HandlerManager) HandleWar(ctx context.Context, req *Request, bot BotInterface) {
	if len(req.Args) != 2 {
		bot.SendMessage(req.ChatID, UsageWar, nil)
		return
	}
	opponent, err1 := parseInt(req.Args[0])
	fighters, err2 := parseInt(req.Args[1])
	if err1 != nil || err2 != nil {
		bot.SendMessage(req.ChatID, "Opponent id and fighter count must be numbers!", nil)
		return
	}
	if h.ensurePlayer(ctx, req, bot) == nil {
		return
	}

	result, err := h.Scheduler.ResolveWar(ctx, req.UserID, opponent, int(fighters))
	if err != nil {
		h.replyError(bot, req, "waging war", err)
		return
	}
	bot.SendMessage(req.ChatID, formatWar(result, req.Currency()), nil)
}

func formatWar(r *services.WarResult, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚔️ War: @%s vs @%s\n", r.Attacker.Username, r.Defender.Username)
	for _, side := range []services.WarSide{r.Attacker, r.Defender} {
		fmt.Fprintf(&b, "@%s: power %.1f, score %.1f, %d dead, %d injured\n",
			side.Username, side.Power, side.Score, side.Casualties.Dead, side.Casualties.Injured)
	}

	if r.WinnerID == nil {
		b.WriteString("It's a tie! Nothing changes hands.")
		return b.String()
	}

	winner, loser := r.Attacker, r.Defender
	if *r.WinnerID == r.Defender.PlayerID {
		winner, loser = r.Defender, r.Attacker
	}
	fmt.Fprintf(&b, "🏆 @%s wins and earns %d %ss!\n", winner.Username, winner.CoinDelta, currency)
	fmt.Fprintf(&b, "@%s loses %d %ss.\n", loser.Username, -loser.CoinDelta, currency)
	if !r.Stolen.IsZero() {
		fmt.Fprintf(&b, "Plunder: %s", formatDelta(r.Stolen))
	}
	return strings.TrimRight(b.String(), "\n")
}
