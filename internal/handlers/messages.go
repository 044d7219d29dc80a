package handlers

import "fmt"

const (
	MsgRateLimited   = "⏳ Too many commands, slow down a little."
	MsgAdminOnly     = "❌ Only the bot admin can use this command!"
	UsageMerge       = "Usage: /merge <sperm_count> <egg_count>"
	UsageUpgrade     = "Usage: /upgradequality <water|food|medicine|ore>"
	UsageAccept      = "Usage: /accepttrade <trade_id>"
	UsageWar         = "Usage: /war <opponent_player_id> <fighter_count>"
	UsageAcceptSport = "Usage: /acceptsport <match_id>"
	UsageCancelSport = "Usage: /cancelsport <match_id>"
	UsageGamble      = "Usage: /gamble <match_id> <team_name> <amount>"
	UsageEconomy     = "Usage: /economystep <player_id>"
)

func usageTrade(currency string) string {
	return fmt.Sprintf("Usage: /trade <item> <quantity> <price> (price in %s)", currency)
}

func usageSportEvent(disciplines string) string {
	return fmt.Sprintf("Usage: /sportevent <sport> <num_teams> (sports: %s)", disciplines)
}

func welcomeText(chatTitle, currency string) string {
	if chatTitle == "" {
		chatTitle = "group"
	}
	return fmt.Sprintf(`Welcome to BattleForge in %s! ⚔️
Currency: %s
Commands:
/collectresources - Collect sperms and eggs every 24h
/collectsupplies - Collect water, food, medicine, ore every 12h
/merge <sperms> <eggs> - Create babies
/upgradequality <resource> - Upgrade resource quality
/mystats - View resources, population, coins
/history - View your latest coin transactions
/currencies - View all players' coin values
/leaderboard - Top players
/sellable - View items available for trading
/trade <item> <quantity> <price> - Offer a trade
/trades - Open trades
/accepttrade <trade_id> - Accept a trade
/war <opponent_player_id> <fighter_count> - Start a war
/sportevent <sport> <num_teams> - Create a sport match
/acceptsport <match_id> - Join a sport match
/cancelsport <match_id> - Cancel a match that is still recruiting
/matches - Matches open in this chat
/teamstats - View your team stats
/teamranking - Top teams
/gamble <match_id> <team_name> <amount> - Bet on a match`, chatTitle, currency)
}
