package match

import (
	"fmt"
	"strings"
)

// Summarize renders the final standings, winner and timeline of a match
func Summarize(d Discipline, result Result, timeline []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s final result:\n", d.Title())

	if d.IsRace() {
		for i, s := range result.Standings {
			fmt.Fprintf(&b, "%d. %s (%.0fm)\n", i+1, s.Name, s.Score)
		}
	} else {
		parts := make([]string, len(result.Standings))
		for i, s := range result.Standings {
			parts[i] = fmt.Sprintf("%s: %.0f", s.Name, s.Score)
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("\n")
	}
	if result.Detail != "" {
		b.WriteString(result.Detail)
		b.WriteString("\n")
	}

	winner := "tie"
	if result.WinnerTeamID != nil {
		for _, s := range result.Standings {
			if s.TeamID == *result.WinnerTeamID {
				winner = s.Name
			}
		}
	}
	fmt.Fprintf(&b, "Winner: %s!\n", winner)

	if len(timeline) > 0 && !d.IsRace() {
		b.WriteString("\nMatch timeline:\n")
		b.WriteString(strings.Join(timeline, "\n"))
	}
	return strings.TrimRight(b.String(), "\n")
}
