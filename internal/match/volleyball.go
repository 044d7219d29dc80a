package match

import (
	"fmt"

	"github.com/mroshb/battle_forge/pkg/dice"
)

const (
	volleyballSetPoints = 25
	volleyballSetsToWin = 3
)

// volleyball counts sets as the score. Rally points are kept for the detail
// line only. There is no clock.
type volleyball struct {
	*contest
	points [2]int
	set    [2]int
	setNo  int
}

func newVolleyball(teams []Participant, dc *dice.Dice) *volleyball {
	return &volleyball{
		contest: newContest(Volleyball, teams, dc, 0),
		setNo:   1,
	}
}

func (v *volleyball) setLine(side int) string {
	other := 1 - side
	return scoreline(v.teams[side].Name, v.set[side], v.teams[other].Name, v.set[other])
}

func (v *volleyball) Step() Tick {
	if t, ok := v.popPending(); ok {
		return t
	}

	v.play()
	a, o := v.pair()
	prefix := fmt.Sprintf("%s set %d", v.discipline, v.setNo)

	var scorer int
	var text string
	if v.dice.Chance(0.1) {
		var server int
		server, scorer = v.either(a, o)
		v.point(scorer)
		text = fmt.Sprintf("%s: %s, %s service fault!", prefix, v.setLine(scorer), v.teams[server].Name)
	} else {
		scorer, _ = v.favoured(a, o)
		v.point(scorer)
		text = fmt.Sprintf("%s: %s, %s scores on a serve!", prefix, v.setLine(scorer), v.teams[scorer].Name)
	}

	if v.setOver() {
		winner := scorer
		v.scores[winner]++
		setNo, final := v.setNo, v.set
		v.queue(func() string {
			return fmt.Sprintf("%s set %d to %s: %d-%d, sets %s", v.discipline, setNo, v.teams[winner].Name,
				final[winner], final[1-winner], v.totals())
		})
		v.set = [2]int{}
		v.setNo++
		if v.scores[winner] >= volleyballSetsToWin {
			v.finished = true
		}
	}
	return v.tick(text)
}

func (v *volleyball) point(side int) {
	v.set[side]++
	v.points[side]++
}

func (v *volleyball) setOver() bool {
	hi, lo := max(v.set[0], v.set[1]), min(v.set[0], v.set[1])
	return hi >= volleyballSetPoints && hi-lo >= 2
}

func (v *volleyball) Result() Result {
	standings := v.standings()
	return Result{
		Standings:    standings,
		WinnerTeamID: winnerOf(standings),
		Detail: fmt.Sprintf("Points: %s %d, %s %d",
			v.teams[0].Name, v.points[0], v.teams[1].Name, v.points[1]),
	}
}
