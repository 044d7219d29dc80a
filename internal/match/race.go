package match

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/dice"
)

const (
	raceIntervals = 12
	raceInterval  = 5 * time.Second
)

// race advances every team each interval. The leaderboard is the timeline
// entry and the longest distance wins, earlier roster entries breaking ties.
type race struct {
	discipline Discipline
	dice       *dice.Dice
	teams      []Participant
	distance   []float64
	lap        int
}

func newRace(d Discipline, teams []Participant, dc *dice.Dice) *race {
	return &race{
		discipline: d,
		dice:       dc,
		teams:      teams,
		distance:   make([]float64, len(teams)),
	}
}

func (r *race) Step() Tick {
	r.lap++
	for i, t := range r.teams {
		r.distance[i] += float64(r.dice.IntRange(10, 50)) * (1 + float64(t.Power-100)/200)
	}

	standings := r.standings()
	parts := make([]string, len(standings))
	for i, s := range standings {
		parts[i] = fmt.Sprintf("%s: %.0fm", s.Name, s.Score)
	}
	text := fmt.Sprintf("%s lap %d/%d: %s", r.discipline, r.lap, raceIntervals, strings.Join(parts, ", "))
	return Tick{Text: text, Standings: standings}
}

func (r *race) Done() bool {
	return r.lap >= raceIntervals
}

func (r *race) Delay() time.Duration {
	return raceInterval
}

// standings orders teams by distance, keeping roster order on ties
func (r *race) standings() []models.Standing {
	standings := make([]models.Standing, len(r.teams))
	for i, t := range r.teams {
		standings[i] = models.Standing{TeamID: t.TeamID, Name: t.Name, Score: r.distance[i]}
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	return standings
}

func (r *race) Result() Result {
	standings := r.standings()
	winner := standings[0].TeamID
	return Result{Standings: standings, WinnerTeamID: &winner}
}
