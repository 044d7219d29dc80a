package match

import (
	"fmt"
	"time"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/dice"
	"github.com/mroshb/battle_forge/pkg/errors"
)

// Participant is a team as seen by a simulator.
type Participant struct {
	TeamID uint
	Name   string
	Power  int
}

// Tick is one timeline entry with the standings after it.
type Tick struct {
	Text      string
	Standings []models.Standing
}

// Result is the final outcome. WinnerTeamID is nil on a draw.
type Result struct {
	Standings    []models.Standing
	WinnerTeamID *uint
	// Detail carries discipline specific totals, such as volleyball points.
	Detail string
}

// Simulator advances a match one timeline entry per Step. Delay is the pause
// to observe before the next Step.
type Simulator interface {
	Step() Tick
	Done() bool
	Delay() time.Duration
	Result() Result
}

func NewSimulator(d Discipline, teams []Participant, dc *dice.Dice) (Simulator, error) {
	lo, hi := d.CapacityRange()
	if len(teams) < lo || len(teams) > hi {
		return nil, errors.Validation("%s cannot be played by %d teams", d, len(teams))
	}

	switch d {
	case F1Racing, HorseRacing:
		return newRace(d, teams, dc), nil
	case Basketball:
		return newBasketball(teams, dc), nil
	case Soccer:
		return newSoccer(teams, dc), nil
	case Volleyball:
		return newVolleyball(teams, dc), nil
	case Boxing:
		return newBoxing(teams, dc), nil
	}
	return nil, errors.Validation("unknown discipline %q", d)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}

func winnerOf(standings []models.Standing) *uint {
	if len(standings) == 0 {
		return nil
	}
	best := 0
	tie := false
	for i := 1; i < len(standings); i++ {
		switch {
		case standings[i].Score > standings[best].Score:
			best, tie = i, false
		case standings[i].Score == standings[best].Score:
			tie = true
		}
	}
	if tie {
		return nil
	}
	id := standings[best].TeamID
	return &id
}

func scoreline(name string, score int, other string, otherScore int) string {
	return fmt.Sprintf("%s %d - %s %d", name, score, other, otherScore)
}
