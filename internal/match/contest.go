package match

import (
	"fmt"
	"time"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/dice"
)

// followUpDelay separates an entry from the follow-up it triggered, such as
// a free throw after a foul.
const followUpDelay = time.Second

// contest is the shared state of the two-team disciplines. Side 0 and side 1
// follow roster order.
type contest struct {
	discipline Discipline
	dice       *dice.Dice
	teams      [2]Participant
	scores     [2]int
	clock      float64
	limit      float64
	next       float64
	pending    []func() string
	finished   bool
}

func newContest(d Discipline, teams []Participant, dc *dice.Dice, limit float64) *contest {
	c := &contest{
		discipline: d,
		dice:       dc,
		teams:      [2]Participant{teams[0], teams[1]},
		limit:      limit,
	}
	c.next = c.dice.Uniform(1, 3)
	return c
}

// chance is the probability that side wins an even exchange
func (c *contest) chance(side int) float64 {
	return clamp01(0.5 + float64(c.teams[side].Power-c.teams[1-side].Power)/200)
}

// pair returns both sides in random order, so neither side always acts first
func (c *contest) pair() (int, int) {
	if c.dice.Chance(0.5) {
		return 0, 1
	}
	return 1, 0
}

// either returns a or b with equal odds
func (c *contest) either(a, b int) (int, int) {
	if c.dice.Chance(0.5) {
		return a, b
	}
	return b, a
}

// favoured picks the side that wins an exchange between a and b
func (c *contest) favoured(a, b int) (int, int) {
	if c.dice.Chance(c.chance(a)) {
		return a, b
	}
	return b, a
}

// play advances the clock by the duration of the play just observed
func (c *contest) play() {
	c.clock += c.next
	c.next = c.dice.Uniform(1, 3)
}

func (c *contest) remaining() string {
	return fmt.Sprintf("0:%.0f", max(0, c.limit-c.clock))
}

func (c *contest) line(side int) string {
	other := 1 - side
	return scoreline(c.teams[side].Name, c.scores[side], c.teams[other].Name, c.scores[other])
}

func (c *contest) queue(entry func() string) {
	c.pending = append(c.pending, entry)
}

func (c *contest) popPending() (Tick, bool) {
	if len(c.pending) == 0 {
		return Tick{}, false
	}
	entry := c.pending[0]
	c.pending = c.pending[1:]
	return c.tick(entry()), true
}

func (c *contest) tick(text string) Tick {
	return Tick{Text: text, Standings: c.standings()}
}

func (c *contest) standings() []models.Standing {
	return []models.Standing{
		{TeamID: c.teams[0].TeamID, Name: c.teams[0].Name, Score: float64(c.scores[0])},
		{TeamID: c.teams[1].TeamID, Name: c.teams[1].Name, Score: float64(c.scores[1])},
	}
}

func (c *contest) totals() string {
	return fmt.Sprintf("%s %d, %s %d", c.teams[0].Name, c.scores[0], c.teams[1].Name, c.scores[1])
}

func (c *contest) Done() bool {
	return c.finished && len(c.pending) == 0
}

func (c *contest) Delay() time.Duration {
	if len(c.pending) > 0 {
		return followUpDelay
	}
	return seconds(c.next)
}

func (c *contest) Result() Result {
	standings := c.standings()
	return Result{Standings: standings, WinnerTeamID: winnerOf(standings)}
}
