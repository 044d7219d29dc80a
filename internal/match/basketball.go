package match

import (
	"fmt"

	"github.com/mroshb/battle_forge/pkg/dice"
)

const (
	basketballQuarters   = 4
	basketballQuarterLen = 15
)

type basketball struct {
	*contest
	quarter int
}

func newBasketball(teams []Participant, dc *dice.Dice) *basketball {
	return &basketball{
		contest: newContest(Basketball, teams, dc, basketballQuarterLen),
		quarter: 1,
	}
}

func (b *basketball) prefix() string {
	return fmt.Sprintf("%s quarter %d (%s)", b.discipline, b.quarter, b.remaining())
}

func (b *basketball) Step() Tick {
	if t, ok := b.popPending(); ok {
		return t
	}

	b.play()
	a, o := b.pair()
	prefix := b.prefix()

	var text string
	switch {
	case b.dice.Chance(0.15):
		fouler, shooter := b.either(a, o)
		text = fmt.Sprintf("%s: %s, %s commits a foul!", prefix, b.line(shooter), b.teams[fouler].Name)
		throws := b.dice.IntRange(1, 2)
		for i := 0; i < throws; i++ {
			b.queue(func() string {
				if b.dice.Chance(0.7) {
					b.scores[shooter]++
					return fmt.Sprintf("%s: %s, %s scores a free throw!", prefix, b.line(shooter), b.teams[shooter].Name)
				}
				return fmt.Sprintf("%s: %s, %s misses a free throw!", prefix, b.line(shooter), b.teams[shooter].Name)
			})
		}
	case b.dice.Chance(0.2):
		shooter, _ := b.favoured(a, o)
		text = fmt.Sprintf("%s: %s, %s airball!", prefix, b.line(shooter), b.teams[shooter].Name)
	default:
		scorer, _ := b.favoured(a, o)
		points := 2 + b.dice.Pick(2)
		b.scores[scorer] += points
		text = fmt.Sprintf("%s: %s, %s scores %d points!", prefix, b.line(scorer), b.teams[scorer].Name, points)
	}

	if b.clock >= b.limit {
		quarter := b.quarter
		b.queue(func() string {
			return fmt.Sprintf("%s quarter %d ends: %s", b.discipline, quarter, b.totals())
		})
		b.quarter++
		b.clock = 0
		if b.quarter > basketballQuarters {
			b.finished = true
		}
	}
	return b.tick(text)
}
