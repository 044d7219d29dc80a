package match

import (
	"fmt"

	"github.com/mroshb/battle_forge/pkg/dice"
)

const (
	boxingLength      = 60
	knockoutHits      = 3
	knockoutPoints    = 10
	knockoutChance    = 0.5
	illegalMoveChance = 0.1
)

type boxing struct {
	*contest
	hits [2]int
}

func newBoxing(teams []Participant, dc *dice.Dice) *boxing {
	return &boxing{contest: newContest(Boxing, teams, dc, boxingLength)}
}

func (b *boxing) Step() Tick {
	if t, ok := b.popPending(); ok {
		return t
	}

	b.play()
	a, o := b.pair()
	prefix := fmt.Sprintf("%s (%s)", b.discipline, b.remaining())

	var text string
	if b.dice.Chance(illegalMoveChance) {
		fouler, other := b.either(a, o)
		b.scores[other]++
		text = fmt.Sprintf("%s: %s, %s illegal move!", prefix, b.line(other), b.teams[fouler].Name)
	} else {
		hitter, _ := b.favoured(a, o)
		b.hits[hitter] += b.dice.IntRange(0, 3)
		punch := "jab"
		if !b.dice.Chance(0.5) {
			punch = "hook"
		}
		text = fmt.Sprintf("%s: %s, %s lands a %s!", prefix, b.line(hitter), b.teams[hitter].Name, punch)

		if b.hits[hitter] >= knockoutHits && b.dice.Chance(knockoutChance) {
			b.finished = true
			b.queue(func() string {
				b.scores[hitter] += knockoutPoints
				return fmt.Sprintf("%s: %s, %s scores a knockout (%d points)!", prefix, b.line(hitter), b.teams[hitter].Name, knockoutPoints)
			})
			return b.tick(text)
		}
	}

	if b.clock >= b.limit {
		b.finished = true
		b.queue(func() string {
			return fmt.Sprintf("%s final bell: %s", b.discipline, b.totals())
		})
	}
	return b.tick(text)
}
