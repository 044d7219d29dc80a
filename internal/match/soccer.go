package match

import (
	"fmt"

	"github.com/mroshb/battle_forge/pkg/dice"
)

const soccerLength = 60

type soccer struct {
	*contest
}

func newSoccer(teams []Participant, dc *dice.Dice) *soccer {
	return &soccer{contest: newContest(Soccer, teams, dc, soccerLength)}
}

// Step plays until something happens. Quiet plays only move the clock.
func (s *soccer) Step() Tick {
	if t, ok := s.popPending(); ok {
		return t
	}

	for {
		s.play()
		if text, ok := s.event(); ok {
			if s.clock >= s.limit {
				s.fullTime()
			}
			return s.tick(text)
		}
		if s.clock >= s.limit {
			s.finished = true
			return s.tick(s.fullTimeText())
		}
	}
}

func (s *soccer) event() (string, bool) {
	a, o := s.pair()
	prefix := fmt.Sprintf("%s (%s)", s.discipline, s.remaining())

	switch {
	case s.dice.Chance(0.1):
		fouler, other := s.either(a, o)
		if s.dice.Chance(0.2) {
			s.queue(func() string {
				s.scores[other]++
				return fmt.Sprintf("%s: %s, %s scores a penalty goal!", prefix, s.line(other), s.teams[other].Name)
			})
		}
		return fmt.Sprintf("%s: %s, %s commits a foul!", prefix, s.line(other), s.teams[fouler].Name), true
	case s.dice.Chance(0.2):
		shooter, _ := s.favoured(a, o)
		return fmt.Sprintf("%s: %s, %s shot missed!", prefix, s.line(shooter), s.teams[shooter].Name), true
	case s.dice.Chance(s.chance(a) * 0.02):
		s.scores[a]++
		return fmt.Sprintf("%s: %s, %s scores a goal!", prefix, s.line(a), s.teams[a].Name), true
	case s.dice.Chance(s.chance(o) * 0.02):
		s.scores[o]++
		return fmt.Sprintf("%s: %s, %s scores a goal!", prefix, s.line(o), s.teams[o].Name), true
	}
	return "", false
}

func (s *soccer) fullTime() {
	s.queue(s.fullTimeText)
	s.finished = true
}

func (s *soccer) fullTimeText() string {
	return fmt.Sprintf("%s full time: %s", s.discipline, s.totals())
}
