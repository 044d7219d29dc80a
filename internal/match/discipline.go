// Package match runs team sports matches: it simulates each discipline
// step by step, drives the persisted match lifecycle and settles results.
package match

import (
	"strings"

	"github.com/mroshb/battle_forge/pkg/errors"
)

type Discipline string

const (
	Basketball  Discipline = "basketball"
	Soccer      Discipline = "soccer"
	Volleyball  Discipline = "volleyball"
	Boxing      Discipline = "boxing"
	F1Racing    Discipline = "f1_racing"
	HorseRacing Discipline = "horse_racing"
)

// Disciplines lists every playable discipline.
var Disciplines = []Discipline{Basketball, Soccer, Volleyball, F1Racing, HorseRacing, Boxing}

func ParseDiscipline(s string) (Discipline, bool) {
	d := Discipline(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Disciplines {
		if d == known {
			return d, true
		}
	}
	return "", false
}

func (d Discipline) Valid() bool {
	_, ok := ParseDiscipline(string(d))
	return ok
}

// IsRace reports whether the discipline is a multi-team race rather than a
// two-team contest.
func (d Discipline) IsRace() bool {
	return d == F1Racing || d == HorseRacing
}

// CapacityRange returns the allowed number of teams
func (d Discipline) CapacityRange() (int, int) {
	if d.IsRace() {
		return 2, 4
	}
	return 2, 2
}

func (d Discipline) ValidateCapacity(capacity int) error {
	if !d.Valid() {
		return errors.Validation("unknown discipline %q", d)
	}
	lo, hi := d.CapacityRange()
	if capacity < lo || capacity > hi {
		if lo == hi {
			return errors.Validation("%s needs exactly %d teams", d, lo)
		}
		return errors.Validation("%s needs %d to %d teams", d, lo, hi)
	}
	return nil
}

// Title is the discipline name as shown in chat
func (d Discipline) Title() string {
	return strings.ReplaceAll(string(d), "_", " ")
}
