package match

import (
	"strings"
	"testing"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/dice"
	"github.com/mroshb/battle_forge/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	f float64
}

func (fixedSource) IntN(int) int        { return 0 }
func (s fixedSource) Float64() float64 { return s.f }

func teamsOf(n int, power int) []Participant {
	teams := make([]Participant, n)
	for i := range teams {
		teams[i] = Participant{TeamID: uint(i + 1), Name: string(rune('A' + i)), Power: power}
	}
	return teams
}

func TestValidateCapacity(t *testing.T) {
	tests := []struct {
		discipline Discipline
		capacity   int
		wantErr    bool
	}{
		{Soccer, 2, false},
		{Soccer, 3, true},
		{Boxing, 1, true},
		{F1Racing, 2, false},
		{HorseRacing, 4, false},
		{HorseRacing, 5, true},
		{Discipline("curling"), 2, true},
	}

	for _, tt := range tests {
		err := tt.discipline.ValidateCapacity(tt.capacity)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s capacity %d: err = %v, wantErr %v", tt.discipline, tt.capacity, err, tt.wantErr)
		}
		if err != nil && !errors.HasCode(err, errors.ErrCodeValidation) {
			t.Errorf("%s capacity %d: code = %s", tt.discipline, tt.capacity, errors.CodeOf(err))
		}
	}
}

func TestParseDiscipline(t *testing.T) {
	d, ok := ParseDiscipline(" Horse_Racing ")
	require.True(t, ok)
	require.Equal(t, HorseRacing, d)
	require.True(t, d.IsRace())

	_, ok = ParseDiscipline("chess")
	require.False(t, ok)
}

func TestNewSimulator_RejectsWrongTeamCount(t *testing.T) {
	_, err := NewSimulator(Soccer, teamsOf(3, 100), dice.Seeded(1))
	require.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	_, err = NewSimulator(F1Racing, teamsOf(1, 100), dice.Seeded(1))
	require.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestSimulators_RunToCompletion(t *testing.T) {
	for _, d := range Disciplines {
		t.Run(string(d), func(t *testing.T) {
			teams := teamsOf(2, 100)
			if d.IsRace() {
				teams = teamsOf(4, 100)
			}
			sim, err := NewSimulator(d, teams, dice.Seeded(42))
			require.NoError(t, err)

			steps := 0
			for !sim.Done() {
				require.Positive(t, sim.Delay())
				tick := sim.Step()
				require.NotEmpty(t, tick.Text)
				require.Len(t, tick.Standings, len(teams))
				steps++
				require.Less(t, steps, 10000, "simulation did not finish")
			}

			res := sim.Result()
			require.Len(t, res.Standings, len(teams))
			if d.IsRace() {
				require.Equal(t, raceIntervals, steps)
				require.NotNil(t, res.WinnerTeamID)
				require.Equal(t, res.Standings[0].TeamID, *res.WinnerTeamID)
			}
			if d == Volleyball {
				require.NotNil(t, res.WinnerTeamID)
				require.True(t, strings.HasPrefix(res.Detail, "Points:"))
			}
		})
	}
}

func TestRace_WinRateIsUniformForEqualTeams(t *testing.T) {
	const runs = 4000
	d := dice.Seeded(2024)
	wins := map[uint]int{}

	for i := 0; i < runs; i++ {
		sim, err := NewSimulator(F1Racing, teamsOf(2, 100), d)
		require.NoError(t, err)
		for !sim.Done() {
			sim.Step()
		}
		wins[*sim.Result().WinnerTeamID]++
	}

	rate := float64(wins[1]) / runs
	require.InDelta(t, 0.5, rate, 0.05, "team 1 won %d of %d", wins[1], runs)
}

func TestRace_TiesGoToEarlierTeam(t *testing.T) {
	sim, err := NewSimulator(HorseRacing, teamsOf(3, 100), dice.WithSource(fixedSource{}))
	require.NoError(t, err)
	for !sim.Done() {
		sim.Step()
	}

	res := sim.Result()
	require.Equal(t, uint(1), *res.WinnerTeamID)
	require.Equal(t, []uint{1, 2, 3}, []uint{res.Standings[0].TeamID, res.Standings[1].TeamID, res.Standings[2].TeamID})
	require.InDelta(t, 120.0, res.Standings[0].Score, 1e-9)
}

func TestContestChance_IsClamped(t *testing.T) {
	teams := []Participant{{TeamID: 1, Name: "A", Power: 400}, {TeamID: 2, Name: "B", Power: 100}}
	c := newContest(Soccer, teams, dice.Seeded(1), soccerLength)
	require.Equal(t, 1.0, c.chance(0))
	require.Equal(t, 0.0, c.chance(1))

	teams[0].Power = 120
	c = newContest(Soccer, teams, dice.Seeded(1), soccerLength)
	require.InDelta(t, 0.6, c.chance(0), 1e-9)
}

func TestWinnerOf(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   *uint
	}{
		{"clear winner", []float64{1, 3}, ptr(2)},
		{"draw", []float64{2, 2}, nil},
		{"tie below leader", []float64{7, 5, 5}, ptr(1)},
		{"leader after tie", []float64{5, 5, 7}, ptr(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			standings := make([]models.Standing, len(tt.scores))
			for i, s := range tt.scores {
				standings[i] = models.Standing{TeamID: uint(i + 1), Score: s}
			}
			require.Equal(t, tt.want, winnerOf(standings))
		})
	}
}

func ptr(v uint) *uint {
	return &v
}

func TestSummarize(t *testing.T) {
	winner := uint(2)
	res := Result{
		Standings: []models.Standing{
			{TeamID: 1, Name: "Lions", Score: 1},
			{TeamID: 2, Name: "Tigers", Score: 3},
		},
		WinnerTeamID: &winner,
	}

	text := Summarize(Soccer, res, []string{"goal one", "goal two"})
	require.Contains(t, text, "soccer final result:")
	require.Contains(t, text, "Lions: 1, Tigers: 3")
	require.Contains(t, text, "Winner: Tigers!")
	require.True(t, strings.HasSuffix(text, "goal one\ngoal two"))

	res.WinnerTeamID = nil
	require.Contains(t, Summarize(Boxing, res, nil), "Winner: tie!")

	race := Summarize(F1Racing, res, []string{"lap 1"})
	require.Contains(t, race, "1. Lions (1m)")
	require.NotContains(t, race, "lap 1")
}
