package reports

import (
	"bytes"
	"context"
	"testing"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/internal/testutil"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExporter_Write(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewStore(testutil.NewDB(t))

	owner := int64(7)
	require.NoError(t, store.Players.Create(ctx, &models.Player{
		ID:              owner,
		Username:        "alice",
		Coins:           42,
		WaterQuality:    models.QualityMedium,
		FoodQuality:     models.QualityMedium,
		MedicineQuality: models.QualityMedium,
		OreQuality:      models.QualityMedium,
	}))
	owned := &models.Team{Name: "@alice_team", OwnerID: &owner, Power: 120}
	ai := &models.Team{Name: "FrostTitans", Power: 100}
	require.NoError(t, store.Teams.Create(ctx, owned))
	require.NoError(t, store.Teams.Create(ctx, ai))

	winner := owned.ID
	m := &models.Match{
		Discipline: "soccer",
		TeamIDs:    []uint{owned.ID, ai.ID},
		Capacity:   2,
		Status:     models.MatchStatusClosed,
		Phase:      models.MatchPhaseSettled,
	}
	require.NoError(t, store.Matches.Create(ctx, m))
	m.Standings = []models.Standing{{TeamID: owned.ID, Name: owned.Name, Score: 2}, {TeamID: ai.ID, Name: ai.Name, Score: 1}}
	m.WinnerTeamID = &winner
	require.NoError(t, store.Matches.SaveResult(ctx, m))

	var buf bytes.Buffer
	require.NoError(t, NewExporter(store, 0).Write(ctx, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{SheetPlayers, SheetTeams, SheetMatches}, f.GetSheetList())

	players, err := f.GetRows(SheetPlayers)
	require.NoError(t, err)
	require.Len(t, players, 2)
	require.Equal(t, []string{"7", "alice", "42"}, players[1][:3])

	teams, err := f.GetRows(SheetTeams)
	require.NoError(t, err)
	require.Len(t, teams, 3)
	require.Equal(t, "@alice_team", teams[1][1])
	require.Equal(t, "7", teams[1][2])
	require.Equal(t, "AI", teams[2][2])

	matches, err := f.GetRows(SheetMatches)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "soccer", matches[1][1])
	require.Equal(t, "@alice_team", matches[1][4])
	require.Equal(t, "@alice_team 2, FrostTitans 1", matches[1][5])
}
