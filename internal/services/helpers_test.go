package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/internal/testutil"
	"github.com/stretchr/testify/require"
)

// fixedSource always draws the same values. top makes IntN return its
// largest value instead of zero.
type fixedSource struct {
	top bool
	f   float64
}

func (s fixedSource) IntN(n int) int {
	if s.top {
		return n - 1
	}
	return 0
}

func (s fixedSource) Float64() float64 { return s.f }

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestStore(t *testing.T) *repositories.Store {
	t.Helper()
	return repositories.NewStore(testutil.NewDB(t))
}

// createPlayer stores a player with medium qualities, then applies mutate
// and writes every column so zero balances are kept.
func createPlayer(t *testing.T, store *repositories.Store, id int64, mutate func(p *models.Player)) *models.Player {
	t.Helper()
	ctx := context.Background()

	p := &models.Player{
		ID:              id,
		Username:        fmt.Sprintf("user%d", id),
		Water:           100,
		Food:            100,
		Medicine:        100,
		Ore:             100,
		WaterQuality:    models.QualityMedium,
		FoodQuality:     models.QualityMedium,
		MedicineQuality: models.QualityMedium,
		OreQuality:      models.QualityMedium,
		Coins:           10,
	}
	require.NoError(t, store.Players.Create(ctx, p))
	if mutate != nil {
		mutate(p)
		require.NoError(t, store.Players.Save(ctx, p))
	}
	return p
}

func addCitizens(t *testing.T, store *repositories.Store, playerID int64, role models.Role, count, attack, health int) []models.Citizen {
	t.Helper()
	citizens := make([]models.Citizen, 0, count)
	for i := 0; i < count; i++ {
		c := models.Citizen{
			PlayerID: playerID,
			Name:     fmt.Sprintf("%s_%d", role, i),
			Role:     role,
			Health:   health,
			Attack:   attack,
			Defense:  10,
			Status:   models.CitizenStatusActive,
		}
		require.NoError(t, store.Citizens.Create(context.Background(), &c))
		citizens = append(citizens, c)
	}
	return citizens
}

func reloadPlayer(t *testing.T, store *repositories.Store, id int64) *models.Player {
	t.Helper()
	p, err := store.Players.Get(context.Background(), id)
	require.NoError(t, err)
	return p
}
