package services

import (
	"context"
	"testing"
	"time"

	"github.com/mroshb/battle_forge/internal/config"
	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/pkg/dice"
	"github.com/mroshb/battle_forge/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newEconomy(store *repositories.Store, src dice.Source) *EconomyService {
	return NewEconomyService(store, config.DefaultTuning(), dice.WithSource(src)).WithClock(fixedClock)
}

func TestMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects when eggs are short", func(t *testing.T) {
		store := newTestStore(t)
		createPlayer(t, store, 1, func(p *models.Player) { p.Sperm, p.Egg = 20, 3 })
		eco := newEconomy(store, fixedSource{})

		_, err := eco.Merge(ctx, 1, 10, 5)
		require.True(t, errors.HasCode(err, errors.ErrCodeInsufficientResource), "got %v", err)

		p := reloadPlayer(t, store, 1)
		require.Equal(t, int64(20), p.Sperm)
		require.Equal(t, int64(3), p.Egg)
		count, err := store.Babies.Count(ctx, 1)
		require.NoError(t, err)
		require.Zero(t, count)
	})

	t.Run("creates and debits the smaller count", func(t *testing.T) {
		store := newTestStore(t)
		createPlayer(t, store, 1, func(p *models.Player) { p.Sperm, p.Egg = 20, 10 })
		eco := newEconomy(store, fixedSource{})

		n, err := eco.Merge(ctx, 1, 10, 5)
		require.NoError(t, err)
		require.Equal(t, int64(5), n)

		p := reloadPlayer(t, store, 1)
		require.Equal(t, int64(15), p.Sperm)
		require.Equal(t, int64(5), p.Egg)
		count, err := store.Babies.Count(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, int64(5), count)
	})

	t.Run("rejects non-positive counts", func(t *testing.T) {
		store := newTestStore(t)
		createPlayer(t, store, 1, nil)
		eco := newEconomy(store, fixedSource{})

		_, err := eco.Merge(ctx, 1, 0, 5)
		require.True(t, errors.HasCode(err, errors.ErrCodeValidation))
		_, err = eco.Merge(ctx, 1, 5, -1)
		require.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	})
}

func TestGestate_NineHourBoundary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	eco := newEconomy(store, fixedSource{})

	young := []models.Baby{{PlayerID: 1, Name: "young", ConceivedAt: testNow.Add(-9*time.Hour + time.Second)}}
	require.NoError(t, store.Babies.CreateMany(ctx, young))

	report, err := eco.Gestate(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, report.Eligible)
	require.Zero(t, report.Born)

	due := []models.Baby{{PlayerID: 1, Name: "due", ConceivedAt: testNow.Add(-9 * time.Hour)}}
	require.NoError(t, store.Babies.CreateMany(ctx, due))

	report, err = eco.Gestate(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, report.Eligible)
	require.Equal(t, 1, report.Born)

	p := reloadPlayer(t, store, 1)
	for _, r := range models.BaseResources {
		require.Equal(t, int64(95), p.Amount(r), "resource %s", r)
	}
}

func TestGestate_SkipsBirthWithoutSupplies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, func(p *models.Player) { p.Medicine = 4 })
	eco := newEconomy(store, fixedSource{})

	babies := []models.Baby{{PlayerID: 1, Name: "due", ConceivedAt: testNow.Add(-10 * time.Hour)}}
	require.NoError(t, store.Babies.CreateMany(ctx, babies))

	report, err := eco.Gestate(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, report.Eligible)
	require.Zero(t, report.Born)
	require.Equal(t, int64(4), reloadPlayer(t, store, 1).Medicine)
}

func TestGestate_GrowsBornBabies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	eco := newEconomy(store, fixedSource{})

	grown := testNow.Add(-24 * time.Hour)
	fresh := testNow.Add(-time.Hour)
	babies := []models.Baby{
		{PlayerID: 1, Name: "grown", ConceivedAt: grown.Add(-9 * time.Hour), Born: true, BornAt: &grown},
		{PlayerID: 1, Name: "fresh", ConceivedAt: fresh.Add(-9 * time.Hour), Born: true, BornAt: &fresh},
	}
	require.NoError(t, store.Babies.CreateMany(ctx, babies))

	report, err := eco.Gestate(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, report.Matured)

	alive, err := store.Citizens.CountAlive(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), alive)
	left, err := store.Babies.Count(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), left)
}

func TestProduce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	addCitizens(t, store, 1, models.RoleWorker, 2, 10, 60)
	addCitizens(t, store, 1, models.RoleMiner, 1, 10, 60)
	eco := newEconomy(store, fixedSource{})

	delta, err := eco.Produce(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), delta[models.ResourceWater])
	require.Equal(t, int64(1), delta[models.ResourceOre])

	p := reloadPlayer(t, store, 1)
	require.Equal(t, int64(102), p.Water)
	require.Equal(t, int64(101), p.Ore)
	require.Equal(t, int64(100), p.Food)
}

func TestProduce_NoWorkersNoWrite(t *testing.T) {
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	eco := newEconomy(store, fixedSource{})

	delta, err := eco.Produce(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, delta.IsZero())
}

func TestHealInjured(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	citizens := addCitizens(t, store, 1, models.RoleFighter, 2, 20, 70)
	require.NoError(t, store.Citizens.MarkInjured(ctx, []uint{citizens[0].ID}, testNow.Add(-time.Minute)))
	require.NoError(t, store.Citizens.MarkInjured(ctx, []uint{citizens[1].ID}, testNow.Add(time.Hour)))
	eco := newEconomy(store, fixedSource{})

	healed, err := eco.HealInjured(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), healed)

	counts, err := store.Citizens.CountActiveByRole(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[models.RoleFighter])
}

func TestCollectResources_Cooldown(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	eco := newEconomy(store, fixedSource{})

	delta, err := eco.CollectResources(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(100000), delta[models.ResourceSperm])
	require.Equal(t, int64(50), delta[models.ResourceEgg])

	_, err = eco.CollectResources(ctx, 1)
	require.True(t, errors.HasCode(err, errors.ErrCodeInvalidState), "got %v", err)

	eco.WithClock(func() time.Time { return testNow.Add(24 * time.Hour) })
	_, err = eco.CollectResources(ctx, 1)
	require.NoError(t, err)

	p := reloadPlayer(t, store, 1)
	require.Equal(t, int64(200000), p.Sperm)
	require.Equal(t, int64(100), p.Egg)
}

func TestCollectSupplies_Cooldown(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	eco := newEconomy(store, fixedSource{top: true})

	delta, err := eco.CollectSupplies(ctx, 1)
	require.NoError(t, err)
	for _, r := range models.BaseResources {
		require.Equal(t, int64(20), delta[r])
	}

	eco.WithClock(func() time.Time { return testNow.Add(11 * time.Hour) })
	_, err = eco.CollectSupplies(ctx, 1)
	require.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))

	eco.WithClock(func() time.Time { return testNow.Add(12 * time.Hour) })
	_, err = eco.CollectSupplies(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(140), reloadPlayer(t, store, 1).Water)
}

func TestUpgradeQuality(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	eco := newEconomy(store, fixedSource{})

	q, err := eco.UpgradeQuality(ctx, 1, models.ResourceWater)
	require.NoError(t, err)
	require.Equal(t, models.QualityHigh, q)

	p := reloadPlayer(t, store, 1)
	require.Equal(t, models.QualityHigh, p.WaterQuality)
	require.Zero(t, p.Coins)

	_, err = eco.UpgradeQuality(ctx, 1, models.ResourceWater)
	require.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))

	_, err = eco.UpgradeQuality(ctx, 1, models.ResourceFood)
	require.True(t, errors.HasCode(err, errors.ErrCodeInsufficientResource))

	_, err = eco.UpgradeQuality(ctx, 1, models.ResourceSperm)
	require.True(t, errors.HasCode(err, errors.ErrCodeValidation))

	history, err := store.Coins.History(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, int64(-10), history[0].Amount)
}

func TestTriggerWorldEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("boom then cooldown", func(t *testing.T) {
		store := newTestStore(t)
		createPlayer(t, store, 1, nil)
		eco := newEconomy(store, fixedSource{})

		res, err := eco.TriggerWorldEvent(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, res)
		require.Equal(t, EventBoom, res.Kind)
		require.Equal(t, int64(110), reloadPlayer(t, store, 1).Ore)

		res, err = eco.TriggerWorldEvent(ctx, 1)
		require.NoError(t, err)
		require.Nil(t, res)

		eco.WithClock(func() time.Time { return testNow.Add(24 * time.Hour) })
		res, err = eco.TriggerWorldEvent(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, res)
	})

	t.Run("plague culls population", func(t *testing.T) {
		store := newTestStore(t)
		createPlayer(t, store, 1, nil)
		addCitizens(t, store, 1, models.RoleWorker, 10, 10, 60)
		eco := newEconomy(store, fixedSource{f: 0.99})

		res, err := eco.TriggerWorldEvent(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, EventPlague, res.Kind)
		require.Equal(t, 2, res.Culled)

		alive, err := store.Citizens.CountAlive(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, int64(8), alive)
	})
}

func TestRunWorldEvents(t *testing.T) {
	store := newTestStore(t)
	for id := int64(1); id <= 3; id++ {
		createPlayer(t, store, id, nil)
	}
	eco := newEconomy(store, fixedSource{})

	results, err := eco.RunWorldEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	results, err = eco.RunWorldEvents(context.Background())
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestCurrencyValue(t *testing.T) {
	p := &models.Player{Water: 10, Food: 20, Medicine: 30, Ore: 20}
	require.InDelta(t, 100.0, CurrencyValue(p, 0), 1e-9)
	require.InDelta(t, 25.0, CurrencyValue(p, 4), 1e-9)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createPlayer(t, store, 1, nil)
	addCitizens(t, store, 1, models.RoleWorker, 4, 10, 60)
	eco := newEconomy(store, fixedSource{})

	stats, err := eco.Stats(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(4), stats.Alive)
	require.Equal(t, int64(4), stats.Step.Production[models.ResourceWater])
	require.Equal(t, int64(104), stats.Player.Water)
	require.InDelta(t, float64(104+100+100+200)/4, stats.CurrencyValue, 1e-9)
}
