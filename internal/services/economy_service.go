package services

import (
	"context"
	"math"
	"time"

	"github.com/mroshb/battle_forge/internal/config"
	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/pkg/dice"
	"github.com/mroshb/battle_forge/pkg/errors"
	"github.com/mroshb/battle_forge/pkg/logger"
	"github.com/mroshb/battle_forge/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// ResourceDelta is a signed change per stockpile.
type ResourceDelta map[models.Resource]int64

func (d ResourceDelta) IsZero() bool {
	for _, v := range d {
		if v != 0 {
			return false
		}
	}
	return true
}

// GestationReport summarises one gestation step.
type GestationReport struct {
	Born     int
	Matured  int
	Eligible int
}

// Event kinds
const (
	EventBoom   = "boom"
	EventPlague = "plague"
)

// WorldEventResult describes what one world event did to a player.
type WorldEventResult struct {
	PlayerID int64
	Username string
	Kind     string
	Gained   ResourceDelta
	Culled   int
}

// StepReport is the outcome of a full economy step for one player.
type StepReport struct {
	Healed     int64
	Gestation  GestationReport
	Production ResourceDelta
}

// PlayerStats is the read model behind the stats command.
type PlayerStats struct {
	Player        *models.Player
	Citizens      map[models.Role]int64
	Alive         int64
	Babies        int64
	CurrencyValue float64
	Step          *StepReport
}

type EconomyService struct {
	store  *repositories.Store
	tuning config.Tuning
	dice   *dice.Dice
	now    Clock
}

func NewEconomyService(store *repositories.Store, tuning config.Tuning, d *dice.Dice) *EconomyService {
	return &EconomyService{
		store:  store,
		tuning: tuning,
		dice:   d,
		now:    utcNow,
	}
}

// WithClock replaces the time source
func (s *EconomyService) WithClock(now Clock) *EconomyService {
	s.now = now
	return s
}

// Produce runs one production step. Active workers yield water, food or
// medicine and active miners yield ore, each scaled by resource quality.
func (s *EconomyService) Produce(ctx context.Context, playerID int64) (ResourceDelta, error) {
	var delta ResourceDelta
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		delta, err = s.produce(ctx, tx, playerID)
		return err
	})
	return delta, err
}

func (s *EconomyService) produce(ctx context.Context, tx *repositories.Store, playerID int64) (ResourceDelta, error) {
	player, err := tx.Players.GetForUpdate(ctx, playerID)
	if err != nil {
		return nil, err
	}
	counts, err := tx.Citizens.CountActiveByRole(ctx, playerID)
	if err != nil {
		return nil, err
	}

	delta := ResourceDelta{}
	consumables := []models.Resource{models.ResourceWater, models.ResourceFood, models.ResourceMedicine}
	for i := int64(0); i < counts[models.RoleWorker]; i++ {
		r := consumables[s.dice.Pick(len(consumables))]
		delta[r] += s.yield(player.Quality(r))
	}
	for i := int64(0); i < counts[models.RoleMiner]; i++ {
		delta[models.ResourceOre] += s.yield(player.OreQuality)
	}

	if delta.IsZero() {
		return delta, nil
	}
	for r, v := range delta {
		player.Add(r, v)
	}
	if err := tx.Players.Save(ctx, player); err != nil {
		return nil, err
	}
	return delta, nil
}

func (s *EconomyService) yield(q models.Quality) int64 {
	return int64(math.Round(float64(s.dice.IntRange(1, 3)) * q.Factor()))
}

// Gestate rolls births for babies at least GestationAge old and grows born
// babies into citizens once their growth time has passed.
func (s *EconomyService) Gestate(ctx context.Context, playerID int64) (GestationReport, error) {
	var report GestationReport
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		report, err = s.gestate(ctx, tx, playerID)
		return err
	})
	return report, err
}

func (s *EconomyService) gestate(ctx context.Context, tx *repositories.Store, playerID int64) (GestationReport, error) {
	var report GestationReport
	now := s.now()

	player, err := tx.Players.GetForUpdate(ctx, playerID)
	if err != nil {
		return report, err
	}
	counts, err := tx.Citizens.CountActiveByRole(ctx, playerID)
	if err != nil {
		return report, err
	}
	alive, err := tx.Citizens.CountAlive(ctx, playerID)
	if err != nil {
		return report, err
	}
	babyCount, err := tx.Babies.Count(ctx, playerID)
	if err != nil {
		return report, err
	}

	chance := 0.5 + float64(counts[models.RoleProfessor])*0.1
	for _, r := range models.BaseResources {
		chance += player.Quality(r).Factor()
	}
	if float64(alive+babyCount) > float64(player.BaseTotal())/10 {
		chance *= 0.8
	}

	unborn, err := tx.Babies.ListUnborn(ctx, playerID)
	if err != nil {
		return report, err
	}
	cost := s.tuning.Economy.BirthCost
	changed := false
	for _, baby := range unborn {
		if now.Sub(baby.ConceivedAt) < s.tuning.GestationAge() {
			continue
		}
		report.Eligible++
		if !canAfford(player, cost) || !s.dice.Chance(chance) {
			continue
		}
		ok, err := tx.Babies.MarkBorn(ctx, baby.ID, now)
		if err != nil {
			return report, err
		}
		if !ok {
			continue
		}
		for _, r := range models.BaseResources {
			player.Add(r, -cost)
		}
		changed = true
		report.Born++
	}
	if changed {
		if err := tx.Players.Save(ctx, player); err != nil {
			return report, err
		}
	}

	growth := math.Max(0.5, 1-0.1*float64(counts[models.RoleTeacher]))
	growAge := time.Duration(float64(s.tuning.GrowthAge()) * growth)
	born, err := tx.Babies.ListBorn(ctx, playerID)
	if err != nil {
		return report, err
	}
	for _, baby := range born {
		if baby.BornAt == nil || now.Sub(*baby.BornAt) < growAge {
			continue
		}
		citizen := s.newCitizen(playerID, baby.Name, player.OreQuality)
		if err := tx.Citizens.Create(ctx, &citizen); err != nil {
			return report, err
		}
		if err := tx.Babies.Delete(ctx, baby.ID); err != nil {
			return report, err
		}
		report.Matured++
	}

	return report, nil
}

func canAfford(p *models.Player, cost int64) bool {
	for _, r := range models.BaseResources {
		if p.Amount(r) < cost {
			return false
		}
	}
	return true
}

// newCitizen rolls a role and role-conditioned stats. Fighters scale with
// the owner's ore quality.
func (s *EconomyService) newCitizen(playerID int64, name string, ore models.Quality) models.Citizen {
	return rollCitizen(s.dice, playerID, name, ore)
}

func rollCitizen(d *dice.Dice, playerID int64, name string, ore models.Quality) models.Citizen {
	role := models.Roles[d.Pick(len(models.Roles))]
	health := d.IntRange(50, 80)
	if role == models.RoleHealer {
		health += 10
	}
	lo, hi := 5, 15
	if role == models.RoleFighter {
		lo, hi = 15, 25
	}
	attack := d.IntRange(lo, hi)
	defense := d.IntRange(lo, hi)
	if role == models.RoleFighter {
		attack = int(math.Round(float64(attack) * ore.Factor()))
		defense = int(math.Round(float64(defense) * ore.Factor()))
	}
	return models.Citizen{
		PlayerID: playerID,
		Name:     name,
		Role:     role,
		Health:   health,
		Attack:   attack,
		Defense:  defense,
		Status:   models.CitizenStatusActive,
	}
}

// HealInjured returns citizens whose injury has expired to active duty
func (s *EconomyService) HealInjured(ctx context.Context, playerID int64) (int64, error) {
	return s.store.Citizens.HealExpired(ctx, playerID, s.now())
}

// Merge pairs sperm and egg into min(sperm, egg) babies and debits exactly
// that many of each.
func (s *EconomyService) Merge(ctx context.Context, playerID int64, sperm, egg int64) (int64, error) {
	if sperm <= 0 || egg <= 0 {
		return 0, errors.Validation("sperm and egg counts must be positive")
	}

	n := min(sperm, egg)
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		player, err := tx.Players.GetForUpdate(ctx, playerID)
		if err != nil {
			return err
		}
		if player.Sperm < sperm {
			return errors.Insufficient("not enough sperm: have %d, need %d", player.Sperm, sperm)
		}
		if player.Egg < egg {
			return errors.Insufficient("not enough eggs: have %d, need %d", player.Egg, egg)
		}

		now := s.now()
		babies := make([]models.Baby, 0, n)
		for i := int64(0); i < n; i++ {
			babies = append(babies, models.Baby{PlayerID: playerID, Name: utils.BabyName(), ConceivedAt: now})
		}
		if err := tx.Babies.CreateMany(ctx, babies); err != nil {
			return err
		}

		player.Sperm -= n
		player.Egg -= n
		return tx.Players.Save(ctx, player)
	})
	if err != nil {
		return 0, err
	}

	logger.Debug("Merged babies", "player_id", playerID, "count", n)
	return n, nil
}

// TriggerWorldEvent applies a boom or a plague to an eligible player. It
// returns nil when the player is still inside the event cooldown.
func (s *EconomyService) TriggerWorldEvent(ctx context.Context, playerID int64) (*WorldEventResult, error) {
	var result *WorldEventResult
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		now := s.now()
		player, err := tx.Players.GetForUpdate(ctx, playerID)
		if err != nil {
			return err
		}
		if player.LastEvent != nil && now.Sub(*player.LastEvent) < s.tuning.EventCooldown() {
			return nil
		}

		res := &WorldEventResult{PlayerID: playerID, Username: player.Username}
		if s.dice.Chance(0.5) {
			res.Kind = EventBoom
			res.Gained = ResourceDelta{}
			boom := s.tuning.Economy.BoomRange
			for _, r := range models.BaseResources {
				gain := s.dice.Int64Range(boom.Min, boom.Max)
				res.Gained[r] = gain
				player.Add(r, gain)
			}
		} else {
			res.Kind = EventPlague
			culled, err := s.plague(ctx, tx, playerID)
			if err != nil {
				return err
			}
			res.Culled = culled
		}

		player.LastEvent = &now
		if err := tx.Players.Save(ctx, player); err != nil {
			return err
		}
		result = res
		return nil
	})
	return result, err
}

// plague culls a share of the combined citizen and baby population
func (s *EconomyService) plague(ctx context.Context, tx *repositories.Store, playerID int64) (int, error) {
	citizenIDs, err := tx.Citizens.ListAliveIDs(ctx, playerID)
	if err != nil {
		return 0, err
	}
	babyIDs, err := tx.Babies.ListIDs(ctx, playerID)
	if err != nil {
		return 0, err
	}

	pop := len(citizenIDs) + len(babyIDs)
	k := int(float64(pop) * s.dice.Uniform(0.1, 0.3))
	var deadCitizens, deadBabies []uint
	for _, idx := range s.dice.Sample(pop, k) {
		if idx < len(citizenIDs) {
			deadCitizens = append(deadCitizens, citizenIDs[idx])
		} else {
			deadBabies = append(deadBabies, babyIDs[idx-len(citizenIDs)])
		}
	}

	if err := tx.Citizens.MarkDead(ctx, deadCitizens); err != nil {
		return 0, err
	}
	if err := tx.Babies.Delete(ctx, deadBabies...); err != nil {
		return 0, err
	}
	return len(deadCitizens) + len(deadBabies), nil
}

// RunWorldEvents sweeps every player with bounded concurrency. Per-player
// failures are logged and do not stop the sweep.
func (s *EconomyService) RunWorldEvents(ctx context.Context) ([]WorldEventResult, error) {
	ids, err := s.store.Players.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*WorldEventResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.tuning.Economy.WorldEventWorkers))
	for i, id := range ids {
		g.Go(func() error {
			res, err := s.TriggerWorldEvent(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("World event failed", "player_id", id, "error", err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	applied := make([]WorldEventResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			applied = append(applied, *res)
		}
	}
	logger.Info("World event sweep finished", "players", len(ids), "applied", len(applied))
	return applied, nil
}

// CollectResources grants sperm and eggs once per resource cooldown
func (s *EconomyService) CollectResources(ctx context.Context, playerID int64) (ResourceDelta, error) {
	c := s.tuning.Collection
	return s.collect(ctx, playerID, s.tuning.ResourceCooldown(),
		func(p *models.Player) **time.Time { return &p.LastResourceCollect },
		func() ResourceDelta {
			return ResourceDelta{
				models.ResourceSperm: s.dice.Int64Range(c.Sperm.Min, c.Sperm.Max),
				models.ResourceEgg:   s.dice.Int64Range(c.Egg.Min, c.Egg.Max),
			}
		})
}

// CollectSupplies grants each base resource once per supply cooldown
func (s *EconomyService) CollectSupplies(ctx context.Context, playerID int64) (ResourceDelta, error) {
	supply := s.tuning.Collection.Supply
	return s.collect(ctx, playerID, s.tuning.SupplyCooldown(),
		func(p *models.Player) **time.Time { return &p.LastSupplyCollect },
		func() ResourceDelta {
			d := ResourceDelta{}
			for _, r := range models.BaseResources {
				d[r] = s.dice.Int64Range(supply.Min, supply.Max)
			}
			return d
		})
}

func (s *EconomyService) collect(ctx context.Context, playerID int64, cooldown time.Duration, stamp func(*models.Player) **time.Time, roll func() ResourceDelta) (ResourceDelta, error) {
	var delta ResourceDelta
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		now := s.now()
		player, err := tx.Players.GetForUpdate(ctx, playerID)
		if err != nil {
			return err
		}

		last := stamp(player)
		if *last != nil {
			if wait := (*last).Add(cooldown).Sub(now); wait > 0 {
				return errors.InvalidState("already collected, try again in %s", wait.Round(time.Minute))
			}
		}

		delta = roll()
		for r, v := range delta {
			player.Add(r, v)
		}
		*last = &now
		return tx.Players.Save(ctx, player)
	})
	return delta, err
}

// UpgradeQuality raises one base resource a tier for UpgradeCost coins
func (s *EconomyService) UpgradeQuality(ctx context.Context, playerID int64, resource models.Resource) (models.Quality, error) {
	if !isBaseResource(resource) {
		return "", errors.Validation("invalid resource %q, use water, food, medicine or ore", resource)
	}

	var upgraded models.Quality
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		player, err := tx.Players.GetForUpdate(ctx, playerID)
		if err != nil {
			return err
		}

		next, ok := player.Quality(resource).Next()
		if !ok {
			return errors.InvalidState("%s quality is already high", resource)
		}
		cost := s.tuning.Economy.UpgradeCost
		if player.Coins < cost {
			return errors.Insufficient("you need %d coins to upgrade", cost)
		}

		player.Coins -= cost
		player.SetQuality(resource, next)
		if err := tx.Players.Save(ctx, player); err != nil {
			return err
		}
		upgraded = next
		return tx.Coins.Record(ctx, playerID, -cost, models.TxTypeUpgrade, string(resource)+" -> "+string(next))
	})
	return upgraded, err
}

func isBaseResource(r models.Resource) bool {
	for _, b := range models.BaseResources {
		if b == r {
			return true
		}
	}
	return false
}

// CurrencyValue is (water + food + medicine + 2*ore) per head of population
func CurrencyValue(p *models.Player, population int64) float64 {
	total := float64(p.Water + p.Food + p.Medicine + 2*p.Ore)
	return total / float64(max(population, 1))
}

// RunEconomyStep heals, gestates and produces for one player, in that order
func (s *EconomyService) RunEconomyStep(ctx context.Context, playerID int64) (*StepReport, error) {
	report := &StepReport{}
	var err error

	if report.Healed, err = s.HealInjured(ctx, playerID); err != nil {
		return nil, err
	}
	if report.Gestation, err = s.Gestate(ctx, playerID); err != nil {
		return nil, err
	}
	if report.Production, err = s.Produce(ctx, playerID); err != nil {
		return nil, err
	}
	return report, nil
}

// Stats runs an economy step and returns the refreshed player view
func (s *EconomyService) Stats(ctx context.Context, playerID int64) (*PlayerStats, error) {
	step, err := s.RunEconomyStep(ctx, playerID)
	if err != nil {
		return nil, err
	}

	stats, err := s.Snapshot(ctx, playerID)
	if err != nil {
		return nil, err
	}
	stats.Step = step
	return stats, nil
}

// Snapshot reads a player's balances and population without side effects
func (s *EconomyService) Snapshot(ctx context.Context, playerID int64) (*PlayerStats, error) {
	player, err := s.store.Players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.Citizens.CountActiveByRole(ctx, playerID)
	if err != nil {
		return nil, err
	}
	alive, err := s.store.Citizens.CountAlive(ctx, playerID)
	if err != nil {
		return nil, err
	}
	babies, err := s.store.Babies.Count(ctx, playerID)
	if err != nil {
		return nil, err
	}

	return &PlayerStats{
		Player:        player,
		Citizens:      counts,
		Alive:         alive,
		Babies:        babies,
		CurrencyValue: CurrencyValue(player, alive+babies),
	}, nil
}

// CurrencyEntry is one row of the currency table.
type CurrencyEntry struct {
	PlayerID int64
	Username string
	Value    float64
}

// Currencies values every player's coin by stockpile per head
func (s *EconomyService) Currencies(ctx context.Context) ([]CurrencyEntry, error) {
	ids, err := s.store.Players.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]CurrencyEntry, 0, len(ids))
	for _, id := range ids {
		snap, err := s.Snapshot(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, CurrencyEntry{PlayerID: id, Username: snap.Player.Username, Value: snap.CurrencyValue})
	}
	return entries, nil
}

// Leaderboard returns the top players by coins, then war wins
func (s *EconomyService) Leaderboard(ctx context.Context) ([]models.Player, error) {
	return s.store.Players.Leaderboard(ctx, max(1, s.tuning.Economy.LeaderboardSize))
}
