package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the game balance constants. Every field has a default so a
// partial YAML file only overrides what it names.
type Tuning struct {
	Collection Collection `yaml:"collection"`
	War        War        `yaml:"war"`
	Match      MatchRules `yaml:"match"`
	Economy    Economy    `yaml:"economy"`
	Starting   Starting   `yaml:"starting"`
}

type Range struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

type Collection struct {
	Sperm             Range `yaml:"sperm"`
	Egg               Range `yaml:"egg"`
	Supply            Range `yaml:"supply"`
	ResourceCooldownH int   `yaml:"resource_cooldown_hours"`
	SupplyCooldownH   int   `yaml:"supply_cooldown_hours"`
}

type War struct {
	WinCoins      int64   `yaml:"win_coins"`
	LossCoins     int64   `yaml:"loss_coins"`
	StealFraction float64 `yaml:"steal_fraction"`
	InjuryHours   int     `yaml:"injury_hours"`
}

type MatchRules struct {
	WinCoins        int64 `yaml:"win_coins"`
	DrawCoins       int64 `yaml:"draw_coins"`
	LossCoins       int64 `yaml:"loss_coins"`
	WinPowerGain    int   `yaml:"win_power_gain"`
	WagerMultiplier int64 `yaml:"wager_multiplier"`
}

type Economy struct {
	UpgradeCost       int64 `yaml:"upgrade_cost"`
	GestationHours    int   `yaml:"gestation_hours"`
	GrowthHours       int   `yaml:"growth_hours"`
	BirthCost         int64 `yaml:"birth_cost"`
	EventCooldownH    int   `yaml:"event_cooldown_hours"`
	BoomRange         Range `yaml:"boom"`
	LeaderboardSize   int   `yaml:"leaderboard_size"`
	CitizenBatchSize  int   `yaml:"citizen_batch_size"`
	WorldEventWorkers int   `yaml:"world_event_workers"`
}

type Starting struct {
	BaseResource int64 `yaml:"base_resource"`
	Coins        int64 `yaml:"coins"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Collection: Collection{
			Sperm:             Range{Min: 100000, Max: 200000},
			Egg:               Range{Min: 50, Max: 150},
			Supply:            Range{Min: 10, Max: 20},
			ResourceCooldownH: 24,
			SupplyCooldownH:   12,
		},
		War: War{
			WinCoins:      5,
			LossCoins:     5,
			StealFraction: 0.1,
			InjuryHours:   24,
		},
		Match: MatchRules{
			WinCoins:        5,
			DrawCoins:       1,
			LossCoins:       2,
			WinPowerGain:    10,
			WagerMultiplier: 2,
		},
		Economy: Economy{
			UpgradeCost:       10,
			GestationHours:    9,
			GrowthHours:       24,
			BirthCost:         5,
			EventCooldownH:    24,
			BoomRange:         Range{Min: 10, Max: 20},
			LeaderboardSize:   10,
			CitizenBatchSize:  500,
			WorldEventWorkers: 4,
		},
		Starting: Starting{
			BaseResource: 100,
			Coins:        10,
		},
	}
}

// LoadTuning returns the defaults overlaid with the YAML file at path. An
// empty path yields the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	for name, r := range map[string]Range{
		"collection.sperm":  t.Collection.Sperm,
		"collection.egg":    t.Collection.Egg,
		"collection.supply": t.Collection.Supply,
		"economy.boom":      t.Economy.BoomRange,
	} {
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("tuning %s: invalid range %d..%d", name, r.Min, r.Max)
		}
	}
	if t.Economy.UpgradeCost < 0 || t.Economy.BirthCost < 0 {
		return fmt.Errorf("tuning economy: costs must not be negative")
	}
	if t.War.StealFraction < 0 || t.War.StealFraction > 1 {
		return fmt.Errorf("tuning war.steal_fraction must be within [0, 1]")
	}
	return nil
}

func (t Tuning) ResourceCooldown() time.Duration {
	return time.Duration(t.Collection.ResourceCooldownH) * time.Hour
}

func (t Tuning) SupplyCooldown() time.Duration {
	return time.Duration(t.Collection.SupplyCooldownH) * time.Hour
}

func (t Tuning) GestationAge() time.Duration {
	return time.Duration(t.Economy.GestationHours) * time.Hour
}

func (t Tuning) GrowthAge() time.Duration {
	return time.Duration(t.Economy.GrowthHours) * time.Hour
}

func (t Tuning) EventCooldown() time.Duration {
	return time.Duration(t.Economy.EventCooldownH) * time.Hour
}

func (t Tuning) InjuryDuration() time.Duration {
	return time.Duration(t.War.InjuryHours) * time.Hour
}
