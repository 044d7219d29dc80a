package models

import (
	"time"

	"gorm.io/gorm"
)

// Resource names a stockpile on the player record.
type Resource string

const (
	ResourceSperm    Resource = "sperm"
	ResourceEgg      Resource = "egg"
	ResourceWater    Resource = "water"
	ResourceFood     Resource = "food"
	ResourceMedicine Resource = "medicine"
	ResourceOre      Resource = "ore"
)

// BaseResources are the four consumables that carry a quality tier.
var BaseResources = []Resource{ResourceWater, ResourceFood, ResourceMedicine, ResourceOre}

// AllResources lists every stockpile in display order.
var AllResources = []Resource{ResourceSperm, ResourceEgg, ResourceWater, ResourceFood, ResourceMedicine, ResourceOre}

// ParseResource accepts singular names and the plural forms players type.
func ParseResource(s string) (Resource, bool) {
	switch s {
	case "sperm", "sperms":
		return ResourceSperm, true
	case "egg", "eggs":
		return ResourceEgg, true
	case "water":
		return ResourceWater, true
	case "food":
		return ResourceFood, true
	case "medicine", "medicines":
		return ResourceMedicine, true
	case "ore", "ores":
		return ResourceOre, true
	}
	return "", false
}

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Factor is the production and combat multiplier of a tier.
func (q Quality) Factor() float64 {
	switch q {
	case QualityLow:
		return 0.5
	case QualityHigh:
		return 1.5
	default:
		return 1.0
	}
}

// Next returns the tier above q, or false when q is already the top tier.
func (q Quality) Next() (Quality, bool) {
	switch q {
	case QualityLow:
		return QualityMedium, true
	case QualityMedium:
		return QualityHigh, true
	}
	return q, false
}

func (q Quality) Valid() bool {
	return q == QualityLow || q == QualityMedium || q == QualityHigh
}

type Player struct {
	ID       int64  `gorm:"primaryKey;autoIncrement:false"`
	Username string `gorm:"type:varchar(255)"`

	Sperm    int64 `gorm:"default:0;not null"`
	Egg      int64 `gorm:"default:0;not null"`
	Water    int64 `gorm:"default:100;not null"`
	Food     int64 `gorm:"default:100;not null"`
	Medicine int64 `gorm:"default:100;not null"`
	Ore      int64 `gorm:"default:100;not null"`

	WaterQuality    Quality `gorm:"type:varchar(10);default:'medium';not null"`
	FoodQuality     Quality `gorm:"type:varchar(10);default:'medium';not null"`
	MedicineQuality Quality `gorm:"type:varchar(10);default:'medium';not null"`
	OreQuality      Quality `gorm:"type:varchar(10);default:'medium';not null"`

	Coins   int64 `gorm:"default:10;not null;index"`
	WarWins int   `gorm:"default:0;not null"`

	LastResourceCollect *time.Time
	LastSupplyCollect   *time.Time
	LastEvent           *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Amount returns the balance of r.
func (p *Player) Amount(r Resource) int64 {
	switch r {
	case ResourceSperm:
		return p.Sperm
	case ResourceEgg:
		return p.Egg
	case ResourceWater:
		return p.Water
	case ResourceFood:
		return p.Food
	case ResourceMedicine:
		return p.Medicine
	case ResourceOre:
		return p.Ore
	}
	return 0
}

// Add applies delta to the balance of r. Callers check the result stays
// non-negative; BeforeSave rejects it otherwise.
func (p *Player) Add(r Resource, delta int64) {
	switch r {
	case ResourceSperm:
		p.Sperm += delta
	case ResourceEgg:
		p.Egg += delta
	case ResourceWater:
		p.Water += delta
	case ResourceFood:
		p.Food += delta
	case ResourceMedicine:
		p.Medicine += delta
	case ResourceOre:
		p.Ore += delta
	}
}

// Quality returns the tier of a base resource. Sperm and egg have none and
// report medium.
func (p *Player) Quality(r Resource) Quality {
	switch r {
	case ResourceWater:
		return p.WaterQuality
	case ResourceFood:
		return p.FoodQuality
	case ResourceMedicine:
		return p.MedicineQuality
	case ResourceOre:
		return p.OreQuality
	}
	return QualityMedium
}

func (p *Player) SetQuality(r Resource, q Quality) {
	switch r {
	case ResourceWater:
		p.WaterQuality = q
	case ResourceFood:
		p.FoodQuality = q
	case ResourceMedicine:
		p.MedicineQuality = q
	case ResourceOre:
		p.OreQuality = q
	}
}

// BaseTotal sums the four base resources.
func (p *Player) BaseTotal() int64 {
	return p.Water + p.Food + p.Medicine + p.Ore
}

// BeforeSave hook for validation
func (p *Player) BeforeSave(tx *gorm.DB) error {
	for _, r := range AllResources {
		if p.Amount(r) < 0 {
			return gorm.ErrInvalidData
		}
	}
	if p.Coins < 0 || p.WarWins < 0 {
		return gorm.ErrInvalidData
	}

	for _, r := range BaseResources {
		if !p.Quality(r).Valid() {
			return gorm.ErrInvalidData
		}
	}

	return nil
}

func (Player) TableName() string {
	return "players"
}
