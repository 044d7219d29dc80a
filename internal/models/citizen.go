package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleWorker    Role = "worker"
	RoleMiner     Role = "miner"
	RoleFighter   Role = "fighter"
	RoleTeacher   Role = "teacher"
	RoleProfessor Role = "professor"
	RoleHealer    Role = "healer"
	RoleEngineer  Role = "engineer"
	RoleTrader    Role = "trader"
	RoleScout     Role = "scout"
	RoleWorkless  Role = "workless"
)

// Roles is the draw pool for new citizens.
var Roles = []Role{
	RoleWorker, RoleMiner, RoleFighter, RoleTeacher, RoleProfessor,
	RoleHealer, RoleEngineer, RoleTrader, RoleScout, RoleWorkless,
}

// Citizen status constants
const (
	CitizenStatusActive  = "active"
	CitizenStatusInjured = "injured"
	CitizenStatusDead    = "dead"
)

type Citizen struct {
	ID           uint       `gorm:"primaryKey"`
	PlayerID     int64      `gorm:"not null;index:idx_citizen_owner"`
	Name         string     `gorm:"type:varchar(100);not null"`
	Role         Role       `gorm:"type:varchar(20);not null;index:idx_citizen_owner"`
	Health       int        `gorm:"not null"`
	Attack       int        `gorm:"not null"`
	Defense      int        `gorm:"not null"`
	Status       string     `gorm:"type:varchar(10);default:'active';not null;index:idx_citizen_owner"`
	InjuredUntil *time.Time `gorm:"index"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
}

// Power is the combat contribution before the ore-quality multiplier.
func (c *Citizen) Power() float64 {
	return float64(c.Attack) * float64(c.Health) / 100
}

// BeforeSave hook for validation. An empty status leaves the column default
// in place.
func (c *Citizen) BeforeSave(tx *gorm.DB) error {
	switch c.Status {
	case "", CitizenStatusActive, CitizenStatusInjured, CitizenStatusDead:
	default:
		return gorm.ErrInvalidData
	}
	if c.Health < 0 || c.Attack < 0 || c.Defense < 0 {
		return gorm.ErrInvalidData
	}
	return nil
}

func (Citizen) TableName() string {
	return "citizens"
}

type Baby struct {
	ID          uint       `gorm:"primaryKey"`
	PlayerID    int64      `gorm:"not null;index"`
	Name        string     `gorm:"type:varchar(100);not null"`
	ConceivedAt time.Time  `gorm:"not null;index"`
	BornAt      *time.Time
	Born        bool `gorm:"default:false;not null"`
}

func (Baby) TableName() string {
	return "babies"
}
