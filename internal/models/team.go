package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultTeamPower is the rating every team starts from.
const DefaultTeamPower = 100

type Team struct {
	ID        uint      `gorm:"primaryKey"`
	OwnerID   *int64    `gorm:"uniqueIndex"`
	Name      string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Wins      int       `gorm:"default:0;not null"`
	WinStreak int       `gorm:"default:0;not null"`
	Power     int       `gorm:"default:100;not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// IsAI reports whether no player owns the team.
func (t *Team) IsAI() bool {
	return t.OwnerID == nil
}

func (t *Team) BeforeSave(tx *gorm.DB) error {
	if t.Power < 0 || t.Wins < 0 || t.WinStreak < 0 {
		return gorm.ErrInvalidData
	}
	return nil
}

func (Team) TableName() string {
	return "teams"
}
