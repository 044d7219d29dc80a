package models

import (
	"slices"
	"time"
)

// Match status constants
const (
	MatchStatusOpen   = "open"
	MatchStatusClosed = "closed"
)

// Match phase constants
const (
	MatchPhaseProposed   = "proposed"
	MatchPhaseRecruiting = "recruiting"
	MatchPhaseStarting   = "starting"
	MatchPhaseRunning    = "running"
	MatchPhaseSettled    = "settled"
	MatchPhaseCancelled  = "cancelled"
	MatchPhaseAbandoned  = "abandoned"
)

// RecruitingPhases still accept joins and cancellation.
var RecruitingPhases = []string{MatchPhaseProposed, MatchPhaseRecruiting}

// Standing is one participant's score in the persisted result.
type Standing struct {
	TeamID uint    `json:"team_id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

type Match struct {
	ID                 uint       `gorm:"primaryKey"`
	Discipline         string     `gorm:"type:varchar(20);not null;index"`
	TeamIDs            []uint     `gorm:"type:text;serializer:json"`
	Capacity           int        `gorm:"not null"`
	Status             string     `gorm:"type:varchar(10);default:'open';not null;index"`
	Phase              string     `gorm:"type:varchar(20);default:'proposed';not null;index"`
	ChatID             int64      `gorm:"index"`
	ScheduledAt        time.Time  `gorm:"not null"`
	JoinDeadline       time.Time  `gorm:"not null;index"`
	StartedAt          *time.Time
	ClosedAt           *time.Time
	LastNotificationID int
	WinnerTeamID       *uint
	Standings          []Standing `gorm:"type:text;serializer:json"`
	Summary            string     `gorm:"type:text"`
	CreatedAt          time.Time  `gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime"`
}

func (m *Match) IsClosed() bool {
	return m.Status == MatchStatusClosed
}

func (m *Match) IsRecruiting() bool {
	return slices.Contains(RecruitingPhases, m.Phase)
}

func (m *Match) HasTeam(teamID uint) bool {
	return slices.Contains(m.TeamIDs, teamID)
}

func (m *Match) IsFull() bool {
	return len(m.TeamIDs) >= m.Capacity
}

func (Match) TableName() string {
	return "matches"
}
