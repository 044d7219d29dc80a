// Package reports exports game state as an XLSX workbook for operators.
package reports

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/xuri/excelize/v2"
)

const (
	SheetPlayers = "Players"
	SheetTeams   = "Teams"
	SheetMatches = "Matches"
)

const defaultLimit = 1000

type Exporter struct {
	store *repositories.Store
	limit int
}

func NewExporter(store *repositories.Store, limit int) *Exporter {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Exporter{store: store, limit: limit}
}

// Write builds the workbook and writes it to w
func (e *Exporter) Write(ctx context.Context, w io.Writer) error {
	f, err := e.Build(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Build assembles the players, teams and matches sheets
func (e *Exporter) Build(ctx context.Context) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetPlayers); err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(context.Context, *excelize.File) error{e.players, e.teams, e.matches}
	for _, step := range steps {
		if err := step(ctx, f); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func (e *Exporter) players(ctx context.Context, f *excelize.File) error {
	players, err := e.store.Players.Leaderboard(ctx, e.limit)
	if err != nil {
		return err
	}

	rows := [][]interface{}{{"ID", "Username", "Coins", "War wins", "Sperm", "Egg", "Water", "Food", "Medicine", "Ore"}}
	for _, p := range players {
		rows = append(rows, []interface{}{p.ID, p.Username, p.Coins, p.WarWins, p.Sperm, p.Egg, p.Water, p.Food, p.Medicine, p.Ore})
	}
	return writeRows(f, SheetPlayers, rows)
}

func (e *Exporter) teams(ctx context.Context, f *excelize.File) error {
	teams, err := e.store.Teams.Ranking(ctx, e.limit)
	if err != nil {
		return err
	}

	rows := [][]interface{}{{"ID", "Name", "Owner", "Power", "Wins", "Streak"}}
	for _, t := range teams {
		owner := "AI"
		if t.OwnerID != nil {
			owner = fmt.Sprint(*t.OwnerID)
		}
		rows = append(rows, []interface{}{t.ID, t.Name, owner, t.Power, t.Wins, t.WinStreak})
	}
	return writeRows(f, SheetTeams, rows)
}

func (e *Exporter) matches(ctx context.Context, f *excelize.File) error {
	matches, err := e.store.Matches.Recent(ctx, e.limit)
	if err != nil {
		return err
	}

	rows := [][]interface{}{{"ID", "Discipline", "Phase", "Teams", "Winner", "Standings", "Closed at"}}
	for _, m := range matches {
		rows = append(rows, []interface{}{m.ID, m.Discipline, m.Phase, len(m.TeamIDs), winnerName(m), standings(m), closedAt(m)})
	}
	return writeRows(f, SheetMatches, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func winnerName(m models.Match) string {
	if m.WinnerTeamID == nil {
		return ""
	}
	for _, s := range m.Standings {
		if s.TeamID == *m.WinnerTeamID {
			return s.Name
		}
	}
	return fmt.Sprint(*m.WinnerTeamID)
}

func standings(m models.Match) string {
	parts := make([]string, len(m.Standings))
	for i, s := range m.Standings {
		parts[i] = fmt.Sprintf("%s %.0f", s.Name, s.Score)
	}
	return strings.Join(parts, ", ")
}

func closedAt(m models.Match) string {
	if m.ClosedAt == nil {
		return ""
	}
	return m.ClosedAt.UTC().Format(time.RFC3339)
}
