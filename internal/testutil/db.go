// Package testutil opens throwaway stores for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/mroshb/battle_forge/internal/database"
	"gorm.io/gorm"
)

// NewDB returns a migrated sqlite store in a per-test temp directory.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "battle_forge_test.db"), "test")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
