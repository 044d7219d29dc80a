package database

import (
	"fmt"
	"time"

	"github.com/mroshb/battle_forge/internal/config"
	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// AITeamNames are seeded once as the computer-controlled league.
var AITeamNames = []string{
	"ThunderBolts", "IronVanguards", "BlazeCrusaders", "ShadowSprinters",
	"StormRiders", "CrimsonWolves", "FrostTitans", "NightSpecters",
	"SolarKnights", "LunarDefenders", "SteelPhantoms", "WildStallions",
	"GoldenHawks", "DarkScorpions", "SilverEagles", "EmeraldVipers",
	"ObsidianBears", "SapphireSharks",
}

func gormConfig(appEnv string) *gorm.Config {
	var logLevel gormlogger.LogLevel
	if appEnv == "development" {
		logLevel = gormlogger.Info
	} else {
		logLevel = gormlogger.Error
	}

	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
}

// Connect opens the store selected by DB_DRIVER.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == config.DriverSQLite {
		db, err := OpenSQLite(cfg.SQLitePath, cfg.AppEnv)
		if err != nil {
			return nil, err
		}
		logger.Info("Database connected", "driver", config.DriverSQLite, "path", cfg.SQLitePath)
		return db, nil
	}

	conf := gormConfig(cfg.AppEnv)
	conf.PrepareStmt = true
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	logger.Info("Database connected", "driver", config.DriverPostgres, "host", cfg.DBHost)
	return db, nil
}

// OpenSQLite opens a file-backed sqlite store on the pure-Go driver. A
// single connection serialises writers the way sqlite expects.
func OpenSQLite(path, appEnv string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
	}, gormConfig(appEnv))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Player{},
		&models.Citizen{},
		&models.Baby{},
		&models.Team{},
		&models.Match{},
		&models.Trade{},
		&models.Wager{},
		&models.CoinTransaction{},
	)

	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// SeedAITeams inserts the AI league once. Existing rows are left untouched.
func SeedAITeams(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Team{}).Where("owner_id IS NULL").Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count AI teams: %w", err)
	}
	if count > 0 {
		return nil
	}

	logger.Info("Seeding AI teams...", "count", len(AITeamNames))
	teams := make([]models.Team, 0, len(AITeamNames))
	for _, name := range AITeamNames {
		teams = append(teams, models.Team{Name: name, Power: models.DefaultTeamPower})
	}

	return db.Create(&teams).Error
}
