package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mroshb/battle_forge/internal/config"
	"github.com/mroshb/battle_forge/internal/database"
	"github.com/mroshb/battle_forge/internal/handlers"
	"github.com/mroshb/battle_forge/internal/match"
	"github.com/mroshb/battle_forge/internal/middleware"
	"github.com/mroshb/battle_forge/internal/reports"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/internal/scheduler"
	"github.com/mroshb/battle_forge/internal/services"
	"github.com/mroshb/battle_forge/pkg/dice"
	"github.com/mroshb/battle_forge/pkg/logger"
	"github.com/mroshb/battle_forge/telegram"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.AppEnv)
	defer logger.Sync()

	logger.Info("Starting BattleForge bot...")

	if err := cfg.ValidateBot(); err != nil {
		logger.Fatal("Invalid bot config", err)
	}
	if err := cfg.ValidateProductionSecurity(); err != nil {
		logger.Fatal("Production security validation failed", err)
	}

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		logger.Fatal("Failed to load tuning", err)
	}
	if cfg.EconomyWorkers > 0 {
		tuning.Economy.WorldEventWorkers = cfg.EconomyWorkers
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := database.SeedAITeams(db); err != nil {
		logger.Warn("Failed to seed AI teams", "error", err)
	}

	bot, err := telegram.InitBot(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize bot", err)
	}

	store := repositories.NewStore(db)
	d := dice.New()
	players := services.NewPlayerService(store, tuning, d, cfg.InitialCitizens)
	economy := services.NewEconomyService(store, tuning, d)
	war := services.NewWarService(store, tuning, d)
	teams := services.NewTeamService(store)
	trades := services.NewTradeService(store, d)
	wagers := services.NewWagerService(store, tuning)

	var engineOpts []match.Option
	if cfg.DisableLiveDelays {
		engineOpts = append(engineOpts, match.WithSleeper(match.NoSleep))
	}
	engine := match.NewEngine(store, wagers, tuning, bot.Sink(), cfg.GetJoinWindow(), engineOpts...)

	sched := scheduler.New(engine, economy, war, teams, scheduler.Config{
		SettleDelay:        cfg.GetSettleDelay(),
		Housekeeping:       cfg.GetHousekeepingInterval(),
		WorldEventInterval: cfg.GetWorldEventInterval(),
		RandomMatchMin:     cfg.GetRandomMatchMin(),
		RandomMatchMax:     cfg.GetRandomMatchMax(),
	})

	limiter, err := middleware.NewRateLimiter(cfg.RateLimitPerUser, cfg.GetRateLimitWindow(), cfg.RateLimitMaxUsers)
	if err != nil {
		logger.Fatal("Failed to create rate limiter", err)
	}

	handlerMgr := handlers.NewHandlerManager(cfg, players, economy, teams, trades, wagers, engine, sched,
		reports.NewExporter(store, 0), limiter)

	ctx := context.Background()
	if err := sched.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", err)
	}
	bot.Start(handlerMgr)

	logger.Info("Bot started successfully", "env", cfg.AppEnv, "commands", len(handlerMgr.Commands()))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")
	bot.Stop()
	sched.Stop()
	logger.Info("Bot stopped")
}
