package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mroshb/battle_forge/internal/config"
	"github.com/mroshb/battle_forge/internal/database"
	"github.com/mroshb/battle_forge/internal/match"
	"github.com/mroshb/battle_forge/internal/reports"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/internal/services"
	"github.com/mroshb/battle_forge/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// opener returns the database the commands work on
type opener func(cfg *config.Config) (*gorm.DB, error)

type rootOptions struct {
	open opener
	cfg  *config.Config
	db   *gorm.DB
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(database.Connect)
}

func newRootCommand(open opener) *cobra.Command {
	opts := &rootOptions{open: open}

	cmd := &cobra.Command{
		Use:          "battle-forge-admin",
		Short:        "Operator tasks for the BattleForge database",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger.Init(cfg.LogLevel, cfg.AppEnv)
			db, err := opts.open(cfg)
			if err != nil {
				return err
			}
			opts.cfg, opts.db = cfg, db
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.db != nil {
				if sqlDB, err := opts.db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}
			logger.Sync()
		},
	}

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedTeamsCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newRecoverCommand(opts))
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.AutoMigrate(opts.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newSeedTeamsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-teams",
		Short: "Insert the AI league if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.SeedAITeams(opts.db); err != nil {
				return err
			}
			teams, err := services.NewTeamService(repositories.NewStore(opts.db)).ListAI(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d AI teams\n", len(teams))
			return nil
		},
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var out string
	var limit int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write players, teams and recent matches to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter := reports.NewExporter(repositories.NewStore(opts.db), limit)
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := exporter.Write(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "battle_forge.xlsx", "output file")
	cmd.Flags().IntVar(&limit, "limit", 0, "rows per sheet (0 for the default)")
	return cmd
}

// printSink writes match notices to the command output instead of a chat
type printSink struct {
	w io.Writer
}

func (s printSink) Send(_ context.Context, chatID int64, text string) (int, error) {
	fmt.Fprintf(s.w, "[chat %d] %s\n", chatID, text)
	return 0, nil
}

func (s printSink) Replace(ctx context.Context, _ int, chatID int64, text string) (int, error) {
	return s.Send(ctx, chatID, text)
}

func newRecoverCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recover-matches",
		Short: "Close matches a stopped bot left open",
		Long: "Abandons matches caught mid-play with a refund and settles join windows that " +
			"expired while the bot was down. Matches that should still run are left for the bot.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tuning, err := config.LoadTuning(opts.cfg.TuningFile)
			if err != nil {
				return err
			}
			store := repositories.NewStore(opts.db)
			engine := match.NewEngine(store, services.NewWagerService(store, tuning), tuning,
				printSink{w: cmd.OutOrStdout()}, opts.cfg.GetJoinWindow())
			return recoverMatches(cmd.Context(), engine, cmd.OutOrStdout())
		},
	}
}

func recoverMatches(ctx context.Context, engine *match.Engine, w io.Writer) error {
	open, err := engine.Open(ctx)
	if err != nil {
		return err
	}
	counts := map[match.ResumeAction]int{}
	for _, m := range open {
		action, err := engine.Resume(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("match %d: %w", m.ID, err)
		}
		counts[action]++
		fmt.Fprintf(w, "match %d: %s\n", m.ID, action)
	}
	fmt.Fprintf(w, "%d open, %d abandoned, %d cancelled, %d left for the bot\n",
		len(open), counts[match.ResumeAbandoned], counts[match.ResumeCancelled],
		counts[match.ResumeRun]+counts[match.ResumeWait])
	return nil
}
