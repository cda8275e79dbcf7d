package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/internal/migrate"
	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// exitError carries a specific process exit status out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

var (
	configPath string
	manual     bool

	rootCmd = &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the creator club database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	upCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply every pending schema migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
				applied, err := migrate.Migrate(ctx, db)
				if err != nil {
					return fmt.Errorf("migration: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
				return nil
			})
		},
	}

	downCmd = &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent schema migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
				m, err := migrate.Rollback(ctx, db)
				if err != nil {
					return fmt.Errorf("rollback: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d. %s\n", m.Version, m.Name)
				return nil
			})
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
				statuses, err := migrate.List(ctx, db)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-8s %-32s %-8s\n", "VERSION", "NAME", "STATE")
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Fprintf(out, "%-8d %-32s %-8s\n", s.Version, s.Name, state)
				}
				return nil
			})
		},
	}

	applyCmd = &cobra.Command{
		Use:   "apply FILE...",
		Short: "Execute SQL files in a transaction, or save them for manual execution",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runApply,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	applyCmd.Flags().BoolVar(&manual, "manual", false, "do not connect; save the SQL and print instructions")

	rootCmd.AddCommand(upCmd, downCmd, statusCmd, applyCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	return cfg, nil
}

func withDB(ctx context.Context, fn func(context.Context, *gorm.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := models.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer models.Close(db)
	return fn(ctx, db)
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var db *gorm.DB
	if !manual && cfg.HasDatabase() {
		db, err = models.Open(&cfg.Database)
		if err != nil {
			return &exitError{code: migrate.Failed.ExitCode(), err: err}
		}
		defer models.Close(db)
	}

	runner := migrate.NewFileRunner(db, cfg.Migrations.ManualDir, cmd.OutOrStdout())
	ctx := cmd.Context()

	var results []*migrate.FileResult
	for _, path := range args {
		res := runner.Apply(ctx, path, manual)
		if res.Err != nil {
			logger.Error().Err(res.Err).Str("file", path).Msg("[Migrate] SQL file failed")
		}
		results = append(results, res)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Done: %d file(s)\n", len(results))
	switch outcome := migrate.Worst(results); outcome {
	case migrate.Applied:
		return nil
	default:
		return &exitError{code: outcome.ExitCode(), err: errors.New(outcome.String())}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		code := 1
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		stop()
		os.Exit(code)
	}
}
