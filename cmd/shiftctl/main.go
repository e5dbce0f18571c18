package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shift-tracker/backend/internal/config"
	"github.com/shift-tracker/backend/internal/repository"
	"github.com/shift-tracker/backend/internal/seed"
)

var (
	cfg    *config.Config
	dbpool *sql.DB
	repo   *repository.Repository
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	root := &cobra.Command{
		Use:           "shiftctl",
		Short:         "Administrative tasks for the shift store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.LoadConfig(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if dbpool, err = repository.Open(cfg); err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			repo = repository.NewRepository(cfg, dbpool)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if dbpool != nil {
				dbpool.Close()
			}
		},
	}

	root.AddCommand(migrateCmd(), seedCmd(), importCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users and shifts tables if they are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := repo.EnsureSchema(); err != nil {
				return err
			}
			slog.Info("schema is up to date", "driver", cfg.Database.Driver)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var (
		telegramID string
		n          int
	)

	cmd := &cobra.Command{
		Use:     "seed",
		Short:   "Insert random shifts for a chat user",
		Example: `  shiftctl seed --telegram-id 12345 --n 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return fmt.Errorf("--n must be positive")
			}
			if err := repo.EnsureSchema(); err != nil {
				return err
			}

			user, err := seed.EnsureChatUser(repo, telegramID)
			if err != nil {
				return err
			}

			presets, err := config.LoadPresets(cfg.Chat.PresetsFile)
			if err != nil {
				return err
			}

			if err := seed.SeedRandomShifts(repo, user.ID, n, presets, time.Now()); err != nil {
				return err
			}
			slog.Info("random shifts inserted", "userID", user.ID, "count", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&telegramID, "telegram-id", "", "chat user identifier that owns the shifts")
	cmd.Flags().IntVar(&n, "n", 10, "number of shifts to insert")
	_ = cmd.MarkFlagRequired("telegram-id")

	return cmd
}

func importCmd() *cobra.Command {
	var (
		telegramID string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import shifts from a CSV file",
		Long: `Import shifts from a CSV file with the header

  date,role,program,start_time,end_time,salary

Cells are read the way the chat reads them, so "1830", "15.03" and "сегодня" work.
Empty cells leave the field unset. Rows that fail to parse are logged and skipped.`,
		Example: `  shiftctl import --telegram-id 12345 --file shifts.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := repo.EnsureSchema(); err != nil {
				return err
			}

			user, err := seed.EnsureChatUser(repo, telegramID)
			if err != nil {
				return err
			}

			n, err := seed.ImportCSV(repo, f, user.ID, time.Now())
			if err != nil {
				return err
			}
			slog.Info("shifts imported", "userID", user.ID, "count", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&telegramID, "telegram-id", "", "chat user identifier that owns the shifts")
	cmd.Flags().StringVar(&file, "file", "", "path to the CSV file")
	_ = cmd.MarkFlagRequired("telegram-id")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
