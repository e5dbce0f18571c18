package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/shift-tracker/backend/internal/bot"
	"github.com/shift-tracker/backend/internal/config"
	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/repository"
	"github.com/shift-tracker/backend/internal/simulator"
)

func main() {
	var (
		userID   string
		username string
		fullName string
		outDir   string
		logFile  string
	)

	cmd := &cobra.Command{
		Use:          "chatsim",
		Short:        "Talk to the shift bot from the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// the TUI owns stdout, so logs go to a file
			f, err := tea.LogToFile(logFile, "chatsim")
			if err != nil {
				return err
			}
			defer f.Close()
			slog.SetDefault(slog.New(slog.NewTextHandler(f, nil)))

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			presets, err := config.LoadPresets(cfg.Chat.PresetsFile)
			if err != nil {
				return err
			}

			dbpool, err := repository.Open(cfg)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer dbpool.Close()

			repo := repository.NewRepository(cfg, dbpool)
			if err := repo.EnsureSchema(); err != nil {
				return err
			}

			b := bot.New(cfg, repo, nil, presets, time.Now)
			status := func() string {
				user, err := repo.GetUserByTelegramID(userID)
				if err != nil {
					return ""
				}
				if state, ok := b.Flow(user.ID); ok {
					return "flow: " + state.String()
				}
				return ""
			}

			m := simulator.New(b, domain.Update{ChatUserID: userID, Username: username, FullName: fullName}, status, outDir)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "1", "chat user identifier to talk as")
	cmd.Flags().StringVar(&username, "username", "tester", "chat username")
	cmd.Flags().StringVar(&fullName, "name", "", "full name shown in the profile")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory for exported files, empty to skip saving")
	cmd.Flags().StringVar(&logFile, "log", "chatsim.log", "log file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
