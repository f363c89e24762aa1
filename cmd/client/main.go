package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/openvault/vaultsync/internal/client/config"
	"github.com/openvault/vaultsync/internal/version"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:     "vaultsync",
	Short:   "VaultSync CLI",
	Version: version.Detailed(),
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "Path to the settings file")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
}

// settingsPath resolves the settings file: flag, then env, then default.
func settingsPath(cmd *cobra.Command) string {
	if cmd.Flag("config").Changed {
		return cmd.Flag("config").Value.String()
	}
	if envPath := os.Getenv("VAULTSYNC_CONFIG_PATH"); envPath != "" {
		return envPath
	}
	return config.DefaultConfigPath
}

func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	s, err := config.Load(settingsPath(cmd))
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func main() {
	level := slog.LevelInfo
	for _, arg := range os.Args[1:] {
		if arg == "--verbose" {
			level = slog.LevelDebug
		}
	}
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
