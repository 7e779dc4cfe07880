package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ytget/yt-web/internal/config"
	"github.com/ytget/yt-web/internal/logging"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

// app carries state resolved by the root command for its subcommands
type app struct {
	settings *config.Settings
	logger   *slog.Logger
	levelVar slog.LevelVar
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{logger: logging.New(logging.FormatText, os.Stderr, nil)}
	root := newRootCommand(a)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Warn("command interrupted", "error", err)
			os.Exit(130)
		}
		a.logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	root := &cobra.Command{
		Use:           "yt-web",
		Short:         "Web front-end for probing and fetching media with yt-dlp",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("Path to the YAML config file (default %s, or $%s)", config.DefaultConfigFile, config.EnvConfigFile))
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log verbosity (debug, info, warning, error)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			configPath = config.DefaultConfigFile
			if env, ok := os.LookupEnv(config.EnvConfigFile); ok && env != "" {
				configPath = env
			}
		}

		settings, err := config.Load(configPath)
		if err != nil {
			return err
		}
		settings.ApplyEnv(os.LookupEnv)
		if logLevel != "" {
			settings.SetLogLevel(logLevel)
		}
		return a.configure(settings)
	}

	root.AddCommand(
		newServeCommand(a),
		newProbeCommand(a),
		newCookiesCommand(a),
	)
	return root
}

// configure installs settings and rebuilds the logger from them
func (a *app) configure(settings *config.Settings) error {
	level, err := logging.ParseLevel(settings.GetLogLevel())
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(settings.GetLogFormat())
	if err != nil {
		return err
	}

	a.levelVar.Set(level)
	a.logger = logging.New(format, os.Stderr, &a.levelVar)
	slog.SetDefault(a.logger)
	a.settings = settings
	return nil
}
