package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickgao/candidate-tracker/internal/config"
	"github.com/rickgao/candidate-tracker/internal/version"
)

const defaultConfigPath = "configs/dashboard.yaml"

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "dashboard",
		Short: "Candidate tracker dashboard",
		Long: `dashboard serves the recruiting candidate list over HTTP and keeps it in
sync with the backend through a realtime change subscription.

The backend is either a hosted project (REST + realtime WebSocket) or a
PostgreSQL database using LISTEN/NOTIFY.`,
		Version:      version.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate("{{.Name}} " + version.String() + "\n")

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", defaultConfigPath, "path to config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(g),
		newWatchCommand(g),
		newLoginCommand(g),
		newLogoutCommand(g),
		newSignupCommand(g),
		newMigrateCommand(g),
		newVersionCommand(),
	)

	return root
}

// load reads and validates the config and installs the default logger.
func (g *globals) load(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadAndValidate(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	logger.Debug("configuration loaded",
		"config", g.configPath,
		"backend", cfg.Backend,
	)
	return cfg, logger, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
