package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"serverlist/pkg/config"
	"serverlist/pkg/coordinator"
	"serverlist/pkg/history"
	"serverlist/pkg/log"
	"serverlist/pkg/probe"
	"serverlist/pkg/server"
	"serverlist/pkg/store/serversdat"
)

const (
	gameDirPerm             = 0750
	defaultHistoryRetention = 30 * 24 * time.Hour
)

type serveOptions struct {
	Listen           string
	GameDir          string
	HistoryDB        string
	ProbeTimeout     time.Duration
	HistoryRetention time.Duration
}

func newServeCmd(global *GlobalOptions, version string) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server list service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			applyServeFlags(cmd, opts, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd, cfg, opts, version)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&opts.GameDir, "game-dir", "", "Game directory holding servers.dat (overrides config)")
	cmd.Flags().StringVar(&opts.HistoryDB, "history-db", "", "SQLite database for probe history (enables history)")
	cmd.Flags().DurationVar(&opts.ProbeTimeout, "probe-timeout", 0, "Per-probe timeout (overrides config)")
	cmd.Flags().DurationVar(&opts.HistoryRetention, "history-retention", defaultHistoryRetention, "Drop history older than this at startup (0 keeps everything)")

	return cmd
}

// applyServeFlags lets explicitly set flags win over file and environment.
func applyServeFlags(cmd *cobra.Command, opts *serveOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Listen = opts.Listen
	}
	if flags.Changed("game-dir") {
		cfg.GameDir = opts.GameDir
	}
	if flags.Changed("history-db") {
		cfg.HistoryDB = opts.HistoryDB
	}
	if flags.Changed("probe-timeout") {
		cfg.ProbeTimeout = opts.ProbeTimeout
	}
}

func runServe(cmd *cobra.Command, cfg *config.Config, opts *serveOptions, version string) error {
	if err := os.MkdirAll(cfg.GameDir, gameDirPerm); err != nil {
		return fmt.Errorf("create game directory %s: %w", cfg.GameDir, err)
	}

	prober := probe.New(probe.WithProtocolVersion(cfg.ProtocolVersion))

	coordOpts := coordinator.Options{
		Path:         cfg.DataPath(),
		Store:        serversdat.New(),
		Prober:       prober,
		ProbeTimeout: cfg.ProbeTimeout,
		ProbeRate:    cfg.ProbeRate,
		ProbeBurst:   cfg.ProbeBurst,
	}

	// hist stays a nil interface when history is disabled
	var hist server.HistoryReader
	if cfg.HistoryDB != "" {
		store, err := history.NewStore(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("Failed to close history database")
			}
		}()

		if opts.HistoryRetention > 0 {
			pruned, err := store.Prune(cmd.Context(), time.Now().Add(-opts.HistoryRetention))
			if err != nil {
				log.Warn().Err(err).Msg("Failed to prune probe history")
			} else if pruned > 0 {
				log.Info().Int64("records", pruned).Msg("Pruned probe history")
			}
		}

		coordOpts.Observer = store
		hist = store
		log.Info().Str("path", cfg.HistoryDB).Msg("Probe history enabled")
	}

	list := coordinator.New(coordOpts)
	defer func() {
		if err := list.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close server list")
		}
	}()

	log.Info().
		Str("path", cfg.DataPath()).
		Int("protocol", cfg.ProtocolVersion).
		Dur("probe_timeout", cfg.ProbeTimeout).
		Msg("Loading server list")

	if err := list.LoadAll(cmd.Context()); err != nil {
		return fmt.Errorf("load server list: %w", err)
	}

	api := server.NewAPIServer(list, prober, hist, cfg.ProbeTimeout, version)
	return api.Start(cfg.Listen)
}
