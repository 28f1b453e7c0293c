package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"serverlist/pkg/client"
	"serverlist/pkg/config"
	"serverlist/pkg/log"
)

// GlobalOptions holds options shared across all commands
type GlobalOptions struct {
	ConfigPath string
	API        string
	LogLevel   string
	JSON       bool
}

func newRootCmd(version string) *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   "serverlist",
		Short: "Saved multiplayer servers with live status",
		Long: `serverlist keeps the game's saved multiplayer servers (servers.dat),
probes each one for its status and exposes the list over HTTP.

"serve" runs the service. list, add, edit, delete, refresh, reload, filter
and history talk to a running service; ping probes an address directly.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Config file (default ./serverlist.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.API, "api", "", "Address of a running serve instance (default from config listen)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "Output in JSON format")

	cmd.AddCommand(newServeCmd(opts, version))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newAddCmd(opts))
	cmd.AddCommand(newEditCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newRefreshCmd(opts))
	cmd.AddCommand(newReloadCmd(opts))
	cmd.AddCommand(newFilterCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newPingCmd(opts))

	return cmd
}

// loadConfig reads the config file and environment, then applies the
// log level flag and configures the logger.
func loadConfig(opts *GlobalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	log.Configure(os.Stderr, log.ParseLevel(cfg.LogLevel), cfg.LogJSON)
	return cfg, nil
}

// newClient builds an API client from --api or the configured listen address.
func newClient(opts *GlobalOptions) (*client.Client, error) {
	if opts.API != "" {
		return client.New(opts.API), nil
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return client.New(apiAddress(cfg.Listen)), nil
}

// apiAddress turns a listen address into one a client can dial.
func apiAddress(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "127.0.0.1" + listen
	}
	if host, port, ok := strings.Cut(listen, ":"); ok && (host == "0.0.0.0" || host == "") {
		return "127.0.0.1:" + port
	}
	return listen
}
