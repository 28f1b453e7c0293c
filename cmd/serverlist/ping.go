package main

import (
	"time"

	"github.com/spf13/cobra"

	"serverlist/pkg/probe"
)

func newPingCmd(opts *GlobalOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping ADDRESS",
		Short: "Probe a server directly and print its status",
		Long: `Connect to ADDRESS, run one status exchange and print the result.
No running service is needed and the saved list is not touched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = cfg.ProbeTimeout
			}

			prober := probe.New(probe.WithProtocolVersion(cfg.ProtocolVersion))
			result, err := prober.Probe(cmd.Context(), args[0], timeout)
			if err != nil {
				return err
			}

			if opts.JSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printResult(cmd.OutOrStdout(), args[0], result)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", probe.DefaultTimeout, "Probe timeout")
	return cmd
}
