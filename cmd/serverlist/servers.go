package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"serverlist/pkg/coordinator"
)

const defaultHistoryLimit = 20

func newListCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the server list and each server's status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			view, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), opts, view)
		},
	}
}

func newAddCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add ADDRESS [NAME]",
		Short: "Add a server",
		Long: `Add a server to the end of the list. Without NAME the server is
called "` + coordinator.DefaultServerName + `".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			name := ""
			if len(args) > 1 {
				name = args[1]
			}
			entry, err := c.Add(cmd.Context(), name, args[0])
			if err != nil {
				return err
			}
			if opts.JSON {
				return writeJSON(cmd.OutOrStdout(), entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) as %s\n", entry.DisplayName(), entry.Address, entry.ID)
			return nil
		},
	}
}

func newEditCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit ID NAME ADDRESS",
		Short: "Rename and readdress a server",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			entry, err := c.Edit(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if opts.JSON {
				return writeJSON(cmd.OutOrStdout(), entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s (%s)\n", entry.ID, entry.DisplayName(), entry.Address)
			return nil
		},
	}
}

func newDeleteCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Remove a server",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			if err := c.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newRefreshCmd(opts *GlobalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh ID",
		Short: "Probe a server again",
		Long: `Start a status probe for a server. If a probe is already running it is
left alone unless --force is given, which restarts it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			if err := c.Refresh(cmd.Context(), args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Refresh started for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Restart a probe that is already running")
	return cmd
}

func newReloadCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload servers.dat and probe every server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			view, err := c.Reload(cmd.Context())
			if err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), opts, view)
		},
	}
}

func newFilterCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filter [SUBSTRING]",
		Short: "Show only servers whose name contains SUBSTRING",
		Long: `Set the list filter. Matching is case-sensitive on the raw server name.
Run without SUBSTRING to clear the filter.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			view, err := c.SetFilter(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), opts, view)
		},
	}
}

func newHistoryCmd(opts *GlobalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "Show recent probe results for a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			resp, err := c.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if opts.JSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printHistory(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Number of records to show")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
