package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print database statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			stats, err := a.store.GetDatabaseStats(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(stats)
		},
	}
}

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the backend of the current mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.store.TestConnection(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.printJSON(status); err != nil {
				return err
			}
			if !status.OK {
				return fmt.Errorf("%s backend is not available", status.Mode)
			}
			return nil
		},
	}
}

func newModeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Show or change the storage mode",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the persisted and the effective mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stored, err := a.store.StoredMode(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(map[string]domain.Mode{
				"stored":    stored,
				"effective": a.store.Mode(),
			})
		},
	}

	set := &cobra.Command{
		Use:       "set mock|api",
		Short:     "Persist a new storage mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.ModeLocal), string(domain.ModeRemote)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.SetMode(cmd.Context(), domain.Mode(args[0]))
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}
