package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vinicius-lino-figueiredo/ledgerdb"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/logger"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/router"
	"github.com/vinicius-lino-figueiredo/ledgerdb/config"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// app holds what every subcommand shares. It is filled by the root
// PersistentPreRunE and released by execute.
type app struct {
	cfgPath string
	out     io.Writer
	errOut  io.Writer

	cfg    config.Config
	logger zerolog.Logger
	store  *ledgerdb.Store
}

// execute runs the command line args and releases the store whatever the
// outcome.
func execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	a := &app{out: out, errOut: errOut}
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerdb",
		Short:         "Document store emulation over a key-value ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "configuration file (yaml, json or toml)")

	root.AddCommand(
		newServeCmd(a),
		newStatsCmd(a),
		newPingCmd(a),
		newModeCmd(a),
		newFindCmd(a),
		newInsertCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newAggregateCmd(a),
		newIndexesCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logger.New(a.errOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.store, err = ledgerdb.Open(ctx, cfg, a.logger, router.WithRestart(a.restartNotice))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// restartNotice stands in for an application restart: a CLI invocation
// always starts with a fresh router.
func (a *app) restartNotice(_ context.Context, mode domain.Mode) error {
	_, err := fmt.Fprintf(a.out, "storage mode set to %q, restart running servers to apply it\n", mode)
	return err
}

func (a *app) database(ctx context.Context) (domain.Database, error) {
	return a.store.ConnectToDatabase(ctx, "", "")
}

func (a *app) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}
