package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/restserver"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local store over REST until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.store.Mode() != domain.ModeLocal {
				return errors.New("serve needs the local mode, run 'ledgerdb mode set mock' first")
			}
			if listen == "" {
				listen = a.cfg.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := a.database(ctx)
			if err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			srv := restserver.New(db, restserver.WithLogger(a.logger))
			return srv.Run(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from configuration)")
	return cmd
}
