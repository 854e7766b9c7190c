package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/views"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			app := spacetraveling.New(cfg, views.Funcs(cfg),
				spacetraveling.WithLogger(log),
				spacetraveling.WithStaticDir(staticDir),
			)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(app.Start)
			g.Go(func() error {
				<-ctx.Done()
				log.Info().Msg("shutting down")
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return app.Shutdown(sctx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&staticDir, "static", "public", "directory served under /public")
	return cmd
}
