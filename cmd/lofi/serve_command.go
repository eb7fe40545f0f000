package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"lofi/internal/history"
	"lofi/internal/job"
	"lofi/internal/logging"
	"lofi/internal/metrics"
	"lofi/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var flags runtimeFlags
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.prepare(&flags)
			if err != nil {
				return err
			}
			if b := strings.TrimSpace(bind); b != "" {
				cfg.Paths.APIBind = b
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			collector := metrics.New(true)
			driver, err := job.NewFromConfig(cfg, logger,
				job.WithRecorder(store),
				job.WithObserver(collector),
			)
			if err != nil {
				return err
			}

			srv, err := server.New(cfg, driver, logger,
				server.WithHistory(store),
				server.WithMetrics(collector),
			)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := srv.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "lofi listening on http://%s (acceleration %s)\n", srv.Addr(), cfg.Transcode.Acceleration)

			<-runCtx.Done()
			srv.Stop()
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides paths.api_bind)")
	return cmd
}
