package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iov-one/cosign/config"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/expiration"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Fail open proposals when their deadline passes",
		Long: `Fail open proposals when their deadline passes. The store is scanned when
the command starts and then every --interval. When a metrics address is
configured, proposal counters are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, closeFn, err := a.controller(false)
			if err != nil {
				return err
			}
			defer closeFn()

			monitor := expiration.NewMonitor(a.clock, ctl, a.logger)
			defer monitor.Stop()

			n, err := monitor.Sweep(cmd.Context(), ctl)
			if err != nil {
				return err
			}
			if once {
				monitor.Stop()
				fmt.Fprintf(cmd.OutOrStdout(), "%d proposals expired\n", n)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				ticker := a.clock.Ticker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
					}
					if _, err := monitor.Sweep(ctx, ctl); err != nil {
						a.logger.Error("sweep failed", "err", err)
					}
				}
			})

			if listen := a.cfg.Metrics.Listen; listen != "" {
				srv := &http.Server{
					Addr:              listen,
					Handler:           metricsHandler(a),
					ReadHeaderTimeout: 5 * time.Second,
				}
				g.Go(func() error {
					a.logger.Info("serving metrics", "listen", listen)
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						return errors.Wrap(errors.ErrInput, err.Error())
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}

			a.logger.Info("watching proposals", "watched", monitor.Watched(), "interval", interval)
			return g.Wait()
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "time between two scans of the store")
	cmd.Flags().BoolVar(&once, "once", false, "fail overdue proposals and exit")
	cmd.Flags().String("metrics", "", "address to serve prometheus metrics at, for example localhost:9100")
	bind(a.v, config.KeyMetricsListen, cmd.Flags().Lookup("metrics"))
	return cmd
}

func metricsHandler(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return mux
}
