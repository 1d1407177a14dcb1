package main

/*
rxhosts — fast tool in Go for publishing the hostnames routed by Traefik
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/x-stp/rxhosts/internal/client"
	"github.com/x-stp/rxhosts/internal/config"
	"github.com/x-stp/rxhosts/internal/metrics"
	"github.com/x-stp/rxhosts/internal/publish"
	"github.com/x-stp/rxhosts/internal/server"
)

// Flags specific to the serve command
var (
	serveAddr   string
	serveSource string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh the host list periodically and publish it over HTTP",
	Long: `Re-reads the Traefik configuration (a file or an API URL) on every refresh interval and serves the
current list on /hosts and /hosts.json. SIGHUP triggers an immediate refresh,
SIGINT or SIGTERM shut down gracefully.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *currentConfig()
		if cmd.Flags().Changed("addr") {
			c.Server.Addr = serveAddr
		}
		if cmd.Flags().Changed("source") {
			c.Source.Path = serveSource
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, &c, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address, overrides server.addr")
	serveCmd.Flags().StringVar(&serveSource, "source", "", "Traefik configuration file or API URL, overrides source.path")
}

// serve runs the refresher and the HTTP server until ctx is done.
func serve(ctx context.Context, c *config.Config, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	mountMetrics := false
	if c.Metrics.Enabled {
		metrics.EnableMetrics()
		if c.Metrics.Addr != "" {
			if err := metrics.StartMetricsServer(c.Metrics.Addr); err != nil {
				log.Error("Failed to start metrics server", zap.Error(err))
			}
		} else {
			mountMetrics = true
		}
	}

	client.InitHTTPClient(&client.Config{RequestTimeout: c.Refresh.Timeout.Std()})

	var sinks []publish.Sink
	if c.Output.Path != "" {
		sinks = append(sinks, &publish.FileSink{Path: c.Output.Path, HostsAddress: c.Output.HostsAddress})
	}

	holder := publish.NewHolder()
	refresher := publish.NewRefresher(publish.Config{
		Interval:       c.Refresh.Interval.Std(),
		MinInterval:    c.Refresh.MinInterval.Std(),
		InitialBackoff: c.Refresh.InitialBackoff.Std(),
		MaxBackoff:     c.Refresh.MaxBackoff.Std(),
		Timeout:        c.Refresh.Timeout.Std(),
		Format:         c.Format(),
		Options:        c.Options(),
	}, publish.NewSource(c.Source.Path), c.BlacklistText, holder, log, sinks...)

	log.Info("Starting rxhosts",
		zap.String("source", c.Source.Path),
		zap.String("format", c.Source.Format),
		zap.Duration("interval", c.Refresh.Interval.Std()),
		zap.String("addr", c.Server.Addr))

	// The first component to fail stops the others.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := refresher.Run(gctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("refresher: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		watchReload(gctx, refresher, log)
		return nil
	})
	g.Go(func() error {
		handler := server.NewHandler(holder, server.Options{MountMetrics: mountMetrics, Logger: log})
		if err := server.Run(gctx, c.Server.Addr, handler, log); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		// A clean server exit before cancellation must still stop the loop.
		return context.Canceled
	})
	err := g.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := metrics.ShutdownMetricsServer(shutdownCtx); err != nil {
		log.Warn("Metrics server shutdown", zap.Error(err))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("rxhosts stopped with error", zap.Error(err))
		return err
	}
	log.Info("Shutdown complete")
	return nil
}
