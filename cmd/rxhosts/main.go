/*
Package main is the entry point for the rxhosts command-line application.

rxhosts reads the configuration Traefik reports through its API and publishes the
hostnames it routes, minus a blacklist. It understands the legacy
provider/frontends/routes document with "Host:a,b" rules and the router list with
"Host(`a`)" rule expressions.

Subcommands:
  - `extract`: one-shot extraction to stdout or a file.
  - `serve`: periodic refresh from a file, publishing the list over HTTP with
    Prometheus metrics. SIGHUP forces a refresh.
  - `validate`: checks names against the hostname rules used for filtering.

A YAML configuration file (`--config`) supplies defaults; command-line flags
override it. Logs go to stderr through zap so stdout carries only results.
*/
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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/x-stp/rxhosts/internal/config"
	"github.com/x-stp/rxhosts/internal/logging"
)

// Global flags (persistent across commands)
var (
	configPath string
	logLevel   string
	logFormat  string
)

// Set by loadConfig before any command runs.
var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "rxhosts",
	Short:         "rxhosts - publish the hostnames routed by Traefik",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console or json), overrides the config file")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig reads --config over the defaults, applies the logging flags and
// installs the process logger.
func loadConfig() error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if logFormat != "" {
		loaded.Log.Format = logFormat
	}
	if err := loaded.Log.Validate(); err != nil {
		return err
	}

	l, err := logging.Init(loaded.Log)
	if err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	cfg, logger = loaded, l
	if configPath != "" {
		logger.Debug("Loaded configuration", zap.String("path", configPath))
	}
	return nil
}

// currentConfig returns the loaded configuration, or the defaults when no
// command pre-run happened.
func currentConfig() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
