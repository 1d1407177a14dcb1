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
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/x-stp/rxhosts/internal/config"
	"github.com/x-stp/rxhosts/internal/core"
	"github.com/x-stp/rxhosts/internal/logging"
	"github.com/x-stp/rxhosts/internal/publish"
)

// Flags specific to the extract command
var (
	inputPath     string
	formatName    string
	blacklistText string
	blacklistFile string
	enabledOnly   bool
	outputPath    string
	hostsAddress  string
	jsonOutput    bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the hostnames from a Traefik configuration document",
	Long: `Reads the JSON configuration Traefik reports (legacy frontends or v2 routers),
keeps the valid hostnames of every Host rule, removes blacklisted names and prints
one host per line.`,
	Example: `  rxhosts extract --input http://traefik:8080/api/http/routers --format v2
  curl -s http://traefik:8080/api/providers | rxhosts extract
  rxhosts extract --input providers.json --blacklist 'admin\.,grafana' --output hosts.txt`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&inputPath, "input", "i", "", `Configuration document or Traefik API URL, "-" for stdin (default: source.path or stdin)`)
	extractCmd.Flags().StringVarP(&formatName, "format", "f", "", "Document format: auto, legacy (v1) or routers (v2)")
	extractCmd.Flags().StringVarP(&blacklistText, "blacklist", "b", "", "Comma separated blacklist entries")
	extractCmd.Flags().StringVar(&blacklistFile, "blacklist-file", "", "File with blacklist entries, one per line")
	extractCmd.Flags().BoolVar(&enabledOnly, "enabled-only", false, `Skip routers whose status is not "enabled"`)
	extractCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the list to this file (atomically) instead of stdout")
	extractCmd.Flags().StringVar(&hostsAddress, "hosts-address", "", `Write "<address> <host>" lines in hosts(5) format`)
	extractCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print a JSON array instead of one host per line")
}

// extractSettings merges the extract flags over the configuration file.
func extractSettings(cmd *cobra.Command, c *config.Config) (config.Config, error) {
	merged := *c
	flags := cmd.Flags()
	if flags.Changed("input") {
		merged.Source.Path = inputPath
	}
	if merged.Source.Path == "" {
		merged.Source.Path = "-"
	}
	if flags.Changed("format") {
		merged.Source.Format = formatName
	}
	if flags.Changed("enabled-only") {
		merged.Source.EnabledOnly = enabledOnly
	}
	if flags.Changed("blacklist") {
		merged.Blacklist.Hosts = blacklistText
	}
	if flags.Changed("blacklist-file") {
		merged.Blacklist.File = blacklistFile
	}
	if flags.Changed("output") {
		merged.Output.Path = outputPath
	}
	if flags.Changed("hosts-address") {
		merged.Output.HostsAddress = hostsAddress
	}
	if _, err := core.ParseFormat(merged.Source.Format); err != nil {
		return merged, err
	}
	if a := merged.Output.HostsAddress; a != "" && net.ParseIP(a) == nil {
		return merged, fmt.Errorf("hosts address %q is not an IP address", a)
	}
	return merged, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	settings, err := extractSettings(cmd, currentConfig())
	if err != nil {
		return err
	}
	log := logging.L()

	text, err := readInput(cmd.Context(), cmd.InOrStdin(), settings.Source.Path)
	if err != nil {
		return err
	}
	blText, err := settings.BlacklistText()
	if err != nil {
		return err
	}

	res, err := core.Extract(text, settings.Format(), core.ParseBlacklist(blText), settings.Options())
	if err != nil {
		return err
	}
	log.Info("Extraction complete",
		zap.Stringer("format", res.Format),
		zap.Int("hosts", len(res.Hosts)),
		zap.Int("rules", res.Rules),
		zap.Int("invalid", res.Invalid),
		zap.Int("blacklisted", res.Blacklisted),
		zap.Int("duplicates", res.Duplicates))
	if res.Format == core.FormatUnknown {
		log.Warn("Document has neither frontends nor routers")
	}

	body, err := renderHosts(res.Hosts, settings.Output.HostsAddress, jsonOutput)
	if err != nil {
		return err
	}
	if settings.Output.Path != "" {
		if err := publish.WriteFileAtomic(settings.Output.Path, body, 0o644); err != nil {
			return fmt.Errorf("failed to write %q: %w", settings.Output.Path, err)
		}
		log.Info("Wrote host list", zap.String("path", settings.Output.Path))
		return nil
	}
	_, err = cmd.OutOrStdout().Write(body)
	return err
}

func readInput(ctx context.Context, stdin io.Reader, path string) (string, error) {
	if publish.IsURL(path) {
		return publish.HTTPSource{URL: path}.Read(ctx)
	}
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read configuration document: %w", err)
	}
	return string(data), nil
}

func renderHosts(hosts []string, address string, asJSON bool) ([]byte, error) {
	if !asJSON {
		return publish.Render(hosts, address), nil
	}
	body, err := json.Marshal(hosts)
	if err != nil {
		return nil, err
	}
	return append(body, '\n'), nil
}
