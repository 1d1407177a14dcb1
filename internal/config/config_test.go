package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/x-stp/rxhosts/internal/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "rxhosts.yaml", `
source:
  path: /var/lib/traefik/routers.json
  format: v2
  enabledOnly: true
blacklist:
  hosts: internal.example.com
refresh:
  interval: 2m
  maxBackoff: 600
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Source.Path != "/var/lib/traefik/routers.json" || !cfg.Source.EnabledOnly {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Format() != core.FormatRouters {
		t.Errorf("Format() = %v; want routers", cfg.Format())
	}
	if got := cfg.Refresh.Interval.Std(); got != 2*time.Minute {
		t.Errorf("interval = %s; want 2m", got)
	}
	if got := cfg.Refresh.MaxBackoff.Std(); got != 10*time.Minute {
		t.Errorf("maxBackoff = %s; want 10m", got)
	}
	// Untouched keys keep their defaults.
	if got := cfg.Refresh.InitialBackoff.Std(); got != 5*time.Second {
		t.Errorf("initialBackoff = %s; want default 5s", got)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q; want default", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) succeeded")
	}
	unknown := writeFile(t, "unknown.yaml", "sauce:\n  path: x\n")
	if _, err := Load(unknown); err == nil {
		t.Error("Load with unknown key succeeded")
	}
	badDuration := writeFile(t, "duration.yaml", "refresh:\n  interval: soon\n")
	if _, err := Load(badDuration); err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("Load with bad duration error = %v", err)
	}
	empty := writeFile(t, "empty.yaml", "")
	if _, err := Load(empty); err != nil {
		t.Errorf("Load(empty file) = %v", err)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Valid", func(c *Config) {}, ""},
		{"Missing path", func(c *Config) { c.Source.Path = "" }, "source.path"},
		{"Stdin path", func(c *Config) { c.Source.Path = "-" }, "stdin"},
		{"Bad format", func(c *Config) { c.Source.Format = "toml" }, "unknown configuration format"},
		{"Zero interval", func(c *Config) { c.Refresh.Interval = 0 }, "refresh.interval"},
		{"Backoff order", func(c *Config) { c.Refresh.MaxBackoff = Duration(time.Second) }, "backoff"},
		{"Zero timeout", func(c *Config) { c.Refresh.Timeout = 0 }, "refresh.timeout"},
		{"Empty server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"Bad hosts address", func(c *Config) { c.Output.HostsAddress = "pihole" }, "hostsAddress"},
		{"Bad log level", func(c *Config) { c.Log.Level = "chatty" }, "log level"},
	}
	for _, tc := range testCases {
		cfg := Default()
		cfg.Source.Path = "routers.json"
		tc.mutate(cfg)
		err := cfg.Validate()
		if tc.wantErr == "" {
			if err != nil {
				t.Errorf("%s: Validate() = %v", tc.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("%s: Validate() = %v; want error containing %q", tc.name, err, tc.wantErr)
		}
	}
}

func TestReadBlacklist(t *testing.T) {
	file := writeFile(t, "blacklist.txt", "# internal names\nadmin.example.com\n\n  grafana.example.com  \nfoo,bar\n")
	text, err := ReadBlacklist("inline.example.com", file)
	if err != nil {
		t.Fatalf("ReadBlacklist: %v", err)
	}
	want := "inline.example.com,admin.example.com,grafana.example.com,foo,bar"
	if text != want {
		t.Fatalf("ReadBlacklist() = %q; want %q", text, want)
	}

	if text, err := ReadBlacklist("", ""); err != nil || text != "" {
		t.Fatalf("ReadBlacklist(empty) = %q, %v", text, err)
	}
	if _, err := ReadBlacklist("", filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("ReadBlacklist(missing file) succeeded")
	}

	bl := core.ParseBlacklist(text)
	if !bl.Contains("grafana.example.com") || bl.Contains("www.example.com") {
		t.Fatalf("parsed blacklist entries = %q", bl.Entries())
	}
}
