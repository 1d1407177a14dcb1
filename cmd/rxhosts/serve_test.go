package main

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/x-stp/rxhosts/internal/config"
)

func serveConfig(t *testing.T) *config.Config {
	t.Helper()
	source := filepath.Join(t.TempDir(), "providers.json")
	mustWrite(t, source, legacyDoc)

	c := config.Default()
	c.Source.Path = source
	c.Server.Addr = "127.0.0.1:0"
	c.Metrics.Enabled = false
	return c
}

func runServe(t *testing.T, ctx context.Context, c *config.Config) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- serve(ctx, c, nil) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
		return nil
	}
}

func TestServeStopsWhenRefresherFails(t *testing.T) {
	c := serveConfig(t)
	c.Refresh.Interval = 0

	err := runServe(t, context.Background(), c)
	if err == nil || !strings.Contains(err.Error(), "refresh interval") {
		t.Fatalf("serve = %v; want the refresher error", err)
	}
}

func TestServeStopsCleanlyOnCancel(t *testing.T) {
	c := serveConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(100*time.Millisecond, cancel)
	if err := runServe(t, ctx, c); err != nil {
		t.Fatalf("serve = %v; want nil after cancellation", err)
	}
}

func TestServeReportsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	c := serveConfig(t)
	c.Server.Addr = busy.Addr().String()

	err = runServe(t, context.Background(), c)
	if err == nil || !strings.Contains(err.Error(), "http server") {
		t.Fatalf("serve = %v; want listen error", err)
	}
}
