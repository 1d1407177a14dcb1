package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/x-stp/rxhosts/internal/core"
	"github.com/x-stp/rxhosts/internal/metrics"
	"github.com/x-stp/rxhosts/internal/publish"
)

func newTestHandler(t *testing.T, hosts []string) (*publish.Holder, http.Handler) {
	t.Helper()
	holder := publish.NewHolder()
	if hosts != nil {
		holder.Publish(hosts, core.FormatRouters, "test-run", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	}
	return holder, NewHandler(holder, Options{MountMetrics: true})
}

func get(h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHostsText(t *testing.T) {
	_, h := newTestHandler(t, []string{"a.example.com", "b.example.com"})

	rec := get(h, PathHosts, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "a.example.com\nb.example.com\n" {
		t.Fatalf("body = %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Header().Get("ETag") == "" || rec.Header().Get("X-Hosts-Generation") != "1" {
		t.Fatalf("headers = %v", rec.Header())
	}
}

func TestHostsJSON(t *testing.T) {
	_, h := newTestHandler(t, []string{"a.example.com"})

	rec := get(h, PathHostsJSON, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc hostsDocument
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Hosts) != 1 || doc.Hosts[0] != "a.example.com" || doc.Generation != 1 || doc.Format != "routers" {
		t.Fatalf("document = %+v", doc)
	}
	if text := get(h, PathHosts, nil).Header().Get("ETag"); text == rec.Header().Get("ETag") {
		t.Fatal("text and JSON representations share an ETag")
	}
}

func TestEmptyListBeforeFirstRefresh(t *testing.T) {
	_, h := newTestHandler(t, nil)

	if rec := get(h, PathHosts, nil); rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("GET /hosts = %d %q", rec.Code, rec.Body.String())
	}
	rec := get(h, PathHostsJSON, nil)
	if !strings.Contains(rec.Body.String(), `"hosts":[]`) {
		t.Fatalf("JSON body = %s", rec.Body.String())
	}
}

func TestConditionalGet(t *testing.T) {
	holder, h := newTestHandler(t, []string{"a.example.com"})
	etag := get(h, PathHosts, nil).Header().Get("ETag")

	testCases := []struct {
		name   string
		header string
		want   int
	}{
		{"Match", etag, http.StatusNotModified},
		{"Weak match", "W/" + etag, http.StatusNotModified},
		{"List", `"other", ` + etag, http.StatusNotModified},
		{"Star", "*", http.StatusNotModified},
		{"Mismatch", `"0000000000000000"`, http.StatusOK},
	}
	for _, tc := range testCases {
		rec := get(h, PathHosts, http.Header{"If-None-Match": {tc.header}})
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d; want %d", tc.name, rec.Code, tc.want)
		}
		if tc.want == http.StatusNotModified && rec.Body.Len() != 0 {
			t.Errorf("%s: 304 with body %q", tc.name, rec.Body.String())
		}
	}

	holder.Publish([]string{"b.example.com"}, core.FormatRouters, "next", time.Now())
	rec := get(h, PathHosts, http.Header{"If-None-Match": {etag}})
	if rec.Code != http.StatusOK || rec.Body.String() != "b.example.com\n" {
		t.Fatalf("after change: %d %q", rec.Code, rec.Body.String())
	}
}

func TestJSONETagFollowsRefreshRun(t *testing.T) {
	holder, h := newTestHandler(t, []string{"a.example.com"})
	text := get(h, PathHosts, nil).Header().Get("ETag")
	first := get(h, PathHostsJSON, nil)
	jsonTag := first.Header().Get("ETag")

	holder.Publish([]string{"a.example.com"}, core.FormatRouters, "second-run", time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC))

	if got := get(h, PathHosts, nil).Header().Get("ETag"); got != text {
		t.Fatalf("text ETag moved on an unchanged list: %s vs %s", got, text)
	}
	if rec := get(h, PathHosts, http.Header{"If-None-Match": {text}}); rec.Code != http.StatusNotModified {
		t.Fatalf("conditional GET /hosts = %d; want 304", rec.Code)
	}

	rec := get(h, PathHostsJSON, http.Header{"If-None-Match": {jsonTag}})
	if rec.Code != http.StatusOK {
		t.Fatalf("conditional GET /hosts.json = %d; want 200", rec.Code)
	}
	if rec.Header().Get("ETag") == jsonTag {
		t.Fatal("JSON ETag did not change with the refresh run")
	}
	var before, after hostsDocument
	if err := json.Unmarshal(first.Body.Bytes(), &before); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatal(err)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) || after.Generation != before.Generation {
		t.Fatalf("documents = %+v then %+v", before, after)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	holder, h := newTestHandler(t, nil)

	if rec := get(h, PathHealthz, nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if rec := get(h, PathReadyz, nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before refresh = %d", rec.Code)
	}
	holder.Publish(nil, core.FormatLegacy, "run", time.Now())
	if rec := get(h, PathReadyz, nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz after refresh = %d", rec.Code)
	}
}

func TestMethodsAndUnknownPaths(t *testing.T) {
	_, h := newTestHandler(t, []string{"a.example.com"})

	req := httptest.NewRequest(http.MethodPost, PathHosts, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /hosts = %d", rec.Code)
	}
	if rec := get(h, "/nope", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("GET /nope = %d", rec.Code)
	}
}

func TestMetricsEndpointAndRequestCounter(t *testing.T) {
	metrics.EnableMetrics()
	_, h := newTestHandler(t, []string{"a.example.com"})
	counter := metrics.GetMetrics().HTTPRequestsTotal.WithLabelValues(PathHosts, "200")
	before := testutil.ToFloat64(counter)

	get(h, PathHosts, nil)
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("request counter delta = %v; want 1", got)
	}
	rec := get(h, PathMetrics, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "rxhosts_http_requests_total") {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
}

func TestMatchesETag(t *testing.T) {
	t.Parallel()
	if matchesETag("", `"a"`) {
		t.Error("empty header matched")
	}
	if !matchesETag(` "b" , "a"`, `"a"`) {
		t.Error("list member not matched")
	}
	if matchesETag(`"ab"`, `"a"`) {
		t.Error("prefix matched")
	}
}

func TestServeGracefulShutdown(t *testing.T) {
	_, h := newTestHandler(t, []string{"a.example.com"})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, h, nil) }()

	resp, err := http.Get("http://" + ln.Addr().String() + PathHosts)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "a.example.com\n" {
		t.Fatalf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestRunListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	err = Run(context.Background(), ln.Addr().String(), http.NotFoundHandler(), nil)
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("Run on busy address = %v; want *net.OpError", err)
	}
}
