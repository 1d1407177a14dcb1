package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInitHTTPClientFillsDefaults(t *testing.T) {
	sharedClient = nil
	clientInitialized = false

	InitHTTPClient(&Config{})
	c := GetHTTPClient()

	tr, ok := c.Transport.(*http.Transport)
	if !ok || tr == nil {
		t.Fatalf("expected *http.Transport, got %T", c.Transport)
	}
	if tr.MaxIdleConns == 0 || tr.MaxIdleConnsPerHost == 0 {
		t.Fatalf("expected idle pool defaulted, got %d/%d", tr.MaxIdleConns, tr.MaxIdleConnsPerHost)
	}
	if c.Timeout != defaultRequestTimeout {
		t.Fatalf("expected request timeout %s, got %s", defaultRequestTimeout, c.Timeout)
	}
}

func TestInitHTTPClientKeepsExplicitTimeout(t *testing.T) {
	InitHTTPClient(&Config{RequestTimeout: 3 * time.Second})
	if got := GetHTTPClient().Timeout; got != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", got)
	}
	InitHTTPClient(nil)
}

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != UserAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		switch r.URL.Path {
		case "/api/http/routers":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	body, err := FetchJSON(context.Background(), srv.URL+"/api/http/routers")
	if err != nil || string(body) != "[]" {
		t.Fatalf("FetchJSON = %q, %v", body, err)
	}

	testCases := []struct {
		path      string
		status    int
		temporary bool
	}{
		{"/busy", http.StatusServiceUnavailable, true},
		{"/missing", http.StatusNotFound, false},
	}
	for _, tc := range testCases {
		_, err := FetchJSON(context.Background(), srv.URL+tc.path)
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("%s: error = %v; want *StatusError", tc.path, err)
		}
		if se.StatusCode != tc.status || se.Temporary() != tc.temporary {
			t.Errorf("%s: status=%d temporary=%t", tc.path, se.StatusCode, se.Temporary())
		}
	}
}
