// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package etsy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-core-stack/etsy-listings-proxy/pkg/auth"
	"github.com/go-core-stack/etsy-listings-proxy/pkg/config"
)

func testConfig(t *testing.T, base string) config.Config {
	t.Helper()
	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	return config.Config{
		AccessToken: "tok456",
		ShopID:      "shop123",
		APIBaseURL:  u,
	}
}

func respond(status int, body string) roundTripperFunc {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

func TestActiveListingsReturnsResults(t *testing.T) {
	var received *http.Request
	client := New(testConfig(t, config.DefaultAPIBaseURL), &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			received = req
			return respond(http.StatusOK, `{"count":1,"results":[{"listing_id":1,"title":"Mug"}]}`)(req)
		}),
	})

	got, err := client.ActiveListings(context.Background())
	if err != nil {
		t.Fatalf("ActiveListings: %v", err)
	}
	if string(got) != `[{"listing_id":1,"title":"Mug"}]` {
		t.Fatalf("unexpected results: %s", got)
	}

	if received.Method != http.MethodGet {
		t.Errorf("expected GET, got %s", received.Method)
	}
	wantURL := "https://openapi.etsy.com/v3/application/shops/shop123/listings/active"
	if got := received.URL.String(); got != wantURL {
		t.Errorf("url: got %q, want %q", got, wantURL)
	}
	if got := received.Header.Get(auth.HeaderAuthorization); got != "Bearer tok456" {
		t.Errorf("authorization: got %q", got)
	}
	if got := received.Header.Get(auth.HeaderAPIKey); got != "" {
		t.Errorf("unexpected api key header %q", got)
	}
}

func TestActiveListingsPassesResultsThrough(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty array", body: `{"results":[]}`, want: `[]`},
		{name: "nested objects", body: `{"results":[{"a":{"b":[1,2,{"c":null}]}}]}`, want: `[{"a":{"b":[1,2,{"c":null}]}}]`},
		{name: "whitespace compacted", body: "{\"results\": [ {\"title\": \"Mug\"} ]\n}", want: `[{"title":"Mug"}]`},
		{name: "unicode preserved", body: `{"results":[{"title":"Tasse à café"}]}`, want: `[{"title":"Tasse à café"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(testConfig(t, config.DefaultAPIBaseURL), &http.Client{Transport: respond(http.StatusOK, tt.body)})
			got, err := client.ActiveListings(context.Background())
			if err != nil {
				t.Fatalf("ActiveListings: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestActiveListingsKeepsShopIDVerbatim(t *testing.T) {
	tests := []struct {
		shopID string
		want   string
	}{
		{shopID: "shop123", want: "https://openapi.etsy.com/v3/application/shops/shop123/listings/active"},
		{shopID: "50%off", want: "https://openapi.etsy.com/v3/application/shops/50%off/listings/active"},
		{shopID: "a%2Fb", want: "https://openapi.etsy.com/v3/application/shops/a%2Fb/listings/active"},
		{shopID: "a/b", want: "https://openapi.etsy.com/v3/application/shops/a/b/listings/active"},
		{shopID: "my shop", want: "https://openapi.etsy.com/v3/application/shops/my%20shop/listings/active"},
		{shopID: "q?x#y", want: "https://openapi.etsy.com/v3/application/shops/q%3Fx%23y/listings/active"},
	}

	for _, tt := range tests {
		t.Run(tt.shopID, func(t *testing.T) {
			cfg := testConfig(t, config.DefaultAPIBaseURL)
			cfg.ShopID = tt.shopID

			var sent string
			client := New(cfg, &http.Client{
				Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
					sent = req.URL.String()
					return respond(http.StatusOK, `{"results":[]}`)(req)
				}),
			})

			if _, err := client.ActiveListings(context.Background()); err != nil {
				t.Fatalf("ActiveListings: %v", err)
			}
			if sent != tt.want {
				t.Errorf("outbound url: got %q, want %q", sent, tt.want)
			}
			if got := client.ListingsURL(); got != sent {
				t.Errorf("ListingsURL %q differs from outbound url %q", got, sent)
			}
		})
	}
}

// TestActiveListingsRequestLine reads the raw request line so the check does
// not depend on how a server would parse the target.
func TestActiveListingsRequestLine(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	lines := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			lines <- ""
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		lines <- strings.TrimSpace(line)
		body := `{"results":[]}`
		_, _ = fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(body), body)
	}()

	cfg := testConfig(t, "http://"+ln.Addr().String()+"/v3")
	cfg.ShopID = "50%off"

	got, err := New(cfg, NewHTTPClient(5*time.Second, false)).ActiveListings(context.Background())
	if err != nil {
		t.Fatalf("ActiveListings: %v", err)
	}
	if string(got) != `[]` {
		t.Fatalf("unexpected results: %s", got)
	}

	want := "GET http://" + ln.Addr().String() + "/v3/application/shops/50%off/listings/active HTTP/1.1"
	if line := <-lines; line != want {
		t.Fatalf("request line: got %q, want %q", line, want)
	}
}

func TestActiveListingsSendsAPIKey(t *testing.T) {
	cfg := testConfig(t, config.DefaultAPIBaseURL)
	cfg.APIKey = "keystring"

	var header http.Header
	client := New(cfg, &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			header = req.Header.Clone()
			return respond(http.StatusOK, `{"results":[]}`)(req)
		}),
	})

	if _, err := client.ActiveListings(context.Background()); err != nil {
		t.Fatalf("ActiveListings: %v", err)
	}
	if got := header.Get(auth.HeaderAPIKey); got != "keystring" {
		t.Fatalf("api key header: got %q", got)
	}
}

func TestActiveListingsUpstreamStatus(t *testing.T) {
	for _, status := range []int{
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable,
	} {
		client := New(testConfig(t, config.DefaultAPIBaseURL), &http.Client{
			Transport: respond(status, `{"error":"nope"}`),
		})

		_, err := client.ActiveListings(context.Background())
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("status %d: expected *StatusError, got %v", status, err)
		}
		if statusErr.Status != status {
			t.Errorf("status: got %d, want %d", statusErr.Status, status)
		}
		if string(statusErr.Body) != `{"error":"nope"}` {
			t.Errorf("body: got %q", statusErr.Body)
		}
	}
}

func TestActiveListingsMalformedBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "missing results", body: `{}`, wantErr: ErrMissingResults},
		{name: "null results", body: `{"results":null}`, wantErr: ErrMissingResults},
		{name: "not json", body: `<html>oops</html>`},
		{name: "empty body", body: ``},
		{name: "trailing garbage", body: `{"results":[1]} <html>junk</html>`},
		{name: "second document", body: `{"results":[1]}{"results":[2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(testConfig(t, config.DefaultAPIBaseURL), &http.Client{Transport: respond(http.StatusOK, tt.body)})
			_, err := client.ActiveListings(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestActiveListingsMissingConfiguration(t *testing.T) {
	var calls int
	doer := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			return respond(http.StatusOK, `{"results":[]}`)(req)
		}),
	}

	noShop := testConfig(t, config.DefaultAPIBaseURL)
	noShop.ShopID = ""
	if _, err := New(noShop, doer).ActiveListings(context.Background()); !errors.Is(err, ErrMissingShopID) {
		t.Errorf("expected ErrMissingShopID, got %v", err)
	}

	noToken := testConfig(t, config.DefaultAPIBaseURL)
	noToken.AccessToken = ""
	if _, err := New(noToken, doer).ActiveListings(context.Background()); !errors.Is(err, auth.ErrMissingToken) {
		t.Errorf("expected auth.ErrMissingToken, got %v", err)
	}

	if calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls)
	}
}

func TestActiveListingsConnectionRefused(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := upstream.URL
	upstream.Close()

	client := New(testConfig(t, base), NewHTTPClient(time.Second, false))
	if _, err := client.ActiveListings(context.Background()); err == nil {
		t.Fatal("expected error for unreachable upstream")
	}
}

func TestActiveListingsAgainstServer(t *testing.T) {
	var gotPath, gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get(auth.HeaderAuthorization)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"count":1,"results":[{"listing_id":1,"title":"Mug"}]}`)
	}))
	defer upstream.Close()

	client := New(testConfig(t, upstream.URL+"/v3"), NewHTTPClient(0, false))
	got, err := client.ActiveListings(context.Background())
	if err != nil {
		t.Fatalf("ActiveListings: %v", err)
	}
	if string(got) != `[{"listing_id":1,"title":"Mug"}]` {
		t.Fatalf("unexpected results: %s", got)
	}
	if gotPath != "/v3/application/shops/shop123/listings/active" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotAuth != "Bearer tok456" {
		t.Errorf("authorization: got %q", gotAuth)
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
