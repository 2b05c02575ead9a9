// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package etsy contains the minimal Etsy Open API v3 client used by the
// listings proxy: it builds the active-listings URL for the configured shop,
// authorizes the call and unwraps the "results" envelope.
package etsy

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-core-stack/etsy-listings-proxy/pkg/auth"
	"github.com/go-core-stack/etsy-listings-proxy/pkg/config"
)

const (
	// maxErrorBody limits how much of a failed upstream response is kept for logs.
	maxErrorBody = 64 * 1024
	// maxResponseBody caps a successful listings payload.
	maxResponseBody = 32 << 20
)

var (
	// ErrMissingShopID is returned when no shop identifier is configured.
	ErrMissingShopID = errors.New("shop id must be set")
	// ErrMissingResults is returned when the upstream body has no results field.
	ErrMissingResults = errors.New("upstream response has no results")
	// ErrResponseTooLarge is returned when a listings payload exceeds maxResponseBody.
	ErrResponseTooLarge = errors.New("upstream response too large")
)

// Doer performs a single outbound HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches active listings for a single shop.
type Client struct {
	// base is the API root; only its scheme and host are used per request.
	base *url.URL
	// listingsPath is the request target path, fixed at construction since
	// the shop never changes.
	listingsPath string
	shopID       string
	authorizer   *auth.Bearer
	doer         Doer
}

// NewHTTPClient returns an http.Client with connection pooling defaults. A
// zero timeout leaves upstream calls unbounded, matching http.Client.
func NewHTTPClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecureSkipVerify, // nolint:gosec -- opt-in for sandbox endpoints
		},
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// New constructs a Client for the shop and credentials in cfg.
func New(cfg config.Config, doer Doer) *Client {
	base := cfg.APIBaseURL
	if base == nil {
		base, _ = url.Parse(config.DefaultAPIBaseURL)
	}

	return &Client{
		base:         base,
		listingsPath: ListingsPath(base.EscapedPath(), cfg.ShopID),
		shopID:       cfg.ShopID,
		authorizer:   auth.NewBearer(cfg.AccessToken, cfg.APIKey),
		doer:         doer,
	}
}

// ListingsPath appends the active listings path for shopID to basePath. The
// identifier is inserted as configured: slashes and percent signs are kept,
// and only bytes that cannot appear in a request target (spaces, quotes,
// '#', '?', control and non-ASCII bytes) are percent-encoded.
func ListingsPath(basePath, shopID string) string {
	return strings.TrimSuffix(basePath, "/") + "/application/shops/" + encodeSegment(shopID) + "/listings/active"
}

// ListingsURL returns the absolute upstream URL this client calls.
func (c *Client) ListingsURL() string {
	return c.base.Scheme + "://" + c.base.Host + c.listingsPath
}

// ActiveListings performs one GET against the active listings endpoint and
// returns the "results" value of the response body.
func (c *Client) ActiveListings(ctx context.Context) (json.RawMessage, error) {
	if c.shopID == "" {
		return nil, ErrMissingShopID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.Scheme+"://"+c.base.Host, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	// Opaque keeps the path exactly as built; url.URL would re-escape it.
	req.URL.Opaque = "//" + c.base.Host + c.listingsPath
	req.Header.Set("Accept", "application/json")

	if err := c.authorizer.Authorize(req); err != nil {
		return nil, fmt.Errorf("authorize request: %w", err)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform upstream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Status: resp.StatusCode, Body: payload}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	if len(body) > maxResponseBody {
		return nil, ErrResponseTooLarge
	}

	var envelope struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}
	if len(envelope.Results) == 0 || bytes.Equal(envelope.Results, []byte("null")) {
		return nil, ErrMissingResults
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, envelope.Results); err != nil {
		return nil, fmt.Errorf("compact results: %w", err)
	}

	return compact.Bytes(), nil
}

// encodeSegment percent-encodes the bytes of s that are not allowed in an
// HTTP request target and leaves everything else untouched.
func encodeSegment(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c <= 0x20, c >= 0x7f, c == '"', c == '#', c == '<', c == '>', c == '?', c == '`', c == '{', c == '}':
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
