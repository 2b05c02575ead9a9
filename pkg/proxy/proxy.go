// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/etsy-listings-proxy/pkg/config"
	"github.com/go-core-stack/etsy-listings-proxy/pkg/etsy"
)

const (
	// ListingsPath is the only route served by the proxy.
	ListingsPath = "/get_listings"
	// FetchFailedMessage is the fixed error returned for every failure.
	FetchFailedMessage = "Failed to fetch listings"

	contentTypeJSON = "application/json; charset=utf-8"
)

// ListingsFetcher retrieves the raw "results" payload of the active listings
// endpoint. *etsy.Client implements it.
type ListingsFetcher interface {
	ActiveListings(ctx context.Context) (json.RawMessage, error)
}

// Proxy serves the listings route on top of a chi router.
type Proxy struct {
	// fetcher performs the upstream call for each request.
	fetcher ListingsFetcher
	// logger is the base logger that request-scoped loggers derive from.
	logger zerolog.Logger
	router chi.Router
}

type errorResponse struct {
	Error string `json:"error"`
}

// New constructs the proxy handler. The configuration is only used to enrich
// log context; credentials stay inside the fetcher.
func New(cfg config.Config, fetcher ListingsFetcher) (http.Handler, error) {
	if fetcher == nil {
		return nil, errors.New("listings fetcher is required")
	}

	p := &Proxy{
		fetcher: fetcher,
		logger: log.With().
			Str("component", "proxy").
			Str("shop_id", cfg.ShopID).
			Logger(),
	}

	r := chi.NewRouter()
	r.Use(p.withRequestID)
	r.Use(p.withAccessLog)
	r.Use(p.withRecovery)
	r.Get(ListingsPath, p.getListings)
	p.router = r

	return p, nil
}

// ServeHTTP dispatches to the router.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.router.ServeHTTP(w, r)
}

// getListings relays the upstream results or collapses any failure into the
// fixed error body. Failure detail only reaches the log.
func (p *Proxy) getListings(w http.ResponseWriter, r *http.Request) {
	event := zerolog.Ctx(r.Context())

	listings, err := p.fetcher.ActiveListings(r.Context())
	if err != nil {
		entry := event.Error().Err(err)
		var statusErr *etsy.StatusError
		if errors.As(err, &statusErr) {
			entry = entry.
				Int("upstream_status", statusErr.Status).
				Bytes("upstream_body", statusErr.Body)
		}
		entry.Msg("fetch listings failed")
		writeError(w, event)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(listings); err != nil {
		event.Error().Err(err).Msg("write listings response failed")
	}
}

func writeError(w http.ResponseWriter, event *zerolog.Logger) {
	payload, err := json.Marshal(errorResponse{Error: FetchFailedMessage})
	if err != nil {
		http.Error(w, FetchFailedMessage, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusInternalServerError)
	if _, err := w.Write(payload); err != nil {
		event.Error().Err(err).Msg("write error response failed")
	}
}
