// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/etsy-listings-proxy/pkg/config"
	"github.com/go-core-stack/etsy-listings-proxy/pkg/etsy"
	"github.com/go-core-stack/etsy-listings-proxy/pkg/proxy"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if err := config.LoadEnvFiles(); err != nil {
		log.Fatal().Err(err).Msg("failed to read env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", cfg.LogLevel).Msg("invalid log level")
	}
	log.Logger = log.Level(level)

	// Missing credentials are not fatal; every request will answer 500 until
	// they are provided.
	for _, name := range cfg.Missing() {
		log.Warn().Str("env", name).Msg("required setting is empty; listings requests will fail")
	}

	client := etsy.New(cfg, etsy.NewHTTPClient(cfg.RequestTimeout, cfg.InsecureSkipVerify))

	handler, err := proxy.New(cfg, client)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct proxy")
	}

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatal().Err(err).Str("listen_addr", cfg.ListenAddr).Msg("failed to bind listener")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("listen_addr", listener.Addr().String()).
			Str("upstream", client.ListingsURL()).
			Msg("Etsy API proxy running")
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("proxy server exited unexpectedly")
		}
	case <-ctx.Done():
		shutdown(server, cfg.GracefulShutdownTimeout)
	}
}

// shutdown drains in-flight requests for up to timeout, then drops whatever
// connections remain.
func shutdown(srv *http.Server, timeout time.Duration) {
	log.Info().Dur("timeout", timeout).Msg("shutting down Etsy API proxy")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(ctx)
	if err == nil {
		log.Info().Msg("proxy stopped")
		return
	}

	log.Warn().Err(err).Msg("requests still in flight after shutdown timeout; closing connections")
	if err := srv.Close(); err != nil {
		log.Error().Err(err).Msg("close server failed")
	}
}
