// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

// withRequestID reuses the caller's request id or mints one, echoes it back,
// and stores a logger tagged with it in the request context.
func (p *Proxy) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)

		logger := p.logger.With().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Logger()

		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

// withAccessLog emits one line per request once the handler returns.
func (p *Proxy) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		event := p.logger.Info()
		if status >= http.StatusInternalServerError {
			event = p.logger.Warn()
		}
		event.
			Str("request_id", w.Header().Get(HeaderRequestID)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

// withRecovery turns a panic in a handler into the same fixed error response
// as any other failure. http.ErrAbortHandler is re-raised for net/http.
func (p *Proxy) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			event := zerolog.Ctx(r.Context())
			event.Error().
				Interface("panic", rvr).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			writeError(w, event)
		}()

		next.ServeHTTP(w, r)
	})
}
