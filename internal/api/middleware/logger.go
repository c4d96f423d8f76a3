package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// status reports the written status, treating "nothing written" as 200.
func status(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

// Logger writes one structured line per request. Health probes go to debug
// so they do not drown out chat traffic.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		code := status(ww)
		evt := log.Info()
		if code >= 500 {
			evt = log.Error()
		} else if code >= 400 {
			evt = log.Warn()
		} else if r.URL.Path == "/health" || r.URL.Path == "/version" {
			evt = log.Debug()
		}

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if handle := rctx.URLParam("handle"); handle != "" {
				evt = evt.Str("handle", handle)
			}
		}
		evt.Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", code).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
