// Package logger builds the process logger and the request logging middleware.
package logger

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger at level. Pretty output uses the console
// writer; otherwise lines are JSON.
func New(level string, pretty bool) zerolog.Logger {
	return newWithWriter(os.Stdout, level, pretty)
}

func newWithWriter(w io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldInteger = true

	out := w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02 15:04:05 MST"}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	size, err := r.ResponseWriter.Write(b)
	r.size += size
	return size, err
}

// Middleware logs one line per request with the chi route pattern.
func Middleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &responseRecorder{ResponseWriter: w}

			next.ServeHTTP(recorder, r)

			status := recorder.statusCode
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			var event *zerolog.Event
			switch {
			case status >= 500:
				event = log.Error()
			case status >= 400:
				event = log.Warn()
			default:
				event = log.Info()
			}

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", route).
				Str("host", r.Host).
				Int("status", status).
				Int("bytes", recorder.size).
				Dur("duration_ms", duration).
				Str("ip", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
