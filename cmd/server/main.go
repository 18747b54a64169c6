package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/analytics"
	"github.com/biolinq/biolinq/internal/auth"
	"github.com/biolinq/biolinq/internal/cache"
	"github.com/biolinq/biolinq/internal/config"
	"github.com/biolinq/biolinq/internal/db"
	"github.com/biolinq/biolinq/internal/dnscheck"
	"github.com/biolinq/biolinq/internal/geo"
	"github.com/biolinq/biolinq/internal/handlers"
	"github.com/biolinq/biolinq/internal/hosting"
	"github.com/biolinq/biolinq/internal/logger"
	"github.com/biolinq/biolinq/internal/metrics"
	"github.com/biolinq/biolinq/internal/ratelimit"
	"github.com/biolinq/biolinq/internal/service"
	"github.com/biolinq/biolinq/internal/viewcookie"
	"github.com/biolinq/biolinq/internal/web"
)

const (
	maxAPIBody = 16 << 10
	dnsTimeout = 5 * time.Second
)

// app is the wired HTTP surface plus everything that needs closing on exit.
type app struct {
	handler   http.Handler
	collector *analytics.Collector
	closers   []func()
}

func (a *app) close() {
	if a.collector != nil {
		a.collector.Shutdown()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a := &app{closers: []func(){func() { database.Close() }}}

	geoReader, err := geo.Open(cfg.GeoIPPath)
	if err != nil {
		log.Warn().Err(err).Msg("geo lookups disabled")
		geoReader, _ = geo.Open("")
	}
	a.closers = append(a.closers, geoReader.Close)

	limiter, err := ratelimit.New(cfg.RedisURL, cfg.RateLimit, cfg.RateWindow, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	a.closers = append(a.closers, func() { limiter.Close() })

	profiles := cache.New(cfg.CacheSize, cfg.CacheTTL)
	a.collector = analytics.NewCollector(database, geoReader, log, cfg.BufferSize, cfg.FlushInterval)

	svc := service.New(service.Deps{
		DB:    database,
		Cfg:   cfg,
		Log:   log,
		Cache: profiles,
		DNS:   dnscheck.New(nil, dnsTimeout),
		Hosting: hosting.New(hosting.Config{
			BaseURL:   cfg.HostingAPIURL,
			Token:     cfg.HostingAPIToken,
			ProjectID: cfg.HostingProjectID,
			TeamID:    cfg.HostingTeamID,
		}, log),
	})

	sessions := auth.NewManager(database, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	webHandler, err := web.NewHandler(web.Options{
		Cfg:       cfg,
		Services:  svc,
		Auth:      sessions,
		Cache:     profiles,
		Views:     viewcookie.New(cfg.CookieSecret, cfg.ViewDedupeWindow),
		Collector: a.collector,
		Limiter:   limiter,
		Log:       log,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("templates: %w", err)
	}

	redirectHandler := &handlers.RedirectHandler{
		Tracker:   svc.Tracker,
		Collector: a.collector,
		Log:       log,
	}
	feedbackHandler := &handlers.FeedbackHandler{Feedback: svc.Feedback, Log: log}
	webhookHandler := handlers.NewWebhookHandler(svc.Billing, cfg.StripeWebhookSecret, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware)
	r.Use(sessions.Middleware(log))
	r.Use(webHandler.CustomDomain)

	r.Get("/healthz", handlers.Health(database.Ping))
	r.Handle("/metrics", metrics.Handler())

	r.With(limiter.Middleware("go")).Get("/go/{linkID}", redirectHandler.ServeHTTP)

	// Provider events carry whole checkout sessions; the handler caps its own body.
	r.Post("/api/stripe/webhook", webhookHandler.ServeHTTP)
	r.Route("/api", func(r chi.Router) {
		r.Use(handlers.MaxBody(maxAPIBody))
		r.With(limiter.Middleware("feedback")).Post("/feedback", feedbackHandler.Submit)
	})

	webHandler.RegisterRoutes(r)
	r.NotFound(webHandler.NotFound)

	a.handler = r
	return a, nil
}

func main() {
	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("config")
	}
	log := logger.New(cfg.LogLevel, !cfg.IsProduction())

	a, err := newApp(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup")
	}
	defer a.close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("biolinq listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("goodbye")
}
