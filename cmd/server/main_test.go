package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/biolinq/biolinq/internal/config"
	"github.com/biolinq/biolinq/internal/db"
	"github.com/biolinq/biolinq/internal/handlers"
	"github.com/biolinq/biolinq/internal/models"
)

const testWebhookSecret = "whsec_test"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                "0",
		DBPath:              filepath.Join(t.TempDir(), "biolinq.db"),
		Env:                 "test",
		LogLevel:            "error",
		BaseURL:             "https://biolinq.page",
		AppDomains:          []string{"biolinq.page"},
		CNAMETarget:         "cname.biolinq.page",
		LoginURL:            "/login",
		SessionSecret:       "0123456789abcdef0123456789abcdef",
		SessionTTL:          time.Hour,
		CookieSecret:        "fedcba9876543210fedcba9876543210",
		ViewDedupeWindow:    30 * time.Minute,
		MaxLinksFree:        5,
		MaxLinksPremium:     5,
		StripeWebhookSecret: testWebhookSecret,
		RateLimit:           100,
		RateWindow:          time.Minute,
		FlushInterval:       time.Hour,
		BufferSize:          100,
		CacheSize:           100,
		CacheTTL:            time.Minute,
	}
}

func startApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	a, err := newApp(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.close)
	return a
}

func TestNewApp_Health(t *testing.T) {
	a := startApp(t, testConfig(t))

	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestNewApp_WebhookAcceptsLargeEvents(t *testing.T) {
	cfg := testConfig(t)
	a := startApp(t, cfg)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()
	u := &models.User{Email: "alice@example.com"}
	if err := models.CreateUser(context.Background(), database, u); err != nil {
		t.Fatal(err)
	}

	// Larger than the cap on the other /api routes.
	padding := strings.Repeat("x", 2*maxAPIBody)
	body := fmt.Sprintf(`{"id":"evt_big","type":"checkout.session.completed","data":{"object":{"customer":"cus_1","metadata":{"userId":%q,"note":%q}}}}`, u.ID, padding)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(body),
		Secret:  testWebhookSecret,
	})

	req := httptest.NewRequest("POST", "/api/stripe/webhook", strings.NewReader(body))
	req.Header.Set(handlers.SignatureHeader, signed.Header)
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rr.Code, rr.Body.String())
	}
	premium, err := models.IsUserPremium(context.Background(), database, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !premium {
		t.Error("expected user to be premium")
	}
}
