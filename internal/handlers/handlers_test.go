package handlers_test

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/biolinq/biolinq/internal/analytics"
	"github.com/biolinq/biolinq/internal/config"
	"github.com/biolinq/biolinq/internal/db"
	"github.com/biolinq/biolinq/internal/dnscheck"
	"github.com/biolinq/biolinq/internal/geo"
	"github.com/biolinq/biolinq/internal/handlers"
	"github.com/biolinq/biolinq/internal/hosting"
	"github.com/biolinq/biolinq/internal/models"
	"github.com/biolinq/biolinq/internal/service"
)

const testWebhookSecret = "whsec_test"

type testEnv struct {
	db     *sql.DB
	svc    *service.Services
	router *chi.Mux
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		AppDomains:      []string{"biolinq.page"},
		CNAMETarget:     "cname.biolinq.page",
		MaxLinksFree:    5,
		MaxLinksPremium: 5,
	}
	svc := service.New(service.Deps{
		DB:      database,
		Cfg:     cfg,
		Log:     zerolog.Nop(),
		DNS:     dnscheck.New(nil, time.Second),
		Hosting: hosting.Noop{},
	})
	geoReader, _ := geo.Open("")
	collector := analytics.NewCollector(database, geoReader, zerolog.Nop(), 1000, time.Hour)
	t.Cleanup(func() {
		collector.Shutdown()
		database.Close()
	})

	redirect := &handlers.RedirectHandler{Tracker: svc.Tracker, Collector: collector, Log: zerolog.Nop()}
	billing := handlers.NewWebhookHandler(svc.Billing, testWebhookSecret, zerolog.Nop())
	feedback := &handlers.FeedbackHandler{Feedback: svc.Feedback, Log: zerolog.Nop()}

	r := chi.NewRouter()
	r.Get("/go/{linkID}", redirect.ServeHTTP)
	r.Get("/healthz", handlers.Health(database.Ping))
	r.Post("/api/stripe/webhook", billing.ServeHTTP)
	r.Route("/api", func(r chi.Router) {
		r.Use(handlers.MaxBody(1 << 20))
		r.Post("/feedback", feedback.Submit)
	})
	return &testEnv{db: database, svc: svc, router: r}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email}
	if err := models.CreateUser(context.Background(), e.db, u); err != nil {
		t.Fatal(err)
	}
	return u
}

func (e *testEnv) createLink(t *testing.T, username string) *models.Link {
	t.Helper()
	u := e.createUser(t, username+"@example.com")
	ctx := context.Background()
	if _, err := e.svc.Biolinks.Register(ctx, u.ID, username); err != nil {
		t.Fatal(err)
	}
	l, err := e.svc.Links.Create(ctx, u.ID, service.LinkInput{Title: "Site", URL: "https://example.com/x"})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func signedRequest(t *testing.T, body string, ts time.Time) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(body),
		Secret:    testWebhookSecret,
		Timestamp: ts,
		Scheme:    "v1",
	})
	req := httptest.NewRequest("POST", "/api/stripe/webhook", strings.NewReader(body))
	req.Header.Set(handlers.SignatureHeader, signed.Header)
	return req
}

// --- Redirect ---

func TestRedirect_CountsClickAndRedirects(t *testing.T) {
	e := setupRouter(t)
	l := e.createLink(t, "alice")

	rr := e.do(httptest.NewRequest("GET", "/go/"+l.ID, nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "https://example.com/x" {
		t.Errorf("Location = %q", loc)
	}

	ctx := context.Background()
	got, err := models.GetLinkByID(ctx, e.db, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalClicks != 1 {
		t.Errorf("total_clicks = %d, want 1", got.TotalClicks)
	}
	daily, err := models.GetDailyLinkClick(ctx, e.db, l.ID, models.Day(time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if daily.Clicks != 1 {
		t.Errorf("daily clicks = %d, want 1", daily.Clicks)
	}
}

func TestRedirect_UnknownOrMalformedID(t *testing.T) {
	e := setupRouter(t)
	l := e.createLink(t, "alice")

	for _, id := range []string{"not-a-uuid", "00000000-0000-0000-0000-000000000000"} {
		rr := e.do(httptest.NewRequest("GET", "/go/"+id, nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("GET /go/%s: status = %d, want 404", id, rr.Code)
		}
	}

	got, err := models.GetLinkByID(context.Background(), e.db, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalClicks != 0 {
		t.Errorf("total_clicks = %d, want 0", got.TotalClicks)
	}
}

// --- Webhook ---

func checkoutEvent(userID, customer string) string {
	return fmt.Sprintf(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"customer":%q,"metadata":{"userId":%q}}}}`, customer, userID)
}

func isPremium(t *testing.T, e *testEnv, userID string) bool {
	t.Helper()
	p, err := models.IsUserPremium(context.Background(), e.db, userID)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestWebhook_BadSignature(t *testing.T) {
	e := setupRouter(t)
	u := e.createUser(t, "a@example.com")

	req := httptest.NewRequest("POST", "/api/stripe/webhook", strings.NewReader(checkoutEvent(u.ID, "cus_1")))
	req.Header.Set(handlers.SignatureHeader, fmt.Sprintf("t=%d,v1=deadbeef", time.Now().Unix()))
	rr := e.do(req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if isPremium(t, e, u.ID) {
		t.Error("user must not be premium after a rejected webhook")
	}
}

func TestWebhook_MissingSignature(t *testing.T) {
	e := setupRouter(t)
	rr := e.do(httptest.NewRequest("POST", "/api/stripe/webhook", strings.NewReader(`{}`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestWebhook_StaleTimestamp(t *testing.T) {
	e := setupRouter(t)
	u := e.createUser(t, "a@example.com")

	rr := e.do(signedRequest(t, checkoutEvent(u.ID, "cus_1"), time.Now().Add(-10*time.Minute)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if isPremium(t, e, u.ID) {
		t.Error("stale event must not grant premium")
	}
}

func TestWebhook_GrantsPremium(t *testing.T) {
	e := setupRouter(t)
	u := e.createUser(t, "a@example.com")

	rr := e.do(signedRequest(t, checkoutEvent(u.ID, "cus_1"), time.Now()))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rr.Code, rr.Body.String())
	}
	if !isPremium(t, e, u.ID) {
		t.Error("expected user to be premium")
	}
}

func TestWebhook_UnknownUserStillOK(t *testing.T) {
	e := setupRouter(t)
	rr := e.do(signedRequest(t, checkoutEvent("ghost", "cus_1"), time.Now()))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestWebhook_IgnoresOtherEvents(t *testing.T) {
	e := setupRouter(t)
	u := e.createUser(t, "a@example.com")
	body := fmt.Sprintf(`{"type":"invoice.paid","data":{"object":{"metadata":{"userId":%q}}}}`, u.ID)

	rr := e.do(signedRequest(t, body, time.Now()))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if isPremium(t, e, u.ID) {
		t.Error("only checkout completion grants premium")
	}
}

func TestWebhook_ClientReferenceFallback(t *testing.T) {
	e := setupRouter(t)
	u := e.createUser(t, "a@example.com")
	body := fmt.Sprintf(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"client_reference_id":%q}}}`, u.ID)

	rr := e.do(signedRequest(t, body, time.Now()))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !isPremium(t, e, u.ID) {
		t.Error("client_reference_id should identify the user")
	}
}

func TestWebhook_AnyV1Matches(t *testing.T) {
	e := setupRouter(t)
	u := e.createUser(t, "a@example.com")
	body := checkoutEvent(u.ID, "cus_1")
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(body),
		Secret:  testWebhookSecret,
	})

	req := httptest.NewRequest("POST", "/api/stripe/webhook", strings.NewReader(body))
	header := fmt.Sprintf("t=%d,v1=0000,v1=%s", signed.Timestamp.Unix(), hex.EncodeToString(signed.Signature))
	req.Header.Set(handlers.SignatureHeader, header)
	if rr := e.do(req); rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !isPremium(t, e, u.ID) {
		t.Error("a later matching v1 signature should be accepted")
	}
}

func TestWebhook_ModifiedPayloadRejected(t *testing.T) {
	e := setupRouter(t)
	u := e.createUser(t, "a@example.com")
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(checkoutEvent("someone-else", "cus_1")),
		Secret:  testWebhookSecret,
	})

	req := httptest.NewRequest("POST", "/api/stripe/webhook", strings.NewReader(checkoutEvent(u.ID, "cus_1")))
	req.Header.Set(handlers.SignatureHeader, signed.Header)
	if rr := e.do(req); rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if isPremium(t, e, u.ID) {
		t.Error("a tampered payload must not grant premium")
	}
}

func TestWebhook_NoSecretConfigured(t *testing.T) {
	e := setupRouter(t)
	u := e.createUser(t, "a@example.com")
	body := checkoutEvent(u.ID, "cus_1")
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(body)})

	h := handlers.NewWebhookHandler(e.svc.Billing, "", zerolog.Nop())
	req := httptest.NewRequest("POST", "/api/stripe/webhook", strings.NewReader(body))
	req.Header.Set(handlers.SignatureHeader, signed.Header)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if isPremium(t, e, u.ID) {
		t.Error("an unconfigured secret must reject every event")
	}
}

// --- Feedback ---

func TestFeedback_Submit(t *testing.T) {
	e := setupRouter(t)
	req := httptest.NewRequest("POST", "/api/feedback", strings.NewReader(`{"emoji":"🔥","page":"/dashboard"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := e.do(req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.ID == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestFeedback_Invalid(t *testing.T) {
	e := setupRouter(t)

	for _, body := range []string{`{}`, `not json`} {
		rr := e.do(httptest.NewRequest("POST", "/api/feedback", strings.NewReader(body)))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rr.Code)
		}
		var resp map[string]any
		json.NewDecoder(rr.Body).Decode(&resp)
		if resp["error"] != "INVALID_FEEDBACK" {
			t.Errorf("body %q: error = %v, want INVALID_FEEDBACK", body, resp["error"])
		}
	}
}

// --- Misc ---

func TestHealth(t *testing.T) {
	e := setupRouter(t)
	rr := e.do(httptest.NewRequest("GET", "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code service.Code
		want int
	}{
		{service.CodeNotFound, http.StatusNotFound},
		{service.CodeForbidden, http.StatusForbidden},
		{service.CodePremiumRequired, http.StatusPaymentRequired},
		{service.CodeUsernameTaken, http.StatusConflict},
		{service.CodeMaxLinksReached, http.StatusBadRequest},
		{service.CodeHostingError, http.StatusBadGateway},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := handlers.StatusFor(tt.code); got != tt.want {
			t.Errorf("StatusFor(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWriteError_Internal(t *testing.T) {
	rr := httptest.NewRecorder()
	handlers.WriteError(rr, zerolog.Nop(), fmt.Errorf("query users: %w", sql.ErrConnDone))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "query users") {
		t.Error("internal error details must not leak")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	if got := handlers.ClientIP(req); got != "203.0.113.9" {
		t.Errorf("ClientIP = %q", got)
	}
	req.RemoteAddr = "203.0.113.9"
	if got := handlers.ClientIP(req); got != "203.0.113.9" {
		t.Errorf("ClientIP without port = %q", got)
	}
}
