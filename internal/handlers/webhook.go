package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/biolinq/biolinq/internal/metrics"
	"github.com/biolinq/biolinq/internal/service"
)

const (
	SignatureHeader    = "Stripe-Signature"
	signatureTolerance = 5 * time.Minute
	maxWebhookBody     = 64 << 10
)

var errNoSecret = errors.New("webhook secret not configured")

// Granter is the part of the billing service the webhook needs.
type Granter interface {
	GrantPremium(ctx context.Context, userID, customerID string) error
}

// WebhookHandler receives payment provider events.
type WebhookHandler struct {
	Billing Granter
	Secret  string
	Log     zerolog.Logger
}

func NewWebhookHandler(billing Granter, secret string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{Billing: billing, Secret: secret, Log: log}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	if err := h.verify(payload, r.Header.Get(SignatureHeader)); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		h.Log.Warn().Err(err).Msg("webhook signature rejected")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		h.Log.Error().Err(err).Msg("decode webhook event")
		WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	result := "ignored"
	if ev.Type == stripe.EventTypeCheckoutSessionCompleted {
		result = h.checkoutCompleted(r.Context(), &ev)
	}
	metrics.WebhookEvents.WithLabelValues(string(ev.Type), result).Inc()
	WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) verify(payload []byte, header string) error {
	if h.Secret == "" {
		return errNoSecret
	}
	return webhook.ValidatePayloadWithTolerance(payload, header, h.Secret, signatureTolerance)
}

// checkoutCompleted grants premium to the user named in the session's
// metadata, falling back to its client reference id.
func (h *WebhookHandler) checkoutCompleted(ctx context.Context, ev *stripe.Event) string {
	var sess stripe.CheckoutSession
	if ev.Data == nil || json.Unmarshal(ev.Data.Raw, &sess) != nil {
		h.Log.Error().Str("event_id", ev.ID).Msg("decode checkout session")
		return "malformed"
	}
	userID := sess.Metadata["userId"]
	if userID == "" {
		userID = sess.ClientReferenceID
	}
	var customerID string
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}
	if err := h.Billing.GrantPremium(ctx, userID, customerID); err != nil {
		h.Log.Error().Err(err).Str("event_id", ev.ID).Str("user_id", userID).Msg("grant premium")
		return "error"
	}
	return "ok"
}

var _ Granter = (*service.Billing)(nil)
