package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/service"
)

// StatusFor maps a business error code to the HTTP status sent with it.
func StatusFor(code service.Code) int {
	switch code {
	case service.CodeNotFound, service.CodeNoDomain:
		return http.StatusNotFound
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodePremiumRequired:
		return http.StatusPaymentRequired
	case service.CodeUsernameTaken, service.CodeAlreadyHasBiolink, service.CodeDomainTaken:
		return http.StatusConflict
	case service.CodeHostingError:
		return http.StatusBadGateway
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteOK writes {"success":true} merged with fields.
func WriteOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}

// WriteError writes the failure envelope for err. Business errors carry their
// code and message; anything else is logged and reported as INTERNAL.
func WriteError(w http.ResponseWriter, log zerolog.Logger, err error) {
	code := service.CodeOf(err)
	if code == "" {
		log.Error().Err(err).Msg("request failed")
		jsonError(w, "INTERNAL", "something went wrong", http.StatusInternalServerError)
		return
	}
	jsonError(w, string(code), ErrorMessage(err), StatusFor(code))
}

// ErrorMessage returns the user-facing text for err.
func ErrorMessage(err error) string {
	var e *service.Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "Something went wrong. Please try again."
}

func jsonError(w http.ResponseWriter, code, msg string, status int) {
	WriteJSON(w, status, map[string]any{"success": false, "error": code, "message": msg})
}
