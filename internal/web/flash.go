package web

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const flashCookie = "biolinq_flash"

type Flash struct {
	Type    string // "success", "error"
	Message string
}

func setFlash(w http.ResponseWriter, typ, message string) {
	value := base64.RawURLEncoding.EncodeToString([]byte(typ + ":" + message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

func getFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}

	// Read once
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	decoded, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}

	typ, msg, ok := strings.Cut(string(decoded), ":")
	if !ok || (typ != "success" && typ != "error") {
		return nil
	}
	return &Flash{Type: typ, Message: msg}
}
