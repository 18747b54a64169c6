// Package auth issues and verifies session tokens and resolves the current
// user for each request. Identity providers live outside this service; they
// call Login once the user is known.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/biolinq/biolinq/internal/models"
)

const CookieName = "biolinq_session"

var ErrInvalidSession = errors.New("invalid session")

type Manager struct {
	db     *sql.DB
	secret []byte
	ttl    time.Duration
	secure bool
}

func NewManager(db *sql.DB, secret string, ttl time.Duration, secure bool) *Manager {
	return &Manager{db: db, secret: []byte(secret), ttl: ttl, secure: secure}
}

// Issue creates a session row for userID and returns a signed token whose
// jti is the session id.
func (m *Manager) Issue(ctx context.Context, userID string) (string, error) {
	now := time.Now()
	s := &models.Session{UserID: userID, ExpiresAt: now.Add(m.ttl)}
	if err := models.CreateSession(ctx, m.db, s); err != nil {
		return "", err
	}

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        s.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Logout deletes the session row behind the request's token and clears the
// cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	if raw := tokenFromRequest(r); raw != "" {
		if claims, err := m.parse(raw); err == nil {
			if err := models.DeleteSession(r.Context(), m.db, claims.ID); err != nil {
				return err
			}
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	return nil
}

func (m *Manager) parse(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// Authenticate verifies raw and returns the session's user. The session row
// must still exist and be unexpired.
func (m *Manager) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, err := m.parse(raw)
	if err != nil {
		return nil, ErrInvalidSession
	}

	s, err := models.GetSession(ctx, m.db, claims.ID)
	if models.IsNotFound(err) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if s.UserID != claims.Subject || !time.Now().Before(s.ExpiresAt) {
		return nil, ErrInvalidSession
	}

	u := &models.User{ID: s.UserID}
	if err := models.GetUserByID(ctx, m.db, u); err != nil {
		if models.IsNotFound(err) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
