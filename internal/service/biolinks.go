package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/biolinq/biolinq/internal/db"
	"github.com/biolinq/biolinq/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]{3,20}$`)

// Words that collide with routes or would impersonate the product.
var reservedUsernames = map[string]bool{
	"about": true, "account": true, "admin": true, "analytics": true, "api": true,
	"app": true, "assets": true, "auth": true, "billing": true, "biolinq": true,
	"blog": true, "contact": true, "dashboard": true, "docs": true, "feedback": true,
	"go": true, "healthz": true, "help": true, "home": true, "legal": true,
	"login": true, "logout": true, "metrics": true, "new": true, "null": true,
	"preview": true, "pricing": true, "privacy": true, "profile": true, "register": true,
	"root": true, "settings": true, "signin": true, "signup": true, "static": true,
	"status": true, "support": true, "terms": true, "undefined": true, "user": true,
	"www": true,
}

// NormalizeUsername trims and lowercases a requested username.
func NormalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsReserved reports whether username is on the reserved list, in any case.
func IsReserved(username string) bool {
	return reservedUsernames[NormalizeUsername(username)]
}

type Biolinks struct {
	db *sql.DB
}

func validateUsername(username string) error {
	if IsReserved(username) {
		return ErrUsernameReserved
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

// CheckAvailability runs the registration checks without writing.
func (s *Biolinks) CheckAvailability(ctx context.Context, raw string) error {
	username := NormalizeUsername(raw)
	if err := validateUsername(username); err != nil {
		return err
	}
	exists, err := models.UsernameExists(ctx, s.db, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if exists {
		return ErrUsernameTaken
	}
	return nil
}

// Register claims username for userID. A user owns at most one biolink and a
// username belongs to at most one biolink; concurrent claims lose with
// ErrUsernameTaken via the unique index.
func (s *Biolinks) Register(ctx context.Context, userID, raw string) (*models.Biolink, error) {
	username := NormalizeUsername(raw)
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	var created *models.Biolink
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		exists, err := models.UsernameExists(ctx, tx, username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if exists {
			return ErrUsernameTaken
		}

		_, err = models.GetBiolinkByUserID(ctx, tx, userID)
		if err == nil {
			return ErrAlreadyHasBiolink
		}
		if !models.IsNotFound(err) {
			return fmt.Errorf("get biolink: %w", err)
		}

		b := &models.Biolink{UserID: userID, Username: username}
		if err := models.CreateBiolink(ctx, tx, b); err != nil {
			switch {
			case models.IsUniqueViolation(err, "biolinks.username"):
				return ErrUsernameTaken
			case models.IsUniqueViolation(err, "biolinks.user_id"):
				return ErrAlreadyHasBiolink
			}
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ForUser returns the user's biolink or ErrNotFound.
func (s *Biolinks) ForUser(ctx context.Context, userID string) (*models.Biolink, error) {
	return biolinkForUser(ctx, s.db, userID)
}

// ByUsername returns the biolink for a public profile or ErrNotFound.
func (s *Biolinks) ByUsername(ctx context.Context, username string) (*models.Biolink, error) {
	b, err := models.GetBiolinkByUsername(ctx, s.db, NormalizeUsername(username))
	if models.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get biolink: %w", err)
	}
	return b, nil
}

// PageContent returns what the public page shows for b: its links in order
// and whether the owner is on the premium plan.
func (s *Biolinks) PageContent(ctx context.Context, b *models.Biolink) ([]models.Link, bool, error) {
	links, err := models.ListLinks(ctx, s.db, b.ID)
	if err != nil {
		return nil, false, err
	}
	premium, err := models.IsUserPremium(ctx, s.db, b.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("check premium: %w", err)
	}
	return links, premium, nil
}
