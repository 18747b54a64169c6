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

// Themes in display order. The first is the default.
var Themes = []string{"brutalist", "light", "dark", "gradient"}

var (
	colorPattern = regexp.MustCompile(`^#[0-9a-f]{6}$`)
	ga4Pattern   = regexp.MustCompile(`^G-[A-Z0-9]{4,12}$`)
)

func validTheme(theme string) bool {
	for _, t := range Themes {
		if t == theme {
			return true
		}
	}
	return false
}

type ThemeInput struct {
	Theme        string
	PrimaryColor string
	BgColor      string
}

type Customization struct {
	db    *sql.DB
	cache Invalidator
}

func normalizeColor(raw string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(raw))
	if c == "" {
		return "", nil
	}
	if !colorPattern.MatchString(c) {
		return "", ErrInvalidColor
	}
	return c, nil
}

// UpdateTheme writes the theme and both custom colours together. Custom
// colours need premium, checked inside the write transaction.
func (s *Customization) UpdateTheme(ctx context.Context, userID string, in ThemeInput) (*models.Biolink, error) {
	theme := strings.ToLower(strings.TrimSpace(in.Theme))
	if !validTheme(theme) {
		return nil, ErrInvalidTheme
	}
	primary, err := normalizeColor(in.PrimaryColor)
	if err != nil {
		return nil, err
	}
	bg, err := normalizeColor(in.BgColor)
	if err != nil {
		return nil, err
	}

	var updated *models.Biolink
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := biolinkForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if primary != "" || bg != "" {
			if err := requirePremium(ctx, tx, userID); err != nil {
				return err
			}
		}
		if err := models.UpdateTheme(ctx, tx, b.ID, theme, primary, bg); err != nil {
			return err
		}
		updated, err = models.GetBiolinkByID(ctx, tx, b.ID)
		if err != nil {
			return fmt.Errorf("reload biolink: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(updated)
	return updated, nil
}

// UpdateGA4 sets the GA4 measurement id. An empty id clears it and is
// allowed on any plan.
func (s *Customization) UpdateGA4(ctx context.Context, userID, raw string) (*models.Biolink, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if id != "" && !ga4Pattern.MatchString(id) {
		return nil, ErrInvalidGA4ID
	}

	var updated *models.Biolink
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := biolinkForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if id != "" {
			if err := requirePremium(ctx, tx, userID); err != nil {
				return err
			}
		}
		if err := models.UpdateGA4(ctx, tx, b.ID, id); err != nil {
			return err
		}
		updated, err = models.GetBiolinkByID(ctx, tx, b.ID)
		if err != nil {
			return fmt.Errorf("reload biolink: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(updated)
	return updated, nil
}
