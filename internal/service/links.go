package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/biolinq/biolinq/internal/config"
	"github.com/biolinq/biolinq/internal/db"
	"github.com/biolinq/biolinq/internal/models"
)

const (
	maxTitleRunes = 50
	maxEmojiRunes = 8
	maxURLLength  = 2048
)

type LinkInput struct {
	Emoji string
	Title string
	URL   string
}

// Normalize trims fields and validates them. A URL without a scheme is
// assumed to be https.
func (in LinkInput) Normalize() (LinkInput, error) {
	out := LinkInput{
		Emoji: strings.TrimSpace(in.Emoji),
		Title: strings.TrimSpace(in.Title),
		URL:   strings.TrimSpace(in.URL),
	}

	if n := utf8.RuneCountInString(out.Title); n < 1 || n > maxTitleRunes {
		return out, ErrInvalidTitle
	}
	if utf8.RuneCountInString(out.Emoji) > maxEmojiRunes {
		return out, ErrInvalidEmoji
	}

	if out.URL != "" && !strings.Contains(out.URL, "://") {
		out.URL = "https://" + out.URL
	}
	if len(out.URL) > maxURLLength {
		return out, ErrInvalidURL
	}
	u, err := url.Parse(out.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return out, ErrInvalidURL
	}
	return out, nil
}

type Links struct {
	db    *sql.DB
	cfg   *config.Config
	cache Invalidator
}

// Cap returns the link limit for the given plan.
func (s *Links) Cap(premium bool) int {
	if premium {
		return s.cfg.MaxLinksPremium
	}
	return s.cfg.MaxLinksFree
}

// List returns the user's links ordered by position.
func (s *Links) List(ctx context.Context, userID string) ([]models.Link, error) {
	b, err := biolinkForUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return models.ListLinks(ctx, s.db, b.ID)
}

// Create appends a link at the end of the user's list.
func (s *Links) Create(ctx context.Context, userID string, in LinkInput) (*models.Link, error) {
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	var b *models.Biolink
	var created *models.Link
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err = biolinkForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		premium, err := models.IsUserPremium(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("check premium: %w", err)
		}
		count, err := models.CountLinks(ctx, tx, b.ID)
		if err != nil {
			return fmt.Errorf("count links: %w", err)
		}
		if count >= s.Cap(premium) {
			return ErrMaxLinksReached
		}

		l := &models.Link{BiolinkID: b.ID, Emoji: in.Emoji, Title: in.Title, URL: in.URL, Position: count}
		if err := models.CreateLink(ctx, tx, l); err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(b)
	return created, nil
}

// Delete removes a link and its daily rollups, then closes the position gap.
func (s *Links) Delete(ctx context.Context, userID, linkID string) error {
	if _, err := uuid.Parse(linkID); err != nil {
		return ErrNotFound
	}

	var b *models.Biolink
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		l, err := models.GetLinkByID(ctx, tx, linkID)
		if models.IsNotFound(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get link: %w", err)
		}
		b, err = models.GetBiolinkByID(ctx, tx, l.BiolinkID)
		if err != nil {
			return fmt.Errorf("get biolink: %w", err)
		}
		if b.UserID != userID {
			return ErrForbidden
		}

		if err := models.DeleteDailyLinkClicksForLink(ctx, tx, l.ID); err != nil {
			return err
		}
		if err := models.DeleteLink(ctx, tx, l.ID); err != nil {
			return err
		}
		return models.ShiftPositionsAfter(ctx, tx, b.ID, l.Position)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(b)
	return nil
}

// Reorder assigns position = index for ids, which must be exactly the
// biolink's current link ids.
func (s *Links) Reorder(ctx context.Context, userID string, ids []string) ([]models.Link, error) {
	var b *models.Biolink
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		b, err = biolinkForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		current, err := models.ListLinks(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if !samePermutation(current, ids) {
			return ErrInvalidReorder
		}
		for i, id := range ids {
			if err := models.SetLinkPosition(ctx, tx, id, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(b)
	return models.ListLinks(ctx, s.db, b.ID)
}

func samePermutation(current []models.Link, ids []string) bool {
	if len(current) != len(ids) {
		return false
	}
	want := make(map[string]bool, len(current))
	for _, l := range current {
		want[l.ID] = true
	}
	for _, id := range ids {
		if !want[id] {
			return false
		}
		// Clearing catches duplicates.
		delete(want, id)
	}
	return len(want) == 0
}
