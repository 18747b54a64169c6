package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/biolinq/biolinq/internal/db"
	"github.com/biolinq/biolinq/internal/metrics"
	"github.com/biolinq/biolinq/internal/models"
)

// Tracker maintains lifetime counters and the per-day rollups.
type Tracker struct {
	db  *sql.DB
	now func() time.Time
}

func NewTracker(database *sql.DB) *Tracker {
	return &Tracker{db: database, now: time.Now}
}

// RecordView counts one profile view. Deduplication happens before this call.
func (s *Tracker) RecordView(ctx context.Context, biolinkID string) error {
	day := models.Day(s.now())
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := models.IncrementViews(ctx, tx, biolinkID); err != nil {
			if models.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		return models.UpsertDailyViews(ctx, tx, biolinkID, day)
	})
	if err != nil {
		return err
	}
	metrics.ProfileViews.Inc()
	return nil
}

// RecordClick counts one click on linkID and returns the link so the caller
// can redirect. Malformed or unknown ids return ErrNotFound without writing.
func (s *Tracker) RecordClick(ctx context.Context, linkID string) (*models.Link, error) {
	if _, err := uuid.Parse(linkID); err != nil {
		return nil, ErrNotFound
	}

	day := models.Day(s.now())
	var link *models.Link
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		l, err := models.GetLinkByID(ctx, tx, linkID)
		if models.IsNotFound(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get link: %w", err)
		}
		if err := models.IncrementClicks(ctx, tx, l.ID); err != nil {
			return err
		}
		if err := models.UpsertDailyLinkClick(ctx, tx, l.ID, day); err != nil {
			return err
		}
		if err := models.UpsertDailyClicks(ctx, tx, l.BiolinkID, day); err != nil {
			return err
		}
		link = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.LinkClicks.Inc()
	return link, nil
}
