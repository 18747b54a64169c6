package service

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/models"
)

type Billing struct {
	db    *sql.DB
	cache Invalidator
	log   zerolog.Logger
}

// GrantPremium marks userID as premium after a completed checkout.
func (s *Billing) GrantPremium(ctx context.Context, userID, customerID string) error {
	if userID == "" {
		return ErrNotFound
	}
	if err := models.SetPremium(ctx, s.db, userID, customerID); err != nil {
		if models.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}

	if b, err := models.GetBiolinkByUserID(ctx, s.db, userID); err == nil {
		s.cache.Invalidate(b)
	}
	s.log.Info().Str("user_id", userID).Msg("premium granted")
	return nil
}
