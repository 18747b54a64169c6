package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/db"
	"github.com/biolinq/biolinq/internal/hosting"
	"github.com/biolinq/biolinq/internal/models"
)

type Accounts struct {
	db      *sql.DB
	hosting hosting.Client
	cache   Invalidator
	log     zerolog.Logger
}

// Delete removes the user and everything they own. A registered custom
// domain is released from the hosting provider before the transaction opens;
// if that fails nothing is deleted.
func (s *Accounts) Delete(ctx context.Context, userID string) error {
	b, err := models.GetBiolinkByUserID(ctx, s.db, userID)
	if err != nil && !models.IsNotFound(err) {
		return fmt.Errorf("get biolink: %w", err)
	}
	if models.IsNotFound(err) {
		b = nil
	}

	if b != nil && b.CustomDomain != "" && b.DomainOwnershipVerified {
		if err := s.hosting.RemoveDomain(ctx, b.CustomDomain); err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Str("domain", b.CustomDomain).Msg("release domain before account deletion")
			return ErrHostingError
		}
	}

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if b != nil {
			steps := []func(context.Context, models.Querier, string) error{
				models.DeleteDailyLinkClicksForBiolink,
				models.DeleteDailyStatsForBiolink,
				models.DeleteVisitsForBiolink,
				models.DeleteLinksForBiolink,
				models.DeleteBiolink,
			}
			for _, step := range steps {
				if err := step(ctx, tx, b.ID); err != nil {
					return err
				}
			}
		}
		for _, step := range []func(context.Context, models.Querier, string) error{
			models.DeleteSessionsForUser,
			models.DeleteAccountsForUser,
			models.DetachFeedback,
			models.DeleteUser,
		} {
			if err := step(ctx, tx, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(b)
	s.log.Info().Str("user_id", userID).Msg("account deleted")
	return nil
}
