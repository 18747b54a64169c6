// Package service holds the business rules: ownership, plan limits and
// validation on top of the models package.
package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/config"
	"github.com/biolinq/biolinq/internal/dnscheck"
	"github.com/biolinq/biolinq/internal/hosting"
	"github.com/biolinq/biolinq/internal/models"
)

// Invalidator drops cached public data for a biolink after it changes.
type Invalidator interface {
	Invalidate(b *models.Biolink)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(*models.Biolink) {}

// Deps are the shared dependencies of every service.
type Deps struct {
	DB      *sql.DB
	Cfg     *config.Config
	Log     zerolog.Logger
	Cache   Invalidator
	DNS     *dnscheck.Checker
	Hosting hosting.Client
}

// Services bundles one instance of each service.
type Services struct {
	Biolinks      *Biolinks
	Links         *Links
	Tracker       *Tracker
	Customization *Customization
	Domains       *Domains
	Accounts      *Accounts
	Analytics     *Analytics
	Feedback      *Feedback
	Billing       *Billing
}

func New(d Deps) *Services {
	if d.Cache == nil {
		d.Cache = nopInvalidator{}
	}
	return &Services{
		Biolinks:      &Biolinks{db: d.DB},
		Links:         &Links{db: d.DB, cfg: d.Cfg, cache: d.Cache},
		Tracker:       NewTracker(d.DB),
		Customization: &Customization{db: d.DB, cache: d.Cache},
		Domains:       &Domains{db: d.DB, cfg: d.Cfg, dns: d.DNS, hosting: d.Hosting, cache: d.Cache, log: d.Log},
		Accounts:      &Accounts{db: d.DB, hosting: d.Hosting, cache: d.Cache, log: d.Log},
		Analytics:     &Analytics{db: d.DB},
		Feedback:      &Feedback{db: d.DB},
		Billing:       &Billing{db: d.DB, cache: d.Cache, log: d.Log},
	}
}

// biolinkForUser loads the user's biolink, mapping a missing row to ErrNotFound.
func biolinkForUser(ctx context.Context, q models.Querier, userID string) (*models.Biolink, error) {
	b, err := models.GetBiolinkByUserID(ctx, q, userID)
	if models.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get biolink: %w", err)
	}
	return b, nil
}

// requirePremium re-reads the premium flag from the store.
func requirePremium(ctx context.Context, q models.Querier, userID string) error {
	premium, err := models.IsUserPremium(ctx, q, userID)
	if models.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check premium: %w", err)
	}
	if !premium {
		return ErrPremiumRequired
	}
	return nil
}
