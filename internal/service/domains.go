package service

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/config"
	"github.com/biolinq/biolinq/internal/dnscheck"
	"github.com/biolinq/biolinq/internal/hosting"
	"github.com/biolinq/biolinq/internal/metrics"
	"github.com/biolinq/biolinq/internal/models"
	"github.com/biolinq/biolinq/internal/token"
)

var domainPattern = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z][a-z0-9-]{0,61}[a-z0-9]$`)

const maxDomainLength = 253

// Verification is the outcome of a DNS verification step.
type Verification struct {
	Verified bool
	Biolink  *models.Biolink
}

type Domains struct {
	db      *sql.DB
	cfg     *config.Config
	dns     *dnscheck.Checker
	hosting hosting.Client
	cache   Invalidator
	log     zerolog.Logger
}

// NormalizeHost lowercases host and strips a port and the trailing dot.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

// NormalizeDomain turns user input such as "https://Links.Example.com/" into
// a bare domain and validates it. The app's own domains are rejected.
func (s *Domains) NormalizeDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	d = NormalizeHost(d)

	if d == "" || len(d) > maxDomainLength || !domainPattern.MatchString(d) {
		return "", ErrInvalidDomain
	}
	if s.cfg.IsOwnDomain(d) {
		return "", ErrInvalidDomain
	}
	return d, nil
}

// Set stores a new pending custom domain with a fresh verification token. A
// previously registered domain is released from the hosting provider first.
func (s *Domains) Set(ctx context.Context, userID, raw string) (*models.Biolink, error) {
	if err := requirePremium(ctx, s.db, userID); err != nil {
		return nil, err
	}
	domain, err := s.NormalizeDomain(raw)
	if err != nil {
		return nil, err
	}
	b, err := biolinkForUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if b.CustomDomain == domain {
		return b, nil
	}

	owner, err := models.DomainOwner(ctx, s.db, domain)
	if err != nil {
		return nil, fmt.Errorf("check domain owner: %w", err)
	}
	if owner != "" && owner != b.ID {
		return nil, ErrDomainTaken
	}

	if b.CustomDomain != "" && b.DomainOwnershipVerified {
		if err := s.hosting.RemoveDomain(ctx, b.CustomDomain); err != nil {
			s.log.Error().Err(err).Str("domain", b.CustomDomain).Msg("release previous domain")
			return nil, ErrHostingError
		}
	}

	tok, err := token.Verification()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	if err := models.SetCustomDomain(ctx, s.db, b.ID, domain, tok); err != nil {
		if models.IsUniqueViolation(err, "biolinks.custom_domain") {
			return nil, ErrDomainTaken
		}
		return nil, err
	}
	s.cache.Invalidate(b)
	return s.reload(ctx, b.ID)
}

// VerifyOwnership checks the TXT record and, on a match, registers the domain
// with the hosting provider before marking ownership verified.
func (s *Domains) VerifyOwnership(ctx context.Context, userID string) (*Verification, error) {
	if err := requirePremium(ctx, s.db, userID); err != nil {
		return nil, err
	}
	b, err := biolinkForUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if b.CustomDomain == "" {
		return nil, ErrNoDomain
	}
	if b.DomainOwnershipVerified {
		return &Verification{Verified: true, Biolink: b}, nil
	}

	log := s.log.With().Str("domain", b.CustomDomain).Str("step", "ownership").Logger()
	ok, err := s.dns.VerifyTXT(ctx, b.CustomDomain, b.DomainVerificationToken)
	if err != nil {
		log.Debug().Err(err).Msg("txt lookup failed")
	}
	if !ok {
		metrics.DomainVerifications.WithLabelValues("ownership", "pending").Inc()
		return &Verification{Verified: false, Biolink: b}, nil
	}

	if err := s.hosting.AddDomain(ctx, b.CustomDomain); err != nil {
		metrics.DomainVerifications.WithLabelValues("ownership", "hosting_error").Inc()
		log.Error().Err(err).Msg("register domain")
		return nil, ErrHostingError
	}
	if err := models.MarkOwnershipVerified(ctx, s.db, b.ID); err != nil {
		return nil, err
	}
	metrics.DomainVerifications.WithLabelValues("ownership", "verified").Inc()
	log.Info().Msg("domain ownership verified")

	b, err = s.reload(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return &Verification{Verified: true, Biolink: b}, nil
}

// VerifyCNAME checks that the domain points at the configured CNAME target.
// Once it does the domain is live.
func (s *Domains) VerifyCNAME(ctx context.Context, userID string) (*Verification, error) {
	if err := requirePremium(ctx, s.db, userID); err != nil {
		return nil, err
	}
	b, err := biolinkForUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if b.CustomDomain == "" {
		return nil, ErrNoDomain
	}
	if !b.DomainOwnershipVerified {
		return nil, ErrOwnershipNotVerified
	}
	if b.DomainCNAMEVerified {
		return &Verification{Verified: true, Biolink: b}, nil
	}

	ok, err := s.dns.VerifyCNAME(ctx, b.CustomDomain, s.cfg.CNAMETarget)
	if err != nil {
		s.log.Debug().Err(err).Str("domain", b.CustomDomain).Msg("cname lookup failed")
	}
	if !ok {
		metrics.DomainVerifications.WithLabelValues("cname", "pending").Inc()
		return &Verification{Verified: false, Biolink: b}, nil
	}

	if err := models.MarkCNAMEVerified(ctx, s.db, b.ID); err != nil {
		return nil, err
	}
	metrics.DomainVerifications.WithLabelValues("cname", "verified").Inc()
	s.cache.Invalidate(b)

	b, err = s.reload(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return &Verification{Verified: true, Biolink: b}, nil
}

// Remove releases the domain from the hosting provider, when it was
// registered there, then clears it. Removing with no domain set is a no-op.
func (s *Domains) Remove(ctx context.Context, userID string) (*models.Biolink, error) {
	b, err := biolinkForUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if b.CustomDomain == "" {
		return b, nil
	}

	if b.DomainOwnershipVerified {
		if err := s.hosting.RemoveDomain(ctx, b.CustomDomain); err != nil {
			s.log.Error().Err(err).Str("domain", b.CustomDomain).Msg("remove domain")
			return nil, ErrHostingError
		}
	}
	if err := models.ClearCustomDomain(ctx, s.db, b.ID); err != nil {
		return nil, err
	}
	s.cache.Invalidate(b)
	return s.reload(ctx, b.ID)
}

// Resolve maps a request host to the biolink whose domain is fully verified.
func (s *Domains) Resolve(ctx context.Context, host string) (*models.Biolink, error) {
	b, err := models.GetBiolinkByVerifiedDomain(ctx, s.db, NormalizeHost(host))
	if models.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve domain: %w", err)
	}
	return b, nil
}

func (s *Domains) reload(ctx context.Context, id string) (*models.Biolink, error) {
	b, err := models.GetBiolinkByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("reload biolink: %w", err)
	}
	return b, nil
}
