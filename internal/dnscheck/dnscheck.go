// Package dnscheck verifies the DNS records a user adds for a custom domain.
package dnscheck

import (
	"context"
	"net"
	"strings"
	"time"
)

// TXTPrefix is prepended to the custom domain to form the ownership record name.
const TXTPrefix = "_biolinq-verify."

// Resolver is the subset of *net.Resolver used for verification.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// Checker runs verification lookups with a per-lookup timeout. Lookup errors
// are reported as "not verified" so the user can retry once DNS propagates.
type Checker struct {
	resolver Resolver
	timeout  time.Duration
}

func New(resolver Resolver, timeout time.Duration) *Checker {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Checker{resolver: resolver, timeout: timeout}
}

// TXTRecordName returns the record a user must create to prove ownership.
func TXTRecordName(domain string) string {
	return TXTPrefix + domain
}

// VerifyTXT reports whether any TXT value on the ownership record equals token.
func (c *Checker) VerifyTXT(ctx context.Context, domain, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	records, err := c.resolver.LookupTXT(ctx, TXTRecordName(domain))
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if strings.TrimSpace(r) == token {
			return true, nil
		}
	}
	return false, nil
}

// VerifyCNAME reports whether domain is an alias of target. Case and the
// trailing root dot are ignored.
func (c *Checker) VerifyCNAME(ctx context.Context, domain, target string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cname, err := c.resolver.LookupCNAME(ctx, domain)
	if err != nil {
		return false, err
	}
	return normalize(cname) == normalize(target), nil
}

func normalize(host string) string {
	return strings.ToLower(strings.TrimSuffix(host, "."))
}
