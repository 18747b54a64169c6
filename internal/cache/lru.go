package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/biolinq/biolinq/internal/models"
)

// ProfileCache holds public profile lookups keyed by username or custom
// domain. Entries expire after ttl so premium flags and link edits made by
// other instances show up without explicit invalidation.
type ProfileCache struct {
	c *expirable.LRU[string, *Profile]
}

// Profile is everything the public page needs to render.
type Profile struct {
	Biolink   *models.Biolink
	Links     []models.Link
	IsPremium bool
}

func New(size int, ttl time.Duration) *ProfileCache {
	return &ProfileCache{c: expirable.NewLRU[string, *Profile](size, nil, ttl)}
}

func usernameKey(username string) string {
	return "u:" + strings.ToLower(username)
}

func domainKey(domain string) string {
	return "d:" + strings.ToLower(domain)
}

func (pc *ProfileCache) GetByUsername(username string) (*Profile, bool) {
	return pc.c.Get(usernameKey(username))
}

func (pc *ProfileCache) GetByDomain(domain string) (*Profile, bool) {
	return pc.c.Get(domainKey(domain))
}

// Set stores p under its username and, when live, its custom domain.
func (pc *ProfileCache) Set(p *Profile) {
	pc.c.Add(usernameKey(p.Biolink.Username), p)
	if p.Biolink.DomainStatus() == models.DomainLive {
		pc.c.Add(domainKey(p.Biolink.CustomDomain), p)
	}
}

// Invalidate drops every entry belonging to b.
func (pc *ProfileCache) Invalidate(b *models.Biolink) {
	if b == nil {
		return
	}
	pc.c.Remove(usernameKey(b.Username))
	if b.CustomDomain != "" {
		pc.c.Remove(domainKey(b.CustomDomain))
	}
}

func (pc *ProfileCache) Len() int {
	return pc.c.Len()
}
