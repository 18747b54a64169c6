package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/biolinq/biolinq/internal/config"
	"github.com/biolinq/biolinq/internal/db"
	"github.com/biolinq/biolinq/internal/dnscheck"
	"github.com/biolinq/biolinq/internal/models"
)

type fakeResolver struct {
	txt   map[string][]string
	cname map[string]string
}

func (f *fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	if v, ok := f.txt[name]; ok {
		return v, nil
	}
	return nil, errors.New("no such host")
}

func (f *fakeResolver) LookupCNAME(_ context.Context, host string) (string, error) {
	if v, ok := f.cname[host]; ok {
		return v, nil
	}
	return "", errors.New("no such host")
}

type fakeHosting struct {
	mu        sync.Mutex
	added     []string
	removed   []string
	addErr    error
	removeErr error
	// onRemove runs before RemoveDomain returns, to observe store state.
	onRemove func()
}

func (f *fakeHosting) AddDomain(_ context.Context, domain string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, domain)
	return nil
}

func (f *fakeHosting) RemoveDomain(_ context.Context, domain string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onRemove != nil {
		f.onRemove()
	}
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, domain)
	return nil
}

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Invalidate(b *models.Biolink) {
	if b != nil {
		c.invalidated = append(c.invalidated, b.Username)
	}
}

type env struct {
	db       *sql.DB
	cfg      *config.Config
	resolver *fakeResolver
	hosting  *fakeHosting
	cache    *recordingCache
	svc      *Services
}

func testConfig() *config.Config {
	return &config.Config{
		AppDomains:      []string{"biolinq.page"},
		CNAMETarget:     "cname.biolinq.page",
		MaxLinksFree:    5,
		MaxLinksPremium: 5,
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	e := &env{
		db:       database,
		cfg:      testConfig(),
		resolver: &fakeResolver{txt: map[string][]string{}, cname: map[string]string{}},
		hosting:  &fakeHosting{},
		cache:    &recordingCache{},
	}
	e.svc = New(Deps{
		DB:      database,
		Cfg:     e.cfg,
		Log:     zerolog.Nop(),
		Cache:   e.cache,
		DNS:     dnscheck.New(e.resolver, time.Second),
		Hosting: e.hosting,
	})
	return e
}

func (e *env) user(t *testing.T, email string, premium bool) *models.User {
	t.Helper()
	u := &models.User{Email: email, IsPremium: premium}
	require.NoError(t, models.CreateUser(context.Background(), e.db, u))
	return u
}

// biolink creates a user with a registered username.
func (e *env) biolink(t *testing.T, username string, premium bool) (*models.User, *models.Biolink) {
	t.Helper()
	u := e.user(t, username+"@example.com", premium)
	b, err := e.svc.Biolinks.Register(context.Background(), u.ID, username)
	require.NoError(t, err)
	return u, b
}

func (e *env) link(t *testing.T, userID, title string) *models.Link {
	t.Helper()
	l, err := e.svc.Links.Create(context.Background(), userID, LinkInput{Title: title, URL: "https://example.com/" + title})
	require.NoError(t, err)
	return l
}

func (e *env) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}
