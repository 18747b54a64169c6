package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biolinq/biolinq/internal/models"
)

// liveDomain takes a premium user's domain through both verification steps.
func (e *env) liveDomain(t *testing.T, userID, domain string) *models.Biolink {
	t.Helper()
	ctx := context.Background()
	b, err := e.svc.Domains.Set(ctx, userID, domain)
	require.NoError(t, err)
	e.resolver.txt["_biolinq-verify."+domain] = []string{b.DomainVerificationToken}
	e.resolver.cname[domain] = "cname.biolinq.page."

	v, err := e.svc.Domains.VerifyOwnership(ctx, userID)
	require.NoError(t, err)
	require.True(t, v.Verified)
	v, err = e.svc.Domains.VerifyCNAME(ctx, userID)
	require.NoError(t, err)
	require.True(t, v.Verified)
	return v.Biolink
}

func TestNormalizeDomain(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		in   string
		want string
		code Code
	}{
		{"links.alice.com", "links.alice.com", ""},
		{"  HTTPS://Links.Alice.com/path?q=1 ", "links.alice.com", ""},
		{"alice.co.uk.", "alice.co.uk", ""},
		{"links.alice.com:443", "links.alice.com", ""},
		{"biolinq.page", "", CodeInvalidDomain},
		{"alice.biolinq.page", "", CodeInvalidDomain},
		{"BIOLINQ.PAGE", "", CodeInvalidDomain},
		{"localhost", "", CodeInvalidDomain},
		{"-bad.com", "", CodeInvalidDomain},
		{"under_score.com", "", CodeInvalidDomain},
		{"", "", CodeInvalidDomain},
	}
	for _, tt := range tests {
		got, err := e.svc.Domains.NormalizeDomain(tt.in)
		assert.Equal(t, tt.code, CodeOf(err), tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSetDomain_RequiresPremium(t *testing.T) {
	e := newEnv(t)
	u, _ := e.biolink(t, "alice", false)
	_, err := e.svc.Domains.Set(context.Background(), u.ID, "links.alice.com")
	assert.Equal(t, CodePremiumRequired, CodeOf(err))
}

func TestSetDomain_PendingOwnership(t *testing.T) {
	e := newEnv(t)
	u, _ := e.biolink(t, "alice", true)

	b, err := e.svc.Domains.Set(context.Background(), u.ID, "Links.Alice.com")
	require.NoError(t, err)
	assert.Equal(t, "links.alice.com", b.CustomDomain)
	assert.Len(t, b.DomainVerificationToken, 32)
	assert.Equal(t, models.DomainPendingOwnership, b.DomainStatus())
}

func TestSetDomain_Taken(t *testing.T) {
	e := newEnv(t)
	alice, _ := e.biolink(t, "alice", true)
	bob, _ := e.biolink(t, "bob", true)

	_, err := e.svc.Domains.Set(context.Background(), alice.ID, "shared.com")
	require.NoError(t, err)
	_, err = e.svc.Domains.Set(context.Background(), bob.ID, "shared.com")
	assert.Equal(t, CodeDomainTaken, CodeOf(err))
}

func TestSetDomain_ReleasesPreviousRegisteredDomain(t *testing.T) {
	e := newEnv(t)
	u, _ := e.biolink(t, "alice", true)
	e.liveDomain(t, u.ID, "old.alice.com")

	b, err := e.svc.Domains.Set(context.Background(), u.ID, "new.alice.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"old.alice.com"}, e.hosting.removed)
	assert.Equal(t, models.DomainPendingOwnership, b.DomainStatus())
}

func TestSetDomain_AbortsWhenReleaseFails(t *testing.T) {
	e := newEnv(t)
	u, _ := e.biolink(t, "alice", true)
	e.liveDomain(t, u.ID, "old.alice.com")
	e.hosting.removeErr = errors.New("boom")

	_, err := e.svc.Domains.Set(context.Background(), u.ID, "new.alice.com")
	assert.Equal(t, CodeHostingError, CodeOf(err))

	b, err := e.svc.Biolinks.ForUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "old.alice.com", b.CustomDomain)
}

func TestVerifyOwnership_Flow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.biolink(t, "alice", true)

	_, err := e.svc.Domains.VerifyOwnership(ctx, u.ID)
	assert.Equal(t, CodeNoDomain, CodeOf(err))

	b, err := e.svc.Domains.Set(ctx, u.ID, "links.alice.com")
	require.NoError(t, err)

	// DNS not propagated yet: soft failure.
	v, err := e.svc.Domains.VerifyOwnership(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, v.Verified)

	e.resolver.txt["_biolinq-verify.links.alice.com"] = []string{"wrong"}
	v, err = e.svc.Domains.VerifyOwnership(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, v.Verified)
	assert.Empty(t, e.hosting.added)

	e.resolver.txt["_biolinq-verify.links.alice.com"] = []string{b.DomainVerificationToken}
	v, err = e.svc.Domains.VerifyOwnership(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.Equal(t, models.DomainPendingCNAME, v.Biolink.DomainStatus())
	assert.Equal(t, []string{"links.alice.com"}, e.hosting.added)
}

func TestVerifyOwnership_HostingFailureFailsClosed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.biolink(t, "alice", true)
	b, err := e.svc.Domains.Set(ctx, u.ID, "links.alice.com")
	require.NoError(t, err)
	e.resolver.txt["_biolinq-verify.links.alice.com"] = []string{b.DomainVerificationToken}
	e.hosting.addErr = errors.New("quota exceeded")

	_, err = e.svc.Domains.VerifyOwnership(ctx, u.ID)
	assert.Equal(t, CodeHostingError, CodeOf(err))

	b, err = e.svc.Biolinks.ForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, b.DomainOwnershipVerified)
}

func TestVerifyCNAME(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.biolink(t, "alice", true)
	b, err := e.svc.Domains.Set(ctx, u.ID, "links.alice.com")
	require.NoError(t, err)

	_, err = e.svc.Domains.VerifyCNAME(ctx, u.ID)
	assert.Equal(t, CodeOwnershipNotVerified, CodeOf(err))

	e.resolver.txt["_biolinq-verify.links.alice.com"] = []string{b.DomainVerificationToken}
	_, err = e.svc.Domains.VerifyOwnership(ctx, u.ID)
	require.NoError(t, err)

	e.resolver.cname["links.alice.com"] = "somewhere.else."
	v, err := e.svc.Domains.VerifyCNAME(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, v.Verified)

	e.resolver.cname["links.alice.com"] = "CNAME.biolinq.page."
	v, err = e.svc.Domains.VerifyCNAME(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.Equal(t, models.DomainLive, v.Biolink.DomainStatus())
}

func TestResolve(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, b := e.biolink(t, "alice", true)

	_, err := e.svc.Domains.Set(ctx, u.ID, "links.alice.com")
	require.NoError(t, err)
	_, err = e.svc.Domains.Resolve(ctx, "links.alice.com")
	assert.Equal(t, CodeNotFound, CodeOf(err), "pending domains must not resolve")

	e.liveDomain(t, u.ID, "links.alice.com")
	got, err := e.svc.Domains.Resolve(ctx, "LINKS.alice.com:443")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestRemoveDomain(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.biolink(t, "alice", true)
	e.liveDomain(t, u.ID, "links.alice.com")

	// Removal works even after premium lapses.
	_, err := e.db.Exec(`UPDATE users SET is_premium = 0 WHERE id = ?`, u.ID)
	require.NoError(t, err)

	b, err := e.svc.Domains.Remove(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DomainUnset, b.DomainStatus())
	assert.Equal(t, []string{"links.alice.com"}, e.hosting.removed)
}

func TestRemoveDomain_HostingFailureKeepsDomain(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.biolink(t, "alice", true)
	e.liveDomain(t, u.ID, "links.alice.com")
	e.hosting.removeErr = errors.New("down")

	_, err := e.svc.Domains.Remove(ctx, u.ID)
	assert.Equal(t, CodeHostingError, CodeOf(err))

	b, err := e.svc.Biolinks.ForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DomainLive, b.DomainStatus())
}

func TestRemoveDomain_PendingSkipsHosting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.biolink(t, "alice", true)
	_, err := e.svc.Domains.Set(ctx, u.ID, "links.alice.com")
	require.NoError(t, err)
	e.hosting.removeErr = errors.New("should not be called")

	b, err := e.svc.Domains.Remove(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, b.CustomDomain)
}
