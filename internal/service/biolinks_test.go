package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "a@example.com", false)

	b, err := e.svc.Biolinks.Register(context.Background(), u.ID, "  Alice_01 ")
	require.NoError(t, err)
	assert.Equal(t, "alice_01", b.Username)
	assert.Equal(t, u.ID, b.UserID)
	assert.Equal(t, "brutalist", b.Theme)
}

func TestRegister_Reserved(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "a@example.com", false)

	for _, name := range []string{"admin", "ADMIN", "Dashboard", "go", "API"} {
		_, err := e.svc.Biolinks.Register(context.Background(), u.ID, name)
		assert.Equal(t, CodeUsernameReserved, CodeOf(err), name)
	}
	assert.Zero(t, e.count(t, "biolinks"))
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved(" Static "))
	assert.True(t, IsReserved("www"))
	assert.False(t, IsReserved("alice"))
}

func TestRegister_Invalid(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "a@example.com", false)

	for _, name := range []string{"ab", "has space", "dot.name", "waytoolongusername_123", "émile", ""} {
		_, err := e.svc.Biolinks.Register(context.Background(), u.ID, name)
		assert.Equal(t, CodeUsernameInvalid, CodeOf(err), name)
	}
}

func TestRegister_Taken(t *testing.T) {
	e := newEnv(t)
	e.biolink(t, "alice", false)
	other := e.user(t, "b@example.com", false)

	_, err := e.svc.Biolinks.Register(context.Background(), other.ID, "ALICE")
	assert.Equal(t, CodeUsernameTaken, CodeOf(err))
}

func TestRegister_AlreadyHasBiolink(t *testing.T) {
	e := newEnv(t)
	u, _ := e.biolink(t, "alice", false)

	_, err := e.svc.Biolinks.Register(context.Background(), u.ID, "alice2")
	assert.Equal(t, CodeAlreadyHasBiolink, CodeOf(err))
	assert.Equal(t, 1, e.count(t, "biolinks"))
}

func TestRegister_ConcurrentClaimsOneWinner(t *testing.T) {
	e := newEnv(t)
	const n = 8
	users := make([]string, n)
	for i := range users {
		users[i] = e.user(t, string(rune('a'+i))+"@example.com", false).ID
	}

	errs := make(chan error, n)
	for _, id := range users {
		go func(id string) {
			_, err := e.svc.Biolinks.Register(context.Background(), id, "contested")
			errs <- err
		}(id)
	}

	wins := 0
	for range users {
		err := <-errs
		if err == nil {
			wins++
			continue
		}
		assert.Equal(t, CodeUsernameTaken, CodeOf(err))
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, e.count(t, "biolinks"))
}

func TestCheckAvailability(t *testing.T) {
	e := newEnv(t)
	e.biolink(t, "alice", false)
	ctx := context.Background()

	assert.NoError(t, e.svc.Biolinks.CheckAvailability(ctx, "bob"))
	assert.Equal(t, CodeUsernameTaken, CodeOf(e.svc.Biolinks.CheckAvailability(ctx, "Alice")))
	assert.Equal(t, CodeUsernameReserved, CodeOf(e.svc.Biolinks.CheckAvailability(ctx, "Login")))
	assert.Equal(t, CodeUsernameInvalid, CodeOf(e.svc.Biolinks.CheckAvailability(ctx, "a!")))
}

func TestForUser_NotFound(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "a@example.com", false)
	_, err := e.svc.Biolinks.ForUser(context.Background(), u.ID)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestPageContent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, b := e.biolink(t, "alice", true)
	e.link(t, u.ID, "one")
	e.link(t, u.ID, "two")

	links, premium, err := e.svc.Biolinks.PageContent(ctx, b)
	require.NoError(t, err)
	assert.True(t, premium)
	require.Len(t, links, 2)
	assert.Equal(t, "one", links[0].Title)
	assert.Equal(t, "two", links[1].Title)
}
