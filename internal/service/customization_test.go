package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTheme_FreeThemeOnly(t *testing.T) {
	e := newEnv(t)
	u, _ := e.biolink(t, "alice", false)

	b, err := e.svc.Customization.UpdateTheme(context.Background(), u.ID, ThemeInput{Theme: "Dark"})
	require.NoError(t, err)
	assert.Equal(t, "dark", b.Theme)
	assert.Empty(t, b.CustomPrimaryColor)
}

func TestUpdateTheme_Validation(t *testing.T) {
	e := newEnv(t)
	u, _ := e.biolink(t, "alice", true)
	ctx := context.Background()

	_, err := e.svc.Customization.UpdateTheme(ctx, u.ID, ThemeInput{Theme: "neon"})
	assert.Equal(t, CodeInvalidTheme, CodeOf(err))

	_, err = e.svc.Customization.UpdateTheme(ctx, u.ID, ThemeInput{Theme: "light", PrimaryColor: "red"})
	assert.Equal(t, CodeInvalidColor, CodeOf(err))

	_, err = e.svc.Customization.UpdateTheme(ctx, u.ID, ThemeInput{Theme: "light", BgColor: "#fff"})
	assert.Equal(t, CodeInvalidColor, CodeOf(err))
}

func TestUpdateTheme_ColorsNeedPremium(t *testing.T) {
	e := newEnv(t)
	u, _ := e.biolink(t, "alice", false)

	_, err := e.svc.Customization.UpdateTheme(context.Background(), u.ID, ThemeInput{Theme: "dark", PrimaryColor: "#FF0000"})
	assert.Equal(t, CodePremiumRequired, CodeOf(err))

	b, err := e.svc.Biolinks.ForUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "brutalist", b.Theme, "theme must not change when colours are rejected")
}

func TestUpdateTheme_PremiumColors(t *testing.T) {
	e := newEnv(t)
	u, _ := e.biolink(t, "alice", true)

	b, err := e.svc.Customization.UpdateTheme(context.Background(), u.ID, ThemeInput{
		Theme: "gradient", PrimaryColor: "#FF0000", BgColor: " #00ff00 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "gradient", b.Theme)
	assert.Equal(t, "#ff0000", b.CustomPrimaryColor)
	assert.Equal(t, "#00ff00", b.CustomBgColor)
	assert.Contains(t, e.cache.invalidated, "alice")
}

func TestUpdateGA4(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	free, _ := e.biolink(t, "alice", false)
	premium, _ := e.biolink(t, "bob", true)

	_, err := e.svc.Customization.UpdateGA4(ctx, free.ID, "G-ABC1234")
	assert.Equal(t, CodePremiumRequired, CodeOf(err))

	_, err = e.svc.Customization.UpdateGA4(ctx, premium.ID, "UA-12345-1")
	assert.Equal(t, CodeInvalidGA4ID, CodeOf(err))

	b, err := e.svc.Customization.UpdateGA4(ctx, premium.ID, "g-abc1234")
	require.NoError(t, err)
	assert.Equal(t, "G-ABC1234", b.GA4MeasurementID)

	b, err = e.svc.Customization.UpdateGA4(ctx, free.ID, "")
	require.NoError(t, err)
	assert.Empty(t, b.GA4MeasurementID)
}
