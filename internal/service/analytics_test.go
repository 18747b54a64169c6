package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biolinq/biolinq/internal/models"
)

func TestCTR(t *testing.T) {
	assert.Equal(t, 0.0, ctr(5, 0))
	assert.Equal(t, 50.0, ctr(1, 2))
	assert.Equal(t, 33.3, ctr(1, 3))
}

func TestClampDays(t *testing.T) {
	assert.Equal(t, DefaultReportDays, ClampDays(0))
	assert.Equal(t, 7, ClampDays(7))
	assert.Equal(t, MaxReportDays, ClampDays(10000))
}

func TestReport_Free(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, b := e.biolink(t, "alice", false)
	l := e.link(t, u.ID, "a")

	for range 4 {
		require.NoError(t, e.svc.Tracker.RecordView(ctx, b.ID))
	}
	_, err := e.svc.Tracker.RecordClick(ctx, l.ID)
	require.NoError(t, err)

	r, err := e.svc.Analytics.Report(ctx, u.ID, 30)
	require.NoError(t, err)
	assert.False(t, r.Premium)
	assert.EqualValues(t, 4, r.TotalViews)
	assert.EqualValues(t, 1, r.TotalClicks)
	assert.Equal(t, 25.0, r.CTR)
	assert.Nil(t, r.Links)
	assert.Nil(t, r.Daily)
	assert.Nil(t, r.TopCountries)
}

func TestReport_PremiumZeroFilledSeries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, b := e.biolink(t, "alice", true)
	l1 := e.link(t, u.ID, "one")
	e.link(t, u.ID, "two")

	today := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	e.svc.Tracker.now = func() time.Time { return today.AddDate(0, 0, -2) }
	require.NoError(t, e.svc.Tracker.RecordView(ctx, b.ID))
	_, err := e.svc.Tracker.RecordClick(ctx, l1.ID)
	require.NoError(t, err)

	e.svc.Tracker.now = func() time.Time { return today }
	require.NoError(t, e.svc.Tracker.RecordView(ctx, b.ID))

	require.NoError(t, models.BatchInsertVisits(e.db, []models.Visit{
		{BiolinkID: b.ID, Kind: models.VisitView, OccurredAt: today, Country: "DE", DeviceType: "mobile", RefererDomain: "instagram.com"},
		{BiolinkID: b.ID, Kind: models.VisitView, OccurredAt: today, Country: "DE", DeviceType: "desktop"},
		{BiolinkID: b.ID, Kind: models.VisitView, OccurredAt: today.AddDate(0, 0, -60), Country: "FR"},
	}))

	e.svc.Analytics.now = func() time.Time { return today }
	r, err := e.svc.Analytics.Report(ctx, u.ID, 7)
	require.NoError(t, err)

	assert.True(t, r.Premium)
	require.Len(t, r.Daily, 7)
	assert.Equal(t, "2026-05-04", r.Daily[0].Date)
	assert.Equal(t, "2026-05-10", r.Daily[6].Date)
	assert.EqualValues(t, 1, r.Daily[4].Views)
	assert.EqualValues(t, 1, r.Daily[4].Clicks)
	assert.EqualValues(t, 0, r.Daily[5].Views)
	assert.EqualValues(t, 1, r.Daily[6].Views)

	require.Len(t, r.Links, 2)
	assert.EqualValues(t, 1, r.Links[0].Clicks)
	assert.Equal(t, 50.0, r.Links[0].CTR)

	require.Len(t, r.LinkDaily, 2)
	assert.Equal(t, []int64{0, 0, 0, 0, 1, 0, 0}, r.LinkDaily[0].Clicks)
	assert.Equal(t, []int64{0, 0, 0, 0, 0, 0, 0}, r.LinkDaily[1].Clicks)

	require.Len(t, r.TopCountries, 1, "visits outside the window are excluded")
	assert.Equal(t, models.Bucket{Label: "DE", Count: 2}, r.TopCountries[0])
	assert.Len(t, r.TopDevices, 2)
	assert.Equal(t, []models.Bucket{{Label: "instagram.com", Count: 1}}, r.TopReferrers)
}

func TestReport_NoBiolink(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "a@example.com", true)
	_, err := e.svc.Analytics.Report(context.Background(), u.ID, 30)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}
