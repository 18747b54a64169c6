package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/biolinq/biolinq/internal/models"
)

const (
	DefaultReportDays = 30
	MaxReportDays     = 365
	topN              = 5
)

// LinkStat is a link's lifetime clicks and share of profile views.
type LinkStat struct {
	ID     string  `json:"id"`
	Emoji  string  `json:"emoji"`
	Title  string  `json:"title"`
	Clicks int64   `json:"clicks"`
	CTR    float64 `json:"ctr"`
}

// LinkSeries is one link's clicks per day, aligned with Report.Daily.
type LinkSeries struct {
	LinkID string  `json:"link_id"`
	Title  string  `json:"title"`
	Clicks []int64 `json:"clicks"`
}

// Report is the analytics view for one biolink. Fields after CTR are only
// filled for premium users.
type Report struct {
	Premium     bool    `json:"premium"`
	Days        int     `json:"days"`
	TotalViews  int64   `json:"total_views"`
	TotalClicks int64   `json:"total_clicks"`
	CTR         float64 `json:"ctr"`

	Links        []LinkStat         `json:"links,omitempty"`
	Daily        []models.DailyStat `json:"daily,omitempty"`
	LinkDaily    []LinkSeries       `json:"link_daily,omitempty"`
	TopReferrers []models.Bucket    `json:"top_referrers,omitempty"`
	TopCountries []models.Bucket    `json:"top_countries,omitempty"`
	TopDevices   []models.Bucket    `json:"top_devices,omitempty"`
}

type Analytics struct {
	db  *sql.DB
	now func() time.Time
}

// ctr returns clicks per view as a percentage with one decimal.
func ctr(clicks, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return math.Round(float64(clicks)/float64(views)*1000) / 10
}

// ClampDays bounds a requested report window.
func ClampDays(days int) int {
	if days <= 0 {
		return DefaultReportDays
	}
	if days > MaxReportDays {
		return MaxReportDays
	}
	return days
}

func (s *Analytics) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Report builds the analytics for the user's biolink over the last days.
func (s *Analytics) Report(ctx context.Context, userID string, days int) (*Report, error) {
	days = ClampDays(days)
	b, err := biolinkForUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	premium, err := models.IsUserPremium(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("check premium: %w", err)
	}
	links, err := models.ListLinks(ctx, s.db, b.ID)
	if err != nil {
		return nil, err
	}

	r := &Report{Premium: premium, Days: days, TotalViews: b.TotalViews}
	for _, l := range links {
		r.TotalClicks += l.TotalClicks
	}
	r.CTR = ctr(r.TotalClicks, r.TotalViews)
	if !premium {
		return r, nil
	}

	for _, l := range links {
		r.Links = append(r.Links, LinkStat{
			ID: l.ID, Emoji: l.Emoji, Title: l.Title,
			Clicks: l.TotalClicks, CTR: ctr(l.TotalClicks, r.TotalViews),
		})
	}

	now := s.clock().UTC()
	start := now.AddDate(0, 0, -(days - 1))
	dates := dayRange(start, days)
	since := dates[0]

	stats, err := models.DailyStatsSince(ctx, s.db, b.ID, since)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]models.DailyStat, len(stats))
	for _, st := range stats {
		byDate[st.Date] = st
	}
	r.Daily = make([]models.DailyStat, len(dates))
	index := make(map[string]int, len(dates))
	for i, d := range dates {
		st := byDate[d]
		st.Date = d
		r.Daily[i] = st
		index[d] = i
	}

	linkClicks, err := models.DailyLinkClicksSince(ctx, s.db, b.ID, since)
	if err != nil {
		return nil, err
	}
	seriesByLink := make(map[string]*LinkSeries, len(links))
	for _, l := range links {
		r.LinkDaily = append(r.LinkDaily, LinkSeries{LinkID: l.ID, Title: l.Title, Clicks: make([]int64, len(dates))})
	}
	for i := range r.LinkDaily {
		seriesByLink[r.LinkDaily[i].LinkID] = &r.LinkDaily[i]
	}
	for _, c := range linkClicks {
		series, ok := seriesByLink[c.LinkID]
		if !ok {
			continue
		}
		if i, ok := index[c.Date]; ok {
			series.Clicks[i] = c.Clicks
		}
	}

	cutoff := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	if r.TopReferrers, err = models.TopReferrers(ctx, s.db, b.ID, cutoff, topN); err != nil {
		return nil, err
	}
	if r.TopCountries, err = models.TopCountries(ctx, s.db, b.ID, cutoff, topN); err != nil {
		return nil, err
	}
	if r.TopDevices, err = models.TopDevices(ctx, s.db, b.ID, cutoff, topN); err != nil {
		return nil, err
	}
	return r, nil
}

// dayRange returns n consecutive UTC dates starting at start.
func dayRange(start time.Time, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = models.Day(start.AddDate(0, 0, i))
	}
	return out
}
