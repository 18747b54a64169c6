package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/auth"
	"github.com/biolinq/biolinq/internal/config"
	"github.com/biolinq/biolinq/internal/db"
	"github.com/biolinq/biolinq/internal/models"
	"github.com/biolinq/biolinq/internal/service"
)

type weighted struct {
	value  string
	weight float64
}

var referrers = []weighted{
	{"instagram.com", 30},
	{"", 20}, // direct traffic
	{"tiktok.com", 18},
	{"twitter.com", 10},
	{"youtube.com", 8},
	{"linkedin.com", 5},
	{"google.com", 4},
	{"reddit.com", 3},
	{"t.co", 2},
}

var countries = []weighted{
	{"US", 25}, {"IN", 15}, {"BR", 9}, {"GB", 8}, {"DE", 7}, {"FR", 5},
	{"CA", 4}, {"MX", 4}, {"ID", 3}, {"AU", 3}, {"JP", 2}, {"ES", 2},
	{"NL", 2}, {"PH", 2}, {"NG", 1}, {"TR", 1},
}

var browsers = []weighted{
	{"Instagram", 30}, {"Chrome", 28}, {"Safari", 25}, {"Firefox", 5}, {"Edge", 4}, {"TikTok", 8},
}

var oses = []weighted{
	{"iOS", 45}, {"Android", 35}, {"Windows", 10}, {"macOS", 7}, {"Linux", 3},
}

var devices = []weighted{
	{"mobile", 78}, {"desktop", 18}, {"tablet", 4},
}

var themes = []string{"brutalist", "light", "dark", "gradient"}

var usernameChars = regexp.MustCompile(`[^a-z0-9_-]+`)

type seeder struct {
	f   *gofakeit.Faker
	db  *sql.DB
	svc *service.Services
	now time.Time
}

func (s *seeder) pick(items []weighted) string {
	var total float64
	for _, it := range items {
		total += it.weight
	}
	v := s.f.Float64() * total
	for _, it := range items {
		v -= it.weight
		if v <= 0 {
			return it.value
		}
	}
	return items[len(items)-1].value
}

func main() {
	users := flag.Int("users", 25, "number of users to create")
	days := flag.Int("days", 90, "days of history to generate")
	flag.Parse()

	dbPath := os.Getenv("BIOLINQ_DB_PATH")
	if dbPath == "" {
		dbPath = "./biolinq.db"
	}
	secret := os.Getenv("BIOLINQ_SESSION_SECRET")
	if secret == "" {
		secret = "dev-secret"
	}

	database, err := db.Open(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer database.Close()

	cfg := &config.Config{
		BaseURL:         "http://localhost:8080",
		AppDomains:      []string{"localhost"},
		MaxLinksFree:    5,
		MaxLinksPremium: 5,
	}
	s := &seeder{
		f:   gofakeit.New(42), // deterministic seed
		db:  database,
		svc: service.New(service.Deps{DB: database, Cfg: cfg, Log: zerolog.Nop()}),
		now: time.Now().UTC(),
	}
	ctx := context.Background()

	fmt.Println("Seeding biolinks...")

	var (
		firstUser   string
		totalViews  int64
		totalClicks int64
	)
	for i := 0; i < *users; i++ {
		u := &models.User{
			Email:     s.f.Email(),
			Name:      s.f.Name(),
			Image:     s.f.ImageURL(128, 128),
			IsPremium: i%3 == 0,
		}
		if err := models.CreateUser(ctx, database, u); err != nil {
			log.Fatalf("create user: %v", err)
		}
		if firstUser == "" {
			firstUser = u.ID
		}

		b, err := s.register(ctx, u.ID)
		if err != nil {
			log.Fatalf("register biolink: %v", err)
		}
		in := service.ThemeInput{Theme: themes[s.f.Number(0, len(themes)-1)]}
		if u.IsPremium {
			in.PrimaryColor = s.f.HexColor()
		}
		if _, err := s.svc.Customization.UpdateTheme(ctx, u.ID, in); err != nil {
			log.Fatalf("theme for %s: %v", b.Username, err)
		}

		links, err := s.links(ctx, u.ID, u.IsPremium)
		if err != nil {
			log.Fatalf("links for %s: %v", b.Username, err)
		}

		views, clicks, err := s.history(ctx, b, links, *days)
		if err != nil {
			log.Fatalf("history for %s: %v", b.Username, err)
		}
		totalViews += views
		totalClicks += clicks

		plan := "free"
		if u.IsPremium {
			plan = "premium"
		}
		fmt.Printf("  @%-20s %-7s %d links  %6d views  %5d clicks\n", b.Username, plan, len(links), views, clicks)
	}

	sessions := auth.NewManager(database, secret, 30*24*time.Hour, false)
	token, err := sessions.Issue(ctx, firstUser)
	if err != nil {
		log.Fatalf("issue session: %v", err)
	}

	fmt.Printf("\nDone! Created %d biolinks with %d views and %d clicks.\n", *users, totalViews, totalClicks)
	fmt.Printf("Database: %s\n", dbPath)
	fmt.Printf("Session cookie for the first user (%s=...):\n%s\n", auth.CookieName, token)
}

// register claims a username derived from a fake handle, retrying with a
// numeric suffix when it is taken or rejected.
func (s *seeder) register(ctx context.Context, userID string) (*models.Biolink, error) {
	base := usernameChars.ReplaceAllString(strings.ToLower(s.f.Username()), "")
	if len(base) > 16 {
		base = base[:16]
	}
	for len(base) < 3 {
		base += "x"
	}

	name := base
	for attempt := 1; attempt <= 20; attempt++ {
		b, err := s.svc.Biolinks.Register(ctx, userID, name)
		switch service.CodeOf(err) {
		case "":
			if err != nil {
				return nil, err
			}
			return b, nil
		case service.CodeUsernameTaken, service.CodeUsernameReserved, service.CodeUsernameInvalid:
			name = fmt.Sprintf("%s%d", base, attempt)
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("no free username for %q", base)
}

func (s *seeder) links(ctx context.Context, userID string, premium bool) ([]models.Link, error) {
	n := s.f.Number(2, s.svc.Links.Cap(premium))
	out := make([]models.Link, 0, n)
	for i := 0; i < n; i++ {
		title := strings.TrimSpace(s.f.HipsterWord() + " " + s.f.BuzzWord())
		if len(title) > 50 {
			title = title[:50]
		}
		l, err := s.svc.Links.Create(ctx, userID, service.LinkInput{
			Emoji: s.f.Emoji(),
			Title: title,
			URL:   s.f.URL(),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, nil
}

// history backfills the rollup tables and the visit log for the last n days
// and brings the stored counters in line with them.
func (s *seeder) history(ctx context.Context, b *models.Biolink, links []models.Link, n int) (int64, int64, error) {
	popularity := s.f.Float64Range(5, 120)
	var (
		visits      []models.Visit
		totalViews  int64
		totalClicks int64
		linkClicks  = make([]int64, len(links))
	)

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for d := n - 1; d >= 0; d-- {
			day := s.now.AddDate(0, 0, -d)
			growth := 0.5 + float64(n-d)/float64(n)
			factor := 1.0
			if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
				factor = 1.3
			}
			views := int64(popularity * growth * factor * s.f.Float64Range(0.6, 1.4))

			var clicks int64
			for i := range links {
				// Earlier positions get more of the traffic.
				share := 0.35 / float64(i+1)
				c := int64(float64(views) * share * s.f.Float64Range(0.5, 1.5))
				if c == 0 {
					continue
				}
				clicks += c
				linkClicks[i] += c
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO daily_link_clicks (id, link_id, date, clicks) VALUES (?, ?, ?, ?)`,
					models.NewID(), links[i].ID, models.Day(day), c,
				); err != nil {
					return fmt.Errorf("insert link rollup: %w", err)
				}
				for j := int64(0); j < c; j++ {
					visits = append(visits, s.visit(b.ID, links[i].ID, models.VisitClick, day))
				}
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO daily_stats (id, biolink_id, date, views, clicks) VALUES (?, ?, ?, ?, ?)`,
				models.NewID(), b.ID, models.Day(day), views, clicks,
			); err != nil {
				return fmt.Errorf("insert rollup: %w", err)
			}
			for j := int64(0); j < views; j++ {
				visits = append(visits, s.visit(b.ID, "", models.VisitView, day))
			}
			totalViews += views
			totalClicks += clicks
		}

		if _, err := tx.ExecContext(ctx, `UPDATE biolinks SET total_views = ? WHERE id = ?`, totalViews, b.ID); err != nil {
			return err
		}
		for i, l := range links {
			if _, err := tx.ExecContext(ctx, `UPDATE links SET total_clicks = ? WHERE id = ?`, linkClicks[i], l.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	// Flush in batches of 500
	for len(visits) > 0 {
		n := min(500, len(visits))
		if err := models.BatchInsertVisits(s.db, visits[:n]); err != nil {
			return 0, 0, fmt.Errorf("insert visits: %w", err)
		}
		visits = visits[n:]
	}
	return totalViews, totalClicks, nil
}

func (s *seeder) visit(biolinkID, linkID, kind string, day time.Time) models.Visit {
	// Random time during the day, weighted toward the evening
	hour := int(s.f.Float64Range(0, 1)*s.f.Float64Range(0, 1)*14) + 9
	at := time.Date(day.Year(), day.Month(), day.Day(), hour%24, s.f.Number(0, 59), s.f.Number(0, 59), 0, time.UTC)
	if at.After(s.now) {
		at = s.now
	}
	return models.Visit{
		BiolinkID:     biolinkID,
		LinkID:        linkID,
		Kind:          kind,
		OccurredAt:    at,
		RefererDomain: s.pick(referrers),
		Country:       s.pick(countries),
		Browser:       s.pick(browsers),
		OS:            s.pick(oses),
		DeviceType:    s.pick(devices),
	}
}
