package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	DBPath   string
	Env      string
	LogLevel string

	// BaseURL is the public origin of the app, used for profile and QR links.
	BaseURL string
	// AppDomains are the product's own domains. They and their subdomains can
	// never be claimed as a custom domain.
	AppDomains  []string
	CNAMETarget string
	LoginURL    string
	AdminEmails []string

	SessionSecret    string
	SessionTTL       time.Duration
	CookieSecret     string
	ViewDedupeWindow time.Duration

	MaxLinksFree    int
	MaxLinksPremium int

	StripeWebhookSecret string

	HostingAPIURL    string
	HostingAPIToken  string
	HostingProjectID string
	HostingTeamID    string

	RedisURL   string
	RateLimit  int
	RateWindow time.Duration

	GeoIPPath     string
	FlushInterval time.Duration
	BufferSize    int
	CacheSize     int
	CacheTTL      time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "./biolinq.db")
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("base_url", "https://biolinq.page")
	v.SetDefault("app_domains", "biolinq.page")
	v.SetDefault("cname_target", "cname.biolinq.page")
	v.SetDefault("login_url", "/login")
	v.SetDefault("admin_emails", "")
	v.SetDefault("session_ttl", "720h")
	v.SetDefault("view_dedupe_window", "30m")
	v.SetDefault("max_links_free", 5)
	v.SetDefault("max_links_premium", 5)
	v.SetDefault("hosting_api_url", "https://api.vercel.com")
	v.SetDefault("rate_limit", 120)
	v.SetDefault("rate_window", "1m")
	v.SetDefault("flush_interval", "30s")
	v.SetDefault("buffer_size", 50000)
	v.SetDefault("cache_size", 10000)
	v.SetDefault("cache_ttl", "1m")
}

// Load reads configuration from BIOLINQ_* environment variables and an
// optional biolinq.yaml in the working directory. Environment wins.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BIOLINQ")
	v.AutomaticEnv()
	v.SetConfigName("biolinq")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:     v.GetString("port"),
		DBPath:   v.GetString("db_path"),
		Env:      v.GetString("env"),
		LogLevel: v.GetString("log_level"),

		BaseURL:     strings.TrimRight(v.GetString("base_url"), "/"),
		AppDomains:  splitList(v.GetString("app_domains")),
		CNAMETarget: strings.ToLower(strings.TrimSuffix(v.GetString("cname_target"), ".")),
		LoginURL:    v.GetString("login_url"),
		AdminEmails: splitList(v.GetString("admin_emails")),

		SessionSecret:    v.GetString("session_secret"),
		SessionTTL:       v.GetDuration("session_ttl"),
		CookieSecret:     v.GetString("cookie_secret"),
		ViewDedupeWindow: v.GetDuration("view_dedupe_window"),

		MaxLinksFree:    v.GetInt("max_links_free"),
		MaxLinksPremium: v.GetInt("max_links_premium"),

		StripeWebhookSecret: v.GetString("stripe_webhook_secret"),

		HostingAPIURL:    strings.TrimRight(v.GetString("hosting_api_url"), "/"),
		HostingAPIToken:  v.GetString("hosting_api_token"),
		HostingProjectID: v.GetString("hosting_project_id"),
		HostingTeamID:    v.GetString("hosting_team_id"),

		RedisURL:   v.GetString("redis_url"),
		RateLimit:  v.GetInt("rate_limit"),
		RateWindow: v.GetDuration("rate_window"),

		GeoIPPath:     v.GetString("geoip_path"),
		FlushInterval: v.GetDuration("flush_interval"),
		BufferSize:    v.GetInt("buffer_size"),
		CacheSize:     v.GetInt("cache_size"),
		CacheTTL:      v.GetDuration("cache_ttl"),
	}
	if cfg.CookieSecret == "" {
		cfg.CookieSecret = cfg.SessionSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and numeric ranges.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("BIOLINQ_SESSION_SECRET is required")
	}
	if len(c.AppDomains) == 0 {
		return fmt.Errorf("BIOLINQ_APP_DOMAINS must list at least one domain")
	}
	if c.IsProduction() {
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("BIOLINQ_SESSION_SECRET must be at least 32 characters in production")
		}
		if c.StripeWebhookSecret == "" {
			return fmt.Errorf("BIOLINQ_STRIPE_WEBHOOK_SECRET is required in production")
		}
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("BIOLINQ_SESSION_TTL must be positive")
	}
	if c.ViewDedupeWindow <= 0 {
		return fmt.Errorf("BIOLINQ_VIEW_DEDUPE_WINDOW must be positive")
	}
	if c.MaxLinksFree <= 0 || c.MaxLinksPremium <= 0 {
		return fmt.Errorf("BIOLINQ_MAX_LINKS_FREE and BIOLINQ_MAX_LINKS_PREMIUM must be positive")
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		return fmt.Errorf("BIOLINQ_RATE_LIMIT and BIOLINQ_RATE_WINDOW must be positive")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("BIOLINQ_FLUSH_INTERVAL must be positive")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("BIOLINQ_BUFFER_SIZE must be positive")
	}
	if c.CacheSize <= 0 || c.CacheTTL <= 0 {
		return fmt.Errorf("BIOLINQ_CACHE_SIZE and BIOLINQ_CACHE_TTL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsOwnDomain reports whether host is one of the app domains or a subdomain
// of one.
func (c *Config) IsOwnDomain(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, d := range c.AppDomains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether email belongs to a configured administrator.
func (c *Config) IsAdmin(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
