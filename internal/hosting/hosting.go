// Package hosting registers custom domains with the edge hosting provider so
// it serves TLS and routes traffic for them to this app.
package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Client adds and removes domain aliases on the hosting project.
type Client interface {
	AddDomain(ctx context.Context, domain string) error
	RemoveDomain(ctx context.Context, domain string) error
}

// APIError is a non-2xx response from the hosting API.
type APIError struct {
	Status int
	Code   string
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hosting api: status %d: %s %s", e.Status, e.Code, e.Msg)
}

// Config for the project domains API.
type Config struct {
	BaseURL   string
	Token     string
	ProjectID string
	TeamID    string
	Timeout   time.Duration
}

type HTTPClient struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

// New returns an HTTP client for cfg, or a Noop client when no token is set.
func New(cfg Config, log zerolog.Logger) Client {
	if cfg.Token == "" || cfg.ProjectID == "" {
		log.Warn().Msg("hosting api not configured, custom domains will not be registered")
		return Noop{}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With().Str("component", "hosting").Logger(),
	}
}

func (c *HTTPClient) endpoint(version, suffix string) string {
	u := fmt.Sprintf("%s/%s/projects/%s/domains%s", c.cfg.BaseURL, version, url.PathEscape(c.cfg.ProjectID), suffix)
	if c.cfg.TeamID != "" {
		u += "?teamId=" + url.QueryEscape(c.cfg.TeamID)
	}
	return u
}

// AddDomain attaches domain to the project. A domain already attached to this
// project counts as success.
func (c *HTTPClient) AddDomain(ctx context.Context, domain string) error {
	body, err := json.Marshal(map[string]string{"name": domain})
	if err != nil {
		return err
	}
	err = c.do(ctx, http.MethodPost, c.endpoint("v10", ""), body)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict && apiErr.Code == "domain_already_in_use_by_project" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("add domain %s: %w", domain, err)
	}
	c.log.Info().Str("domain", domain).Msg("domain registered")
	return nil
}

// RemoveDomain detaches domain. An unknown domain counts as success.
func (c *HTTPClient) RemoveDomain(ctx context.Context, domain string) error {
	err := c.do(ctx, http.MethodDelete, c.endpoint("v9", "/"+url.PathEscape(domain)), nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove domain %s: %w", domain, err)
	}
	c.log.Info().Str("domain", domain).Msg("domain removed")
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
	return &APIError{Status: resp.StatusCode, Code: payload.Error.Code, Msg: payload.Error.Message}
}

// Noop accepts every call. Used when the hosting API is not configured.
type Noop struct{}

func (Noop) AddDomain(context.Context, string) error    { return nil }
func (Noop) RemoveDomain(context.Context, string) error { return nil }
