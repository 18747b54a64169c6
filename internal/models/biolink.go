package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Custom domain states as shown on the dashboard.
const (
	DomainUnset            = "unset"
	DomainPendingOwnership = "pending_ownership"
	DomainPendingCNAME     = "pending_cname"
	DomainLive             = "live"
)

type Biolink struct {
	ID                      string    `json:"id"`
	UserID                  string    `json:"user_id"`
	Username                string    `json:"username"`
	Theme                   string    `json:"theme"`
	CustomPrimaryColor      string    `json:"custom_primary_color"`
	CustomBgColor           string    `json:"custom_bg_color"`
	TotalViews              int64     `json:"total_views"`
	CustomDomain            string    `json:"custom_domain"`
	DomainVerificationToken string    `json:"domain_verification_token"`
	DomainOwnershipVerified bool      `json:"domain_ownership_verified"`
	DomainCNAMEVerified     bool      `json:"domain_cname_verified"`
	GA4MeasurementID        string    `json:"ga4_measurement_id"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// DomainStatus derives the custom domain lifecycle state from the stored flags.
func (b *Biolink) DomainStatus() string {
	switch {
	case b.CustomDomain == "":
		return DomainUnset
	case !b.DomainOwnershipVerified:
		return DomainPendingOwnership
	case !b.DomainCNAMEVerified:
		return DomainPendingCNAME
	default:
		return DomainLive
	}
}

const biolinkColumns = `id, user_id, username, theme, custom_primary_color, custom_bg_color, total_views,
	custom_domain, domain_verification_token, domain_ownership_verified, domain_cname_verified,
	ga4_measurement_id, created_at, updated_at`

func scanBiolink(row *sql.Row) (*Biolink, error) {
	b := &Biolink{}
	var domain sql.NullString
	err := row.Scan(
		&b.ID, &b.UserID, &b.Username, &b.Theme, &b.CustomPrimaryColor, &b.CustomBgColor, &b.TotalViews,
		&domain, &b.DomainVerificationToken, &b.DomainOwnershipVerified, &b.DomainCNAMEVerified,
		&b.GA4MeasurementID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.CustomDomain = domain.String
	return b, nil
}

func CreateBiolink(ctx context.Context, q Querier, b *Biolink) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	if b.Theme == "" {
		b.Theme = "brutalist"
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO biolinks (id, user_id, username, theme) VALUES (?, ?, ?, ?)`,
		b.ID, b.UserID, b.Username, b.Theme,
	)
	if err != nil {
		return fmt.Errorf("insert biolink: %w", err)
	}
	created, err := GetBiolinkByID(ctx, q, b.ID)
	if err != nil {
		return err
	}
	*b = *created
	return nil
}

func GetBiolinkByID(ctx context.Context, q Querier, id string) (*Biolink, error) {
	return scanBiolink(q.QueryRowContext(ctx, `SELECT `+biolinkColumns+` FROM biolinks WHERE id = ?`, id))
}

func GetBiolinkByUserID(ctx context.Context, q Querier, userID string) (*Biolink, error) {
	return scanBiolink(q.QueryRowContext(ctx, `SELECT `+biolinkColumns+` FROM biolinks WHERE user_id = ?`, userID))
}

func GetBiolinkByUsername(ctx context.Context, q Querier, username string) (*Biolink, error) {
	return scanBiolink(q.QueryRowContext(ctx, `SELECT `+biolinkColumns+` FROM biolinks WHERE username = ?`, username))
}

// GetBiolinkByVerifiedDomain only matches domains whose ownership and CNAME
// are both verified.
func GetBiolinkByVerifiedDomain(ctx context.Context, q Querier, domain string) (*Biolink, error) {
	return scanBiolink(q.QueryRowContext(ctx,
		`SELECT `+biolinkColumns+` FROM biolinks
		WHERE custom_domain = ? AND domain_ownership_verified = 1 AND domain_cname_verified = 1`,
		domain,
	))
}

func UsernameExists(ctx context.Context, q Querier, username string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM biolinks WHERE username = ?`, username).Scan(&count)
	return count > 0, err
}

// DomainOwner returns the id of the biolink holding domain, or "" if none.
func DomainOwner(ctx context.Context, q Querier, domain string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM biolinks WHERE custom_domain = ?`, domain).Scan(&id)
	if IsNotFound(err) {
		return "", nil
	}
	return id, err
}

func UpdateTheme(ctx context.Context, q Querier, id, theme, primary, bg string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE biolinks SET theme = ?, custom_primary_color = ?, custom_bg_color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		theme, primary, bg, id,
	)
	if err != nil {
		return fmt.Errorf("update theme: %w", err)
	}
	return nil
}

func UpdateGA4(ctx context.Context, q Querier, id, measurementID string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE biolinks SET ga4_measurement_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		measurementID, id,
	)
	if err != nil {
		return fmt.Errorf("update ga4: %w", err)
	}
	return nil
}

// SetCustomDomain stores a new pending domain and resets both verification flags.
func SetCustomDomain(ctx context.Context, q Querier, id, domain, token string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE biolinks SET custom_domain = ?, domain_verification_token = ?,
			domain_ownership_verified = 0, domain_cname_verified = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		domain, token, id,
	)
	if err != nil {
		return fmt.Errorf("set custom domain: %w", err)
	}
	return nil
}

func ClearCustomDomain(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE biolinks SET custom_domain = NULL, domain_verification_token = '',
			domain_ownership_verified = 0, domain_cname_verified = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("clear custom domain: %w", err)
	}
	return nil
}

func MarkOwnershipVerified(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE biolinks SET domain_ownership_verified = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark ownership verified: %w", err)
	}
	return nil
}

func MarkCNAMEVerified(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE biolinks SET domain_cname_verified = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark cname verified: %w", err)
	}
	return nil
}

// IncrementViews bumps the lifetime view counter. Returns sql.ErrNoRows for
// an unknown biolink.
func IncrementViews(ctx context.Context, q Querier, id string) error {
	res, err := q.ExecContext(ctx, `UPDATE biolinks SET total_views = total_views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func DeleteBiolink(ctx context.Context, q Querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM biolinks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete biolink: %w", err)
	}
	return nil
}
