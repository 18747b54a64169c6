package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Image            string    `json:"image"`
	IsPremium        bool      `json:"is_premium"`
	StripeCustomerID string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

const userColumns = `id, email, name, image, is_premium, stripe_customer_id, created_at`

func CreateUser(ctx context.Context, q Querier, u *User) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO users (id, email, name, image, is_premium) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Image, u.IsPremium,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return GetUserByID(ctx, q, u)
}

// GetUserByID fills u from the row with u.ID. Returns sql.ErrNoRows when absent.
func GetUserByID(ctx context.Context, q Querier, u *User) error {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, u.ID)
	return row.Scan(&u.ID, &u.Email, &u.Name, &u.Image, &u.IsPremium, &u.StripeCustomerID, &u.CreatedAt)
}

func IsUserPremium(ctx context.Context, q Querier, userID string) (bool, error) {
	var premium bool
	err := q.QueryRowContext(ctx, `SELECT is_premium FROM users WHERE id = ?`, userID).Scan(&premium)
	return premium, err
}

// SetPremium flags the user as premium and records the payment customer.
func SetPremium(ctx context.Context, q Querier, userID, customerID string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE users SET is_premium = 1, stripe_customer_id = CASE WHEN ? = '' THEN stripe_customer_id ELSE ? END WHERE id = ?`,
		customerID, customerID, userID,
	)
	if err != nil {
		return fmt.Errorf("set premium: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func DeleteUser(ctx context.Context, q Querier, userID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func CreateAccount(ctx context.Context, q Querier, userID, provider, providerAccountID string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, provider, provider_account_id) VALUES (?, ?, ?, ?)`,
		NewID(), userID, provider, providerAccountID,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func DeleteAccountsForUser(ctx context.Context, q Querier, userID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete accounts: %w", err)
	}
	return nil
}

func CreateSession(ctx context.Context, q Querier, s *Session) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)`,
		s.ID, s.UserID, s.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func GetSession(ctx context.Context, q Querier, id string) (*Session, error) {
	s := &Session{}
	err := q.QueryRowContext(ctx, `SELECT id, user_id, expires_at FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.UserID, &s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func DeleteSession(ctx context.Context, q Querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func DeleteSessionsForUser(ctx context.Context, q Querier, userID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}
