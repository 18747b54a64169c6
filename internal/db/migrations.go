package db

import "database/sql"

func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id                 TEXT    PRIMARY KEY,
    email              TEXT    NOT NULL UNIQUE,
    name               TEXT    NOT NULL DEFAULT '',
    image              TEXT    NOT NULL DEFAULT '',
    is_premium         INTEGER NOT NULL DEFAULT 0,
    stripe_customer_id TEXT    NOT NULL DEFAULT '',
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS accounts (
    id                  TEXT NOT NULL PRIMARY KEY,
    user_id             TEXT NOT NULL,
    provider            TEXT NOT NULL,
    provider_account_id TEXT NOT NULL,
    UNIQUE(provider, provider_account_id),
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT     NOT NULL PRIMARY KEY,
    user_id    TEXT     NOT NULL,
    expires_at DATETIME NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);

CREATE TABLE IF NOT EXISTS biolinks (
    id                        TEXT    NOT NULL PRIMARY KEY,
    user_id                   TEXT    NOT NULL UNIQUE,
    username                  TEXT    NOT NULL UNIQUE,
    theme                     TEXT    NOT NULL DEFAULT 'brutalist',
    custom_primary_color      TEXT    NOT NULL DEFAULT '',
    custom_bg_color           TEXT    NOT NULL DEFAULT '',
    total_views               INTEGER NOT NULL DEFAULT 0,
    custom_domain             TEXT    UNIQUE,
    domain_verification_token TEXT    NOT NULL DEFAULT '',
    domain_ownership_verified INTEGER NOT NULL DEFAULT 0,
    domain_cname_verified     INTEGER NOT NULL DEFAULT 0,
    ga4_measurement_id        TEXT    NOT NULL DEFAULT '',
    created_at                DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at                DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS links (
    id           TEXT    NOT NULL PRIMARY KEY,
    biolink_id   TEXT    NOT NULL,
    emoji        TEXT    NOT NULL DEFAULT '',
    title        TEXT    NOT NULL,
    url          TEXT    NOT NULL,
    position     INTEGER NOT NULL,
    total_clicks INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (biolink_id) REFERENCES biolinks(id)
);

CREATE INDEX IF NOT EXISTS idx_links_biolink_position ON links(biolink_id, position);

CREATE TABLE IF NOT EXISTS daily_stats (
    id         TEXT    NOT NULL PRIMARY KEY,
    biolink_id TEXT    NOT NULL,
    date       TEXT    NOT NULL,
    views      INTEGER NOT NULL DEFAULT 0,
    clicks     INTEGER NOT NULL DEFAULT 0,
    UNIQUE(biolink_id, date),
    FOREIGN KEY (biolink_id) REFERENCES biolinks(id)
);

CREATE TABLE IF NOT EXISTS daily_link_clicks (
    id      TEXT    NOT NULL PRIMARY KEY,
    link_id TEXT    NOT NULL,
    date    TEXT    NOT NULL,
    clicks  INTEGER NOT NULL DEFAULT 0,
    UNIQUE(link_id, date),
    FOREIGN KEY (link_id) REFERENCES links(id)
);

CREATE TABLE IF NOT EXISTS visits (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    biolink_id     TEXT    NOT NULL,
    link_id        TEXT    NOT NULL DEFAULT '',
    kind           TEXT    NOT NULL,
    occurred_at    DATETIME NOT NULL,
    referer_domain TEXT    NOT NULL DEFAULT '',
    country        TEXT    NOT NULL DEFAULT '',
    browser        TEXT    NOT NULL DEFAULT '',
    os             TEXT    NOT NULL DEFAULT '',
    device_type    TEXT    NOT NULL DEFAULT '',
    FOREIGN KEY (biolink_id) REFERENCES biolinks(id)
);

CREATE INDEX IF NOT EXISTS idx_visits_biolink_occurred ON visits(biolink_id, occurred_at);

CREATE TABLE IF NOT EXISTS feedback (
    id         TEXT NOT NULL PRIMARY KEY,
    user_id    TEXT,
    emoji      TEXT NOT NULL DEFAULT '',
    comment    TEXT NOT NULL DEFAULT '',
    page       TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id)
);
`
