package postgres

// Schema bootstraps the tables this service owns. Production deployments run
// migrations out of band; this is for local setup and integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id              TEXT PRIMARY KEY,
    username        TEXT NOT NULL UNIQUE,
    role            TEXT NOT NULL,
    registered_at   TIMESTAMPTZ NOT NULL,
    last_active_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS access_codes (
    id                      TEXT PRIMARY KEY,
    code                    TEXT NOT NULL UNIQUE,
    user_id                 TEXT NOT NULL REFERENCES users(id),
    generated_by_manager_id TEXT REFERENCES users(id),
    payment_amount          BIGINT NOT NULL,
    duration_days           INT NOT NULL,
    payment_tier            TEXT NOT NULL,
    expires_at              TIMESTAMPTZ NOT NULL,
    is_used                 BOOLEAN NOT NULL DEFAULT FALSE,
    used_at                 TIMESTAMPTZ,
    attempt_count           INT NOT NULL DEFAULT 0,
    is_blocked              BOOLEAN NOT NULL DEFAULT FALSE,
    blocked_until           TIMESTAMPTZ,
    created_at              TIMESTAMPTZ NOT NULL,
    updated_at              TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_access_codes_user ON access_codes (user_id);
CREATE INDEX IF NOT EXISTS idx_access_codes_active
    ON access_codes (user_id, expires_at) WHERE is_used = FALSE;
`
