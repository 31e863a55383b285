// Package postgres provides the PostgreSQL implementation of
// storage.SessionStore. It is the production store; the sqlite package is
// its development twin.
package postgres

// Schema contains the SQL statements to create the relational tier for
// PostgreSQL. All statements are idempotent.
const Schema = `
-- Sessions: the hot-tier unit of ownership. updated_at is the archival clock.
CREATE TABLE IF NOT EXISTS sessions (
    id         UUID PRIMARY KEY,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    status     SMALLINT NOT NULL DEFAULT 1,
    title      TEXT,
    metadata   JSONB
);

CREATE INDEX IF NOT EXISTS idx_sessions_status_updated_at ON sessions(status, updated_at);

-- Hot-tier messages; embedding is stored as packed little-endian float32
-- BYTEA, and mirrored into embedding_vec when pgvector is available.
CREATE TABLE IF NOT EXISTS messages (
    id         UUID PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    embedding  BYTEA,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);

-- Cold-tier archive: no embedding, session_id is a weak reference (no FK).
CREATE TABLE IF NOT EXISTS messages_archive (
    id         UUID PRIMARY KEY,
    session_id UUID NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_archive_session_id ON messages_archive(session_id);

-- Compression summaries, append-only.
CREATE TABLE IF NOT EXISTS session_summaries (
    id               UUID PRIMARY KEY,
    session_id       UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    strategy         TEXT NOT NULL,
    strategy_version TEXT,
    summary_text     TEXT,
    summary_json     JSONB NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_session_summaries_session_id ON session_summaries(session_id);

-- Audit log; rows outlive the resources they describe.
CREATE TABLE IF NOT EXISTS audit_logs (
    id            UUID PRIMARY KEY,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    action        TEXT NOT NULL,
    resource_type TEXT NOT NULL,
    resource_id   TEXT,
    details       JSONB
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_resource_id ON audit_logs(resource_id);

-- AI team roles, ability bindings, and prompt version history.
CREATE TABLE IF NOT EXISTS employee_roles (
    name          TEXT PRIMARY KEY,
    description   TEXT,
    status        TEXT NOT NULL DEFAULT 'enabled',
    default_model TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS role_abilities (
    role_name  TEXT NOT NULL REFERENCES employee_roles(name) ON DELETE CASCADE,
    ability_id TEXT NOT NULL,
    PRIMARY KEY (role_name, ability_id)
);

CREATE TABLE IF NOT EXISTS prompt_versions (
    id         UUID PRIMARY KEY,
    role_name  TEXT NOT NULL REFERENCES employee_roles(name) ON DELETE CASCADE,
    content    TEXT NOT NULL,
    version    INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_prompt_versions_role_name ON prompt_versions(role_name);
`

// MigrationPgvector adds the native vector column for cosine-distance
// queries. Applied only when the pgvector extension is available.
const MigrationPgvector = `
ALTER TABLE messages ADD COLUMN IF NOT EXISTS embedding_vec vector(1536);
CREATE INDEX IF NOT EXISTS idx_messages_embedding_vec
    ON messages USING ivfflat (embedding_vec vector_cosine_ops) WITH (lists = 100);
`
