package sqlite

// Schema contains the SQL statements to create the relational tier for
// SQLite. Timestamps are stored as fixed-width UTC text so lexicographic
// comparison matches chronological order. All statements are idempotent.
const Schema = `
-- Sessions: the hot-tier unit of ownership. updated_at is the archival clock.
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    updated_at TEXT NOT NULL,
    status     INTEGER NOT NULL DEFAULT 1,
    title      TEXT,
    metadata   TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_status_updated_at ON sessions(status, updated_at);

-- Hot-tier messages; embedding is a packed little-endian float32 vector.
CREATE TABLE IF NOT EXISTS messages (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    embedding  BLOB,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);

-- Cold-tier archive: no embedding, session_id is a weak reference (no FK).
CREATE TABLE IF NOT EXISTS messages_archive (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_archive_session_id ON messages_archive(session_id);

-- Compression summaries, append-only.
CREATE TABLE IF NOT EXISTS session_summaries (
    id               TEXT PRIMARY KEY,
    session_id       TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    strategy         TEXT NOT NULL,
    strategy_version TEXT,
    summary_text     TEXT,
    summary_json     TEXT NOT NULL,
    created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_summaries_session_id ON session_summaries(session_id);

-- Audit log; rows outlive the resources they describe.
CREATE TABLE IF NOT EXISTS audit_logs (
    id            TEXT PRIMARY KEY,
    created_at    TEXT NOT NULL,
    action        TEXT NOT NULL,
    resource_type TEXT NOT NULL,
    resource_id   TEXT,
    details       TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_resource_id ON audit_logs(resource_id);

-- AI team roles, ability bindings, and prompt version history.
CREATE TABLE IF NOT EXISTS employee_roles (
    name          TEXT PRIMARY KEY,
    description   TEXT,
    status        TEXT NOT NULL DEFAULT 'enabled',
    default_model TEXT,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS role_abilities (
    role_name  TEXT NOT NULL REFERENCES employee_roles(name) ON DELETE CASCADE,
    ability_id TEXT NOT NULL,
    PRIMARY KEY (role_name, ability_id)
);

CREATE TABLE IF NOT EXISTS prompt_versions (
    id         TEXT PRIMARY KEY,
    role_name  TEXT NOT NULL REFERENCES employee_roles(name) ON DELETE CASCADE,
    content    TEXT NOT NULL,
    version    INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prompt_versions_role_name ON prompt_versions(role_name);
`
