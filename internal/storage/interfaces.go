// Package storage defines the relational (hot and cold) tier of membase:
// the SessionStore interface, its sentinel errors, and helpers shared by the
// postgres and sqlite implementations.
//
// Every mutating operation runs as a single transaction — commit on success,
// rollback on any failure — so no partial application is ever visible to
// other transactions. Transactions are not reentrant or nested.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/membase/pkg/types"
)

// SessionStore is the relational tier contract. Both drivers (postgres for
// production, sqlite for local development and tests) implement it in full.
type SessionStore interface {
	// CreateSession creates an Active session and returns it. UpdatedAt is
	// set to now.
	CreateSession(ctx context.Context, title *string, metadata map[string]any) (*types.Session, error)

	// GetSession returns a session by id, or ErrNotFound.
	GetSession(ctx context.Context, id uuid.UUID) (*types.Session, error)

	// TouchSession advances the session's updated_at to now. Any mutation of
	// session content must go through this clock; archival eligibility is
	// computed from it.
	TouchSession(ctx context.Context, id uuid.UUID) error

	// SetSessionStatus transitions the session to next, validating the
	// forward-only state machine. Returns ErrInvalidTransition when the move
	// is not allowed, ErrNotFound when the session does not exist.
	SetSessionStatus(ctx context.Context, id uuid.UUID, next types.SessionStatus) error

	// DeleteSession hard-deletes a session, cascading to its messages and
	// summaries, and records an audit entry in the same transaction.
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// AppendMessage stores a message and bumps the session clock in one
	// transaction. The embedding, when present, must be exactly
	// types.EmbeddingDim long.
	AppendMessage(ctx context.Context, msg *types.Message) error

	// ListMessages returns a session's hot-tier messages ordered by
	// created_at ascending.
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]types.Message, error)

	// SetMessageEmbedding fills in the embedding for a message that was
	// stored before the external embedding process ran.
	SetMessageEmbedding(ctx context.Context, messageID uuid.UUID, embedding []float32) error

	// AddSummary appends a compression summary for a session. Summaries are
	// never mutated afterward.
	AddSummary(ctx context.Context, summary *types.SessionSummary) error

	// ListSummaries returns a session's summaries ordered by created_at
	// ascending.
	ListSummaries(ctx context.Context, sessionID uuid.UUID) ([]types.SessionSummary, error)

	// ListSessionsOlderThan returns up to limit sessions in the given status
	// whose updated_at is strictly before cutoff. This is the archival
	// scheduler's work queue.
	ListSessionsOlderThan(ctx context.Context, status types.SessionStatus, cutoff time.Time, limit int) ([]types.Session, error)

	// ArchiveSessionMessages performs the hot→cold move for one session in a
	// single transaction: copy its messages into the archive table (dropping
	// embeddings), delete the hot rows, set status to cold_archived, and
	// write an audit entry. Returns the number of messages moved.
	ArchiveSessionMessages(ctx context.Context, sessionID uuid.UUID) (int, error)

	// ListArchivedMessages returns a session's cold-tier messages ordered by
	// created_at ascending.
	ListArchivedMessages(ctx context.Context, sessionID uuid.UUID) ([]types.ArchivedMessage, error)

	// MarkDeepArchived performs the relational half of the cold→deep move in
	// a single transaction: purge the session's archive rows, set status to
	// deep_archived, and write an audit entry. The caller is responsible for
	// having stored the serialized dump in the object store first. Returns
	// the number of archive rows purged.
	MarkDeepArchived(ctx context.Context, sessionID uuid.UUID) (int, error)

	// LogAudit writes an audit entry inside the caller's transaction, so the
	// entry and its associated operation commit atomically together.
	LogAudit(ctx context.Context, tx *sql.Tx, entry types.AuditEntry) error

	// ListAuditEntries returns audit entries for a resource id, newest first.
	ListAuditEntries(ctx context.Context, resourceID string) ([]types.AuditEntry, error)

	// Team roles and prompt history.

	// UpsertRole creates or updates a role by name.
	UpsertRole(ctx context.Context, role *types.EmployeeRole) error

	// GetRole returns a role by name, or ErrNotFound.
	GetRole(ctx context.Context, name string) (*types.EmployeeRole, error)

	// BindAbility attaches an ability id to a role (idempotent).
	BindAbility(ctx context.Context, roleName, abilityID string) error

	// ListRoleAbilities returns the ability ids bound to a role.
	ListRoleAbilities(ctx context.Context, roleName string) ([]string, error)

	// AddPromptVersion appends a prompt version for a role, assigning the
	// next version number.
	AddPromptVersion(ctx context.Context, roleName, content string) (*types.PromptVersion, error)

	// LatestPrompt returns the highest-version prompt for a role, or
	// ErrNotFound when the role has no prompt history.
	LatestPrompt(ctx context.Context, roleName string) (*types.PromptVersion, error)

	// Close releases the underlying connection pool.
	Close() error
}
