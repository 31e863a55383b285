package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/membase/internal/storage"
	"github.com/scrypster/membase/pkg/types"
)

// Store implements storage.SessionStore using PostgreSQL.
type Store struct {
	db                *sql.DB
	pgvectorAvailable bool // true when the pgvector extension is present
}

// NewStore opens a PostgreSQL connection, applies the schema, and probes for
// the pgvector extension. A server without pgvector degrades gracefully: the
// BYTEA embedding column still works, only the native vector column and its
// index are skipped.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: dsn is required: %w", storage.ErrInvalidInput)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	s := &Store{db: db}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to apply schema: %w", err)
	}

	// Try to enable pgvector. Failure is not fatal — embeddings still land
	// in the BYTEA column, only native vector queries are unavailable.
	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("postgres: pgvector extension not available (vector column disabled): %v", err)
	} else if _, err := db.Exec(MigrationPgvector); err != nil {
		log.Printf("postgres: failed to apply pgvector migration (vector column disabled): %v", err)
	} else {
		s.pgvectorAvailable = true
	}

	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateSession creates an Active session.
func (s *Store) CreateSession(ctx context.Context, title *string, metadata map[string]any) (*types.Session, error) {
	session := &types.Session{
		ID:        uuid.New(),
		UpdatedAt: time.Now().UTC(),
		Status:    types.StatusActive,
		Title:     title,
		Metadata:  metadata,
	}

	metaJSON, err := marshalNullableJSON(metadata)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to marshal session metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, updated_at, status, title, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, session.ID, session.UpdatedAt, int(session.Status), title, metaJSON)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create session: %w", err)
	}

	return session, nil
}

// GetSession returns a session by id.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, updated_at, status, title, metadata
		FROM sessions WHERE id = $1
	`, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*types.Session, error) {
	var (
		session  types.Session
		status   int
		title    sql.NullString
		metaJSON []byte
	)
	if err := row.Scan(&session.ID, &session.UpdatedAt, &status, &title, &metaJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to scan session: %w", err)
	}

	session.Status = types.SessionStatus(status)
	if title.Valid {
		session.Title = &title.String
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &session.Metadata); err != nil {
			return nil, fmt.Errorf("postgres: failed to decode session metadata: %w", err)
		}
	}
	return &session, nil
}

// TouchSession advances the archival clock.
func (s *Store) TouchSession(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to touch session: %w", err)
	}
	return requireRow(res)
}

// SetSessionStatus validates and applies a status transition. Status changes
// deliberately do not advance updated_at: the archival clock tracks content
// activity, and a tier move is not activity.
func (s *Store) SetSessionStatus(ctx context.Context, id uuid.UUID, next types.SessionStatus) error {
	if !next.IsValid() {
		return fmt.Errorf("%w: status %d", storage.ErrInvalidInput, next)
	}

	return storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := sessionStatusTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !current.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, current, next)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = $1 WHERE id = $2
		`, int(next), id); err != nil {
			return fmt.Errorf("postgres: failed to update session status: %w", err)
		}

		return s.LogAudit(ctx, tx, types.AuditEntry{
			Action:       "session.status",
			ResourceType: "session",
			ResourceID:   ptr(id.String()),
			Details:      map[string]any{"from": current.String(), "to": next.String()},
		})
	})
}

func sessionStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (types.SessionStatus, error) {
	var status int
	err := tx.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to read session status: %w", err)
	}
	return types.SessionStatus(status), nil
}

// DeleteSession hard-deletes a session; messages and summaries go with it via
// ON DELETE CASCADE, and the audit entry commits in the same transaction.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("postgres: failed to delete session: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}

		return s.LogAudit(ctx, tx, types.AuditEntry{
			Action:       "session.delete",
			ResourceType: "session",
			ResourceID:   ptr(id.String()),
		})
	})
}

// AppendMessage stores a message and bumps the session clock atomically. When
// pgvector is available the embedding is also written to the native vector
// column.
func (s *Store) AppendMessage(ctx context.Context, msg *types.Message) error {
	if msg == nil {
		return storage.ErrInvalidInput
	}
	if err := msg.ValidateEmbedding(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	return storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := sessionStatusTx(ctx, tx, msg.SessionID); err != nil {
			return err
		}

		if s.pgvectorAvailable && msg.Embedding != nil {
			vec := pgvector.NewVector(msg.Embedding)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO messages (id, session_id, role, content, embedding, embedding_vec, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, msg.ID, msg.SessionID, msg.Role, msg.Content,
				storage.EncodeEmbedding(msg.Embedding), vec, msg.CreatedAt); err != nil {
				return fmt.Errorf("postgres: failed to insert message: %w", err)
			}
		} else {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO messages (id, session_id, role, content, embedding, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, msg.ID, msg.SessionID, msg.Role, msg.Content,
				storage.EncodeEmbedding(msg.Embedding), msg.CreatedAt); err != nil {
				return fmt.Errorf("postgres: failed to insert message: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET updated_at = NOW() WHERE id = $1
		`, msg.SessionID); err != nil {
			return fmt.Errorf("postgres: failed to touch session: %w", err)
		}
		return nil
	})
}

// ListMessages returns a session's hot-tier messages, oldest first.
func (s *Store) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]types.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, embedding, created_at
		FROM messages WHERE session_id = $1 ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var (
			msg       types.Message
			embedding []byte
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &embedding, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan message: %w", err)
		}
		msg.Embedding, err = storage.DecodeEmbedding(embedding)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// SetMessageEmbedding fills in a message's embedding after the fact.
func (s *Store) SetMessageEmbedding(ctx context.Context, messageID uuid.UUID, embedding []float32) error {
	probe := types.Message{Embedding: embedding}
	if err := probe.ValidateEmbedding(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	var (
		res sql.Result
		err error
	)
	if s.pgvectorAvailable && embedding != nil {
		res, err = s.db.ExecContext(ctx, `
			UPDATE messages SET embedding = $1, embedding_vec = $2 WHERE id = $3
		`, storage.EncodeEmbedding(embedding), pgvector.NewVector(embedding), messageID)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE messages SET embedding = $1 WHERE id = $2
		`, storage.EncodeEmbedding(embedding), messageID)
	}
	if err != nil {
		return fmt.Errorf("postgres: failed to set embedding: %w", err)
	}
	return requireRow(res)
}

// AddSummary appends a compression summary.
func (s *Store) AddSummary(ctx context.Context, summary *types.SessionSummary) error {
	if summary == nil || summary.Strategy == "" || summary.SummaryJSON == nil {
		return fmt.Errorf("%w: summary requires strategy and summary_json", storage.ErrInvalidInput)
	}
	if summary.ID == uuid.Nil {
		summary.ID = uuid.New()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	docJSON, err := json.Marshal(summary.SummaryJSON)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal summary_json: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_summaries (id, session_id, strategy, strategy_version, summary_text, summary_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, summary.ID, summary.SessionID, summary.Strategy,
		summary.StrategyVersion, summary.SummaryText, docJSON, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert summary: %w", err)
	}
	return nil
}

// ListSummaries returns a session's summaries, oldest first.
func (s *Store) ListSummaries(ctx context.Context, sessionID uuid.UUID) ([]types.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, strategy, strategy_version, summary_text, summary_json, created_at
		FROM session_summaries WHERE session_id = $1 ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []types.SessionSummary
	for rows.Next() {
		var (
			summary                      types.SessionSummary
			strategyVersion, summaryText sql.NullString
			docJSON                      []byte
		)
		if err := rows.Scan(&summary.ID, &summary.SessionID, &summary.Strategy,
			&strategyVersion, &summaryText, &docJSON, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan summary: %w", err)
		}
		if strategyVersion.Valid {
			summary.StrategyVersion = &strategyVersion.String
		}
		if summaryText.Valid {
			summary.SummaryText = &summaryText.String
		}
		if err := json.Unmarshal(docJSON, &summary.SummaryJSON); err != nil {
			return nil, fmt.Errorf("postgres: failed to decode summary_json: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// ListSessionsOlderThan returns the archival work queue for a status.
func (s *Store) ListSessionsOlderThan(ctx context.Context, status types.SessionStatus, cutoff time.Time, limit int) ([]types.Session, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, updated_at, status, title, metadata
		FROM sessions
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`, int(status), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []types.Session
	for rows.Next() {
		var (
			session  types.Session
			st       int
			title    sql.NullString
			metaJSON []byte
		)
		if err := rows.Scan(&session.ID, &session.UpdatedAt, &st, &title, &metaJSON); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan session: %w", err)
		}
		session.Status = types.SessionStatus(st)
		if title.Valid {
			session.Title = &title.String
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &session.Metadata); err != nil {
				return nil, fmt.Errorf("postgres: failed to decode session metadata: %w", err)
			}
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// ArchiveSessionMessages performs the hot→cold move in one transaction.
// Embeddings are dropped: archive rows never carry them.
func (s *Store) ArchiveSessionMessages(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var moved int64
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := sessionStatusTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !current.CanTransitionTo(types.StatusColdArchived) {
			return fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, current, types.StatusColdArchived)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO messages_archive (id, session_id, role, content, created_at)
			SELECT id, session_id, role, content, created_at
			FROM messages WHERE session_id = $1
		`, sessionID)
		if err != nil {
			return fmt.Errorf("postgres: failed to copy messages to archive: %w", err)
		}
		moved, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM messages WHERE session_id = $1
		`, sessionID); err != nil {
			return fmt.Errorf("postgres: failed to purge hot messages: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = $1 WHERE id = $2
		`, int(types.StatusColdArchived), sessionID); err != nil {
			return fmt.Errorf("postgres: failed to update session status: %w", err)
		}

		return s.LogAudit(ctx, tx, types.AuditEntry{
			Action:       "session.cold_archive",
			ResourceType: "session",
			ResourceID:   ptr(sessionID.String()),
			Details:      map[string]any{"messages_moved": moved},
		})
	})
	if err != nil {
		return 0, err
	}
	return int(moved), nil
}

// ListArchivedMessages returns a session's cold-tier messages, oldest first.
func (s *Store) ListArchivedMessages(ctx context.Context, sessionID uuid.UUID) ([]types.ArchivedMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM messages_archive WHERE session_id = $1 ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list archived messages: %w", err)
	}
	defer rows.Close()

	var messages []types.ArchivedMessage
	for rows.Next() {
		var msg types.ArchivedMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan archived message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// MarkDeepArchived performs the relational half of the cold→deep move. The
// serialized dump must already be in the object store; this only purges rows
// and flips status, atomically with its audit entry.
func (s *Store) MarkDeepArchived(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var purged int64
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := sessionStatusTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !current.CanTransitionTo(types.StatusDeepArchived) {
			return fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, current, types.StatusDeepArchived)
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM messages_archive WHERE session_id = $1
		`, sessionID)
		if err != nil {
			return fmt.Errorf("postgres: failed to purge archive rows: %w", err)
		}
		purged, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = $1 WHERE id = $2
		`, int(types.StatusDeepArchived), sessionID); err != nil {
			return fmt.Errorf("postgres: failed to update session status: %w", err)
		}

		return s.LogAudit(ctx, tx, types.AuditEntry{
			Action:       "session.deep_archive",
			ResourceType: "session",
			ResourceID:   ptr(sessionID.String()),
			Details:      map[string]any{"rows_purged": purged},
		})
	})
	if err != nil {
		return 0, err
	}
	return int(purged), nil
}

// LogAudit writes an audit entry in the caller's transaction.
func (s *Store) LogAudit(ctx context.Context, tx *sql.Tx, entry types.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	detailsJSON, err := marshalNullableJSON(entry.Details)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal audit details: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, created_at, action, resource_type, resource_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.CreatedAt, entry.Action,
		entry.ResourceType, entry.ResourceID, detailsJSON); err != nil {
		return fmt.Errorf("postgres: failed to insert audit entry: %w", err)
	}
	return nil
}

// ListAuditEntries returns audit entries for a resource, newest first.
func (s *Store) ListAuditEntries(ctx context.Context, resourceID string) ([]types.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, action, resource_type, resource_id, details
		FROM audit_logs WHERE resource_id = $1 ORDER BY created_at DESC
	`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []types.AuditEntry
	for rows.Next() {
		var (
			entry       types.AuditEntry
			resID       sql.NullString
			detailsJSON []byte
		)
		if err := rows.Scan(&entry.ID, &entry.CreatedAt, &entry.Action,
			&entry.ResourceType, &resID, &detailsJSON); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan audit entry: %w", err)
		}
		if resID.Valid {
			entry.ResourceID = &resID.String
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &entry.Details); err != nil {
				return nil, fmt.Errorf("postgres: failed to decode audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UpsertRole creates or updates a role by name.
func (s *Store) UpsertRole(ctx context.Context, role *types.EmployeeRole) error {
	if role == nil || role.Name == "" {
		return fmt.Errorf("%w: role name is required", storage.ErrInvalidInput)
	}
	if role.Status == "" {
		role.Status = "enabled"
	}
	now := time.Now().UTC()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employee_roles (name, description, status, default_model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			status = excluded.status,
			default_model = excluded.default_model,
			updated_at = excluded.updated_at
	`, role.Name, role.Description, role.Status, role.DefaultModel,
		role.CreatedAt, role.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert role: %w", err)
	}
	return nil
}

// GetRole returns a role by name.
func (s *Store) GetRole(ctx context.Context, name string) (*types.EmployeeRole, error) {
	var (
		role                      types.EmployeeRole
		description, defaultModel sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, description, status, default_model, created_at, updated_at
		FROM employee_roles WHERE name = $1
	`, name).Scan(&role.Name, &description, &role.Status, &defaultModel, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get role: %w", err)
	}

	if description.Valid {
		role.Description = &description.String
	}
	if defaultModel.Valid {
		role.DefaultModel = &defaultModel.String
	}
	return &role, nil
}

// BindAbility attaches an ability to a role; rebinding is a no-op.
func (s *Store) BindAbility(ctx context.Context, roleName, abilityID string) error {
	if roleName == "" || abilityID == "" {
		return fmt.Errorf("%w: role name and ability id are required", storage.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO role_abilities (role_name, ability_id) VALUES ($1, $2)
		ON CONFLICT(role_name, ability_id) DO NOTHING
	`, roleName, abilityID)
	if err != nil {
		return fmt.Errorf("postgres: failed to bind ability: %w", err)
	}
	return nil
}

// ListRoleAbilities returns the ability ids bound to a role.
func (s *Store) ListRoleAbilities(ctx context.Context, roleName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ability_id FROM role_abilities WHERE role_name = $1 ORDER BY ability_id ASC
	`, roleName)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list abilities: %w", err)
	}
	defer rows.Close()

	var abilities []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan ability: %w", err)
		}
		abilities = append(abilities, id)
	}
	return abilities, rows.Err()
}

// AddPromptVersion appends the next prompt version for a role.
func (s *Store) AddPromptVersion(ctx context.Context, roleName, content string) (*types.PromptVersion, error) {
	if roleName == "" || content == "" {
		return nil, fmt.Errorf("%w: role name and content are required", storage.ErrInvalidInput)
	}

	pv := &types.PromptVersion{
		ID:        uuid.New().String(),
		RoleName:  roleName,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(version), 0) + 1 FROM prompt_versions WHERE role_name = $1
		`, roleName).Scan(&pv.Version); err != nil {
			return fmt.Errorf("postgres: failed to compute next prompt version: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO prompt_versions (id, role_name, content, version, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, pv.ID, pv.RoleName, pv.Content, pv.Version, pv.CreatedAt); err != nil {
			return fmt.Errorf("postgres: failed to insert prompt version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pv, nil
}

// LatestPrompt returns the highest-version prompt for a role.
func (s *Store) LatestPrompt(ctx context.Context, roleName string) (*types.PromptVersion, error) {
	var pv types.PromptVersion
	err := s.db.QueryRowContext(ctx, `
		SELECT id, role_name, content, version, created_at
		FROM prompt_versions WHERE role_name = $1
		ORDER BY version DESC LIMIT 1
	`, roleName).Scan(&pv.ID, &pv.RoleName, &pv.Content, &pv.Version, &pv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get latest prompt: %w", err)
	}
	return &pv, nil
}

func marshalNullableJSON(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func ptr(s string) *string {
	return &s
}
