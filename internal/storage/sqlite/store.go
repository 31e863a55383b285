// Package sqlite provides a SQLite implementation of storage.SessionStore
// for local development and tests. It mirrors the postgres store's semantics
// exactly; embeddings are stored as packed float32 blobs since SQLite has no
// vector type.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/membase/internal/storage"
	"github.com/scrypster/membase/pkg/types"
)

// timeLayout is a fixed-width UTC format so stored timestamps compare
// lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements storage.SessionStore using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at dsn and applies the
// schema. ":memory:" is supported for tests; in-memory databases are pinned
// to a single connection so every statement sees the same database.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: dsn is required: %w", storage.ErrInvalidInput)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying connection so tests can adjust rows the public
// API always stamps, such as backdating updated_at.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
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
		return nil, fmt.Errorf("sqlite: failed to marshal session metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, updated_at, status, title, metadata)
		VALUES (?, ?, ?, ?, ?)
	`, session.ID.String(), formatTime(session.UpdatedAt), int(session.Status), title, metaJSON)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to create session: %w", err)
	}

	return session, nil
}

// GetSession returns a session by id.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, updated_at, status, title, metadata
		FROM sessions WHERE id = ?
	`, id.String())
	return scanSession(row)
}

func scanSession(row *sql.Row) (*types.Session, error) {
	var (
		idStr, updatedAt string
		status           int
		title            sql.NullString
		metaJSON         sql.NullString
	)
	if err := row.Scan(&idStr, &updatedAt, &status, &title, &metaJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: failed to scan session: %w", err)
	}

	session := &types.Session{
		ID:        uuid.MustParse(idStr),
		UpdatedAt: parseTime(updatedAt),
		Status:    types.SessionStatus(status),
	}
	if title.Valid {
		session.Title = &title.String
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &session.Metadata); err != nil {
			return nil, fmt.Errorf("sqlite: failed to decode session metadata: %w", err)
		}
	}
	return session, nil
}

// TouchSession advances the archival clock.
func (s *Store) TouchSession(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET updated_at = ? WHERE id = ?
	`, formatTime(time.Now()), id.String())
	if err != nil {
		return fmt.Errorf("sqlite: failed to touch session: %w", err)
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
			UPDATE sessions SET status = ? WHERE id = ?
		`, int(next), id.String()); err != nil {
			return fmt.Errorf("sqlite: failed to update session status: %w", err)
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
	err := tx.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = ?`, id.String()).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to read session status: %w", err)
	}
	return types.SessionStatus(status), nil
}

// DeleteSession hard-deletes a session; messages and summaries go with it via
// ON DELETE CASCADE, and the audit entry commits in the same transaction.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
		if err != nil {
			return fmt.Errorf("sqlite: failed to delete session: %w", err)
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

// AppendMessage stores a message and bumps the session clock atomically.
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

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, session_id, role, content, embedding, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, msg.ID.String(), msg.SessionID.String(), msg.Role, msg.Content,
			storage.EncodeEmbedding(msg.Embedding), formatTime(msg.CreatedAt)); err != nil {
			return fmt.Errorf("sqlite: failed to insert message: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET updated_at = ? WHERE id = ?
		`, formatTime(time.Now()), msg.SessionID.String()); err != nil {
			return fmt.Errorf("sqlite: failed to touch session: %w", err)
		}
		return nil
	})
}

// ListMessages returns a session's hot-tier messages, oldest first.
func (s *Store) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]types.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, embedding, created_at
		FROM messages WHERE session_id = ? ORDER BY created_at ASC, id ASC
	`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var (
			idStr, sidStr, role, content, createdAt string
			embedding                               []byte
		)
		if err := rows.Scan(&idStr, &sidStr, &role, &content, &embedding, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan message: %w", err)
		}

		vec, err := storage.DecodeEmbedding(embedding)
		if err != nil {
			return nil, err
		}

		messages = append(messages, types.Message{
			ID:        uuid.MustParse(idStr),
			SessionID: uuid.MustParse(sidStr),
			Role:      role,
			Content:   content,
			Embedding: vec,
			CreatedAt: parseTime(createdAt),
		})
	}
	return messages, rows.Err()
}

// SetMessageEmbedding fills in a message's embedding after the fact.
func (s *Store) SetMessageEmbedding(ctx context.Context, messageID uuid.UUID, embedding []float32) error {
	probe := types.Message{Embedding: embedding}
	if err := probe.ValidateEmbedding(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET embedding = ? WHERE id = ?
	`, storage.EncodeEmbedding(embedding), messageID.String())
	if err != nil {
		return fmt.Errorf("sqlite: failed to set embedding: %w", err)
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
		return fmt.Errorf("sqlite: failed to marshal summary_json: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_summaries (id, session_id, strategy, strategy_version, summary_text, summary_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, summary.ID.String(), summary.SessionID.String(), summary.Strategy,
		summary.StrategyVersion, summary.SummaryText, string(docJSON), formatTime(summary.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert summary: %w", err)
	}
	return nil
}

// ListSummaries returns a session's summaries, oldest first.
func (s *Store) ListSummaries(ctx context.Context, sessionID uuid.UUID) ([]types.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, strategy, strategy_version, summary_text, summary_json, created_at
		FROM session_summaries WHERE session_id = ? ORDER BY created_at ASC, id ASC
	`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []types.SessionSummary
	for rows.Next() {
		var (
			idStr, sidStr, strategy, createdAt string
			strategyVersion, summaryText       sql.NullString
			docJSON                            string
		)
		if err := rows.Scan(&idStr, &sidStr, &strategy, &strategyVersion, &summaryText, &docJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan summary: %w", err)
		}

		summary := types.SessionSummary{
			ID:        uuid.MustParse(idStr),
			SessionID: uuid.MustParse(sidStr),
			Strategy:  strategy,
			CreatedAt: parseTime(createdAt),
		}
		if strategyVersion.Valid {
			summary.StrategyVersion = &strategyVersion.String
		}
		if summaryText.Valid {
			summary.SummaryText = &summaryText.String
		}
		if err := json.Unmarshal([]byte(docJSON), &summary.SummaryJSON); err != nil {
			return nil, fmt.Errorf("sqlite: failed to decode summary_json: %w", err)
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
		WHERE status = ? AND updated_at < ?
		ORDER BY updated_at ASC
		LIMIT ?
	`, int(status), formatTime(cutoff), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []types.Session
	for rows.Next() {
		var (
			idStr, updatedAt string
			st               int
			title, metaJSON  sql.NullString
		)
		if err := rows.Scan(&idStr, &updatedAt, &st, &title, &metaJSON); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan session: %w", err)
		}
		session := types.Session{
			ID:        uuid.MustParse(idStr),
			UpdatedAt: parseTime(updatedAt),
			Status:    types.SessionStatus(st),
		}
		if title.Valid {
			session.Title = &title.String
		}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &session.Metadata); err != nil {
				return nil, fmt.Errorf("sqlite: failed to decode session metadata: %w", err)
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
			FROM messages WHERE session_id = ?
		`, sessionID.String())
		if err != nil {
			return fmt.Errorf("sqlite: failed to copy messages to archive: %w", err)
		}
		moved, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM messages WHERE session_id = ?
		`, sessionID.String()); err != nil {
			return fmt.Errorf("sqlite: failed to purge hot messages: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = ? WHERE id = ?
		`, int(types.StatusColdArchived), sessionID.String()); err != nil {
			return fmt.Errorf("sqlite: failed to update session status: %w", err)
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
		FROM messages_archive WHERE session_id = ? ORDER BY created_at ASC, id ASC
	`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list archived messages: %w", err)
	}
	defer rows.Close()

	var messages []types.ArchivedMessage
	for rows.Next() {
		var idStr, sidStr, role, content, createdAt string
		if err := rows.Scan(&idStr, &sidStr, &role, &content, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan archived message: %w", err)
		}
		messages = append(messages, types.ArchivedMessage{
			ID:        uuid.MustParse(idStr),
			SessionID: uuid.MustParse(sidStr),
			Role:      role,
			Content:   content,
			CreatedAt: parseTime(createdAt),
		})
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
			DELETE FROM messages_archive WHERE session_id = ?
		`, sessionID.String())
		if err != nil {
			return fmt.Errorf("sqlite: failed to purge archive rows: %w", err)
		}
		purged, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = ? WHERE id = ?
		`, int(types.StatusDeepArchived), sessionID.String()); err != nil {
			return fmt.Errorf("sqlite: failed to update session status: %w", err)
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
		return fmt.Errorf("sqlite: failed to marshal audit details: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, created_at, action, resource_type, resource_id, details)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID.String(), formatTime(entry.CreatedAt), entry.Action,
		entry.ResourceType, entry.ResourceID, detailsJSON); err != nil {
		return fmt.Errorf("sqlite: failed to insert audit entry: %w", err)
	}
	return nil
}

// ListAuditEntries returns audit entries for a resource, newest first.
func (s *Store) ListAuditEntries(ctx context.Context, resourceID string) ([]types.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, action, resource_type, resource_id, details
		FROM audit_logs WHERE resource_id = ? ORDER BY created_at DESC
	`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []types.AuditEntry
	for rows.Next() {
		var (
			idStr, createdAt, action, resourceType string
			resID, detailsJSON                     sql.NullString
		)
		if err := rows.Scan(&idStr, &createdAt, &action, &resourceType, &resID, &detailsJSON); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan audit entry: %w", err)
		}
		entry := types.AuditEntry{
			ID:           uuid.MustParse(idStr),
			CreatedAt:    parseTime(createdAt),
			Action:       action,
			ResourceType: resourceType,
		}
		if resID.Valid {
			entry.ResourceID = &resID.String
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("sqlite: failed to decode audit details: %w", err)
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
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			status = excluded.status,
			default_model = excluded.default_model,
			updated_at = excluded.updated_at
	`, role.Name, role.Description, role.Status, role.DefaultModel,
		formatTime(role.CreatedAt), formatTime(role.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert role: %w", err)
	}
	return nil
}

// GetRole returns a role by name.
func (s *Store) GetRole(ctx context.Context, name string) (*types.EmployeeRole, error) {
	var (
		role                      types.EmployeeRole
		description, defaultModel sql.NullString
		createdAt, updatedAt      string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, description, status, default_model, created_at, updated_at
		FROM employee_roles WHERE name = ?
	`, name).Scan(&role.Name, &description, &role.Status, &defaultModel, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get role: %w", err)
	}

	if description.Valid {
		role.Description = &description.String
	}
	if defaultModel.Valid {
		role.DefaultModel = &defaultModel.String
	}
	role.CreatedAt = parseTime(createdAt)
	role.UpdatedAt = parseTime(updatedAt)
	return &role, nil
}

// BindAbility attaches an ability to a role; rebinding is a no-op.
func (s *Store) BindAbility(ctx context.Context, roleName, abilityID string) error {
	if roleName == "" || abilityID == "" {
		return fmt.Errorf("%w: role name and ability id are required", storage.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO role_abilities (role_name, ability_id) VALUES (?, ?)
		ON CONFLICT(role_name, ability_id) DO NOTHING
	`, roleName, abilityID)
	if err != nil {
		return fmt.Errorf("sqlite: failed to bind ability: %w", err)
	}
	return nil
}

// ListRoleAbilities returns the ability ids bound to a role.
func (s *Store) ListRoleAbilities(ctx context.Context, roleName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ability_id FROM role_abilities WHERE role_name = ? ORDER BY ability_id ASC
	`, roleName)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list abilities: %w", err)
	}
	defer rows.Close()

	var abilities []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan ability: %w", err)
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
			SELECT COALESCE(MAX(version), 0) + 1 FROM prompt_versions WHERE role_name = ?
		`, roleName).Scan(&pv.Version); err != nil {
			return fmt.Errorf("sqlite: failed to compute next prompt version: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO prompt_versions (id, role_name, content, version, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, pv.ID, pv.RoleName, pv.Content, pv.Version, formatTime(pv.CreatedAt)); err != nil {
			return fmt.Errorf("sqlite: failed to insert prompt version: %w", err)
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
	var (
		pv        types.PromptVersion
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, role_name, content, version, created_at
		FROM prompt_versions WHERE role_name = ?
		ORDER BY version DESC LIMIT 1
	`, roleName).Scan(&pv.ID, &pv.RoleName, &pv.Content, &pv.Version, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get latest prompt: %w", err)
	}
	pv.CreatedAt = parseTime(createdAt)
	return &pv, nil
}

func marshalNullableJSON(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func ptr(s string) *string {
	return &s
}
