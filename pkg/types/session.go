// Package types contains the domain types shared by the membase storage
// tiers: sessions and their messages (hot tier), archived messages (cold
// tier), summaries, audit entries, and the long-term knowledge documents.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EmbeddingDim is the fixed dimension of message embeddings. A non-nil
// embedding of any other length is a data-integrity violation.
const EmbeddingDim = 1536

// Session is one chat session. UpdatedAt is the sole archival clock: it
// advances on every mutation and the archival passes compare it against the
// policy windows.
type Session struct {
	ID        uuid.UUID      `json:"id"`
	UpdatedAt time.Time      `json:"updated_at"`
	Status    SessionStatus  `json:"status"`
	Title     *string        `json:"title,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Message is a single message in a session. Embedding is nil until an
// external embedding process fills it in.
type Message struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Role      string    `json:"role"` // user, assistant, system (open set)
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateEmbedding checks the fixed-dimension invariant. A nil embedding is
// valid (not yet embedded).
func (m *Message) ValidateEmbedding() error {
	if m.Embedding == nil {
		return nil
	}
	if len(m.Embedding) != EmbeddingDim {
		return fmt.Errorf("types: embedding has %d dimensions, want %d", len(m.Embedding), EmbeddingDim)
	}
	return nil
}

// ArchivedMessage is a cold-tier copy of a message. It never carries an
// embedding, and SessionID is a plain value used for lookup — the archive
// table has no enforced foreign key.
type ArchivedMessage struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionSummary is the output of an external compression pass over a
// session's working context. Summaries are append-only: a session accumulates
// one per compression, ordered by CreatedAt, and none is ever mutated.
type SessionSummary struct {
	ID              uuid.UUID      `json:"id"`
	SessionID       uuid.UUID      `json:"session_id"`
	Strategy        string         `json:"strategy"` // e.g. context_compression_v2
	StrategyVersion *string        `json:"strategy_version,omitempty"`
	SummaryText     *string        `json:"summary_text,omitempty"`
	SummaryJSON     map[string]any `json:"summary_json"` // decision_points, todos, code_snippets
	CreatedAt       time.Time      `json:"created_at"`
}

// AuditEntry records one notable operation (archival move, deletion, config
// reload). The write rides the caller's transaction so the entry and the
// operation it describes commit atomically together.
type AuditEntry struct {
	ID           uuid.UUID      `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *string        `json:"resource_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}
