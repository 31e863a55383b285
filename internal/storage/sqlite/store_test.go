package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/membase/internal/storage"
	"github.com/scrypster/membase/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestCreateAndGetSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	title := "planning chat"
	session, err := store.CreateSession(ctx, &title, map[string]any{"source": "cli"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.Status != types.StatusActive {
		t.Errorf("new session status = %v, want Active", session.Status)
	}

	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Title == nil || *got.Title != title {
		t.Errorf("title = %v, want %q", got.Title, title)
	}
	if got.Metadata["source"] != "cli" {
		t.Errorf("metadata.source = %v, want cli", got.Metadata["source"])
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updated_at is zero after round-trip")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession(context.Background(), uuid.New())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAppendAndListMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, content := range []string{"hello", "hi there", "what's the plan?"} {
		msg := &types.Message{
			SessionID: session.ID,
			Role:      "user",
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage(%d): %v", i, err)
		}
	}

	messages, err := store.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	if messages[0].Content != "hello" || messages[2].Content != "what's the plan?" {
		t.Errorf("messages out of order: %q ... %q", messages[0].Content, messages[2].Content)
	}

	// Appending advances the archival clock.
	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !got.UpdatedAt.After(base) {
		t.Errorf("updated_at %v did not advance past %v", got.UpdatedAt, base)
	}
}

func TestAppendMessageUnknownSession(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendMessage(context.Background(), &types.Message{
		SessionID: uuid.New(),
		Role:      "user",
		Content:   "orphan",
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAppendMessageRejectsBadEmbedding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	err = store.AppendMessage(ctx, &types.Message{
		SessionID: session.ID,
		Role:      "user",
		Content:   "bad vector",
		Embedding: make([]float32, 3),
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSetMessageEmbedding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	msg := &types.Message{SessionID: session.ID, Role: "assistant", Content: "answer"}
	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	vec := make([]float32, types.EmbeddingDim)
	vec[0] = 0.5
	vec[types.EmbeddingDim-1] = -1.25
	if err := store.SetMessageEmbedding(ctx, msg.ID, vec); err != nil {
		t.Fatalf("SetMessageEmbedding: %v", err)
	}

	messages, err := store.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if got := messages[0].Embedding; len(got) != types.EmbeddingDim || got[0] != 0.5 || got[types.EmbeddingDim-1] != -1.25 {
		t.Errorf("embedding did not round-trip")
	}
}

func TestStatusTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Backwards jump is rejected.
	err = store.SetSessionStatus(ctx, session.ID, types.StatusDeepArchived)
	if !errors.Is(err, storage.ErrInvalidTransition) {
		t.Errorf("active -> deep: err = %v, want ErrInvalidTransition", err)
	}

	if err := store.SetSessionStatus(ctx, session.ID, types.StatusColdArchived); err != nil {
		t.Fatalf("active -> cold: %v", err)
	}
	if err := store.SetSessionStatus(ctx, session.ID, types.StatusDeepArchived); err != nil {
		t.Fatalf("cold -> deep: %v", err)
	}

	// Forward moves never revert.
	err = store.SetSessionStatus(ctx, session.ID, types.StatusActive)
	if !errors.Is(err, storage.ErrInvalidTransition) {
		t.Errorf("deep -> active: err = %v, want ErrInvalidTransition", err)
	}

	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != types.StatusDeepArchived {
		t.Errorf("status = %v, want DeepArchived", got.Status)
	}
}

func TestStatusChangeDoesNotAdvanceClock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	before, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}

	if err := store.SetSessionStatus(ctx, session.ID, types.StatusColdArchived); err != nil {
		t.Fatalf("SetSessionStatus: %v", err)
	}

	after, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("updated_at moved from %v to %v on status change", before.UpdatedAt, after.UpdatedAt)
	}
}

func TestArchiveSessionMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	vec := make([]float32, types.EmbeddingDim)
	for i := 0; i < 3; i++ {
		msg := &types.Message{
			SessionID: session.ID,
			Role:      "user",
			Content:   "msg",
			Embedding: vec,
		}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	moved, err := store.ArchiveSessionMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ArchiveSessionMessages: %v", err)
	}
	if moved != 3 {
		t.Errorf("moved = %d, want 3", moved)
	}

	hot, err := store.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(hot) != 0 {
		t.Errorf("hot tier still has %d messages", len(hot))
	}

	cold, err := store.ListArchivedMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListArchivedMessages: %v", err)
	}
	if len(cold) != 3 {
		t.Errorf("cold tier has %d messages, want 3", len(cold))
	}

	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != types.StatusColdArchived {
		t.Errorf("status = %v, want ColdArchived", got.Status)
	}

	// A second archive run is a transition violation, not a silent no-op.
	if _, err := store.ArchiveSessionMessages(ctx, session.ID); !errors.Is(err, storage.ErrInvalidTransition) {
		t.Errorf("second archive: err = %v, want ErrInvalidTransition", err)
	}
}

func TestMarkDeepArchived(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.AppendMessage(ctx, &types.Message{SessionID: session.ID, Role: "user", Content: "m"}); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}
	if _, err := store.ArchiveSessionMessages(ctx, session.ID); err != nil {
		t.Fatalf("ArchiveSessionMessages: %v", err)
	}

	purged, err := store.MarkDeepArchived(ctx, session.ID)
	if err != nil {
		t.Fatalf("MarkDeepArchived: %v", err)
	}
	if purged != 2 {
		t.Errorf("purged = %d, want 2", purged)
	}

	cold, err := store.ListArchivedMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListArchivedMessages: %v", err)
	}
	if len(cold) != 0 {
		t.Errorf("archive still has %d rows", len(cold))
	}

	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != types.StatusDeepArchived {
		t.Errorf("status = %v, want DeepArchived", got.Status)
	}
}

func TestMarkDeepArchivedRequiresCold(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	_, err = store.MarkDeepArchived(ctx, session.ID)
	if !errors.Is(err, storage.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.AppendMessage(ctx, &types.Message{SessionID: session.ID, Role: "user", Content: "m"}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	if _, err := store.GetSession(ctx, session.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetSession after delete: err = %v, want ErrNotFound", err)
	}
	messages, err := store.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("messages survived session delete: %d rows", len(messages))
	}
}

func TestListSessionsOlderThan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	fresh, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Backdate one session well past the cutoff.
	stale := time.Now().UTC().Add(-10 * 24 * time.Hour)
	if _, err := store.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`,
		formatTime(stale), old.ID.String()); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	cutoff := time.Now().UTC().Add(-7 * 24 * time.Hour)
	due, err := store.ListSessionsOlderThan(ctx, types.StatusActive, cutoff, 10)
	if err != nil {
		t.Fatalf("ListSessionsOlderThan: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("got %d due sessions, want 1", len(due))
	}
	if due[0].ID != old.ID {
		t.Errorf("due session = %s, want %s", due[0].ID, old.ID)
	}
	_ = fresh
}

func TestSummariesAppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	text := "compressed context"
	first := &types.SessionSummary{
		SessionID:   session.ID,
		Strategy:    "context_compression_v2",
		SummaryText: &text,
		SummaryJSON: map[string]any{"todos": []any{"ship it"}},
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.AddSummary(ctx, first); err != nil {
		t.Fatalf("AddSummary: %v", err)
	}
	second := &types.SessionSummary{
		SessionID:   session.ID,
		Strategy:    "context_compression_v2",
		SummaryJSON: map[string]any{"todos": []any{}},
		CreatedAt:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := store.AddSummary(ctx, second); err != nil {
		t.Fatalf("AddSummary: %v", err)
	}

	summaries, err := store.ListSummaries(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].ID != first.ID {
		t.Errorf("summaries not ordered oldest first")
	}
	if summaries[0].SummaryText == nil || *summaries[0].SummaryText != text {
		t.Errorf("summary_text did not round-trip")
	}
}

func TestAddSummaryRejectsIncomplete(t *testing.T) {
	store := newTestStore(t)

	err := store.AddSummary(context.Background(), &types.SessionSummary{
		SessionID: uuid.New(),
		Strategy:  "",
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestAuditTrail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.AppendMessage(ctx, &types.Message{SessionID: session.ID, Role: "user", Content: "m"}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if _, err := store.ArchiveSessionMessages(ctx, session.ID); err != nil {
		t.Fatalf("ArchiveSessionMessages: %v", err)
	}
	if _, err := store.MarkDeepArchived(ctx, session.ID); err != nil {
		t.Fatalf("MarkDeepArchived: %v", err)
	}

	entries, err := store.ListAuditEntries(ctx, session.ID.String())
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d audit entries, want 2", len(entries))
	}
	actions := map[string]bool{}
	for _, e := range entries {
		actions[e.Action] = true
	}
	if !actions["session.cold_archive"] || !actions["session.deep_archive"] {
		t.Errorf("missing expected audit actions, got %v", actions)
	}
}

func TestRolesAndPrompts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	desc := "reviews incoming changes"
	role := &types.EmployeeRole{Name: "reviewer", Description: &desc}
	if err := store.UpsertRole(ctx, role); err != nil {
		t.Fatalf("UpsertRole: %v", err)
	}

	// Upsert again with a changed description.
	desc2 := "reviews and merges changes"
	if err := store.UpsertRole(ctx, &types.EmployeeRole{Name: "reviewer", Description: &desc2}); err != nil {
		t.Fatalf("UpsertRole (update): %v", err)
	}

	got, err := store.GetRole(ctx, "reviewer")
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if got.Description == nil || *got.Description != desc2 {
		t.Errorf("description = %v, want %q", got.Description, desc2)
	}
	if got.Status != "enabled" {
		t.Errorf("status = %q, want enabled", got.Status)
	}

	if err := store.BindAbility(ctx, "reviewer", "code_search"); err != nil {
		t.Fatalf("BindAbility: %v", err)
	}
	// Rebinding is a no-op.
	if err := store.BindAbility(ctx, "reviewer", "code_search"); err != nil {
		t.Fatalf("BindAbility (dup): %v", err)
	}
	abilities, err := store.ListRoleAbilities(ctx, "reviewer")
	if err != nil {
		t.Fatalf("ListRoleAbilities: %v", err)
	}
	if len(abilities) != 1 || abilities[0] != "code_search" {
		t.Errorf("abilities = %v, want [code_search]", abilities)
	}

	v1, err := store.AddPromptVersion(ctx, "reviewer", "you review code")
	if err != nil {
		t.Fatalf("AddPromptVersion: %v", err)
	}
	if v1.Version != 1 {
		t.Errorf("first version = %d, want 1", v1.Version)
	}
	v2, err := store.AddPromptVersion(ctx, "reviewer", "you review code carefully")
	if err != nil {
		t.Fatalf("AddPromptVersion: %v", err)
	}
	if v2.Version != 2 {
		t.Errorf("second version = %d, want 2", v2.Version)
	}

	latest, err := store.LatestPrompt(ctx, "reviewer")
	if err != nil {
		t.Fatalf("LatestPrompt: %v", err)
	}
	if latest.Version != 2 || latest.Content != "you review code carefully" {
		t.Errorf("latest = v%d %q", latest.Version, latest.Content)
	}

	if _, err := store.LatestPrompt(ctx, "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("LatestPrompt(nobody): err = %v, want ErrNotFound", err)
	}
}
