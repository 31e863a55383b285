// Package archive moves sessions down the storage tiers. The cold pass
// relocates idle hot-tier messages into the relational archive table; the
// deep pass serializes archived messages into the object store and purges
// the relational rows. Both passes are driven by the session's updated_at
// against the policy windows.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/membase/internal/objectstore"
	"github.com/scrypster/membase/internal/semantics"
	"github.com/scrypster/membase/internal/storage"
	"github.com/scrypster/membase/pkg/types"
)

// messagesContentType is the content type of deep-tier session dumps.
const messagesContentType = "application/jsonl"

// defaultBatchSize bounds how many sessions a single pass processes.
const defaultBatchSize = 100

// Stats summarizes one pass.
type Stats struct {
	Scanned  int // sessions eligible and examined
	Archived int // sessions moved to the next tier
	Failed   int // sessions skipped because of an error
}

// Archiver composes the relational store and the object store into the
// tier-transition service.
type Archiver struct {
	store     storage.SessionStore
	backend   objectstore.Backend
	policy    types.ArchivePolicy
	batchSize int

	// DryRun counts eligible sessions without moving anything.
	DryRun bool

	// now is replaceable for tests.
	now func() time.Time
}

// New creates an Archiver. The policy is normalized: non-positive windows
// fall back to the defaults.
func New(store storage.SessionStore, backend objectstore.Backend, policy types.ArchivePolicy) *Archiver {
	policy.Normalize()
	return &Archiver{
		store:     store,
		backend:   backend,
		policy:    policy,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
}

// ColdPass archives the hot-tier messages of every Active session idle for
// longer than the hot window. Failures on individual sessions are logged and
// counted; the pass continues.
func (a *Archiver) ColdPass(ctx context.Context) (Stats, error) {
	var stats Stats

	now := a.now().UTC()
	sessions, err := a.store.ListSessionsOlderThan(ctx, types.StatusActive, now.Add(-a.policy.HotWindow), a.batchSize)
	if err != nil {
		return stats, fmt.Errorf("archive: cold pass scan: %w", err)
	}

	for _, session := range sessions {
		// The scan cutoff is only a prefilter; the policy decides.
		if !a.policy.EligibleForCold(session.UpdatedAt, now) {
			continue
		}
		stats.Scanned++
		if a.DryRun {
			continue
		}

		moved, err := a.store.ArchiveSessionMessages(ctx, session.ID)
		if err != nil {
			// A concurrent mover may have won the race; that is not a failure.
			if errors.Is(err, storage.ErrInvalidTransition) || errors.Is(err, storage.ErrNotFound) {
				log.Printf("archive: session %s already moved: %v", session.ID, err)
				continue
			}
			log.Printf("archive: cold archive of session %s failed: %v", session.ID, err)
			stats.Failed++
			continue
		}
		stats.Archived++
		log.Printf("archive: session %s cold-archived (%d messages)", session.ID, moved)
	}

	return stats, nil
}

// DeepPass serializes the archived messages of every ColdArchived session
// idle for longer than the cold window, writes the dump to the object store,
// and only then purges the relational rows. A backend failure aborts the
// session before any relational mutation, so the pass can safely retry later.
func (a *Archiver) DeepPass(ctx context.Context) (Stats, error) {
	var stats Stats

	now := a.now().UTC()
	sessions, err := a.store.ListSessionsOlderThan(ctx, types.StatusColdArchived, now.Add(-a.policy.ColdWindow), a.batchSize)
	if err != nil {
		return stats, fmt.Errorf("archive: deep pass scan: %w", err)
	}

	for _, session := range sessions {
		if !a.policy.EligibleForDeep(session.UpdatedAt, now) {
			continue
		}
		stats.Scanned++
		if a.DryRun {
			continue
		}

		if err := a.deepArchive(ctx, session.ID); err != nil {
			if errors.Is(err, storage.ErrInvalidTransition) || errors.Is(err, storage.ErrNotFound) {
				log.Printf("archive: session %s already moved: %v", session.ID, err)
				continue
			}
			log.Printf("archive: deep archive of session %s failed: %v", session.ID, err)
			stats.Failed++
			continue
		}
		stats.Archived++
		log.Printf("archive: session %s deep-archived", session.ID)
	}

	return stats, nil
}

// deepArchive moves one session from cold to deep. The object-store write
// happens first; if it fails nothing relational has changed.
func (a *Archiver) deepArchive(ctx context.Context, sessionID uuid.UUID) error {
	messages, err := a.store.ListArchivedMessages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("archive: list archived messages: %w", err)
	}

	dump, err := semantics.SerializeMessages(messages)
	if err != nil {
		return fmt.Errorf("archive: serialize session dump: %w", err)
	}

	key := objectstore.SessionKey(sessionID.String())
	if err := a.backend.Put(ctx, key, dump, messagesContentType); err != nil {
		return fmt.Errorf("archive: store session dump: %w", err)
	}

	if _, err := a.store.MarkDeepArchived(ctx, sessionID); err != nil {
		return err
	}
	return nil
}

// RestoreDeepArchived reads a deep-archived session's dump back from the
// object store. Returns storage.ErrNotFound when no dump exists.
func (a *Archiver) RestoreDeepArchived(ctx context.Context, sessionID uuid.UUID) ([]types.ArchivedMessage, error) {
	data, found, err := a.backend.Get(ctx, objectstore.SessionKey(sessionID.String()))
	if err != nil {
		return nil, fmt.Errorf("archive: fetch session dump: %w", err)
	}
	if !found {
		return nil, storage.ErrNotFound
	}

	messages, err := semantics.ParseMessages(data)
	if err != nil {
		return nil, fmt.Errorf("archive: parse session dump: %w", err)
	}
	for i := range messages {
		messages[i].SessionID = sessionID
	}
	return messages, nil
}

// Run executes both passes on the given interval until ctx is cancelled.
// The first pair of passes runs immediately.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("archive: interval must be positive, got %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.runOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes one cold pass and one deep pass, logging the stats.
func (a *Archiver) RunOnce(ctx context.Context) (cold, deep Stats, err error) {
	cold, err = a.ColdPass(ctx)
	if err != nil {
		return cold, deep, err
	}
	deep, err = a.DeepPass(ctx)
	return cold, deep, err
}

func (a *Archiver) runOnce(ctx context.Context) {
	cold, deep, err := a.RunOnce(ctx)
	if err != nil {
		log.Printf("archive: pass failed: %v", err)
		return
	}
	log.Printf("archive: cold pass scanned=%d archived=%d failed=%d; deep pass scanned=%d archived=%d failed=%d",
		cold.Scanned, cold.Archived, cold.Failed, deep.Scanned, deep.Archived, deep.Failed)
}
