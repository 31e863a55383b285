package types

import "fmt"

// SessionStatus is the archival tier a session currently lives in.
// The numeric values are stored in the sessions.status column and must not
// be reordered.
type SessionStatus uint8

const (
	// StatusActive: hot tier, fully queryable, messages carry embeddings.
	StatusActive SessionStatus = 1

	// StatusColdArchived: messages moved to the archive table without embeddings.
	StatusColdArchived SessionStatus = 2

	// StatusDeepArchived: serialized to object storage; relational rows purged.
	StatusDeepArchived SessionStatus = 3

	// StatusDeleted: retained as a tombstone by retention policy.
	StatusDeleted SessionStatus = 4
)

// String returns the human-readable name of the status.
func (s SessionStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusColdArchived:
		return "cold_archived"
	case StatusDeepArchived:
		return "deep_archived"
	case StatusDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// IsValid reports whether s is one of the four defined statuses.
func (s SessionStatus) IsValid() bool {
	return s >= StatusActive && s <= StatusDeleted
}

// CanTransitionTo validates a status transition. Transitions are forward-only:
//
//	active        -> cold_archived | deleted
//	cold_archived -> deep_archived | deleted
//	deep_archived -> deleted
//	deleted       -> (terminal)
//
// There is no skip-back; re-hydrating a deep-archived session is a distinct
// operation layered above this package, not a transition.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusActive:
		return next == StatusColdArchived || next == StatusDeleted
	case StatusColdArchived:
		return next == StatusDeepArchived || next == StatusDeleted
	case StatusDeepArchived:
		return next == StatusDeleted
	case StatusDeleted:
		return false
	default:
		return false
	}
}
