package objectstore

// Canonical object key layout:
//
//	profiles/{user_id}.json    — user profile, JSON object, UTF-8
//	knowledge/{user_id}.jsonl  — knowledge triples, newline-delimited JSON
//	sessions/{session_id}.jsonl — deep-archived session message dump
//
// None of these validate their argument: callers must ensure the identifier
// is path-safe. That is a documented obligation, not a checked contract.

// ProfileKey returns the storage key for a user's profile document.
func ProfileKey(userID string) string {
	return "profiles/" + userID + ".json"
}

// KnowledgeKey returns the storage key for a user's knowledge triples.
func KnowledgeKey(userID string) string {
	return "knowledge/" + userID + ".jsonl"
}

// SessionKey returns the storage key for a deep-archived session dump.
func SessionKey(sessionID string) string {
	return "sessions/" + sessionID + ".jsonl"
}
