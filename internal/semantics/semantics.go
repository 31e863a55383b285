// Package semantics defines the canonical byte formats for the deep-tier
// documents — user profiles (JSON) and knowledge triples (JSONL) — and the
// load/save/retrieve operations over any objectstore.Backend.
//
// Non-ASCII text passes through the codecs literally: user-facing content is
// frequently non-Latin script, and escaped output would be unreadable in the
// stored objects.
package semantics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scrypster/membase/internal/objectstore"
	"github.com/scrypster/membase/pkg/types"
)

// Content types passed to the backend as advisory metadata.
const (
	profileContentType = "application/json"
	triplesContentType = "application/x-ndjson"
)

// SerializeProfile encodes a profile map as canonical JSON. HTML escaping is
// off so non-ASCII and <, >, & survive literally.
func SerializeProfile(profile types.Profile) ([]byte, error) {
	raw, err := marshalNoEscape(profile)
	if err != nil {
		return nil, fmt.Errorf("semantics: failed to encode profile: %w", err)
	}
	return raw, nil
}

// ParseProfile decodes JSON bytes into a profile map. Malformed input is a
// decode error, propagated — never swallowed.
func ParseProfile(raw []byte) (types.Profile, error) {
	var profile types.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("semantics: failed to decode profile: %w", err)
	}
	return profile, nil
}

// SerializeTriples encodes triples as JSONL: one 3-element JSON array per
// line, insertion order preserved.
func SerializeTriples(triples []types.Triple) ([]byte, error) {
	lines := make([][]byte, 0, len(triples))
	for _, t := range triples {
		line, err := marshalNoEscape([]string{t.Subject, t.Predicate, t.Object})
		if err != nil {
			return nil, fmt.Errorf("semantics: failed to encode triple: %w", err)
		}
		lines = append(lines, line)
	}
	return bytes.Join(lines, []byte("\n")), nil
}

// ParseTriples decodes a JSONL payload into triples. Blank lines are skipped.
// A line parsing to a non-array value or to fewer than three elements is
// dropped silently; elements beyond the third are ignored. A non-blank line
// that is not valid JSON is a decode error. The permissive stance favors
// availability: the format is written by the same system that reads it.
func ParseTriples(raw []byte) ([]types.Triple, error) {
	triples := []types.Triple{}
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var value any
		if err := json.Unmarshal([]byte(line), &value); err != nil {
			return nil, fmt.Errorf("semantics: failed to decode triple line: %w", err)
		}
		arr, ok := value.([]any)
		if !ok || len(arr) < 3 {
			continue
		}

		triples = append(triples, types.Triple{
			Subject:   coerceString(arr[0]),
			Predicate: coerceString(arr[1]),
			Object:    coerceString(arr[2]),
		})
	}
	return triples, nil
}

// LoadUserProfile loads a user's profile through the backend. An absent key
// returns (nil, nil): a user with no profile yet is normal control flow.
func LoadUserProfile(ctx context.Context, backend objectstore.Backend, userID string) (types.Profile, error) {
	data, found, err := backend.Get(ctx, objectstore.ProfileKey(userID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return ParseProfile(data)
}

// SaveUserProfile stores a user's profile, overwriting the whole document.
func SaveUserProfile(ctx context.Context, backend objectstore.Backend, userID string, profile types.Profile) error {
	raw, err := SerializeProfile(profile)
	if err != nil {
		return err
	}
	return backend.Put(ctx, objectstore.ProfileKey(userID), raw, profileContentType)
}

// LoadKnowledgeTriples loads a user's triple collection. An absent key
// returns an empty collection, not an error.
func LoadKnowledgeTriples(ctx context.Context, backend objectstore.Backend, userID string) ([]types.Triple, error) {
	data, found, err := backend.Get(ctx, objectstore.KnowledgeKey(userID))
	if err != nil {
		return nil, err
	}
	if !found {
		return []types.Triple{}, nil
	}
	return ParseTriples(data)
}

// SaveKnowledgeTriples stores a user's triples, overwriting the whole
// collection.
func SaveKnowledgeTriples(ctx context.Context, backend objectstore.Backend, userID string, triples []types.Triple) error {
	raw, err := SerializeTriples(triples)
	if err != nil {
		return err
	}
	return backend.Put(ctx, objectstore.KnowledgeKey(userID), raw, triplesContentType)
}

// RetrieveRelevantKnowledge loads a user's triples and filters them by
// keyword match. A blank query returns the first topK triples in stored
// order; otherwise the trimmed query is matched case-insensitively as a
// substring of "subject predicate object". Matches keep their original
// order and are truncated to topK. No scoring, no deduplication — vector
// similarity belongs to the hot tier's embedding column, not this baseline.
func RetrieveRelevantKnowledge(ctx context.Context, backend objectstore.Backend, userID, query string, topK int) ([]types.Triple, error) {
	triples, err := LoadKnowledgeTriples(ctx, backend, userID)
	if err != nil {
		return nil, err
	}
	if topK < 0 {
		topK = 0
	}

	if strings.TrimSpace(query) == "" {
		if len(triples) > topK {
			triples = triples[:topK]
		}
		return triples, nil
	}

	q := strings.ToLower(strings.TrimSpace(query))
	matched := []types.Triple{}
	for _, t := range triples {
		if len(matched) >= topK {
			break
		}
		haystack := strings.ToLower(t.Subject + " " + t.Predicate + " " + t.Object)
		if strings.Contains(haystack, q) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

// marshalNoEscape is json.Marshal with HTML escaping off and no trailing
// newline.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// coerceString renders a decoded JSON value as text, matching the permissive
// decode: numbers and booleans in a triple slot become their textual form.
func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := marshalNoEscape(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
