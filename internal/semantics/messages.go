package semantics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/scrypster/membase/pkg/types"
)

// Deep-archived session dumps use the same JSONL discipline as the knowledge
// collection: one JSON array per line, here [role, content, created_at] with
// the timestamp in RFC 3339. The decode tolerances match ParseTriples.

// SerializeMessages encodes archived messages as JSONL, order preserved.
func SerializeMessages(messages []types.ArchivedMessage) ([]byte, error) {
	lines := make([][]byte, 0, len(messages))
	for _, m := range messages {
		line, err := marshalNoEscape([]string{m.Role, m.Content, m.CreatedAt.UTC().Format(time.RFC3339)})
		if err != nil {
			return nil, fmt.Errorf("semantics: failed to encode message: %w", err)
		}
		lines = append(lines, line)
	}
	return bytes.Join(lines, []byte("\n")), nil
}

// ParseMessages decodes a session dump. Blank lines are skipped; non-array
// and short lines are dropped; an unparseable timestamp leaves CreatedAt zero
// rather than failing the whole dump.
func ParseMessages(raw []byte) ([]types.ArchivedMessage, error) {
	messages := []types.ArchivedMessage{}
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var value any
		if err := json.Unmarshal([]byte(line), &value); err != nil {
			return nil, fmt.Errorf("semantics: failed to decode message line: %w", err)
		}
		arr, ok := value.([]any)
		if !ok || len(arr) < 3 {
			continue
		}

		msg := types.ArchivedMessage{
			Role:    coerceString(arr[0]),
			Content: coerceString(arr[1]),
		}
		if ts, err := time.Parse(time.RFC3339, coerceString(arr[2])); err == nil {
			msg.CreatedAt = ts
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
