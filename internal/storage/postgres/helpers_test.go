// This file contains test helpers only available during testing.
package postgres

import (
	"context"
	"fmt"
)

// TruncateForTest removes all rows from the session tables. It is intended
// for use in tests only; it lives in the postgres package (not postgres_test)
// so it has access to the unexported db field.
func (s *Store) TruncateForTest(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"TRUNCATE TABLE sessions, messages_archive, audit_logs, employee_roles CASCADE")
	if err != nil {
		return fmt.Errorf("postgres: failed to truncate: %w", err)
	}
	return nil
}
