// internal/repository/postgres/schema.go
package postgres

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS installment_submissions (
		id                     BIGSERIAL PRIMARY KEY,
		session_id             VARCHAR(26) NOT NULL,
		course_id              VARCHAR(64) NOT NULL,
		validity_id            VARCHAR(64) NOT NULL,
		plan_type              VARCHAR(64) NOT NULL,
		number_of_installments INT NOT NULL CHECK (number_of_installments BETWEEN 1 AND 24),
		price                  NUMERIC(12,2) NOT NULL,
		discount               NUMERIC(5,2) NOT NULL,
		status                 VARCHAR(16) NOT NULL,
		failure_reason         TEXT,
		submitted_by           BIGINT,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_installment_submissions_course ON installment_submissions (course_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS live_class_status_transitions (
		id          BIGSERIAL PRIMARY KEY,
		class_id    VARCHAR(64) NOT NULL,
		course_ids  TEXT[] NOT NULL DEFAULT '{}',
		from_status VARCHAR(16) NOT NULL,
		to_status   VARCHAR(16) NOT NULL,
		source      VARCHAR(16) NOT NULL,
		message     TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_live_class_transitions_class ON live_class_status_transitions (class_id, created_at DESC)`,
}

// EnsureSchema creates the audit tables when they are missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return tx.Commit(ctx)
}
