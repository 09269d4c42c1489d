package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is checked before migrating; its presence means the schema is in place.
const sentinelTable = "public.action_events"

var steps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id               TEXT        PRIMARY KEY,
  title            TEXT        NOT NULL DEFAULT '',
  source           TEXT        NOT NULL DEFAULT '',
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  last_ingested_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_findings",
		SQL: `CREATE TABLE IF NOT EXISTS findings (
  id          UUID        PRIMARY KEY,
  document_id TEXT        NOT NULL REFERENCES documents (id),
  section     TEXT        NOT NULL,
  code        TEXT        NOT NULL,
  status      TEXT        NOT NULL CHECK (status IN ('open', 'review', 'resolved')),
  detail      TEXT        NOT NULL DEFAULT '',
  flagged_at  TIMESTAMPTZ NOT NULL,
  updated_at  TIMESTAMPTZ NOT NULL,
  CONSTRAINT uq_findings_document_section_code UNIQUE (document_id, section, code)
);`,
	},
	{
		Name: "create_table_action_events",
		SQL: `CREATE TABLE IF NOT EXISTS action_events (
  action_id       BIGSERIAL   PRIMARY KEY,
  document_id     TEXT        NOT NULL REFERENCES documents (id),
  action_type     TEXT        NOT NULL CHECK (action_type IN ('accept_risk', 'generate_copy', 'escalate_ocr', 'override_red', 'reconstruction_complete')),
  actor_role      TEXT        NOT NULL,
  idempotency_key TEXT        NOT NULL,
  payload         JSONB       NOT NULL DEFAULT '{}'::jsonb,
  created_at      TIMESTAMPTZ NOT NULL,
  CONSTRAINT uq_action_events_idempotency UNIQUE (document_id, action_type, idempotency_key)
);`,
	},
	{
		Name: "create_index_action_events_document",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_action_events_document ON action_events (document_id, created_at, action_id);`,
	},
	{
		Name: "create_rule_action_events_no_update",
		SQL:  `CREATE OR REPLACE RULE action_events_no_update AS ON UPDATE TO action_events DO INSTEAD NOTHING;`,
	},
	{
		Name: "create_rule_action_events_no_delete",
		SQL:  `CREATE OR REPLACE RULE action_events_no_delete AS ON DELETE TO action_events DO INSTEAD NOTHING;`,
	},
	{
		Name: "create_table_batches",
		SQL: `CREATE TABLE IF NOT EXISTS batches (
  id         TEXT        PRIMARY KEY,
  name       TEXT        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_batch_documents",
		SQL: `CREATE TABLE IF NOT EXISTS batch_documents (
  batch_id    TEXT        NOT NULL REFERENCES batches (id),
  document_id TEXT        NOT NULL REFERENCES documents (id),
  added_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (batch_id, document_id)
);`,
	},
	{
		Name: "create_table_review_requests",
		SQL: `CREATE TABLE IF NOT EXISTS review_requests (
  id                UUID        PRIMARY KEY,
  document_id       TEXT        NOT NULL REFERENCES documents (id),
  actor_role        TEXT        NOT NULL,
  question          TEXT        NOT NULL,
  preflight_context JSON,
  created_at        TIMESTAMPTZ NOT NULL
);`,
	},
	{
		Name: "create_index_findings_document",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_findings_document ON findings (document_id, updated_at);`,
	},
}

// EnsureMigrated checks if the ledger table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass($1) IS NOT NULL"
	err := db.QueryRowContext(ctx, query, sentinelTable).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
		"steps":     len(steps),
	})

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	if loc == nil {
		loc = time.UTC
	}
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
