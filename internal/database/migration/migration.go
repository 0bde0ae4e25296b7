package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id         TEXT        PRIMARY KEY,
  username   TEXT        NOT NULL DEFAULT '',
  role       TEXT        NOT NULL DEFAULT '',
  is_admin   BOOLEAN     NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_donations",
		SQL: `CREATE TABLE IF NOT EXISTS donations (
  id             UUID          PRIMARY KEY,
  donor_id       TEXT          NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  donor_name     TEXT,
  contact_number TEXT,
  name           TEXT          NOT NULL,
  description    TEXT          NOT NULL DEFAULT '',
  quantity       INTEGER       NOT NULL CHECK (quantity >= 0),
  expiry_time    TIMESTAMPTZ,
  location       TEXT          NOT NULL DEFAULT '',
  latitude       NUMERIC(9,6),
  longitude      NUMERIC(9,6),
  is_claimed     BOOLEAN       NOT NULL DEFAULT FALSE,
  is_expired     BOOLEAN       NOT NULL DEFAULT FALSE,
  claimed_via    TEXT          CHECK (claimed_via IN ('direct', 'order')),
  claimed_at     TIMESTAMPTZ,
  created_at     TIMESTAMPTZ   NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_donations_state",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_donations_state ON donations (is_claimed, is_expired, expiry_time);`,
	},
	{
		Name: "create_index_donations_donor",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_donations_donor ON donations (donor_id, created_at DESC);`,
	},
	{
		Name: "create_table_donation_images",
		SQL: `CREATE TABLE IF NOT EXISTS donation_images (
  id           UUID        PRIMARY KEY,
  donation_id  UUID        NOT NULL REFERENCES donations (id) ON DELETE CASCADE,
  storage_key  TEXT        NOT NULL UNIQUE,
  content_type TEXT        NOT NULL,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  uploaded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_donation_images_donation",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_donation_images_donation ON donation_images (donation_id, uploaded_at);`,
	},
	{
		Name: "create_table_orders",
		SQL: `CREATE TABLE IF NOT EXISTS orders (
  id                UUID         PRIMARY KEY,
  donation_id       UUID         NOT NULL REFERENCES donations (id) ON DELETE CASCADE,
  user_id           TEXT         NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  confirmation_note TEXT         NOT NULL,
  latitude          NUMERIC(9,6),
  longitude         NUMERIC(9,6),
  created_at        TIMESTAMPTZ  NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_orders_user",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at DESC);`,
	},
	{
		Name: "create_unique_index_orders_donation",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_orders_donation ON orders (donation_id);`,
	},
}

// EnsureMigrated checks if the 'orders' table exists and runs migrations if it doesn't.
// Every step is idempotent, so a run interrupted before orders exists is safe to repeat.
func EnsureMigrated(ctx context.Context, db *sql.DB, log zerolog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Str("status", "starting").Send()

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass('public.orders') IS NOT NULL").Scan(&exists)
	if err != nil {
		log.Error().Err(err).
			Str("event", "db_migration_failed").
			Str("status", "error").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	log.Info().Str("event", "db_migration_start").Str("status", "in_progress").Send()

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().Err(err).
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Send()
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Debug().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Send()
	}

	log.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int("steps", len(steps)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Send()

	return nil
}
