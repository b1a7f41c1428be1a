package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent. The partial unique index is what makes a second active
// booking of the same doctor/date/time fail atomically.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS appointments (
		id            UUID PRIMARY KEY,
		seq           BIGSERIAL NOT NULL,
		user_id       TEXT NOT NULL,
		hospital_id   TEXT NOT NULL,
		hospital_name TEXT NOT NULL DEFAULT '',
		category_id   TEXT NOT NULL,
		category_name TEXT NOT NULL DEFAULT '',
		doctor_id     TEXT NOT NULL,
		doctor_name   TEXT NOT NULL DEFAULT '',
		date          TEXT NOT NULL,
		time          TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'confirmed', 'cancelled')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_uq
		ON appointments (doctor_id, date, time)
		WHERE status <> 'cancelled'`,
	`CREATE INDEX IF NOT EXISTS appointments_user_id_idx ON appointments (user_id)`,
	`CREATE INDEX IF NOT EXISTS appointments_hospital_id_idx ON appointments (hospital_id)`,
	`CREATE INDEX IF NOT EXISTS appointments_doctor_id_idx ON appointments (doctor_id)`,
	`CREATE INDEX IF NOT EXISTS appointments_status_idx ON appointments (status)`,
	`CREATE INDEX IF NOT EXISTS appointments_schedule_idx ON appointments (date, time, seq)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
