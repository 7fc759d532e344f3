package db

import (
	"context"
	"fmt"
	"log/slog"
)

// Migration is one named, idempotent schema change.
type Migration struct {
	Name string
	SQL  string
}

// Migrations lists every schema change in the order it must be applied.
var Migrations = []Migration{
	{
		Name: "create_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			password_set  BOOLEAN NOT NULL DEFAULT FALSE,
			phone         TEXT NOT NULL DEFAULT '',
			location      TEXT NOT NULL DEFAULT '',
			linkedin      TEXT NOT NULL DEFAULT '',
			github        TEXT NOT NULL DEFAULT '',
			website       TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		Name: "create_skills",
		SQL: `CREATE TABLE IF NOT EXISTS skills (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			skill_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, skill_name)
		)`,
	},
	{
		Name: "create_experiences",
		SQL: `CREATE TABLE IF NOT EXISTS experiences (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id         UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			experience_name TEXT NOT NULL,
			start_year      TEXT NOT NULL DEFAULT '',
			end_year        TEXT NOT NULL DEFAULT '',
			ongoing         BOOLEAN NOT NULL DEFAULT FALSE,
			years           TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, experience_name, start_year, end_year, ongoing)
		)`,
	},
	{
		Name: "create_projects",
		SQL: `CREATE TABLE IF NOT EXISTS projects (
			id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id      UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			project_name TEXT NOT NULL,
			github_link  TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, project_name, github_link)
		)`,
	},
	{
		Name: "create_educations",
		SQL: `CREATE TABLE IF NOT EXISTS educations (
			id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id        UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			education_name TEXT NOT NULL,
			institution    TEXT NOT NULL DEFAULT '',
			start          TEXT NOT NULL DEFAULT '',
			"end"          TEXT NOT NULL DEFAULT '',
			grade          TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, education_name, institution, start, "end", grade)
		)`,
	},
	{
		Name: "create_reference_entries",
		SQL: `CREATE TABLE IF NOT EXISTS reference_entries (
			id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id           UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			referer_name      TEXT NOT NULL,
			referer_institute TEXT NOT NULL DEFAULT '',
			position          TEXT NOT NULL DEFAULT '',
			connection_type   TEXT NOT NULL DEFAULT '',
			institution_url   TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, referer_name, referer_institute, position)
		)`,
	},
	{
		Name: "create_summaries",
		SQL: `CREATE TABLE IF NOT EXISTS summaries (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, text)
		)`,
	},
	bulletTable("skill_bullets", "skills"),
	bulletTable("experience_bullets", "experiences"),
	bulletTable("project_bullets", "projects"),
	hashedTextKey("summaries", "summaries_user_id_text_key", "user_id, text_sha256"),
	hashedTextKey("skill_bullets", "skill_bullets_fragment_id_text_dup_seq_key", bulletKey),
	hashedTextKey("experience_bullets", "experience_bullets_fragment_id_text_dup_seq_key", bulletKey),
	hashedTextKey("project_bullets", "project_bullets_fragment_id_text_dup_seq_key", bulletKey),
}

// bulletKey is the ON CONFLICT target of the bullet tables.
const bulletKey = "fragment_id, text_sha256, dup_seq"

func bulletTable(table, parent string) Migration {
	return Migration{
		Name: "create_" + table,
		SQL: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
			id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			fragment_id UUID NOT NULL REFERENCES %[2]s(id) ON DELETE CASCADE,
			text        TEXT NOT NULL,
			dup_seq     INTEGER NOT NULL DEFAULT 0,
			ordinal     INTEGER NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (fragment_id, text, dup_seq)
		);
		CREATE INDEX IF NOT EXISTS %[1]s_fragment_ordinal_idx ON %[1]s (fragment_id, ordinal)`, table, parent),
	}
}

// hashedTextKey moves the text column of table out of its unique constraint.
// Btree index rows are capped at about 2.7 KB, so uniqueness is enforced on a
// stored SHA-256 of the text instead.
func hashedTextKey(table, constraint, keyCols string) Migration {
	return Migration{
		Name: "hash_" + table + "_text_key",
		SQL: fmt.Sprintf(`ALTER TABLE %[1]s ADD COLUMN IF NOT EXISTS text_sha256 BYTEA
			GENERATED ALWAYS AS (sha256(convert_to(text, 'UTF8'))) STORED;
		ALTER TABLE %[1]s DROP CONSTRAINT IF EXISTS %[2]s;
		CREATE UNIQUE INDEX IF NOT EXISTS %[1]s_text_sha256_key ON %[1]s (%[3]s)`,
			table, constraint, keyCols),
	}
}

// Migrate applies every migration that has not been recorded in
// schema_migrations, each in its own transaction.
func (db *DB) Migrate(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := db.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	logger.InfoContext(ctx, "starting database migrations", "count", len(Migrations))
	for _, m := range Migrations {
		applied, err := db.applyMigration(ctx, m)
		if err != nil {
			logger.ErrorContext(ctx, "migration failed", "name", m.Name, "error", err)
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		if applied {
			logger.InfoContext(ctx, "migration applied", "name", m.Name)
		}
	}
	logger.InfoContext(ctx, "database migrations complete")
	return nil
}

func (db *DB) applyMigration(ctx context.Context, m Migration) (applied bool, err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = rollback(ctx, tx)
	}()

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, m.Name,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check migration state: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.Name); err != nil {
		return false, fmt.Errorf("failed to record migration: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit migration: %w", err)
	}
	return true, nil
}
