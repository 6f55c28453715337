// Package storedb opens sqlite databases and applies versioned schema
// migrations tracked per module.
package storedb

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jingkaihe/zygiskhost/internal/errx"
)

// Migration is one schema step. Versions are unique and positive within a
// module and applied in ascending order.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// OpenOptions configures Open.
type OpenOptions struct {
	Path       string
	Module     string
	Migrations []Migration
}

// Open opens the database at opts.Path, creating its directory, and applies
// every migration of opts.Module that has not been applied yet.
func Open(opts OpenOptions) (*sql.DB, error) {
	migrations, err := sortMigrations(opts.Migrations)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
		return nil, errx.Wrap(ErrCreateDir, err)
	}

	db, err := sql.Open("sqlite", opts.Path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errx.Wrap(ErrOpen, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errx.Wrap(ErrOpen, err)
	}

	if err := migrate(db, opts.Module, migrations); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func sortMigrations(in []Migration) ([]Migration, error) {
	out := make([]Migration, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for i, m := range out {
		if m.Version <= 0 {
			return nil, errx.With(ErrBadMigrations, ": version %d of %q", m.Version, m.Name)
		}
		if i > 0 && out[i-1].Version == m.Version {
			return nil, errx.With(ErrBadMigrations, ": duplicate version %d", m.Version)
		}
	}
	return out, nil
}

func migrate(db *sql.DB, module string, migrations []Migration) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  module TEXT NOT NULL,
  version INTEGER NOT NULL,
  name TEXT NOT NULL,
  applied_at TEXT NOT NULL,
  PRIMARY KEY (module, version)
)`); err != nil {
		return errx.Wrap(ErrMigrate, err)
	}

	applied := make(map[int]bool)
	rows, err := db.Query(`SELECT version FROM schema_migrations WHERE module = ?`, module)
	if err != nil {
		return errx.Wrap(ErrMigrate, err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return errx.Wrap(ErrMigrate, err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errx.Wrap(ErrMigrate, err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return errx.Wrap(ErrMigrate, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return errx.With(ErrMigrate, " %s v%d %s: %w", module, m.Version, m.Name, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (module, version, name, applied_at) VALUES (?, ?, ?, ?)`,
			module, m.Version, m.Name, time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			tx.Rollback()
			return errx.Wrap(ErrMigrate, err)
		}
		if err := tx.Commit(); err != nil {
			return errx.Wrap(ErrMigrate, err)
		}
	}
	return nil
}
