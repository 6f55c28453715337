package mount

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/storedb"
)

// Record is one journaled unmount attempt.
type Record struct {
	Invocation string
	Target     string
	MountID    int
	Raw        string
	OK         bool
	Error      string
	At         time.Time
}

// NewRecord converts an outcome into a journal record.
func NewRecord(invocation string, o Outcome) Record {
	r := Record{
		Invocation: invocation,
		Target:     o.Trace.Target,
		MountID:    o.Trace.ID,
		Raw:        o.Trace.Raw,
		OK:         o.OK(),
		At:         time.Now().UTC(),
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}

// Journal stores unmount attempts.
type Journal interface {
	Append(ctx context.Context, r Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// MemoryJournal keeps records in memory.
type MemoryJournal struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(_ context.Context, r Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, r)
	return nil
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (j *MemoryJournal) Recent(_ context.Context, limit int) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Record, 0, len(j.records))
	for i := len(j.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, j.records[i])
	}
	return out, nil
}

func (j *MemoryJournal) Close() error { return nil }

const journalModule = "mount_journal"

func journalMigrations() []storedb.Migration {
	return []storedb.Migration{
		{
			Version: 1,
			Name:    "create_unmounts",
			SQL: `
CREATE TABLE IF NOT EXISTS unmounts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  invocation TEXT NOT NULL,
  target TEXT NOT NULL,
  mount_id INTEGER NOT NULL,
  raw TEXT NOT NULL DEFAULT '',
  ok INTEGER NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_unmounts_target ON unmounts(target);
`,
		},
	}
}

// SQLiteJournal stores records in a sqlite database.
type SQLiteJournal struct {
	db *sql.DB
}

// OpenSQLiteJournal opens or creates the journal database at path.
func OpenSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := storedb.Open(storedb.OpenOptions{
		Path:       path,
		Module:     journalModule,
		Migrations: journalMigrations(),
	})
	if err != nil {
		return nil, errx.Wrap(ErrJournal, err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) Append(ctx context.Context, r Record) error {
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO unmounts (invocation, target, mount_id, raw, ok, error, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Invocation, r.Target, r.MountID, r.Raw, r.OK, r.Error, r.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errx.Wrap(ErrJournal, err)
	}
	return nil
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT invocation, target, mount_id, raw, ok, error, at FROM unmounts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errx.Wrap(ErrJournal, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r  Record
			at string
		)
		if err := rows.Scan(&r.Invocation, &r.Target, &r.MountID, &r.Raw, &r.OK, &r.Error, &at); err != nil {
			return nil, errx.Wrap(ErrJournal, err)
		}
		r.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.Wrap(ErrJournal, err)
	}
	return out, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
