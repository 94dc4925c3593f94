package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when an insert collides with an existing primary key
	ErrDuplicateID = errors.New("duplicate id")
)

const dsnParams = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS tours (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	city TEXT NOT NULL,
	venue TEXT NOT NULL,
	ticket_link TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS gallery (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	order_num INTEGER NOT NULL DEFAULT 0,
	media_type TEXT NOT NULL DEFAULT 'photo' CHECK (media_type IN ('photo', 'video')),
	thumbnail TEXT NOT NULL DEFAULT '',
	mime_type TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gallery_order ON gallery (order_num, created_at);

CREATE TABLE IF NOT EXISTS gallery_settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	enabled INTEGER NOT NULL DEFAULT 1,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS countdown (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	release_date DATETIME,
	enabled INTEGER NOT NULL DEFAULT 0,
	completed_title TEXT NOT NULL DEFAULT '',
	completed_description TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL
);
`

// DB wraps the SQLite handle that backs every repository
type DB struct {
	*sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the SQLite file at path and applies the schema
func Open(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DB{DB: conn, path: path, now: time.Now}, nil
}

// Path returns the database file location
func (db *DB) Path() string {
	return db.path
}

// Backup writes a consistent copy of the database into dir and returns the file path.
// The copy is named after the database file plus a timestamp.
func (db *DB) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(db.path), filepath.Ext(db.path))
	stamp := db.now().UTC().Format("20060102-150405")

	target := filepath.Join(dir, fmt.Sprintf("%s-%s.db", base, stamp))
	for i := 2; fileExists(target); i++ {
		target = filepath.Join(dir, fmt.Sprintf("%s-%s-%d.db", base, stamp, i))
	}

	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", target); err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}

	return target, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newStatementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

// isDuplicateKey reports whether err is a primary key or unique constraint violation
func isDuplicateKey(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
