package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"worksheet/internal/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and the small syntax differences between
// backends.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// ParseDialect accepts the driver names used in configuration.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	}
	return "", fmt.Errorf("unknown storage driver %q", s)
}

// DB wraps the SQL connection shared by all stores.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// New opens (or creates) the SQLite file at dbPath.
func New(dbPath string) (*DB, error) {
	return Open(DialectSQLite, dbPath)
}

// Open connects to the given backend and runs migrations. For SQLite dsn is
// a file path.
func Open(dialect Dialect, dsn string) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch dialect {
	case DialectSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		conn, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
		if err == nil {
			// SQLite only supports one writer
			conn.SetMaxOpenConns(1)
		}
	case DialectPostgres:
		conn, err = sql.Open("postgres", dsn)
	case DialectMySQL:
		var cfg *mysql.Config
		cfg, err = mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		// report matched rather than changed rows from UPDATE
		cfg.ClientFoundRows = true
		conn, err = sql.Open("mysql", cfg.FormatDSN())
	default:
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	db := &DB{conn: conn, dialect: dialect}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// ─────────────────────────────────────────────────────────────
// Query helpers
// ─────────────────────────────────────────────────────────────

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(db.rebind(query), args...)
}

func (db *DB) query(query string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(db.rebind(query), args...)
}

func (db *DB) queryRow(query string, args ...any) *sql.Row {
	return db.conn.QueryRow(db.rebind(query), args...)
}

// notFound maps sql.ErrNoRows to the domain sentinel.
func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// ─────────────────────────────────────────────────────────────
// Migrations
// ─────────────────────────────────────────────────────────────

type columnTypes struct {
	seq string
	id  string
	ts  string
}

func (db *DB) columns() columnTypes {
	switch db.dialect {
	case DialectPostgres:
		return columnTypes{seq: "BIGSERIAL PRIMARY KEY", id: "VARCHAR(64)", ts: "TIMESTAMPTZ"}
	case DialectMySQL:
		return columnTypes{seq: "BIGINT AUTO_INCREMENT PRIMARY KEY", id: "VARCHAR(64)", ts: "DATETIME(6)"}
	default:
		return columnTypes{seq: "INTEGER PRIMARY KEY AUTOINCREMENT", id: "VARCHAR(64)", ts: "TIMESTAMP"}
	}
}

func (db *DB) migrations() []string {
	c := db.columns()
	ifNotExists := "IF NOT EXISTS "
	if db.dialect == DialectMySQL {
		ifNotExists = ""
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS worksheets (
			id ` + c.id + ` PRIMARY KEY,
			name TEXT NOT NULL,
			icon TEXT NOT NULL,
			created_at ` + c.ts + ` NOT NULL,
			updated_at ` + c.ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pages (
			id ` + c.id + ` PRIMARY KEY,
			worksheet_id ` + c.id + ` NOT NULL,
			name TEXT NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			properties_json TEXT NOT NULL,
			created_at ` + c.ts + ` NOT NULL,
			updated_at ` + c.ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS elements (
			seq ` + c.seq + `,
			id ` + c.id + ` NOT NULL UNIQUE,
			page_id ` + c.id + ` NOT NULL,
			type VARCHAR(128) NOT NULL,
			x DOUBLE PRECISION NOT NULL DEFAULT 0,
			y DOUBLE PRECISION NOT NULL DEFAULT 0,
			width DOUBLE PRECISION NOT NULL DEFAULT 0,
			height DOUBLE PRECISION NOT NULL DEFAULT 0,
			properties_json TEXT NOT NULL,
			created_at ` + c.ts + ` NOT NULL,
			updated_at ` + c.ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS edits (
			seq ` + c.seq + `,
			id ` + c.id + ` NOT NULL UNIQUE,
			session_id ` + c.id + ` NOT NULL,
			selection_key VARCHAR(255) NOT NULL DEFAULT '',
			instruction TEXT NOT NULL,
			changes_json TEXT NOT NULL,
			success INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL,
			created_at ` + c.ts + ` NOT NULL
		)`,
		`CREATE INDEX ` + ifNotExists + `idx_pages_worksheet ON pages(worksheet_id)`,
		`CREATE INDEX ` + ifNotExists + `idx_elements_page ON elements(page_id)`,
		`CREATE INDEX ` + ifNotExists + `idx_edits_session ON edits(session_id)`,
	}
}

func (db *DB) migrate() error {
	for _, m := range db.migrations() {
		if _, err := db.conn.Exec(m); err != nil {
			if isDuplicateIndex(err) {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

// isDuplicateIndex reports whether CREATE INDEX failed because the index
// exists. MySQL has no IF NOT EXISTS for indexes.
func isDuplicateIndex(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1061
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P07"
	}
	return false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
