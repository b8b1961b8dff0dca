package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

// Dialect names a supported database/sql driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "pgx"
)

// ParseDialect accepts the driver name or a common alias.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("sqlstore: unsupported dialect %q", s)
	}
}

// SQLite DSN parameters.
const (
	sqliteBusyTimeout = "5000"
	sqliteSynchronous = "NORMAL"
	sqliteJournalMode = "WAL"
)

// Store implements tenantAuth.AccountStore, tenantAuth.TenantGraph, and
// tenantAuth.SessionRecorder on a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var (
	_ tenantAuth.AccountStore     = (*Store)(nil)
	_ tenantAuth.AccountDirectory = (*Store)(nil)
	_ tenantAuth.TenantGraph      = (*Store)(nil)
	_ tenantAuth.SessionRecorder  = (*Store)(nil)
)

// Open connects to dsn with the driver for dialect and verifies the
// connection. For SQLite, dsn is a file path or ":memory:".
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case DialectSQLite:
		db, err = sql.Open(string(DialectSQLite), sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite serializes writers; a single connection also keeps an
		// in-memory database alive for the life of the pool.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	case DialectPostgres:
		db, err = sql.Open(string(DialectPostgres), dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(15 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	return &Store{db: db, dialect: dialect}, nil
}

// New wraps an existing pool.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() Dialect { return s.dialect }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", tenantAuth.ErrStoreUnavailable, err)
	}
	return nil
}

func sqliteDSN(path string) string {
	params := url.Values{}
	params.Set("_busy_timeout", sqliteBusyTimeout)
	params.Set("_foreign_keys", "on")
	if path != ":memory:" {
		params.Set("_journal_mode", sqliteJournalMode)
		params.Set("_synchronous", sqliteSynchronous)
		params.Set("_txlock", "immediate")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// mapError translates driver errors into tenantAuth sentinels. Unique
// violations name the column when it can be identified.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return tenantAuth.ErrNotFound
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case "23505":
			return conflictFor(pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", tenantAuth.ErrNotFound, pgErr.ConstraintName)
		}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return conflictFor(liteErr.Error())
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", tenantAuth.ErrNotFound, liteErr)
		}
	}
	return fmt.Errorf("%w: %v", tenantAuth.ErrStoreUnavailable, err)
}

// conflictFor matches PostgreSQL constraint names ("accounts_username_key")
// and SQLite messages ("UNIQUE constraint failed: accounts.username").
func conflictFor(detail string) error {
	switch {
	case strings.Contains(detail, "accounts_username_key"), strings.Contains(detail, "accounts.username"):
		return tenantAuth.ErrUsernameTaken
	case strings.Contains(detail, "accounts_email_key"), strings.Contains(detail, "accounts.email"):
		return tenantAuth.ErrEmailTaken
	case strings.Contains(detail, "accounts_phone_key"), strings.Contains(detail, "accounts.phone"):
		return tenantAuth.ErrPhoneTaken
	default:
		return fmt.Errorf("%w: %s", tenantAuth.ErrConflict, detail)
	}
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}
