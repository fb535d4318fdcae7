package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Поддерживаемые драйверы БД.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type DB struct {
	Conn    *sql.DB
	Dialect string
	Log     *zap.Logger
}

func NewDB(conn *sql.DB) *DB {
	return &DB{Conn: conn, Dialect: DialectPostgres}
}

func (db *DB) logger() *zap.Logger {
	if db.Log == nil {
		return zap.NewNop()
	}
	return db.Log
}

// Open подключается к БД указанного драйвера и проверяет соединение.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	if driver == DialectSQLite && !strings.Contains(dsn, "_pragma=foreign_keys") {
		// Прагма в DSN применяется к каждому новому соединению пула
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DialectSQLite {
		// SQLite не любит параллельную запись, держим одно соединение
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &DB{Conn: conn, Dialect: driver}, nil
}

// timestamp читает время и в виде time.Time (lib/pq), и в виде текста,
// который SQLite отдаёт для CURRENT_TIMESTAMP.
type timestamp struct{ t *time.Time }

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func scanTime(t *time.Time) sql.Scanner { return timestamp{t: t} }

func (ts timestamp) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case time.Time:
		*ts.t = v
		return nil
	case nil:
		*ts.t = time.Time{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			*ts.t = t
			return nil
		}
	}
	return fmt.Errorf("parse time %q", raw)
}

// Close закрывает соединение с БД.
func (db *DB) Close() error {
	return db.Conn.Close()
}

// Migrate создаёт недостающие таблицы и индексы.
func (db *DB) Migrate(ctx context.Context) error {
	stmts := postgresSchema
	if db.Dialect == DialectSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.Conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		telegram_id TEXT NOT NULL UNIQUE,
		chat_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		channel_id TEXT NOT NULL,
		channel_name TEXT NOT NULL,
		max_summary_length INTEGER NOT NULL DEFAULT 150,
		summary_frequency TEXT NOT NULL DEFAULT 'daily',
		include_hashtags BOOLEAN NOT NULL DEFAULT FALSE,
		include_user_mentions BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, channel_id)
	)`,
	`CREATE TABLE IF NOT EXISTS summaries (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		channel_id INTEGER REFERENCES channels(id) ON DELETE SET NULL,
		channel_name TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_user_created ON summaries (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_channel_created ON summaries (channel_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS telegram_session (
		name TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_id TEXT NOT NULL UNIQUE,
		chat_id TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		channel_id TEXT NOT NULL,
		channel_name TEXT NOT NULL,
		max_summary_length INTEGER NOT NULL DEFAULT 150,
		summary_frequency TEXT NOT NULL DEFAULT 'daily',
		include_hashtags BOOLEAN NOT NULL DEFAULT 0,
		include_user_mentions BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, channel_id)
	)`,
	`CREATE TABLE IF NOT EXISTS summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		channel_id INTEGER REFERENCES channels(id) ON DELETE SET NULL,
		channel_name TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_user_created ON summaries (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_channel_created ON summaries (channel_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS telegram_session (
		name TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}
