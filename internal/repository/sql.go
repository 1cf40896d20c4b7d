package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type dialect struct {
	driver    string
	idColumn  string
	timeType  string
	floatType string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		driver:    DriverSQLite,
		idColumn:  "INTEGER PRIMARY KEY AUTOINCREMENT",
		timeType:  "DATETIME",
		floatType: "REAL",
	},
	DriverPostgres: {
		driver:    DriverPostgres,
		idColumn:  "BIGSERIAL PRIMARY KEY",
		timeType:  "TIMESTAMPTZ",
		floatType: "DOUBLE PRECISION",
	},
}

// rebind rewrites ? placeholders to the dialect's style.
func (d dialect) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

// SQLStore implements Store on top of database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLStore opens the database and runs migrations.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// For in-memory SQLite, multiple connections create separate databases.
		if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	store := newSQLStore(db, d)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewSQLiteStore opens a SQLite database.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	return NewSQLStore(DriverSQLite, dsn)
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d}
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// migrate runs database migrations.
func (s *SQLStore) migrate() error {
	d := s.dialect
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS bots (
			id ` + d.idColumn + `,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			bot_type TEXT NOT NULL DEFAULT 'chat',
			model TEXT NOT NULL,
			temperature ` + d.floatType + ` NOT NULL,
			max_tokens INTEGER NOT NULL,
			system_prompt TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_by TEXT NOT NULL DEFAULT '',
			created_at ` + d.timeType + ` NOT NULL,
			updated_at ` + d.timeType + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scenarios (
			id ` + d.idColumn + `,
			bot_id BIGINT NOT NULL REFERENCES bots(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			initial_step_id BIGINT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at ` + d.timeType + ` NOT NULL,
			updated_at ` + d.timeType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scenarios_bot ON scenarios(bot_id, is_active)`,
		`CREATE TABLE IF NOT EXISTS steps (
			id ` + d.idColumn + `,
			scenario_id BIGINT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			step_type TEXT NOT NULL,
			step_order INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			next_step_id BIGINT,
			created_at ` + d.timeType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_scenario ON steps(scenario_id, step_order)`,
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			bot_id BIGINT NOT NULL REFERENCES bots(id) ON DELETE CASCADE,
			scenario_id BIGINT REFERENCES scenarios(id) ON DELETE SET NULL,
			user_session TEXT NOT NULL,
			current_step_id BIGINT,
			conversation_history TEXT NOT NULL,
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			version BIGINT NOT NULL DEFAULT 1,
			created_at ` + d.timeType + ` NOT NULL,
			updated_at ` + d.timeType + ` NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_executions_bot_session ON executions(bot_id, user_session)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
