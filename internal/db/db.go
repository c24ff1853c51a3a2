package db

import (
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed schema/*.sql
var schemas embed.FS

// dialect captures the few places where the supported engines disagree.
type dialect struct {
	driver    string
	schema    string
	numbered  bool   // $1-style placeholders
	forUpdate string // row lock suffix for read-modify-write loads
	upsert    string // tail appended to INSERT for whole-record replace
}

var dialects = map[string]dialect{
	"sqlite": {
		driver: "sqlite",
		schema: "schema/sqlite.sql",
		upsert: "ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at",
	},
	"postgres": {
		driver:    "postgres",
		schema:    "schema/postgres.sql",
		numbered:  true,
		forUpdate: " FOR UPDATE",
		upsert:    "ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at",
	},
	"mysql": {
		driver:    "mysql",
		schema:    "schema/mysql.sql",
		forUpdate: " FOR UPDATE",
		upsert:    "ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)",
	},
}

type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Open connects to the store and applies the schema. driver is one of
// sqlite, postgres or mysql; dsn is a file path for sqlite.
func Open(driver, dsn string) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unknown database driver: %s", driver)
	}
	conn, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if driver == "sqlite" {
		// One connection: keeps :memory: databases shared and makes every
		// transaction a serialized writer.
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting WAL mode: %w", err)
		}
		if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting busy timeout: %w", err)
		}
	}

	schema, err := schemas.ReadFile(d.schema)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return &DB{conn: conn, dialect: d}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// rebind rewrites ? placeholders for engines that number them.
func (d *DB) rebind(q string) string {
	if !d.dialect.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
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
