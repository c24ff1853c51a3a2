package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Every table is a document store: one JSON record per id, always written
// whole. A crash between load and save leaves the previous record intact.

// timeLayout is fixed width so updated_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func (d *DB) loadDoc(q interface {
	QueryRow(string, ...any) *sql.Row
}, table, id string, lock bool, dst any) (bool, error) {
	query := fmt.Sprintf("SELECT data FROM %s WHERE id = ?", table)
	if lock {
		query += d.dialect.forUpdate
	}
	var raw string
	err := q.QueryRow(d.rebind(query), id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading %s %q: %w", table, id, err)
	}
	if err := unmarshalDoc(raw, dst); err != nil {
		return false, fmt.Errorf("decoding %s %q: %w", table, id, err)
	}
	return true, nil
}

func unmarshalDoc(raw string, dst any) error {
	return json.Unmarshal([]byte(raw), dst)
}

func (d *DB) saveDoc(ex interface {
	Exec(string, ...any) (sql.Result, error)
}, table, id string, doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s %q: %w", table, id, err)
	}
	query := fmt.Sprintf("INSERT INTO %s (id, data, updated_at) VALUES (?, ?, ?) %s", table, d.dialect.upsert)
	if _, err := ex.Exec(d.rebind(query), id, string(b), now()); err != nil {
		return fmt.Errorf("saving %s %q: %w", table, id, err)
	}
	return nil
}

// mutate runs a read-modify-write cycle on one document inside a
// transaction. fn receives whether the record existed and may return an
// error to abort without writing.
func (d *DB) mutate(table, id string, dst any, fn func(found bool) error) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	found, err := d.loadDoc(tx, table, id, true, dst)
	if err != nil {
		return err
	}
	if err := fn(found); err != nil {
		return err
	}
	if err := d.saveDoc(tx, table, id, dst); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s %q: %w", table, id, err)
	}
	return nil
}
