package store

import (
	"context"
	"database/sql"
	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed schema.sql
var schema string

type DB struct {
	*sql.DB
}

func NewDB(dbPath string) (*DB, error) {
	// Foreign keys drive the tag cascade; WAL keeps readers off the writer's back.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	// SQLite has a single writer anyway.
	db.SetMaxOpenConns(1)

	return &DB{db}, nil
}

// Wrap adopts an already opened handle, e.g. one from sqlmock.
func Wrap(db *sql.DB) *DB {
	return &DB{db}
}

func (d *DB) InitSchema() error {
	return d.InitSchemaContext(context.Background())
}

func (d *DB) InitSchemaContext(ctx context.Context) error {
	if _, err := d.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

// Nuke drops every table. Used to reset a vault from scratch.
func (d *DB) Nuke() error {
	_, err := d.Exec(`
		DROP TABLE IF EXISTS note_tags;
		DROP TABLE IF EXISTS notes;
	`)
	return errors.Wrap(err, "failed to drop tables")
}
