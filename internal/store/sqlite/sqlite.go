// Package sqlite stores records as JSON documents in a SQLite database, with
// indexes on the handle and identifier columns so point lookups avoid scans.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"net/url"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jacoelho/recsel/internal/store"
)

const (
	recordsTable     = "records"
	handleColumn     = "handle"
	identifierColumn = "identifier"
)

// The handle and identifier columns hold whichever record fields the
// store.Keys given to Open name.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		tbl        TEXT NOT NULL,
		handle     TEXT NOT NULL,
		identifier TEXT,
		body       TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_records_handle ON records (tbl, handle)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_records_identifier ON records (tbl, identifier) WHERE identifier IS NOT NULL`,
}

// defaultPragmas are applied unless the DSN already sets the same pragma.
var defaultPragmas = []struct {
	name  string
	value string
}{
	{name: "journal_mode", value: "journal_mode(WAL)"},
	{name: "busy_timeout", value: "busy_timeout(100)"},
}

// Store is a SQLite backed store.Database.
type Store struct {
	stbl sq.StatementBuilderType
	db   *sql.DB
	keys store.Keys
}

var _ store.Database = (*Store)(nil)

// withDefaultPragmas returns dsn with every default pragma it does not set
// itself appended as a _pragma parameter.
func withDefaultPragmas(dsn string) (string, error) {
	base, rawQuery, _ := strings.Cut(dsn, "?")
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return dsn, fmt.Errorf("parse dsn %q: %w", dsn, err)
	}

	set := make(map[string]bool)
	for _, pragma := range params["_pragma"] {
		name, _, _ := strings.Cut(pragma, "(")
		set[strings.ToLower(strings.TrimSpace(name))] = true
	}
	for _, pragma := range defaultPragmas {
		if !set[pragma.name] {
			params.Add("_pragma", pragma.value)
		}
	}

	return base + "?" + params.Encode(), nil
}

// Open opens (and creates when missing) the database at uri.
func Open(ctx context.Context, uri string, keys store.Keys) (*Store, error) {
	uri, err := withDefaultPragmas(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite connection: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Store{
		stbl: sq.StatementBuilder.RunWith(db),
		db:   db,
		keys: keys,
	}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert adds records to the named table in one transaction and returns
// their handles. Records without a handle are assigned one.
func (s *Store) Insert(ctx context.Context, name string, records ...store.Record) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	handles := make([]string, 0, len(records))
	for i, r := range records {
		handle, err := s.insert(ctx, tx, name, r)
		if err != nil {
			return nil, fmt.Errorf("table %q record %d: %w", name, i, err)
		}
		handles = append(handles, handle)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return handles, nil
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, name string, r store.Record) (string, error) {
	if r == nil {
		return "", fmt.Errorf("%w: nil record", store.ErrInvalidInput)
	}

	stored := maps.Clone(r)
	handle, ok := s.keys.HandleOf(stored)
	if !ok {
		if _, present := stored[s.keys.Handle]; present {
			return "", fmt.Errorf("%w: %s must be a non-empty string", store.ErrInvalidInput, s.keys.Handle)
		}
		handle = store.NewHandle()
		stored[s.keys.Handle] = handle
	}

	var identifier any
	if id, ok := s.keys.IdentifierOf(stored); ok {
		identifier = id
	}

	body, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("%w: encode record: %v", store.ErrInvalidInput, err)
	}

	_, err = s.stbl.
		Insert(recordsTable).
		Columns("tbl", handleColumn, identifierColumn, "body").
		Values(name, handle, identifier, string(body)).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", handleSQLError(err)
	}
	return handle, nil
}

// Tables lists the names of tables holding at least one record.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.stbl.
		Select("DISTINCT tbl").
		From(recordsTable).
		OrderBy("tbl").
		QueryContext(ctx)
	if err != nil {
		return nil, handleSQLError(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, handleSQLError(err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, handleSQLError(err)
	}
	return names, nil
}

// Table returns the named table, or store.ErrUnknownTable when it holds no records.
func (s *Store) Table(ctx context.Context, name string) (store.Table, error) {
	var one int
	err := s.stbl.
		Select("1").
		From(recordsTable).
		Where(sq.Eq{"tbl": name}).
		Limit(1).
		QueryRowContext(ctx).
		Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownTable, name)
	}
	if err != nil {
		return nil, handleSQLError(err)
	}
	return &Table{store: s, name: name}, nil
}

// Table is one named table of a Store.
type Table struct {
	store *Store
	name  string
}

func (t *Table) Cursor(ctx context.Context) iter.Seq2[store.Record, error] {
	return func(yield func(store.Record, error) bool) {
		rows, err := t.store.stbl.
			Select("body").
			From(recordsTable).
			Where(sq.Eq{"tbl": t.name}).
			OrderBy("seq").
			QueryContext(ctx)
		if err != nil {
			yield(nil, handleSQLError(err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var body string
			if err := rows.Scan(&body); err != nil {
				yield(nil, handleSQLError(err))
				return
			}
			r, err := decode(body)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, handleSQLError(err))
		}
	}
}

func (t *Table) LookupByIdentifier(ctx context.Context, value any) (store.Record, bool, error) {
	return t.lookup(ctx, identifierColumn, value)
}

func (t *Table) LookupByHandle(ctx context.Context, value any) (store.Record, bool, error) {
	return t.lookup(ctx, handleColumn, value)
}

func (t *Table) lookup(ctx context.Context, column string, value any) (store.Record, bool, error) {
	key, ok := value.(string)
	if !ok {
		return nil, false, nil
	}

	var body string
	err := t.store.stbl.
		Select("body").
		From(recordsTable).
		Where(sq.Eq{"tbl": t.name, column: key}).
		QueryRowContext(ctx).
		Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, handleSQLError(err)
	}

	r, err := decode(body)
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func decode(body string) (store.Record, error) {
	var r store.Record
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

func handleSQLError(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code()&0xFF == sqlite3.SQLITE_CONSTRAINT {
			return fmt.Errorf("%w: %v", store.ErrDuplicateKey, err)
		}
	}
	return fmt.Errorf("sql error: %w", err)
}
