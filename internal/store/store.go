// Package store defines the table collaborator the selection engine reads
// from, and an in-memory implementation of it.
package store

import (
	"context"
	"errors"
	"iter"
)

var (
	ErrUnknownTable = errors.New("unknown table")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid record input")
)

// Record is one decoded stored entity.
type Record = map[string]any

// Keys names the record fields that hold the handle and the identifier.
type Keys struct {
	Handle     string
	Identifier string
}

// DefaultKeys matches the genealogy database vocabulary.
var DefaultKeys = Keys{
	Handle:     "handle",
	Identifier: "gramps_id",
}

// HandleOf returns the handle of r, if it has a non-empty one.
func (k Keys) HandleOf(r Record) (string, bool) {
	return stringField(r, k.Handle)
}

// IdentifierOf returns the identifier of r, if it has a non-empty one.
func (k Keys) IdentifierOf(r Record) (string, bool) {
	return stringField(r, k.Identifier)
}

func stringField(r Record, name string) (string, bool) {
	s, ok := r[name].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Table is a single table of records.
type Table interface {
	// Cursor iterates every record of the table. Iteration stops at the first
	// error or when ctx is done.
	Cursor(ctx context.Context) iter.Seq2[Record, error]
	// LookupByIdentifier returns the record whose identifier equals value.
	LookupByIdentifier(ctx context.Context, value any) (Record, bool, error)
	// LookupByHandle returns the record whose handle equals value.
	LookupByHandle(ctx context.Context, value any) (Record, bool, error)
}

// Database resolves table names.
type Database interface {
	Table(ctx context.Context, name string) (Table, error)
}
