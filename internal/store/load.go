package store

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/goccy/go-yaml"
)

// Document maps table names to their records, as written in a data file:
//
//	person:
//	  - handle: a1
//	    gramps_id: I0001
//	    gender: M
//	family:
//	  - gramps_id: F0001
//
// JSON documents of the same shape are accepted as well.
type Document map[string][]Record

// Decode reads a Document from r.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, nil
		}
		return nil, fmt.Errorf("%w: failed to decode data: %v", ErrInvalidInput, err)
	}
	return doc, nil
}

// Load decodes a Document from r and inserts every table into db.
func Load(r io.Reader, db *Memory) error {
	doc, err := Decode(r)
	if err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(doc)) {
		if _, err := db.Insert(name, doc[name]...); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a data file into a new in-memory database.
func LoadFile(filename string, keys Keys) (*Memory, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open data file %s: %w", filename, err)
	}
	defer f.Close()

	db := NewMemory(keys)
	if err := Load(f, db); err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return db, nil
}
