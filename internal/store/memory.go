package store

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-memory Database. Tables are created on first insert.
type Memory struct {
	mu     sync.RWMutex
	keys   Keys
	tables map[string]*MemoryTable
}

// NewMemory returns an empty in-memory database using keys to index records.
func NewMemory(keys Keys) *Memory {
	return &Memory{
		keys:   keys,
		tables: make(map[string]*MemoryTable),
	}
}

// Table returns the named table or ErrUnknownTable.
func (m *Memory) Table(_ context.Context, name string) (Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

// Tables lists table names in lexical order.
func (m *Memory) Tables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.tables))
}

// Insert adds records to the named table, creating it when needed, and
// returns the handles of the stored records.
func (m *Memory) Insert(name string, records ...Record) ([]string, error) {
	m.mu.Lock()
	t, ok := m.tables[name]
	if !ok {
		t = newMemoryTable(m.keys)
		m.tables[name] = t
	}
	m.mu.Unlock()

	handles := make([]string, 0, len(records))
	for i, r := range records {
		handle, err := t.insert(r)
		if err != nil {
			return handles, fmt.Errorf("table %q record %d: %w", name, i, err)
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// MemoryTable keeps records in insertion order with handle and identifier maps.
type MemoryTable struct {
	mu           sync.RWMutex
	keys         Keys
	records      []Record
	byHandle     map[string]int
	byIdentifier map[string]int
}

func newMemoryTable(keys Keys) *MemoryTable {
	return &MemoryTable{
		keys:         keys,
		byHandle:     make(map[string]int),
		byIdentifier: make(map[string]int),
	}
}

// insert stores a shallow copy of r, assigning a handle when it has none.
func (t *MemoryTable) insert(r Record) (string, error) {
	if r == nil {
		return "", fmt.Errorf("%w: nil record", ErrInvalidInput)
	}

	stored := maps.Clone(r)
	handle, ok := t.keys.HandleOf(stored)
	if !ok {
		if _, present := stored[t.keys.Handle]; present {
			return "", fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidInput, t.keys.Handle)
		}
		handle = NewHandle()
		stored[t.keys.Handle] = handle
	}
	identifier, hasIdentifier := t.keys.IdentifierOf(stored)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byHandle[handle]; exists {
		return "", fmt.Errorf("%w: %s %q", ErrDuplicateKey, t.keys.Handle, handle)
	}
	if hasIdentifier {
		if _, exists := t.byIdentifier[identifier]; exists {
			return "", fmt.Errorf("%w: %s %q", ErrDuplicateKey, t.keys.Identifier, identifier)
		}
		t.byIdentifier[identifier] = len(t.records)
	}
	t.byHandle[handle] = len(t.records)
	t.records = append(t.records, stored)

	return handle, nil
}

// Len returns the number of records in the table.
func (t *MemoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

func (t *MemoryTable) Cursor(ctx context.Context) iter.Seq2[Record, error] {
	t.mu.RLock()
	snapshot := slices.Clip(t.records)
	t.mu.RUnlock()

	return func(yield func(Record, error) bool) {
		for _, r := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (t *MemoryTable) LookupByIdentifier(ctx context.Context, value any) (Record, bool, error) {
	return t.lookup(ctx, t.byIdentifier, value)
}

func (t *MemoryTable) LookupByHandle(ctx context.Context, value any) (Record, bool, error) {
	return t.lookup(ctx, t.byHandle, value)
}

func (t *MemoryTable) lookup(ctx context.Context, index map[string]int, value any) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	key, ok := value.(string)
	if !ok {
		return nil, false, nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	pos, ok := index[key]
	if !ok {
		return nil, false, nil
	}
	return t.records[pos], true, nil
}

// NewHandle returns a fresh opaque record handle.
func NewHandle() string {
	return uuid.NewString()
}
