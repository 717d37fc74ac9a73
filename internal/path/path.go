// Package path resolves JSONPath field paths against decoded records.
package path

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/theory/jsonpath"
)

// Root is the path that denotes the whole record.
const Root = "$"

// ErrMalformedPath is returned when a field path fails to parse.
var ErrMalformedPath = errors.New("malformed field path")

// Match is a single location selected by a path.
type Match struct {
	Value any
}

// Cache memoizes compiled paths keyed by the literal path string.
// Entries are written once and never evicted.
type Cache struct {
	mu    sync.RWMutex
	paths map[string]*jsonpath.Path
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		paths: make(map[string]*jsonpath.Path),
	}
}

var sharedCache = sync.OnceValue(NewCache)

// SharedCache returns the process-wide cache, creating it on first use.
func SharedCache() *Cache {
	return sharedCache()
}

// Compile returns the parsed form of expr, parsing it on first use.
func (c *Cache) Compile(expr string) (*jsonpath.Path, error) {
	c.mu.RLock()
	if compiled, ok := c.paths[expr]; ok {
		c.mu.RUnlock()
		return compiled, nil
	}
	c.mu.RUnlock()

	compiled, err := jsonpath.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedPath, expr, err)
	}

	c.mu.Lock()
	if existing, ok := c.paths[expr]; ok {
		compiled = existing
	} else {
		c.paths[expr] = compiled
	}
	c.mu.Unlock()

	return compiled, nil
}

// Len reports the number of cached paths.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.paths)
}

// Reset drops every cached path.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.paths = make(map[string]*jsonpath.Path)
	c.mu.Unlock()
}

// Accessor resolves field paths through a Cache.
type Accessor struct {
	cache *Cache
}

// NewAccessor returns an Accessor backed by cache, or by the shared cache when nil.
func NewAccessor(cache *Cache) *Accessor {
	if cache == nil {
		cache = SharedCache()
	}
	return &Accessor{cache: cache}
}

// Resolve returns every match of expr in record, in document order.
// A path that selects nothing yields an empty slice and no error.
func (a *Accessor) Resolve(expr string, record any) ([]Match, error) {
	compiled, err := a.cache.Compile(expr)
	if err != nil {
		return nil, err
	}

	nodes := compiled.Select(record)
	if len(nodes) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(nodes))
	for _, node := range nodes {
		matches = append(matches, Match{Value: node})
	}
	return matches, nil
}

// First returns the value of the first match of expr in record.
func (a *Accessor) First(expr string, record any) (any, bool, error) {
	compiled, err := a.cache.Compile(expr)
	if err != nil {
		return nil, false, err
	}

	nodes := compiled.Select(record)
	if len(nodes) == 0 {
		return nil, false, nil
	}
	return nodes[0], true, nil
}

// Key strips the root selector from expr to form a result row key,
// so "$.primary_name.surname" becomes "primary_name.surname".
func Key(expr string) string {
	if key, ok := strings.CutPrefix(expr, "$."); ok {
		return key
	}
	return strings.TrimPrefix(expr, Root)
}

// IsPath reports whether s is written as a field path.
func IsPath(s string) bool {
	return strings.HasPrefix(s, Root)
}
