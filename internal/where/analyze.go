package where

import (
	"slices"
)

// Key names an indexed record field.
type Key int

const (
	KeyHandle Key = iota + 1
	KeyIdentifier
)

func (k Key) String() string {
	switch k {
	case KeyHandle:
		return "handle"
	case KeyIdentifier:
		return "identifier"
	default:
		return "unknown"
	}
}

// IndexedPaths are the field paths the store can look records up by.
type IndexedPaths struct {
	Handle     string
	Identifier string
}

// DefaultIndexedPaths matches the genealogy database vocabulary.
var DefaultIndexedPaths = IndexedPaths{
	Handle:     "$.handle",
	Identifier: "$.gramps_id",
}

func (p IndexedPaths) key(op Operand) (Key, bool) {
	if !op.IsPath() {
		return 0, false
	}
	switch op.Path() {
	case p.Handle:
		return KeyHandle, true
	case p.Identifier:
		return KeyIdentifier, true
	}
	return 0, false
}

// IndexedLeaf is an equality between an indexed field and a literal.
type IndexedLeaf struct {
	Leaf  *Comparison
	Key   Key
	Value any
}

// Analysis splits an expression into leaves a point lookup can answer and
// everything else.
type Analysis struct {
	Indexed    []IndexedLeaf
	Other      []*Comparison
	Connectors []Connector
}

// HasConnector reports whether c joins any two subtrees.
func (a Analysis) HasConnector(c Connector) bool {
	return slices.Contains(a.Connectors, c)
}

// Analyze classifies every leaf of expr exactly once and records one
// connector per inner node. A leaf is indexed only for "=" with an indexed
// path on one side and a non-empty string literal on the other, since stores
// only index non-empty string keys.
func Analyze(expr Expr, paths IndexedPaths) Analysis {
	switch node := expr.(type) {
	case *Logical:
		if node == nil {
			return Analysis{}
		}
		left := Analyze(node.Left, paths)
		right := Analyze(node.Right, paths)
		return Analysis{
			Indexed:    slices.Concat(left.Indexed, right.Indexed),
			Other:      slices.Concat(left.Other, right.Other),
			Connectors: slices.Concat([]Connector{node.Connector}, left.Connectors, right.Connectors),
		}
	case *Comparison:
		if node == nil {
			return Analysis{}
		}
		if leaf, ok := paths.classify(node); ok {
			return Analysis{Indexed: []IndexedLeaf{leaf}}
		}
		return Analysis{Other: []*Comparison{node}}
	}
	return Analysis{}
}

func (p IndexedPaths) classify(c *Comparison) (IndexedLeaf, bool) {
	if c.Op != OpEqual {
		return IndexedLeaf{}, false
	}
	if key, ok := p.key(c.Left); ok && lookupValue(c.Right) {
		return IndexedLeaf{Leaf: c, Key: key, Value: c.Right.Value()}, true
	}
	if key, ok := p.key(c.Right); ok && lookupValue(c.Left) {
		return IndexedLeaf{Leaf: c, Key: key, Value: c.Left.Value()}, true
	}
	return IndexedLeaf{}, false
}

// lookupValue reports whether op is a literal a key lookup can answer
// exactly. Numbers equal to a stored key, or an empty key, are only found
// by a scan.
func lookupValue(op Operand) bool {
	if op.IsPath() {
		return false
	}
	s, ok := op.Value().(string)
	return ok && s != ""
}
