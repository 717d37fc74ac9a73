package where

import (
	"fmt"

	"github.com/jacoelho/recsel/internal/path"
)

// Matcher evaluates expressions against records.
type Matcher struct {
	paths *path.Accessor
}

// NewMatcher returns a Matcher resolving paths through paths, or through an
// accessor over the shared cache when nil.
func NewMatcher(paths *path.Accessor) *Matcher {
	if paths == nil {
		paths = path.NewAccessor(nil)
	}
	return &Matcher{paths: paths}
}

// Operand reduces op to the value it stands for in record. A path that
// selects nothing evaluates to nil.
func (m *Matcher) Operand(op Operand, record any) (any, error) {
	if !op.IsPath() {
		return op.Value(), nil
	}

	value, _, err := m.paths.First(op.Path(), record)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Match reports whether record satisfies expr. "and" and "or" short-circuit.
// A nil expr is not a valid input; callers treat a missing filter as "match
// everything" before calling in.
func (m *Matcher) Match(record any, expr Expr) (bool, error) {
	switch node := expr.(type) {
	case *Logical:
		if node == nil {
			break
		}
		left, err := m.Match(record, node.Left)
		if err != nil {
			return false, err
		}
		switch node.Connector {
		case And:
			if !left {
				return false, nil
			}
		case Or:
			if left {
				return true, nil
			}
		default:
			return false, fmt.Errorf("%w: connector %q", ErrUnsupportedOperator, node.Connector)
		}
		return m.Match(record, node.Right)
	case *Comparison:
		if node == nil {
			break
		}
		lhs, err := m.Operand(node.Left, record)
		if err != nil {
			return false, err
		}
		rhs, err := m.Operand(node.Right, record)
		if err != nil {
			return false, err
		}
		return Compare(lhs, node.Op, rhs)
	}

	return false, fmt.Errorf("%w: %v", ErrMalformedExpression, expr)
}

// MatchTuple builds raw with Build and matches record against it.
func (m *Matcher) MatchTuple(record any, raw any) (bool, error) {
	expr, err := Build(raw)
	if err != nil {
		return false, err
	}
	if expr == nil {
		return false, fmt.Errorf("%w: empty expression", ErrMalformedExpression)
	}
	return m.Match(record, expr)
}
