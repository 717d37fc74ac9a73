package where

import (
	"cmp"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/jacoelho/recsel/internal/number"
)

// Compare applies op to lhs and rhs.
//
// Ordering, "in" and "like" are never satisfied by a nil operand, so a path
// that resolved to nothing simply fails to match. Operands of different kinds
// (a string against a number, say) are an error for ordering comparisons.
func Compare(lhs any, op Operator, rhs any) (bool, error) {
	switch Operator(strings.ToLower(string(op))) {
	case OpEqual:
		return equalValues(lhs, rhs), nil
	case OpNotEqual:
		return !equalValues(lhs, rhs), nil
	case OpLess:
		return ordered(lhs, rhs, func(c int) bool { return c < 0 })
	case OpLessEqual:
		return ordered(lhs, rhs, func(c int) bool { return c <= 0 })
	case OpGreater:
		return ordered(lhs, rhs, func(c int) bool { return c > 0 })
	case OpGreaterEqual:
		return ordered(lhs, rhs, func(c int) bool { return c >= 0 })
	case OpIn:
		return contains(rhs, lhs)
	case OpNotIn:
		found, err := contains(rhs, lhs)
		if err != nil {
			return false, err
		}
		return !found, nil
	case OpLike:
		return likePatterns.match(lhs, rhs)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
	}
}

func equalValues(actual, expected any) bool {
	if reflect.DeepEqual(actual, expected) {
		return true
	}

	equal, ok := number.Equal(actual, expected)
	return ok && equal
}

func ordered(lhs, rhs any, accept func(int) bool) (bool, error) {
	if lhs == nil || rhs == nil {
		return false, nil
	}

	if c, ok := number.Compare(lhs, rhs); ok {
		return accept(c), nil
	}

	switch left := lhs.(type) {
	case string:
		if right, ok := rhs.(string); ok {
			return accept(strings.Compare(left, right)), nil
		}
	case bool:
		if right, ok := rhs.(bool); ok {
			return accept(compareBool(left, right)), nil
		}
	}

	return false, fmt.Errorf("%w: cannot order %T and %T", ErrIncomparable, lhs, rhs)
}

func compareBool(a, b bool) int {
	toInt := func(v bool) int {
		if v {
			return 1
		}
		return 0
	}
	return cmp.Compare(toInt(a), toInt(b))
}

// contains reports whether item is a member of container: an element of a
// sequence, a substring of a string or a key of a mapping.
func contains(container, item any) (bool, error) {
	switch c := container.(type) {
	case nil:
		return false, nil
	case string:
		if item == nil {
			return false, nil
		}
		s, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("%w: %T in string", ErrIncomparable, item)
		}
		return strings.Contains(c, s), nil
	case map[string]any:
		if item == nil {
			return false, nil
		}
		key, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("%w: %T in mapping", ErrIncomparable, item)
		}
		_, found := c[key]
		return found, nil
	}

	rv := reflect.ValueOf(container)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false, fmt.Errorf("%w: %T is not a container", ErrIncomparable, container)
	}

	for i := range rv.Len() {
		if equalValues(rv.Index(i).Interface(), item) {
			return true, nil
		}
	}
	return false, nil
}

var likePatterns = newLikeCompiler()

type likeCompiler struct {
	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

func newLikeCompiler() *likeCompiler {
	return &likeCompiler{
		patterns: make(map[string]*regexp.Regexp),
	}
}

func (c *likeCompiler) match(lhs, rhs any) (bool, error) {
	if lhs == nil {
		return false, nil
	}
	s, ok := lhs.(string)
	if !ok {
		return false, fmt.Errorf("%w: like needs a string, got %T", ErrIncomparable, lhs)
	}
	pattern, ok := rhs.(string)
	if !ok {
		return false, fmt.Errorf("%w: like pattern must be a string, got %T", ErrIncomparable, rhs)
	}

	re, err := c.compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

func (c *likeCompiler) compile(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	if compiled, ok := c.patterns[pattern]; ok {
		c.mu.RUnlock()
		return compiled, nil
	}
	c.mu.RUnlock()

	compiled, err := regexp.Compile(likeToRegexp(pattern))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid like pattern %q: %v", ErrIncomparable, pattern, err)
	}

	c.mu.Lock()
	c.patterns[pattern] = compiled
	c.mu.Unlock()

	return compiled, nil
}

// likeToRegexp translates SQL wildcards into an anchored regular expression:
// % matches any run of characters and _ exactly one.
func likeToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString(`(?s)\A`)
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`\z`)
	return b.String()
}
