// Package where models filter expressions over records and evaluates them.
//
// An expression is a tree whose leaves compare two operands and whose inner
// nodes join subtrees with "and" or "or". Trees are usually built from the
// generic 3-element sequences found in query documents:
//
//	["$.gender", "=", "M"]
//	[["$.gender", "=", "M"], "or", ["$.gramps_id", "=", "I0002"]]
package where

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jacoelho/recsel/internal/path"
)

var (
	ErrMalformedExpression = errors.New("malformed where expression")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrIncomparable        = errors.New("incomparable operands")
)

// Operator is a comparison operator.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpIn           Operator = "in"
	OpNotIn        Operator = "not in"
	OpLike         Operator = "like"
)

var supportedOperatorSet = map[Operator]struct{}{
	OpEqual:        {},
	OpNotEqual:     {},
	OpLess:         {},
	OpLessEqual:    {},
	OpGreater:      {},
	OpGreaterEqual: {},
	OpIn:           {},
	OpNotIn:        {},
	OpLike:         {},
}

// ParseOperator matches input case-insensitively against the supported operators.
func ParseOperator(input string) (Operator, error) {
	op := Operator(strings.ToLower(input))
	if _, ok := supportedOperatorSet[op]; ok {
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOperator, input)
}

// Connector joins two subexpressions.
type Connector string

const (
	And Connector = "and"
	Or  Connector = "or"
)

func parseConnector(input string) (Connector, bool) {
	switch Connector(strings.ToLower(input)) {
	case And:
		return And, true
	case Or:
		return Or, true
	}
	return "", false
}

// Operand is either a literal value or a reference to a field path.
type Operand struct {
	path    string
	value   any
	hasPath bool
}

// Lit returns a literal operand. Strings starting with "$" stay literal.
func Lit(value any) Operand {
	return Operand{value: value}
}

// Ref returns an operand resolved against the record at evaluation time.
func Ref(expr string) Operand {
	return Operand{path: expr, hasPath: true}
}

// ParseOperand classifies a raw value: strings starting with "$" are field
// paths, everything else is a literal.
func ParseOperand(raw any) Operand {
	switch v := raw.(type) {
	case Operand:
		return v
	case string:
		if path.IsPath(v) {
			return Ref(v)
		}
	}
	return Lit(raw)
}

// IsPath reports whether the operand is a field path reference.
func (o Operand) IsPath() bool { return o.hasPath }

// Path returns the referenced field path, or "" for literals.
func (o Operand) Path() string { return o.path }

// Value returns the literal value, or nil for path references.
func (o Operand) Value() any { return o.value }

func (o Operand) String() string {
	if o.hasPath {
		return o.path
	}
	if s, ok := o.value.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%v", o.value)
}

// Expr is a node of a where expression tree. Only *Comparison and *Logical
// implement it.
type Expr interface {
	exprNode()
	String() string
}

// Comparison is a leaf: Left Op Right.
type Comparison struct {
	Left  Operand
	Op    Operator
	Right Operand
}

func (*Comparison) exprNode() {}

func (c *Comparison) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

// Logical joins two subexpressions with a connector.
type Logical struct {
	Left      Expr
	Connector Connector
	Right     Expr
}

func (*Logical) exprNode() {}

func (l *Logical) String() string {
	return fmt.Sprintf("(%s %s %s)", l.Left, l.Connector, l.Right)
}

// Leaf builds a comparison, classifying both operands with ParseOperand.
func Leaf(left any, op Operator, right any) *Comparison {
	return &Comparison{Left: ParseOperand(left), Op: op, Right: ParseOperand(right)}
}

// AndOf joins left and right with "and".
func AndOf(left, right Expr) *Logical {
	return &Logical{Left: left, Connector: And, Right: right}
}

// OrOf joins left and right with "or".
func OrOf(left, right Expr) *Logical {
	return &Logical{Left: left, Connector: Or, Right: right}
}

// Build converts a raw 3-element sequence, as decoded from YAML or JSON, into
// an expression tree. An Expr is returned unchanged and nil yields nil.
func Build(raw any) (Expr, error) {
	switch node := raw.(type) {
	case nil:
		return nil, nil
	case Expr:
		return node, nil
	case []any:
		return buildTuple(node)
	case []string:
		tuple := make([]any, len(node))
		for i, s := range node {
			tuple[i] = s
		}
		return buildTuple(tuple)
	default:
		return nil, fmt.Errorf("%w: expected a 3-element sequence, got %T", ErrMalformedExpression, raw)
	}
}

func buildTuple(tuple []any) (Expr, error) {
	if len(tuple) != 3 {
		return nil, fmt.Errorf("%w: %v: expected 3 elements, got %d", ErrMalformedExpression, tuple, len(tuple))
	}

	middle, ok := tuple[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %v: operator must be a string, got %T", ErrMalformedExpression, tuple, tuple[1])
	}

	if connector, ok := parseConnector(middle); ok {
		left, err := buildChild(tuple, tuple[0])
		if err != nil {
			return nil, err
		}
		right, err := buildChild(tuple, tuple[2])
		if err != nil {
			return nil, err
		}
		return &Logical{Left: left, Connector: connector, Right: right}, nil
	}

	op, err := ParseOperator(middle)
	if err != nil {
		return nil, fmt.Errorf("%w in %v", err, tuple)
	}

	return Leaf(tuple[0], op, tuple[2]), nil
}

func buildChild(parent []any, raw any) (Expr, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: %v: missing subexpression", ErrMalformedExpression, parent)
	}
	return Build(raw)
}
