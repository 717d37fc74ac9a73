// Package query decodes selection requests written as YAML or JSON
// documents:
//
//	table: person
//	select: [$.gramps_id, $.primary_name.first_name]
//	where: [[$.gender, "=", M], and, [$.birth.year, "<", 1900]]
//	sort_by: [$.primary_name.surname]
//	page: 0
//	page_size: 20
//
// A where operand written as {literal: value} is always a literal, even when
// it is a string starting with "$".
package query

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/jacoelho/recsel/internal/selection"
	"github.com/jacoelho/recsel/internal/where"
)

var ErrInvalidQuery = errors.New("invalid query")

const literalKey = "literal"

// Document is the decoded form of a query file.
type Document struct {
	Table    string   `yaml:"table"`
	Select   []string `yaml:"select"`
	Where    any      `yaml:"where"`
	SortBy   []string `yaml:"sort_by"`
	Page     int      `yaml:"page"`
	PageSize *int     `yaml:"page_size"`
}

// Parse decodes one query document from r.
func Parse(r io.Reader) (Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r, yaml.DisallowUnknownField()).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("%w: empty document", ErrInvalidQuery)
		}
		return Document{}, fmt.Errorf("%w: failed to decode query: %v", ErrInvalidQuery, err)
	}
	return doc, nil
}

// ParseFile decodes the query document stored in filename.
func ParseFile(filename string) (Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read query file %s: %w", filename, err)
	}
	doc, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", filename, err)
	}
	return doc, nil
}

// Query converts the document into a selection query. A missing page_size
// means no limit.
func (d Document) Query() (selection.Query, error) {
	expr, err := BuildWhere(d.Where)
	if err != nil {
		return selection.Query{}, err
	}

	pageSize := selection.NoLimit
	if d.PageSize != nil {
		pageSize = *d.PageSize
	}

	q := selection.Query{
		Selections: d.Select,
		Where:      expr,
		SortBy:     d.SortBy,
		Page:       d.Page,
		PageSize:   pageSize,
	}
	if err := q.Validate(); err != nil {
		return selection.Query{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return q, nil
}

// ParseWhere decodes a where expression written in YAML flow or JSON syntax,
// such as `["$.gramps_id", "=", "I0001"]`. Blank input means no filter.
func ParseWhere(input string) (where.Expr, error) {
	raw, err := DecodeWhere(input)
	if err != nil {
		return nil, err
	}
	return BuildWhere(raw)
}

// DecodeWhere decodes input into the generic form held by Document.Where
// without building the expression.
func DecodeWhere(input string) (any, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	var raw any
	if err := yaml.Unmarshal([]byte(input), &raw); err != nil {
		return nil, fmt.Errorf("%w: where: %v", ErrInvalidQuery, err)
	}
	return raw, nil
}

// BuildWhere builds an expression from decoded YAML, resolving
// {literal: value} operands.
func BuildWhere(raw any) (where.Expr, error) {
	if raw == nil {
		return nil, nil
	}
	resolved, err := resolveLiterals(raw)
	if err != nil {
		return nil, err
	}
	return where.Build(resolved)
}

func resolveLiterals(raw any) (any, error) {
	switch node := raw.(type) {
	case []any:
		if len(node) != 3 {
			// where.Build reports the arity error
			return node, nil
		}
		out := make([]any, len(node))
		copy(out, node)
		for _, i := range []int{0, 2} {
			v, err := resolveOperand(node[i])
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	default:
		return raw, nil
	}
}

func resolveOperand(raw any) (any, error) {
	switch node := raw.(type) {
	case map[string]any:
		value, ok := node[literalKey]
		if !ok || len(node) != 1 {
			return nil, fmt.Errorf("%w: operand mapping must be {%s: value}, got %v", ErrInvalidQuery, literalKey, node)
		}
		return where.Lit(value), nil
	case []any:
		// subexpression or list literal for "in"
		if isTuple(node) {
			return resolveLiterals(node)
		}
		return node, nil
	default:
		return raw, nil
	}
}

// isTuple reports whether node looks like a nested expression rather than a
// list literal: three elements with an operator or connector in the middle.
func isTuple(node []any) bool {
	if len(node) != 3 {
		return false
	}
	middle, ok := node[1].(string)
	if !ok {
		return false
	}
	switch strings.ToLower(middle) {
	case string(where.And), string(where.Or):
		return true
	}
	_, err := where.ParseOperator(middle)
	return err == nil
}
