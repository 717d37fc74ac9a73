// Package plan chooses how to pull the records matching a where expression
// out of a table: indexed point lookups when the expression allows it, a full
// scan otherwise.
package plan

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"reflect"

	"go.uber.org/zap"

	"github.com/jacoelho/recsel/internal/store"
	"github.com/jacoelho/recsel/internal/where"
)

// ErrContradiction reports an indexed leaf on a field that is not indexed.
// It indicates a bug in the analyzer, never bad input.
var ErrContradiction = errors.New("plan: indexed leaf on non-indexed field")

// Strategy is how rows are produced.
type Strategy int

const (
	// StrategyAll iterates the whole table without filtering.
	StrategyAll Strategy = iota + 1
	// StrategyScan iterates the whole table and filters every record.
	StrategyScan
	// StrategyIndex looks candidates up by handle or identifier and filters them.
	StrategyIndex
)

func (s Strategy) String() string {
	switch s {
	case StrategyAll:
		return "all"
	case StrategyScan:
		return "scan"
	case StrategyIndex:
		return "index"
	default:
		return "unknown"
	}
}

// Plan is the decision for one expression.
type Plan struct {
	Strategy Strategy
	Analysis where.Analysis
}

// Planner produces the records of a table that satisfy an expression.
type Planner struct {
	matcher   *where.Matcher
	paths     where.IndexedPaths
	keys      store.Keys
	logger    *zap.Logger
	forceScan bool
}

// Option configures a Planner.
type Option func(*Planner)

// WithIndexedPaths sets the field paths treated as indexed.
func WithIndexedPaths(paths where.IndexedPaths) Option {
	return func(p *Planner) { p.paths = paths }
}

// WithKeys sets the record fields used to deduplicate lookups.
func WithKeys(keys store.Keys) Option {
	return func(p *Planner) { p.keys = keys }
}

// WithLogger sets the logger used for plan decisions.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithForceScan disables indexed lookups.
func WithForceScan() Option {
	return func(p *Planner) { p.forceScan = true }
}

// New returns a Planner evaluating expressions with matcher.
func New(matcher *where.Matcher, opts ...Option) *Planner {
	p := &Planner{
		matcher: matcher,
		paths:   where.DefaultIndexedPaths,
		keys:    store.DefaultKeys,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan decides the strategy for expr. Indexed lookups are used only when at
// least one leaf is an indexed equality and either every leaf is one or no
// "or" appears anywhere in the tree, so no branch can match records the
// lookups would miss.
func (p *Planner) Plan(expr where.Expr) Plan {
	if expr == nil {
		return Plan{Strategy: StrategyAll}
	}

	analysis := where.Analyze(expr, p.paths)
	if p.forceScan {
		return Plan{Strategy: StrategyScan, Analysis: analysis}
	}

	eligible := len(analysis.Indexed) > 0 &&
		(len(analysis.Other) == 0 || !analysis.HasConnector(where.Or))
	if eligible {
		return Plan{Strategy: StrategyIndex, Analysis: analysis}
	}
	return Plan{Strategy: StrategyScan, Analysis: analysis}
}

// SelectWhere yields the records of table satisfying expr, or all records
// when expr is nil. The sequence is single pass and stops at the first error.
func (p *Planner) SelectWhere(ctx context.Context, table store.Table, expr where.Expr) iter.Seq2[store.Record, error] {
	plan := p.Plan(expr)
	p.logger.Debug("select where",
		zap.Stringer("strategy", plan.Strategy),
		zap.Stringer("where", exprString{expr}),
		zap.Int("indexed_leaves", len(plan.Analysis.Indexed)),
		zap.Int("other_leaves", len(plan.Analysis.Other)),
	)

	switch plan.Strategy {
	case StrategyAll:
		return table.Cursor(ctx)
	case StrategyIndex:
		return p.lookup(ctx, table, expr, plan.Analysis.Indexed)
	default:
		return p.scan(ctx, table, expr)
	}
}

func (p *Planner) scan(ctx context.Context, table store.Table, expr where.Expr) iter.Seq2[store.Record, error] {
	return func(yield func(store.Record, error) bool) {
		for r, err := range table.Cursor(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			ok, err := p.matcher.Match(r, expr)
			if err != nil {
				yield(nil, err)
				return
			}
			if ok && !yield(r, nil) {
				return
			}
		}
	}
}

func (p *Planner) lookup(ctx context.Context, table store.Table, expr where.Expr, leaves []where.IndexedLeaf) iter.Seq2[store.Record, error] {
	return func(yield func(store.Record, error) bool) {
		seen := newSeenSet(p.keys)
		for _, leaf := range leaves {
			r, found, err := p.fetch(ctx, table, leaf)
			if err != nil {
				yield(nil, err)
				return
			}
			if !found {
				continue
			}

			if !seen.add(r) {
				continue
			}

			ok, err := p.matcher.Match(r, expr)
			if err != nil {
				yield(nil, err)
				return
			}
			if ok && !yield(r, nil) {
				return
			}
		}
	}
}

func (p *Planner) fetch(ctx context.Context, table store.Table, leaf where.IndexedLeaf) (store.Record, bool, error) {
	switch leaf.Key {
	case where.KeyIdentifier:
		return table.LookupByIdentifier(ctx, leaf.Value)
	case where.KeyHandle:
		return table.LookupByHandle(ctx, leaf.Value)
	default:
		return nil, false, fmt.Errorf("%w: %s", ErrContradiction, leaf.Leaf)
	}
}

// seenSet remembers the records a lookup already produced, by handle or, for
// records a table returned without one, by map identity.
type seenSet struct {
	keys      store.Keys
	handles   map[string]struct{}
	anonymous map[uintptr]struct{}
}

func newSeenSet(keys store.Keys) *seenSet {
	return &seenSet{
		keys:      keys,
		handles:   make(map[string]struct{}),
		anonymous: make(map[uintptr]struct{}),
	}
}

// add reports whether r was not seen before.
func (s *seenSet) add(r store.Record) bool {
	if handle, ok := s.keys.HandleOf(r); ok {
		if _, dup := s.handles[handle]; dup {
			return false
		}
		s.handles[handle] = struct{}{}
		return true
	}

	id := reflect.ValueOf(r).Pointer()
	if _, dup := s.anonymous[id]; dup {
		return false
	}
	s.anonymous[id] = struct{}{}
	return true
}

type exprString struct {
	expr where.Expr
}

func (e exprString) String() string {
	if e.expr == nil {
		return "<none>"
	}
	return e.expr.String()
}
