// Package selection is the entry point for querying tables: it filters,
// optionally sorts, paginates and projects records into result rows.
package selection

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"go.uber.org/zap"

	"github.com/jacoelho/recsel/internal/path"
	"github.com/jacoelho/recsel/internal/plan"
	"github.com/jacoelho/recsel/internal/store"
	"github.com/jacoelho/recsel/internal/where"
)

// NoLimit disables pagination.
const NoLimit = -1

var (
	ErrInvalidPage     = errors.New("page must be zero or positive")
	ErrInvalidPageSize = errors.New("page size must be positive or NoLimit")
)

// Row is one projected result. When the whole record is selected the row is
// the record itself.
type Row = map[string]any

// Query describes one selection.
type Query struct {
	// Selections are the field paths to project; empty means ["$"].
	Selections []string
	// Where filters records; nil matches every record.
	Where where.Expr
	// SortBy orders records by the first match of each path, ascending.
	SortBy []string
	// Page is the zero-based page index.
	Page int
	// PageSize is the number of rows per page, or NoLimit.
	PageSize int
}

// Validate checks the pagination settings.
func (q Query) Validate() error {
	if q.Page < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPage, q.Page)
	}
	if q.PageSize != NoLimit && q.PageSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, q.PageSize)
	}
	return nil
}

// window returns the [start, end) row positions of the requested page;
// end is -1 when unbounded.
func (q Query) window() (int, int) {
	if q.PageSize == NoLimit {
		return 0, -1
	}
	start := q.Page * q.PageSize
	return start, start + q.PageSize
}

// Engine runs queries against a database.
type Engine struct {
	db      store.Database
	paths   *path.Accessor
	planner *plan.Planner
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	cache       *path.Cache
	logger      *zap.Logger
	planOptions []plan.Option
}

// WithPathCache sets the parsed-path cache; the shared cache is used otherwise.
func WithPathCache(cache *path.Cache) Option {
	return func(o *engineOptions) { o.cache = cache }
}

// WithLogger sets the logger for the engine and its planner.
func WithLogger(logger *zap.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

// WithPlanOptions passes options through to the planner.
func WithPlanOptions(opts ...plan.Option) Option {
	return func(o *engineOptions) { o.planOptions = append(o.planOptions, opts...) }
}

// New returns an Engine reading from db.
func New(db store.Database, opts ...Option) *Engine {
	o := engineOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	paths := path.NewAccessor(o.cache)
	planOptions := append([]plan.Option{plan.WithLogger(o.logger)}, o.planOptions...)

	return &Engine{
		db:      db,
		paths:   paths,
		planner: plan.New(where.NewMatcher(paths), planOptions...),
		logger:  o.logger,
	}
}

// Planner returns the planner used by the engine.
func (e *Engine) Planner() *plan.Planner {
	return e.planner
}

// Select returns the rows of table matching q. Setup errors (unknown table,
// invalid pagination) are returned directly; errors while reading records
// are yielded once and end the sequence.
func (e *Engine) Select(ctx context.Context, tableName string, q Query) (iter.Seq2[Row, error], error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	table, err := e.db.Table(ctx, tableName)
	if err != nil {
		return nil, err
	}

	selections := q.Selections
	if len(selections) == 0 {
		selections = []string{path.Root}
	}

	e.logger.Debug("select",
		zap.String("table", tableName),
		zap.Strings("selections", selections),
		zap.Strings("sort_by", q.SortBy),
		zap.Int("page", q.Page),
		zap.Int("page_size", q.PageSize),
	)

	records := e.planner.SelectWhere(ctx, table, q.Where)
	if len(q.SortBy) > 0 {
		records = e.sorted(records, q.SortBy)
	}

	return e.project(paginate(records, q), selections), nil
}

// Collect drains the rows of Select into a slice.
func (e *Engine) Collect(ctx context.Context, tableName string, q Query) ([]Row, error) {
	seq, err := e.Select(ctx, tableName, q)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sorted materializes every record and yields them in sort key order.
func (e *Engine) sorted(records iter.Seq2[store.Record, error], sortBy []string) iter.Seq2[store.Record, error] {
	return func(yield func(store.Record, error) bool) {
		type keyed struct {
			record store.Record
			key    []any
		}

		var all []keyed
		for r, err := range records {
			if err != nil {
				yield(nil, err)
				return
			}
			key, err := e.sortKey(r, sortBy)
			if err != nil {
				yield(nil, err)
				return
			}
			all = append(all, keyed{record: r, key: key})
		}

		slices.SortStableFunc(all, func(a, b keyed) int {
			return compareKeys(a.key, b.key)
		})
		e.logger.Debug("sorted records", zap.Int("count", len(all)))

		for _, k := range all {
			if !yield(k.record, nil) {
				return
			}
		}
	}
}

func (e *Engine) sortKey(r store.Record, sortBy []string) ([]any, error) {
	key := make([]any, len(sortBy))
	for i, p := range sortBy {
		if p == path.Root {
			continue
		}
		value, _, err := e.paths.First(p, r)
		if err != nil {
			return nil, err
		}
		key[i] = value
	}
	return key, nil
}

// paginate keeps the rows in the page window and stops pulling from records
// once the window is complete.
func paginate(records iter.Seq2[store.Record, error], q Query) iter.Seq2[store.Record, error] {
	start, end := q.window()
	return func(yield func(store.Record, error) bool) {
		count := 0
		for r, err := range records {
			if err != nil {
				yield(nil, err)
				return
			}
			pos := count
			count++
			if pos < start {
				continue
			}
			if !yield(r, nil) {
				return
			}
			if end >= 0 && count >= end {
				return
			}
		}
	}
}

func (e *Engine) project(records iter.Seq2[store.Record, error], selections []string) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for r, err := range records {
			if err != nil {
				yield(nil, err)
				return
			}
			row, err := e.Project(r, selections)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Project builds the row for r. Selecting "$" anywhere returns the whole
// record and ignores the other selections. Paths without a match are left
// out of the row.
func (e *Engine) Project(r store.Record, selections []string) (Row, error) {
	if slices.Contains(selections, path.Root) {
		return r, nil
	}

	row := make(Row, len(selections))
	for _, p := range selections {
		value, ok, err := e.paths.First(p, r)
		if err != nil {
			return nil, err
		}
		if ok {
			row[path.Key(p)] = value
		}
	}
	return row, nil
}
