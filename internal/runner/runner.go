// Package runner executes one recsel invocation: it opens the record source,
// runs the selection and writes the rows.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jacoelho/recsel/internal/config"
	"github.com/jacoelho/recsel/internal/exit"
	"github.com/jacoelho/recsel/internal/formatter"
	"github.com/jacoelho/recsel/internal/logging"
	"github.com/jacoelho/recsel/internal/plan"
	"github.com/jacoelho/recsel/internal/ratelimit"
	"github.com/jacoelho/recsel/internal/selection"
	"github.com/jacoelho/recsel/internal/store"
	"github.com/jacoelho/recsel/internal/store/sqlite"
)

// Runner executes a configured selection.
type Runner struct {
	config      *config.Config
	logger      *zap.Logger
	rateLimiter *ratelimit.Limiter
	stdout      io.Writer
	stderr      io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput redirects rows and error messages.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// New creates a Runner for cfg.
// If creation fails, returns nil runner and exit result.
func New(cfg *config.Config, opts ...Option) (*Runner, *exit.Result) {
	r := &Runner{
		config:      cfg,
		rateLimiter: ratelimit.New(cfg.RateLimit),
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		level := "warn"
		if cfg.Debug {
			level = "debug"
		}
		logger, err := logging.New("text", level)
		if err != nil {
			return nil, exit.Errorf("Error creating logger: %v\n", err)
		}
		r.logger = logger
	}

	return r, nil
}

// Run executes the selection and returns the process exit code.
func (r *Runner) Run(ctx context.Context) int {
	defer func() { _ = r.logger.Sync() }()

	if err := r.run(ctx); err != nil {
		result := exit.FromError(err)
		result.Output = r.stderr
		result.Print()
		return result.ExitCode
	}
	return exit.CodeSuccess
}

func (r *Runner) run(ctx context.Context) error {
	src, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.close(); err != nil {
			r.logger.Warn("close record source", zap.Error(err))
		}
	}()

	if r.config.ListTables {
		return r.listTables(ctx, src)
	}

	q, err := r.config.Query.Query()
	if err != nil {
		return err
	}

	var planOptions []plan.Option
	if r.config.Scan {
		planOptions = append(planOptions, plan.WithForceScan())
	}
	engine := selection.New(src.db,
		selection.WithLogger(r.logger),
		selection.WithPlanOptions(planOptions...),
	)

	out, err := formatter.New(r.config.Format, r.stdout)
	if err != nil {
		return err
	}

	if r.config.Explain {
		if err := out.WriteRow(explain(engine, r.config.Query.Table, q)); err != nil {
			return err
		}
		return out.Close()
	}

	return r.selectRows(ctx, engine, q, out)
}

func (r *Runner) selectRows(ctx context.Context, engine *selection.Engine, q selection.Query, out formatter.Formatter) error {
	start := time.Now()
	table := r.config.Query.Table

	rows, err := engine.Select(ctx, table, q)
	if err != nil {
		return err
	}

	count := 0
	for row, err := range ratelimit.Throttle(ctx, r.rateLimiter, rows) {
		if err != nil {
			return fmt.Errorf("select from %s: %w", table, err)
		}
		if err := out.WriteRow(row); err != nil {
			return err
		}
		count++
	}
	if err := out.Close(); err != nil {
		return err
	}

	r.logger.Debug("selection complete",
		zap.String("table", table),
		zap.Int("rows", count),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (r *Runner) listTables(ctx context.Context, src *source) error {
	names, err := src.tables(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := fmt.Fprintln(r.stdout, name); err != nil {
			return err
		}
	}
	return nil
}

// explain describes the plan chosen for q without reading any rows.
func explain(engine *selection.Engine, table string, q selection.Query) map[string]any {
	p := engine.Planner().Plan(q.Where)

	indexed := make([]any, 0, len(p.Analysis.Indexed))
	for _, leaf := range p.Analysis.Indexed {
		indexed = append(indexed, map[string]any{
			"leaf":  leaf.Leaf.String(),
			"key":   leaf.Key.String(),
			"value": leaf.Value,
		})
	}
	other := make([]any, 0, len(p.Analysis.Other))
	for _, leaf := range p.Analysis.Other {
		other = append(other, leaf.String())
	}

	where := ""
	if q.Where != nil {
		where = q.Where.String()
	}

	return map[string]any{
		"table":    table,
		"strategy": p.Strategy.String(),
		"where":    where,
		"indexed":  indexed,
		"other":    other,
		"sorted":   len(q.SortBy) > 0,
	}
}

// source is an opened record store.
type source struct {
	db     store.Database
	tables func(context.Context) ([]string, error)
	close  func() error
}

func (r *Runner) open(ctx context.Context) (*source, error) {
	if r.config.DBFile == "" {
		mem, err := store.LoadFile(r.config.DataFile, store.DefaultKeys)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("loaded data file",
			zap.String("file", r.config.DataFile),
			zap.Strings("tables", mem.Tables()),
		)
		return &source{
			db:     mem,
			tables: func(context.Context) ([]string, error) { return mem.Tables(), nil },
			close:  func() error { return nil },
		}, nil
	}

	db, err := sqlite.Open(ctx, r.config.DBFile, store.DefaultKeys)
	if err != nil {
		return nil, err
	}
	src := &source{db: db, tables: db.Tables, close: db.Close}

	if r.config.Load {
		if err := r.importData(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return src, nil
}

// importData copies every table of the data file into db.
func (r *Runner) importData(ctx context.Context, db *sqlite.Store) error {
	mem, err := store.LoadFile(r.config.DataFile, store.DefaultKeys)
	if err != nil {
		return err
	}

	for _, name := range mem.Tables() {
		table, err := mem.Table(ctx, name)
		if err != nil {
			return err
		}

		var records []store.Record
		for record, err := range table.Cursor(ctx) {
			if err != nil {
				return err
			}
			records = append(records, record)
		}

		if _, err := db.Insert(ctx, name, records...); err != nil {
			return fmt.Errorf("import %s: %w", name, err)
		}
		r.logger.Debug("imported table", zap.String("table", name), zap.Int("records", len(records)))
	}
	return nil
}
