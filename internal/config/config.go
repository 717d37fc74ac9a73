package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jacoelho/recsel/internal/exit"
	"github.com/jacoelho/recsel/internal/formatter"
	"github.com/jacoelho/recsel/internal/query"
	"github.com/jacoelho/recsel/internal/selection"
)

var (
	ErrNoArguments    = errors.New("no arguments provided")
	ErrNoSource       = errors.New("one of -data or -db is required")
	ErrLoadNeedsBoth  = errors.New("-load requires both -data and -db")
	ErrNoTable        = errors.New("no table specified")
	ErrUnexpectedArgs = errors.New("unexpected positional arguments")
)

// Config represents the complete configuration for the recsel tool.
type Config struct {
	// Record sources
	DataFile string
	DBFile   string
	Load     bool

	// Selection, merged from -query and the individual query flags
	QueryFile string
	Query     query.Document

	// Output
	Format    formatter.Format
	RateLimit float64 // Rows per second (0 = unlimited)

	Scan       bool
	Explain    bool
	ListTables bool
	Debug      bool
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.DataFile == "" && c.DBFile == "" {
		return ErrNoSource
	}

	if c.Load && (c.DataFile == "" || c.DBFile == "") {
		return ErrLoadNeedsBoth
	}

	if c.DataFile != "" {
		if _, err := os.Stat(c.DataFile); err != nil {
			return fmt.Errorf("data file %s not found: %w", c.DataFile, err)
		}
	}

	if c.ListTables {
		return nil
	}

	if c.Query.Table == "" {
		return ErrNoTable
	}

	if _, err := c.Query.Query(); err != nil {
		return err
	}

	return nil
}

// stringsFlag implements flag.Value for flags that may be repeated.
type stringsFlag []string

func (s *stringsFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringsFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// Parse parses command-line arguments and returns a validated Config.
// If parsing fails or help is requested, returns nil config and exit result.
func Parse(args []string) (*Config, *exit.Result) {
	if len(args) == 0 {
		return nil, exit.Errorf("Error: %v\n\n%s", ErrNoArguments, Usage())
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)

	var (
		dataFile   = fs.String("data", "", "YAML or JSON data file mapping table names to records")
		dbFile     = fs.String("db", "", "SQLite database file")
		load       = fs.Bool("load", false, "Import -data into -db before selecting")
		queryFile  = fs.String("query", "", "YAML or JSON query document")
		table      = fs.String("table", "", "Table to select from")
		selections stringsFlag
		whereExpr  = fs.String("where", "", "Where expression in YAML flow or JSON syntax")
		sortBy     stringsFlag
		page       = fs.Int("page", 0, "Zero-based page index")
		pageSize   = fs.Int("page-size", selection.NoLimit, "Rows per page (-1 for no limit)")
		format     = fs.String("format", string(formatter.FormatJSON), "Output format: json, pretty or yaml")
		rateLimit  = fs.Float64("rate-limit", 0, "Rate limit in rows per second (0 for unlimited)")
		scan       = fs.Bool("scan", false, "Always scan the table instead of using indexed lookups")
		explain    = fs.Bool("explain", false, "Print the chosen plan instead of rows")
		listTables = fs.Bool("tables", false, "List table names and exit")
		debug      = fs.Bool("debug", false, "Enable debug logging on stderr")
	)

	fs.Var(&selections, "select", "Field path to project (can be used multiple times)")
	fs.Var(&sortBy, "sort", "Field path to sort by (can be used multiple times)")

	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, exit.Success(Usage())
		}
		return nil, exit.Errorf("Error: failed to parse arguments: %v\n\n%s", err, Usage())
	}

	if fs.NArg() > 0 {
		return nil, exit.Errorf("Error: %v: %s\n\n%s", ErrUnexpectedArgs, strings.Join(fs.Args(), " "), Usage())
	}

	outputFormat, err := formatter.ParseFormat(*format)
	if err != nil {
		return nil, exit.Errorf("Error: %v\n\n%s", err, Usage())
	}

	// Query file first, then flags given on the command line take precedence
	var doc query.Document
	if *queryFile != "" {
		doc, err = query.ParseFile(*queryFile)
		if err != nil {
			return nil, exit.Errorf("Error: failed to load query file: %v\n\n%s", err, Usage())
		}
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "table":
			doc.Table = *table
		case "select":
			doc.Select = selections
		case "where":
			raw, err := query.DecodeWhere(*whereExpr)
			if err != nil {
				flagErr = err
				return
			}
			doc.Where = raw
		case "sort":
			doc.SortBy = sortBy
		case "page":
			doc.Page = *page
		case "page-size":
			size := *pageSize
			doc.PageSize = &size
		}
	})
	if flagErr != nil {
		return nil, exit.Errorf("Error: %v\n\n%s", flagErr, Usage())
	}

	config := &Config{
		DataFile:   *dataFile,
		DBFile:     *dbFile,
		Load:       *load,
		QueryFile:  *queryFile,
		Query:      doc,
		Format:     outputFormat,
		RateLimit:  *rateLimit,
		Scan:       *scan,
		Explain:    *explain,
		ListTables: *listTables,
		Debug:      *debug,
	}

	if err := config.Validate(); err != nil {
		return nil, exit.Errorf("Error: %v\n\n%s", err, Usage())
	}

	return config, nil
}

// Usage returns a usage string for the CLI tool.
func Usage() string {
	return `recsel - select records from a genealogy database

Usage: recsel (-data FILE | -db FILE) [options]

Options:
  --data FILE             YAML or JSON file mapping table names to record lists
  --db FILE               SQLite database file
  --load                  Import --data into --db before selecting
  --query FILE            YAML or JSON query document (table, select, where, sort_by, page, page_size)
  --table NAME            Table to select from
  --select PATH           Field path to project (can be used multiple times, default $)
  --where EXPR            Where expression, e.g. '[$.gramps_id, "=", I0001]'
  --sort PATH             Field path to sort by (can be used multiple times)
  --page N                Zero-based page index (default: 0)
  --page-size N           Rows per page (default: -1, no limit)
  --format FORMAT         Output format: json, pretty or yaml (default: json)
  --rate-limit N          Rate limit in rows per second (0 for unlimited)
  --scan                  Always scan the table instead of using indexed lookups
  --explain               Print the chosen plan instead of rows
  --tables                List table names and exit
  --debug                 Enable debug logging on stderr
  -h, --help              Show this help message

Flags given on the command line override the same fields of --query.

Examples:
  recsel --data tree.yaml --table person --where '[$.gender, "=", M]' --select $.gramps_id
  recsel --data tree.yaml --table person --sort $.gramps_id --page 1 --page-size 20
  recsel --data tree.yaml --db tree.db --load --tables
  recsel --db tree.db --query adults.yaml --format yaml
  recsel --db tree.db --table person --where '[$.handle, "=", a1b2]' --explain`
}
