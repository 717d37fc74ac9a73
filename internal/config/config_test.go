package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jacoelho/recsel/internal/formatter"
	"github.com/jacoelho/recsel/internal/query"
)

func intPtr(v int) *int {
	return &v
}

func TestParse(t *testing.T) {
	tempDir := t.TempDir()
	dataFile := filepath.Join(tempDir, "tree.yaml")
	queryFile := filepath.Join(tempDir, "query.yaml")
	dbFile := filepath.Join(tempDir, "tree.db")

	if err := os.WriteFile(dataFile, []byte("person: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	queryDoc := "table: family\nselect: [$.gramps_id]\nwhere: [$.type, \"=\", Married]\npage_size: 5\n"
	if err := os.WriteFile(queryFile, []byte(queryDoc), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		want    *Config
		wantErr bool
	}{
		{
			name: "data_and_table",
			args: []string{"recsel", "--data", dataFile, "--table", "person"},
			want: &Config{
				DataFile: dataFile,
				Query:    query.Document{Table: "person"},
				Format:   formatter.FormatJSON,
			},
		},
		{
			name: "all_query_flags",
			args: []string{
				"recsel", "-data", dataFile, "-table", "person",
				"-select", "$.gramps_id", "-select", "$.gender",
				"-where", `[$.gender, "=", M]`,
				"-sort", "$.gramps_id",
				"-page", "2", "-page-size", "10",
				"-format", "yaml", "-rate-limit", "5", "-scan", "-debug",
			},
			want: &Config{
				DataFile: dataFile,
				Query: query.Document{
					Table:    "person",
					Select:   []string{"$.gramps_id", "$.gender"},
					Where:    []any{"$.gender", "=", "M"},
					SortBy:   []string{"$.gramps_id"},
					Page:     2,
					PageSize: intPtr(10),
				},
				Format:    formatter.FormatYAML,
				RateLimit: 5,
				Scan:      true,
				Debug:     true,
			},
		},
		{
			name: "query_file",
			args: []string{"recsel", "-db", dbFile, "-query", queryFile},
			want: &Config{
				DBFile:    dbFile,
				QueryFile: queryFile,
				Query: query.Document{
					Table:    "family",
					Select:   []string{"$.gramps_id"},
					Where:    []any{"$.type", "=", "Married"},
					PageSize: intPtr(5),
				},
				Format: formatter.FormatJSON,
			},
		},
		{
			name: "flags_override_query_file",
			args: []string{"recsel", "-db", dbFile, "-query", queryFile, "-table", "event", "-page-size", "-1"},
			want: &Config{
				DBFile:    dbFile,
				QueryFile: queryFile,
				Query: query.Document{
					Table:    "event",
					Select:   []string{"$.gramps_id"},
					Where:    []any{"$.type", "=", "Married"},
					PageSize: intPtr(-1),
				},
				Format: formatter.FormatJSON,
			},
		},
		{
			name: "load_and_list_tables",
			args: []string{"recsel", "-data", dataFile, "-db", dbFile, "-load", "-tables"},
			want: &Config{
				DataFile:   dataFile,
				DBFile:     dbFile,
				Load:       true,
				Format:     formatter.FormatJSON,
				ListTables: true,
			},
		},
		{
			name: "explain",
			args: []string{"recsel", "-db", dbFile, "-table", "person", "-explain"},
			want: &Config{
				DBFile:  dbFile,
				Query:   query.Document{Table: "person"},
				Format:  formatter.FormatJSON,
				Explain: true,
			},
		},
		{name: "no_source", args: []string{"recsel", "-table", "person"}, wantErr: true},
		{name: "missing_data_file", args: []string{"recsel", "-data", filepath.Join(tempDir, "nope.yaml"), "-table", "person"}, wantErr: true},
		{name: "load_without_db", args: []string{"recsel", "-data", dataFile, "-load", "-tables"}, wantErr: true},
		{name: "no_table", args: []string{"recsel", "-data", dataFile}, wantErr: true},
		{name: "bad_format", args: []string{"recsel", "-data", dataFile, "-table", "person", "-format", "csv"}, wantErr: true},
		{name: "bad_where", args: []string{"recsel", "-data", dataFile, "-table", "person", "-where", "[$.a, "}, wantErr: true},
		{name: "bad_operator", args: []string{"recsel", "-data", dataFile, "-table", "person", "-where", "[$.a, ~, 1]"}, wantErr: true},
		{name: "zero_page_size", args: []string{"recsel", "-data", dataFile, "-table", "person", "-page-size", "0"}, wantErr: true},
		{name: "negative_page", args: []string{"recsel", "-data", dataFile, "-table", "person", "-page", "-1"}, wantErr: true},
		{name: "positional_args", args: []string{"recsel", "-data", dataFile, "-table", "person", "extra"}, wantErr: true},
		{name: "missing_query_file", args: []string{"recsel", "-data", dataFile, "-query", filepath.Join(tempDir, "nope.yaml")}, wantErr: true},
		{name: "invalid_page_format", args: []string{"recsel", "-data", dataFile, "-table", "person", "-page", "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, exitResult := Parse(tt.args)

			if tt.wantErr {
				if exitResult == nil {
					t.Fatalf("Parse() expected error but got none")
				}
				if exitResult.ExitCode != 1 {
					t.Errorf("Parse() error should have exit code 1, got %d", exitResult.ExitCode)
				}
				return
			}

			if exitResult != nil {
				t.Fatalf("Parse() unexpected error: exit code %d, message: %s", exitResult.ExitCode, exitResult.Message)
			}

			if diff := cmp.Diff(tt.want, cfg); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseNoArguments(t *testing.T) {
	_, exitResult := Parse(nil)
	if exitResult == nil || exitResult.ExitCode != 1 {
		t.Fatalf("Parse(nil) = %+v, want exit code 1", exitResult)
	}
	if !strings.Contains(exitResult.Message, ErrNoArguments.Error()) {
		t.Errorf("message %q does not mention %v", exitResult.Message, ErrNoArguments)
	}
}

func TestParseHelpFlag(t *testing.T) {
	for _, arg := range []string{"-help", "--help", "-h"} {
		_, exitResult := Parse([]string{"recsel", arg})
		if exitResult == nil {
			t.Fatalf("expected exit result for %s", arg)
		}
		if exitResult.ExitCode != 0 {
			t.Errorf("expected exit code 0 for %s, got %d", arg, exitResult.ExitCode)
		}
		if exitResult.Message != Usage() {
			t.Errorf("%s did not print usage", arg)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "no_source", cfg: Config{Query: query.Document{Table: "person"}}, want: ErrNoSource},
		{name: "load_needs_both", cfg: Config{DBFile: "x.db", Load: true, ListTables: true}, want: ErrLoadNeedsBoth},
		{name: "no_table", cfg: Config{DBFile: "x.db"}, want: ErrNoTable},
		{name: "list_tables_without_table", cfg: Config{DBFile: "x.db", ListTables: true}},
		{name: "invalid_query", cfg: Config{DBFile: "x.db", Query: query.Document{Table: "person", Page: -1}}, want: query.ErrInvalidQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStringsFlag(t *testing.T) {
	var s stringsFlag
	for _, v := range []string{"$.a", "$.b", "$.a"} {
		if err := s.Set(v); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff(stringsFlag{"$.a", "$.b", "$.a"}, s); diff != "" {
		t.Errorf("Set() mismatch (-want +got):\n%s", diff)
	}
	if got := s.String(); got != "$.a,$.b,$.a" {
		t.Errorf("String() = %q", got)
	}
}

func TestUsage(t *testing.T) {
	usage := Usage()
	for _, flagName := range []string{"--data", "--db", "--load", "--query", "--table", "--select", "--where", "--sort", "--page", "--page-size", "--format", "--rate-limit", "--scan", "--explain", "--tables", "--debug"} {
		if !strings.Contains(usage, flagName) {
			t.Errorf("Usage() missing %s", flagName)
		}
	}
}
