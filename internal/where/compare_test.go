package where

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		lhs     any
		op      Operator
		rhs     any
		want    bool
		wantErr error
	}{
		{name: "equal_strings", lhs: "M", op: OpEqual, rhs: "M", want: true},
		{name: "equal_numeric_coercion", lhs: uint64(1850), op: OpEqual, rhs: 1850.0, want: true},
		{name: "equal_json_number", lhs: json.Number("3"), op: OpEqual, rhs: 3, want: true},
		{name: "equal_large_integers_exact", lhs: int64(1<<53 + 1), op: OpEqual, rhs: int64(1 << 53), want: false},
		{name: "not_equal_large_integers", lhs: uint64(1<<60 + 1), op: OpNotEqual, rhs: int64(1 << 60), want: true},
		{name: "in_large_integers", lhs: int64(1<<53 + 1), op: OpIn, rhs: []any{int64(1 << 53)}, want: false},
		{name: "equal_nil", lhs: nil, op: OpEqual, rhs: nil, want: true},
		{name: "equal_nil_vs_value", lhs: nil, op: OpEqual, rhs: "M", want: false},
		{name: "equal_sequences", lhs: []any{"a", "b"}, op: OpEqual, rhs: []any{"a", "b"}, want: true},
		{name: "not_equal", lhs: "F", op: OpNotEqual, rhs: "M", want: true},
		{name: "not_equal_nil", lhs: nil, op: OpNotEqual, rhs: "M", want: true},
		{name: "less_numbers", lhs: 1820, op: OpLess, rhs: 1900, want: true},
		{name: "less_equal_boundary", lhs: 1900, op: OpLessEqual, rhs: uint64(1900), want: true},
		{name: "greater_strings", lhs: "Smith", op: OpGreater, rhs: "Garner", want: true},
		{name: "greater_equal_false", lhs: "A", op: OpGreaterEqual, rhs: "B", want: false},
		{name: "bools_ordered", lhs: false, op: OpLess, rhs: true, want: true},
		{name: "ordering_with_nil", lhs: nil, op: OpLess, rhs: 5, want: false},
		{name: "ordering_mixed_types", lhs: "1900", op: OpLess, rhs: 2000, wantErr: ErrIncomparable},
		{name: "in_sequence", lhs: "I2", op: OpIn, rhs: []any{"I1", "I2"}, want: true},
		{name: "in_sequence_numeric", lhs: uint64(2), op: OpIn, rhs: []any{1.0, 2.0}, want: true},
		{name: "in_string_slice", lhs: "x", op: OpIn, rhs: []string{"y"}, want: false},
		{name: "in_substring", lhs: "arn", op: OpIn, rhs: "Garner", want: true},
		{name: "in_mapping_key", lhs: "surname", op: OpIn, rhs: map[string]any{"surname": "G"}, want: true},
		{name: "in_nil_container", lhs: "x", op: OpIn, rhs: nil, want: false},
		{name: "in_scalar_container", lhs: "x", op: OpIn, rhs: 7, wantErr: ErrIncomparable},
		{name: "in_string_with_number", lhs: 7, op: OpIn, rhs: "17", wantErr: ErrIncomparable},
		{name: "not_in_sequence", lhs: "I3", op: OpNotIn, rhs: []any{"I1", "I2"}, want: true},
		{name: "not_in_nil_container", lhs: "I3", op: OpNotIn, rhs: nil, want: true},
		{name: "like_percent", lhs: "abc123", op: OpLike, rhs: "abc%", want: true},
		{name: "like_underscore_length_mismatch", lhs: "abcd", op: OpLike, rhs: "abc_", want: false},
		{name: "like_underscore", lhs: "abc", op: OpLike, rhs: "a_c", want: true},
		{name: "like_anchored_start", lhs: "xabc", op: OpLike, rhs: "abc%", want: false},
		{name: "like_anchored_end", lhs: "abcx", op: OpLike, rhs: "%abc", want: false},
		{name: "like_regex_metachars_literal", lhs: "a.c", op: OpLike, rhs: "a.c", want: true},
		{name: "like_dot_not_wildcard", lhs: "abc", op: OpLike, rhs: "a.c", want: false},
		{name: "like_multiline", lhs: "line1\nline2", op: OpLike, rhs: "line1%", want: true},
		{name: "like_nil", lhs: nil, op: OpLike, rhs: "%", want: false},
		{name: "like_non_string", lhs: 12, op: OpLike, rhs: "1%", wantErr: ErrIncomparable},
		{name: "like_pattern_non_string", lhs: "12", op: OpLike, rhs: 12, wantErr: ErrIncomparable},
		{name: "operator_case_insensitive", lhs: "Ann", op: Operator("LIKE"), rhs: "A%", want: true},
		{name: "unsupported", lhs: 1, op: Operator("~"), rhs: 1, wantErr: ErrUnsupportedOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Compare(tt.lhs, tt.op, tt.rhs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Compare() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compare() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Compare(%v, %q, %v) = %v, want %v", tt.lhs, tt.op, tt.rhs, got, tt.want)
			}
		})
	}
}

func TestLikeToRegexp(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"abc%":  `(?s)\Aabc.*\z`,
		"a_c":   `(?s)\Aa.c\z`,
		"1+1=2": `(?s)\A1\+1=2\z`,
	}
	for pattern, want := range tests {
		if got := likeToRegexp(pattern); got != want {
			t.Errorf("likeToRegexp(%q) = %q, want %q", pattern, got, want)
		}
	}
}
