package number

import (
	"encoding/json"
	"math"
	"testing"
)

func TestToFloat64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		ok    bool
		want  float64
	}{
		{name: "int", input: int(10), ok: true, want: 10},
		{name: "uint64_from_yaml", input: uint64(1850), ok: true, want: 1850},
		{name: "int64_negative", input: int64(-3), ok: true, want: -3},
		{name: "float64", input: 12.5, ok: true, want: 12.5},
		{name: "json_number", input: json.Number("42"), ok: true, want: 42},
		{name: "bad_json_number", input: json.Number("x"), ok: false, want: 0},
		{name: "non_numeric", input: "x", ok: false, want: 0},
		{name: "nil", input: nil, ok: false, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ToFloat64(tt.input)
			if ok != tt.ok {
				t.Fatalf("ToFloat64(%v) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("ToFloat64(%v) value = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b any
		want int
		ok   bool
	}{
		{name: "less_mixed_types", a: uint64(1850), b: 1900.0, want: -1, ok: true},
		{name: "equal_mixed_types", a: int64(7), b: json.Number("7"), want: 0, ok: true},
		{name: "greater", a: 3, b: 2, want: 1, ok: true},
		{name: "string_operand", a: 3, b: "2", ok: false},
		{name: "bool_operand", a: true, b: 1, ok: false},
		{name: "large_int64_neighbours", a: int64(1<<53 + 1), b: int64(1 << 53), want: 1, ok: true},
		{name: "uint64_above_int64", a: uint64(math.MaxUint64), b: int64(math.MaxInt64), want: 1, ok: true},
		{name: "negative_against_unsigned", a: int64(-1), b: uint64(0), want: -1, ok: true},
		{name: "min_int64", a: int64(math.MinInt64), b: int64(math.MinInt64 + 1), want: -1, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Compare(tt.a, tt.b)
			if ok != tt.ok {
				t.Fatalf("Compare(%v, %v) ok = %v, want %v", tt.a, tt.b, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b any
		want bool
		ok   bool
	}{
		{name: "mixed_integer_types", a: uint64(7), b: 7, want: true, ok: true},
		{name: "integer_and_float", a: int64(1850), b: 1850.0, want: true, ok: true},
		{name: "large_int64_neighbours", a: int64(1<<53 + 1), b: int64(1 << 53), want: false, ok: true},
		{name: "large_json_number", a: json.Number("9007199254740993"), b: int64(1<<53 + 1), want: true, ok: true},
		{name: "zero_signs", a: int64(0), b: uint64(0), want: true, ok: true},
		{name: "fraction", a: 1.5, b: 1, want: false, ok: true},
		{name: "string_operand", a: "7", b: 7, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Equal(tt.a, tt.b)
			if ok != tt.ok {
				t.Fatalf("Equal(%v, %v) ok = %v, want %v", tt.a, tt.b, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
