package core

import "testing"

func TestCanonicalID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"lowercases", "ABC-DEF", "abc-def"},
		{"trims whitespace", "  id-1  ", "id-1"},
		{"uuid case folded", "550E8400-E29B-41D4-A716-446655440000", "550e8400-e29b-41d4-a716-446655440000"},
		{"int", 42, "42"},
		{"int64", int64(690001), "690001"},
		{"integral float", float64(42), "42"},
		{"negative integral float", float64(-7), "-7"},
		{"fractional float", 4.25, "4.25"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalID(tt.in); got != tt.want {
				t.Errorf("CanonicalID(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSameID(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{"42", int64(42), true},
		{"42", float64(42), true},
		{"ABC", "abc", true},
		{" run-1 ", "run-1", true},
		{"42", "43", false},
		{"run-1", "run-2", false},
	}

	for _, tt := range tests {
		if got := sameID(tt.a, tt.b); got != tt.want {
			t.Errorf("sameID(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
