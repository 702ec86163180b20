package workflow

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \n\t ", ""},
		{"plain select gets limit", "SELECT 1", "SELECT 1 LIMIT 1000"},
		{"trailing semicolon dropped", "SELECT 1;", "SELECT 1 LIMIT 1000"},
		{"semicolon then whitespace", "SELECT 1;  \n", "SELECT 1 LIMIT 1000"},
		{"fenced with language tag", "```sql\nSELECT 1;\n```", "SELECT 1 LIMIT 1000"},
		{"fenced without language tag", "```\nSELECT name FROM products\n```", "SELECT name FROM products LIMIT 1000"},
		{"fence without newline", "```SELECT 1```", "SELECT 1 LIMIT 1000"},
		{"limit under cap kept", "SELECT 1 LIMIT 10", "SELECT 1 LIMIT 10"},
		{"limit at cap kept", "SELECT 1 LIMIT 1000", "SELECT 1 LIMIT 1000"},
		{"limit above cap clamped", "SELECT 1 LIMIT 5000", "SELECT 1 LIMIT 1000"},
		{"limit overflowing int clamped", "SELECT 1 LIMIT 99999999999999999999", "SELECT 1 LIMIT 1000"},
		{"lowercase limit clamped", "select 1 limit 5000", "select 1 LIMIT 1000"},
		{"limit mid-query not trailing", "SELECT * FROM (SELECT 1 LIMIT 5) t", "SELECT * FROM (SELECT 1 LIMIT 5) t LIMIT 1000"},
		{"only fences", "```sql\n```", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.raw, MaxQueryRows); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"SELECT 1",
		"SELECT 1;",
		"```sql\nSELECT store, SUM(total) FROM sales GROUP BY store;\n```",
		"SELECT 1 LIMIT 5000",
		"SELECT 1 LIMIT 99999999999999999999",
		"SELECT 1 LIMIT 10",
	}
	for _, raw := range inputs {
		once := Normalize(raw, MaxQueryRows)
		twice := Normalize(once, MaxQueryRows)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q vs %q", raw, once, twice)
		}
	}
}

func TestNormalizeRespectsCustomCap(t *testing.T) {
	if got := Normalize("SELECT 1 LIMIT 500", 100); got != "SELECT 1 LIMIT 100" {
		t.Fatalf("Normalize() = %q", got)
	}
	if got := Normalize("SELECT 1", 100); got != "SELECT 1 LIMIT 100" {
		t.Fatalf("Normalize() = %q", got)
	}
}
