package sqlnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "replace parameter placeholders",
			query:    "SELECT * FROM users WHERE id = $1 AND name = $2",
			expected: "SELECT * FROM users WHERE id = ? AND name = ?",
		},
		{
			name:     "replace quoted strings",
			query:    "SELECT * FROM users WHERE name = 'John Doe'",
			expected: "SELECT * FROM users WHERE name = ?",
		},
		{
			name:     "replace numbers",
			query:    "SELECT * FROM users WHERE age > 18 AND id = 123",
			expected: "SELECT * FROM users WHERE age > ? AND id = ?",
		},
		{
			name:     "collapse whitespace",
			query:    "SELECT  *   FROM   users\n  WHERE   id = 1",
			expected: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:     "collapse IN lists",
			query:    "SELECT id FROM users WHERE id IN (1, 2, 3)",
			expected: "SELECT id FROM users WHERE id IN (?)",
		},
		{
			name:     "same shape different literals",
			query:    "SELECT * FROM orders WHERE total > 999 AND region = 'east'",
			expected: "SELECT * FROM orders WHERE total > ? AND region = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.query)
			if result != tt.expected {
				t.Errorf("Normalize() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestNormalizeStable(t *testing.T) {
	a := Normalize("SELECT * FROM t WHERE a = 1 AND b = 'x'")
	b := Normalize("SELECT * FROM t WHERE a = 42 AND b = 'something else'")
	if a != b {
		t.Errorf("expected identical templates, got %q and %q", a, b)
	}
	if Hash(a) != Hash(b) {
		t.Error("identical templates should hash equal")
	}
}

func TestGuessTable(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{"simple select", "SELECT * FROM users WHERE id = 1", "users"},
		{"insert", "INSERT INTO order_items (a, b) VALUES (1, 2)", "order_items"},
		{"update", "UPDATE accounts SET balance = 0", "accounts"},
		{"schema qualified", "SELECT 1 FROM analytics.page_views", "page_views"},
		{"lowercase keywords", "select id from sessions limit 1", "sessions"},
		{"no table", "SHOW VARIABLES", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuessTable(tt.query); got != tt.expected {
				t.Errorf("GuessTable(%q) = %q, want %q", tt.query, got, tt.expected)
			}
		})
	}
}
