// Package sqlnorm normalizes SQL statements into stripped templates
// suitable for grouping and deduplication.
package sqlnorm

import (
	"regexp"
	"strings"

	"github.com/zeebo/xxh3"
)

var (
	paramRegex      = regexp.MustCompile(`\$\d+`)
	stringRegex     = regexp.MustCompile(`'[^']*'`)
	numberRegex     = regexp.MustCompile(`\b\d+\b`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	inListRegex     = regexp.MustCompile(`\(\s*\?(?:\s*,\s*\?)+\s*\)`)

	tableRegex = regexp.MustCompile(`(?i)\b(?:FROM|INTO|UPDATE|JOIN)\s+` + "[`\"]?" + `([A-Za-z_][A-Za-z0-9_.]*)`)
)

// Normalize strips literals from a SQL statement, replacing parameter
// placeholders, quoted strings, and numbers with "?" and collapsing
// whitespace. Statements that differ only in literal values normalize
// to the same template.
func Normalize(query string) string {
	normalized := paramRegex.ReplaceAllString(query, "?")
	normalized = stringRegex.ReplaceAllString(normalized, "?")
	normalized = numberRegex.ReplaceAllString(normalized, "?")
	normalized = whitespaceRegex.ReplaceAllString(normalized, " ")
	// Collapse IN lists so (?, ?, ?) and (?) group together
	normalized = inListRegex.ReplaceAllString(normalized, "(?)")
	return strings.TrimSpace(normalized)
}

// GuessTable returns a best-effort table name referenced by the statement,
// taken from the first FROM/INTO/UPDATE/JOIN clause. Returns "" when no
// table can be identified.
func GuessTable(query string) string {
	m := tableRegex.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	name := m[1]
	// Keep only the final component of schema-qualified names
	if idx := strings.LastIndex(name, "."); idx != -1 {
		name = name[idx+1:]
	}
	return name
}

// Hash returns a stable 64-bit hash of a normalized template.
func Hash(template string) uint64 {
	return xxh3.HashString(template)
}
