// Package sqlgen provides low-level helpers for assembling the catalog's
// SQL: dedenting formatters, literal encoders for the SQL and jsonpath
// dialects, and per-compilation table alias allocation.
package sqlgen

import (
	"fmt"
	"strings"
)

// Sqlf formats SQL with automatic dedenting and blank line removal so the
// query shape stays visible in the format string.
func Sqlf(format string, args ...any) string {
	s := fmt.Sprintf(format, args...)
	lines := strings.Split(s, "\n")

	minIndent := -1
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent < 0 {
		minIndent = 0
	}

	var out []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) >= minIndent {
			out = append(out, line[minIndent:])
		} else {
			out = append(out, strings.TrimLeft(line, " \t"))
		}
	}
	return strings.Join(out, "\n")
}

// Optf returns the formatted string when cond is true, "" otherwise.
// Useful for optional clauses (limit, where).
func Optf(cond bool, format string, args ...any) string {
	if !cond {
		return ""
	}
	return fmt.Sprintf(format, args...)
}

// Indent prefixes every line of input with the given indent.
func Indent(input, indent string) string {
	if input == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(input), "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}

// Aliases allocates unique table aliases within one compiled query.
// Each compilation owns its allocator, so concurrent compilations get
// independent namespaces; uniqueness matters only within a single query.
type Aliases struct {
	counts map[string]int
}

// NewAliases returns a fresh allocator.
func NewAliases() *Aliases {
	return &Aliases{counts: map[string]int{}}
}

// Next returns the next alias for prefix: f_1, f_2, ...
func (a *Aliases) Next(prefix string) string {
	a.counts[prefix]++
	return fmt.Sprintf("%s_%d", prefix, a.counts[prefix])
}
