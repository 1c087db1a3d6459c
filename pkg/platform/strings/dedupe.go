// Package strings holds helpers for cleaning free-form cell and command input.
package strings

import (
	"strings"
)

// ParseUnique trims each value, parses it and keeps the first occurrence of
// every parsed key. Blank values and values that fail to parse are dropped.
// Order is preserved.
//
// Example:
//
//	ParseUnique([]string{" Testlandia", "testlandia", "", "!!"}, nation.Normalize)
//	// Returns: []nation.Key{"testlandia"}
func ParseUnique[K comparable](values []string, parse func(string) (K, error)) []K {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[K]struct{}, len(values))
	result := make([]K, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		k, err := parse(trimmed)
		if err != nil {
			continue
		}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			result = append(result, k)
		}
	}

	return result
}
