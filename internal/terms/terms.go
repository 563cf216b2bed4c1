// Package terms resolves the search-term list for a scrape run.
//
// Precedence: explicit SEARCH_TERMS value > terms file > positional
// arguments. An empty result is valid and means "no work".
package terms

import (
	"os"
	"strings"
)

// Resolve picks the term list from the first non-empty source.
// explicit is a comma- or newline-separated list (usually SEARCH_TERMS),
// file is a path to a terms file, args are positional CLI arguments that
// together form a single term.
func Resolve(explicit, file string, args []string) []string {
	if terms := Split(explicit); len(terms) > 0 {
		return terms
	}

	if file != "" {
		if raw, err := os.ReadFile(file); err == nil {
			if terms := Split(string(raw)); len(terms) > 0 {
				return terms
			}
		}
	}

	if joined := strings.TrimSpace(strings.Join(args, " ")); joined != "" {
		return []string{joined}
	}

	return nil
}

// Split breaks a comma- or newline-separated list into trimmed,
// non-empty terms.
func Split(raw string) []string {
	var terms []string
	for _, part := range strings.Split(strings.ReplaceAll(raw, "\n", ","), ",") {
		if t := strings.TrimSpace(part); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}
