package store

import (
	"os"
	"strings"
)

// WriteLastTerm records the most recently scraped term in a one-line side
// file so /latest can serve without a query parameter.
func WriteLastTerm(path, term string) error {
	return os.WriteFile(path, []byte(term), 0o644)
}

// ReadLastTerm returns the recorded term, or "" when none is recorded.
func ReadLastTerm(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
