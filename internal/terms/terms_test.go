package terms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"comma separated", "milk, rice ,butter", []string{"milk", "rice", "butter"}},
		{"newline separated", "milk\nrice\nbutter", []string{"milk", "rice", "butter"}},
		{"mixed separators", "milk\nrice, butter", []string{"milk", "rice", "butter"}},
		{"empty entries dropped", "milk,, ,rice", []string{"milk", "rice"}},
		{"empty input", "", nil},
		{"whitespace only", "  \n  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.raw))
		})
	}
}

func TestResolvePrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "terms.txt")
	require.NoError(t, os.WriteFile(file, []byte("from-file-1\nfrom-file-2"), 0o644))

	// Explicit list wins over the file and positional args.
	got := Resolve("milk,rice", file, []string{"ignored"})
	assert.Equal(t, []string{"milk", "rice"}, got)

	// The file wins over positional args.
	got = Resolve("", file, []string{"ignored"})
	assert.Equal(t, []string{"from-file-1", "from-file-2"}, got)

	// Positional args join into a single term.
	got = Resolve("", "", []string{"basmati", "rice"})
	assert.Equal(t, []string{"basmati rice"}, got)

	// Nothing anywhere means no work.
	assert.Nil(t, Resolve("", "", nil))

	// A missing file falls through to the args.
	got = Resolve("", filepath.Join(t.TempDir(), "absent.txt"), []string{"milk"})
	assert.Equal(t, []string{"milk"}, got)
}
