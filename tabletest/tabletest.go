// Package tabletest provides fixture helpers for table-processing tests.
package tabletest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// JoinLF joins multiple strings with LF line endings.
// Use this to construct delimited fixture content with explicit line
// endings.
//
// Example:
//
//	content := tabletest.JoinLF(
//		"a,b",
//		"1,x",
//		"2,y",
//	) // -> "a,b\n1,x\n2,y"
func JoinLF(ss ...string) string {
	var sb strings.Builder
	for i, s := range ss {
		if i > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(s)
	}

	return sb.String()
}

// WriteCSV writes LF-joined lines to name under t's temp dir and returns
// the file path.
func WriteCSV(t *testing.T, name string, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	err := os.WriteFile(path, []byte(JoinLF(lines...)+"\n"), 0o600)
	if err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}

	return path
}

// WriteFile writes raw content to name under t's temp dir and returns the
// file path.
func WriteFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	err := os.WriteFile(path, content, 0o600)
	if err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}

	return path
}
