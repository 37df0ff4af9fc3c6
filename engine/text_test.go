package engine

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input    string
		expected string
	}{
		"plain": {
			input:    "hello",
			expected: "hello",
		},
		"trims and collapses": {
			input:    "  a   b  ",
			expected: "a b",
		},
		"nbsp entity": {
			input:    "a&nbsp;b",
			expected: "a b",
		},
		"literal escapes": {
			input:    `a\nb\tc\rd`,
			expected: "a b c d",
		},
		"control whitespace": {
			input:    "a\nb\tc\rd",
			expected: "a b c d",
		},
		"non breaking space": {
			input:    "a b",
			expected: "a b",
		},
		"exotic unicode spaces": {
			input:    "a b c d᠎e f",
			expected: "a b c d e f",
		},
		"invisible formatters deleted": {
			input:    "a​b‌c‍d⁠e­f‎g‏h؜i",
			expected: "abcdefghi",
		},
		"ascii control deleted": {
			input:    "a\x01b\x7fc",
			expected: "abc",
		},
		"bom": {
			input:    "\ufeffhello",
			expected: "hello",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, cleanText(tc.input))
		})
	}
}

// Cleaning twice must equal cleaning once.
func TestCleanTextIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"  a   b  ",
		"a&nbsp;b\u200b",
		`x\n\t\r y`,
		"\x00\x1f\x7f",
		"уже чистая строка",
	}

	for _, in := range inputs {
		once := cleanText(in)
		assert.Equal(t, once, cleanText(once), "input %q", in)
	}
}

func TestCanonicalNull(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"", " ", "nan", "none", "null", "0"} {
		assert.Nil(t, canonicalNull(token), "token %q", token)
	}

	assert.Equal(t, "00", canonicalNull("00"))
	assert.Equal(t, "x", canonicalNull("x"))
	assert.Nil(t, canonicalNull("  null  "))

	// Input is lower-cased before canonicalisation; mixed-case forms pass
	// through untouched.
	assert.Equal(t, "NULL", canonicalNull("NULL"))
}

func TestCastText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", castText(nil))
	assert.Equal(t, "x", castText("x"))
	assert.Equal(t, "42", castText(int64(42)))
	assert.Equal(t, "1.5", castText(1.5))
	assert.Equal(t, "true", castText(true))
}

func TestKeepMatches(t *testing.T) {
	t.Parallel()

	digits := regexp.MustCompile(`[0-9]`)

	assert.Equal(t, "79991234567", keepMatches(digits, "+7 (999) 123-45-67"))
	assert.Equal(t, "", keepMatches(digits, "abc"))
}
