package pattern_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.nomadlab.dev/datacleaner/pattern"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		key   string
		found bool
	}{
		"digits": {
			key:   "digits",
			found: true,
		},
		"cyrillic common": {
			key:   "cyrillic_common",
			found: true,
		},
		"unknown key": {
			key:   "klingon",
			found: false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src, ok := pattern.Lookup(tc.key)
			assert.Equal(t, tc.found, ok)

			if tc.found {
				_, err := regexp.Compile(src)
				require.NoError(t, err)
			}
		})
	}
}

func TestAllPatternsCompile(t *testing.T) {
	t.Parallel()

	for _, key := range pattern.Keys() {
		src, ok := pattern.Lookup(key)
		require.True(t, ok)

		_, err := regexp.Compile(src)
		require.NoError(t, err, "pattern %q", key)
	}
}

func TestCombine(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		keys     []string
		expected string
	}{
		"preserves order": {
			keys:     []string{"digits", "latin_basic"},
			expected: `[0-9]|[A-Za-z]`,
		},
		"skips unknown keys": {
			keys:     []string{"klingon", "digits"},
			expected: `[0-9]`,
		},
		"no known keys": {
			keys:     []string{"klingon"},
			expected: "",
		},
		"empty input": {
			keys:     nil,
			expected: "",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, pattern.Combine(tc.keys))
		})
	}
}

func TestCombineMatchesSelectedClasses(t *testing.T) {
	t.Parallel()

	re := regexp.MustCompile(pattern.Combine([]string{"cyrillic_common", "digits"}))

	assert.Equal(t, []string{"И", "в", "а", "н", "7"}, re.FindAllString("Иван x7", -1))
}

func TestLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Digits (0-9)", pattern.Label("digits"))
	assert.Empty(t, pattern.Label("klingon"))
}
