package nomadfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.nomadlab.dev/datacleaner/nomadfile"
)

var allowed = []string{"ru", "kg", "uz", "tm", "ua", "by", "nl", "az"}

func TestSanitizeBasename(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input    string
		expected string
	}{
		"cyrillic transliterated": {
			input:    "Москва",
			expected: "moskva",
		},
		"soft and hard signs dropped": {
			input:    "объём",
			expected: "obem",
		},
		"dots commas spaces": {
			input:    "clients. 2024, v2",
			expected: "clients_2024_v2",
		},
		"illegal runs collapse": {
			input:    "a!!!b###c",
			expected: "a_b_c",
		},
		"trims underscores and hyphens": {
			input:    "__data--",
			expected: "data",
		},
		"empty falls back": {
			input:    "***",
			expected: "data",
		},
		"multi letter mapping": {
			input:    "Щука",
			expected: "shchuka",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, nomadfile.SanitizeBasename(tc.input))
		})
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	name, err := nomadfile.Build(allowed, "KG", "База Клиентов", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "nomad-kg-baza_klientov-2024-v3.parquet", name)
}

func TestBuildInvalidCountry(t *testing.T) {
	t.Parallel()

	_, err := nomadfile.Build(allowed, "xx", "data", 2024, 1)
	require.ErrorIs(t, err, nomadfile.ErrInvalidCountry)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		filename    string
		expectedErr error
	}{
		"valid": {
			filename: "nomad-ru-clients-2024-v1.parquet",
		},
		"wrong prefix": {
			filename:    "data-ru-clients-2024-v1.parquet",
			expectedErr: nomadfile.ErrInvalidFilename,
		},
		"missing version": {
			filename:    "nomad-ru-clients-2024.parquet",
			expectedErr: nomadfile.ErrInvalidFilename,
		},
		"country outside the set": {
			filename:    "nomad-zz-clients-2024-v1.parquet",
			expectedErr: nomadfile.ErrInvalidCountry,
		},
		"uppercase rejected": {
			filename:    "nomad-RU-clients-2024-v1.parquet",
			expectedErr: nomadfile.ErrInvalidFilename,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := nomadfile.Validate(allowed, tc.filename)
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// Build output must always validate, for every allowed country and any
// non-empty basename.
func TestBuildValidateRoundTrip(t *testing.T) {
	t.Parallel()

	basenames := []string{"clients", "Москва 2024", "a.b,c", "___", "データ"}

	for _, cc := range allowed {
		for _, base := range basenames {
			name, err := nomadfile.Build(allowed, cc, base, 2025, 1)
			require.NoError(t, err)
			require.NoError(t, nomadfile.Validate(allowed, name), "built %q", name)
		}
	}
}
