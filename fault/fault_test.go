package fault_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.nomadlab.dev/datacleaner/fault"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")

	tcs := map[string]struct {
		err      error
		expected fault.Kind
	}{
		"direct fault": {
			err:      fault.New(fault.KindSinkError, cause),
			expected: fault.KindSinkError,
		},
		"wrapped fault": {
			err:      fmt.Errorf("outer: %w", fault.New(fault.KindDecodeError, cause)),
			expected: fault.KindDecodeError,
		},
		"plain error": {
			err:      cause,
			expected: fault.KindUnknown,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, fault.Classify(tc.err))
		})
	}
}

func TestNewPreservesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := fault.New(fault.KindTransformError, cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "TransformError: boom", err.Error())
}

func TestNewNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, fault.New(fault.KindSinkError, nil))
}
