package memwatch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.nomadlab.dev/datacleaner/memwatch"
)

func TestCheckBelowThresholds(t *testing.T) {
	t.Parallel()

	g := &memwatch.Guard{
		Sample: func() (float64, error) { return 40, nil },
	}

	require.NoError(t, g.Check())
}

func TestCheckSoftThresholdReleasesAndContinues(t *testing.T) {
	t.Parallel()

	samples := []float64{85, 50}
	g := &memwatch.Guard{
		Sample: func() (float64, error) {
			pct := samples[0]
			if len(samples) > 1 {
				samples = samples[1:]
			}

			return pct, nil
		},
	}

	require.NoError(t, g.Check())
	assert.Len(t, samples, 1, "expected a re-sample after release")
}

func TestCheckHardThresholdAborts(t *testing.T) {
	t.Parallel()

	g := &memwatch.Guard{
		Sample: func() (float64, error) { return 97, nil },
	}

	err := g.Check()
	require.Error(t, err)
	require.ErrorIs(t, err, memwatch.ErrMemoryExhausted)
}

func TestCheckCustomThresholds(t *testing.T) {
	t.Parallel()

	g := &memwatch.Guard{
		SoftPercent: 10,
		HardPercent: 20,
		Sample:      func() (float64, error) { return 25, nil },
	}

	require.ErrorIs(t, g.Check(), memwatch.ErrMemoryExhausted)
}
