// Package memwatch samples system memory pressure between streamed chunks
// and enforces the engine's soft and hard thresholds.
package memwatch

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shirou/gopsutil/v4/mem"
)

// ErrMemoryExhausted indicates memory usage crossed the hard threshold.
var ErrMemoryExhausted = errors.New("memory exhausted")

const (
	// DefaultSoftPercent is the usage level that triggers a release
	// request to the runtime.
	DefaultSoftPercent = 80.0
	// DefaultHardPercent is the usage level that aborts the run.
	DefaultHardPercent = 95.0
)

// Guard checks memory usage on demand. The zero value uses the default
// thresholds and the system sampler.
type Guard struct {
	// SoftPercent triggers a runtime memory release. Zero means
	// [DefaultSoftPercent].
	SoftPercent float64
	// HardPercent aborts the run. Zero means [DefaultHardPercent].
	HardPercent float64
	// Sample overrides the usage source in tests. Nil samples system
	// virtual memory.
	Sample func() (float64, error)
	// Logger receives warnings; nil uses [slog.Default].
	Logger *slog.Logger
}

func (g *Guard) soft() float64 {
	if g.SoftPercent > 0 {
		return g.SoftPercent
	}

	return DefaultSoftPercent
}

func (g *Guard) hard() float64 {
	if g.HardPercent > 0 {
		return g.HardPercent
	}

	return DefaultHardPercent
}

func (g *Guard) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}

	return slog.Default()
}

func (g *Guard) sample() (float64, error) {
	if g.Sample != nil {
		return g.Sample()
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}

	return vm.UsedPercent, nil
}

// Check samples current usage. Above the soft threshold it asks the runtime
// to return memory to the OS and re-samples; above the hard threshold it
// returns [ErrMemoryExhausted]. Sampling failures are logged and ignored.
func (g *Guard) Check() error {
	pct, err := g.sample()
	if err != nil {
		g.logger().Warn("memory sampling failed", "error", err)

		return nil
	}

	if pct > g.soft() {
		g.logger().Warn("high memory usage, requesting release", "used_percent", pct)
		debug.FreeOSMemory()

		pct, err = g.sample()
		if err != nil {
			g.logger().Warn("memory sampling failed", "error", err)

			return nil
		}
	}

	if pct > g.hard() {
		return fmt.Errorf("%w: %.1f%% used (hard limit %.1f%%)", ErrMemoryExhausted, pct, g.hard())
	}

	return nil
}
