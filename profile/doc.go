// Package profile adds runtime profiling to the CLI.
//
// It supports CPU, heap, and allocs profiles through command-line flags.
// Typical usage wraps command execution with profiler lifecycle methods:
//
//	cfg := profile.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//
//	profiler := cfg.NewProfiler()
//	err := profiler.Start()
//	defer profiler.Stop()
//
// Users can then enable profiling via flags like --cpu-profile=cpu.prof.
package profile
