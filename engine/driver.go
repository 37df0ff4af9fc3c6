package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"go.nomadlab.dev/datacleaner/config"
	"go.nomadlab.dev/datacleaner/fault"
	"go.nomadlab.dev/datacleaner/memwatch"
	"go.nomadlab.dev/datacleaner/sink"
	"go.nomadlab.dev/datacleaner/source"
	"go.nomadlab.dev/datacleaner/workflow"
)

// state tracks run progress through the driver's linear state machine.
type state string

const (
	stateInit           state = "init"
	stateWorkflowLoaded state = "workflow_loaded"
	stateSourceOpened   state = "source_opened"
	stateTransformed    state = "transformed"
	stateWritten        state = "written"
	stateDone           state = "done"
)

// RunOptions parameterises one engine run.
type RunOptions struct {
	// Config supplies folder layout and the allowed country code set. Nil
	// uses the defaults.
	Config *config.Config
	// WorkflowPath is the workflow JSON file.
	WorkflowPath string
	// InputPath is the CSV or Parquet input.
	InputPath string
	// OutputPath is the Parquet output; the extension is forced.
	OutputPath string
	// Encoding and Delimiter configure delimited-text inputs.
	Encoding  string
	Delimiter rune
	// ChunkSize is the streaming row-group width. Zero means 50000.
	ChunkSize int
	// MaxMemoryPercent is the soft memory threshold. Zero means 80.
	MaxMemoryPercent float64
	// Force overwrites an existing output file.
	Force bool
	// Logger receives run logs; nil uses [slog.Default].
	Logger *slog.Logger
}

// Result reports a completed run.
type Result struct {
	RunID      string
	OutputPath string
	Rows       int64
	Duration   time.Duration
	Warnings   []string
}

// run carries per-run state shared by the operators.
type run struct {
	log      *slog.Logger
	warnings []string
}

// warnf records a non-fatal condition and logs it immediately.
func (r *run) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, msg)
	r.log.Warn(msg)
}

// Run executes a workflow against an input file and streams the cleaned
// result to a Parquet output. The run progresses Init -> WorkflowLoaded ->
// SourceOpened -> Transformed -> Written -> Done; any failure is classified
// onto the engine's error taxonomy and terminates the run.
func Run(ctx context.Context, opts RunOptions) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	r := &run{log: logger}
	start := time.Now()

	r.setState(stateInit)

	// Load and validate the workflow before touching any data.
	wf, err := workflow.Load(opts.WorkflowPath, workflow.Options{
		AllowedCountryCodes: cfg.AllowedCountryCodes,
	})
	if err != nil {
		return nil, fault.New(fault.KindWorkflowInvalid, err)
	}

	r.setState(stateWorkflowLoaded)

	plan, err := source.Open(opts.InputPath, source.Options{
		Encoding:    opts.Encoding,
		Delimiter:   opts.Delimiter,
		AnalyzeRows: cfg.AnalyzeRows,
		ChunkSize:   opts.ChunkSize,
	})
	if err != nil {
		return nil, fault.New(sourceKind(err), err)
	}

	r.setState(stateSourceOpened)
	r.log.Info("source opened",
		"path", opts.InputPath, "columns", plan.Schema().Len())

	plan, err = r.applyColumnOperations(plan, wf)
	if err != nil {
		return nil, fault.New(transformKind(err), err)
	}

	plan = r.applyValidation(plan, wf)
	plan = r.applyDedup(plan, wf)
	plan = r.applyStructure(plan, wf)

	r.setState(stateTransformed)
	r.log.Info("plan composed", "schema", plan.Schema().String())

	guard := &memwatch.Guard{
		SoftPercent: opts.MaxMemoryPercent,
		Logger:      r.log,
	}

	err = guard.Check()
	if err != nil {
		return nil, fault.New(fault.KindMemoryExhausted, err)
	}

	outPath, rows, err := sink.Write(ctx, plan, opts.OutputPath, sink.Options{
		Compression: string(wf.Export.Parquet.Compression),
		ChunkSize:   opts.ChunkSize,
		Force:       opts.Force,
		OnChunk: func(written int64) error {
			r.log.Debug("chunk flushed", "rows", written)

			return guard.Check()
		},
	})
	if err != nil {
		if errors.Is(err, memwatch.ErrMemoryExhausted) {
			return nil, fault.New(fault.KindMemoryExhausted, err)
		}

		return nil, fault.New(fault.KindSinkError, err)
	}

	r.setState(stateWritten)
	r.setState(stateDone)

	result := &Result{
		RunID:      runID,
		OutputPath: outPath,
		Rows:       rows,
		Duration:   time.Since(start),
		Warnings:   r.warnings,
	}

	r.log.Info("run complete",
		"output", result.OutputPath,
		"rows", result.Rows,
		"duration", result.Duration,
		"warnings", len(result.Warnings))

	return result, nil
}

func (r *run) setState(s state) {
	r.log.Debug("state", "state", string(s))
}

// sourceKind classifies source-open failures.
func sourceKind(err error) fault.Kind {
	switch {
	case errors.Is(err, source.ErrDecode):
		return fault.KindDecodeError
	case errors.Is(err, source.ErrInvalidSchema):
		return fault.KindInvalidSchema
	default:
		return fault.KindSourceError
	}
}

// transformKind classifies column operator failures.
func transformKind(err error) fault.Kind {
	switch {
	case errors.Is(err, ErrRenameCollision):
		return fault.KindRenameCollision
	case errors.Is(err, ErrRegexCompile):
		return fault.KindRegexCompile
	default:
		return fault.KindTransformError
	}
}
