package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"go.nomadlab.dev/datacleaner/engine"
	"go.nomadlab.dev/datacleaner/fault"
	"go.nomadlab.dev/datacleaner/workflow"
)

var errMissingDelimiter = errors.New("delimiter must be a single character")

// processSummary is the machine-readable success line printed to stdout.
type processSummary struct {
	Status    string  `json:"status"`
	Rows      int64   `json:"rows"`
	DurationS float64 `json:"duration_s"`
	Output    string  `json:"output"`
}

func newProcessCmd(a *app) *cobra.Command {
	var (
		inputPath    string
		workflowPath string
		outputPath   string
		encoding     string
		delimiter    string
		chunkSize    int
		maxMemory    float64
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Execute a workflow against an input file",
		Long: `process runs a workflow JSON document against a CSV or Parquet input and
streams the cleaned, deduplicated result into a Parquet file. On success a
machine-readable summary line is printed to stdout; all logs go to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var delim rune

			if delimiter != "" {
				runes := []rune(delimiter)
				if len(runes) != 1 {
					return fault.New(fault.KindSourceError,
						fmt.Errorf("%w: %q", errMissingDelimiter, delimiter))
				}

				delim = runes[0]
			}

			out, err := resolveOutputPath(outputPath, inputPath, workflowPath, a)
			if err != nil {
				return err
			}

			profiler := a.profileCfg.NewProfiler()

			err = profiler.Start()
			if err != nil {
				return err
			}

			result, runErr := engine.Run(cmd.Context(), engine.RunOptions{
				Config:           a.cfg,
				WorkflowPath:     workflowPath,
				InputPath:        inputPath,
				OutputPath:       out,
				Encoding:         encoding,
				Delimiter:        delim,
				ChunkSize:        chunkSize,
				MaxMemoryPercent: maxMemory,
				Force:            force,
			})

			stopErr := profiler.Stop()
			if stopErr != nil {
				slog.Warn("stopping profiler", "error", stopErr)
			}

			if runErr != nil {
				return runErr
			}

			summary, err := json.Marshal(processSummary{
				Status:    "ok",
				Rows:      result.Rows,
				DurationS: result.Duration.Seconds(),
				Output:    result.OutputPath,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(summary))

			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "path", "", "input file (csv or parquet)")
	cmd.Flags().StringVar(&workflowPath, "workflow", "", "workflow JSON file")
	cmd.Flags().StringVar(&outputPath, "output", "",
		"output parquet path (default: workflow output_filename next to the input)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "input text encoding (IANA name)")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "input field delimiter (default: comma)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 50000, "streaming chunk size in rows")
	cmd.Flags().Float64Var(&maxMemory, "max-memory", 80, "soft memory threshold in percent")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing output file")

	must(cmd.MarkFlagRequired("path"))
	must(cmd.MarkFlagRequired("workflow"))

	return cmd
}

// resolveOutputPath falls back from the --output flag to the workflow's
// output_filename next to the input, then to <input stem>_processed.parquet.
func resolveOutputPath(outputPath, inputPath, workflowPath string, a *app) (string, error) {
	if outputPath != "" {
		return outputPath, nil
	}

	wf, err := workflow.Load(workflowPath, workflow.Options{
		AllowedCountryCodes: a.cfg.AllowedCountryCodes,
	})
	if err != nil {
		return "", fault.New(fault.KindWorkflowInvalid, err)
	}

	dir := filepath.Dir(inputPath)

	if wf.OutputFilename != "" {
		slog.Info("using output filename from workflow", "name", wf.OutputFilename)

		return filepath.Join(dir, wf.OutputFilename), nil
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	return filepath.Join(dir, stem+"_processed.parquet"), nil
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
