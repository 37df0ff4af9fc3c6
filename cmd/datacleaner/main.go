// Command datacleaner executes declarative data-cleaning workflows over
// large CSV and Parquet files, streaming the cleaned result into a
// compressed Parquet output.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go.nomadlab.dev/datacleaner/config"
	"go.nomadlab.dev/datacleaner/log"
	"go.nomadlab.dev/datacleaner/profile"
	"go.nomadlab.dev/datacleaner/version"
)

func main() {
	os.Exit(run0())
}

// app carries the CLI-wide configuration shared by subcommands.
type app struct {
	logCfg     *log.Config
	profileCfg *profile.Config
	configPath string
	cfg        *config.Config
	logFile    *os.File
}

func run0() int {
	a := &app{
		logCfg:     log.NewConfig(),
		profileCfg: profile.NewConfig(),
	}

	rootCmd := &cobra.Command{
		Use:   "datacleaner",
		Short: "Workflow-driven streaming cleaner for tabular files",
		Long: `datacleaner executes a declarative JSON workflow against a CSV or Parquet
input: column cleaning, concatenation, renaming, deduplication, optional
restructuring, and a streaming Parquet export. Files larger than memory are
processed chunk by chunk.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.teardown()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"config file path (default: "+config.DefaultFilePath()+")")
	a.logCfg.RegisterFlags(rootCmd.PersistentFlags())
	a.profileCfg.RegisterFlags(rootCmd.PersistentFlags())

	completionErr := a.logCfg.RegisterCompletions(rootCmd)
	if completionErr != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", completionErr)
	}

	rootCmd.AddCommand(
		newProcessCmd(a),
		newFilenameCmd(a),
		newRepairCmd(a),
		newVersionCmd(),
	)

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)

		return 1
	}

	return 0
}

// setup loads the process config and installs the default logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	a.cfg = cfg

	var w io.Writer = os.Stderr

	if a.logCfg.File != "" {
		f, err := os.OpenFile(a.logCfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // Log path from CLI flag is expected.
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}

		a.logFile = f
		w = io.MultiWriter(os.Stderr, f)
	}

	handler, err := a.logCfg.NewHandler(w)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(handler))

	dirErr := cfg.EnsureDirectories()
	if dirErr != nil {
		slog.Warn("creating configured folders", "error", dirErr)
	}

	return nil
}

func (a *app) teardown() {
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
