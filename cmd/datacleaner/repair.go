package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"go.nomadlab.dev/datacleaner/fault"
	"go.nomadlab.dev/datacleaner/repair"
)

func newRepairCmd(_ *app) *cobra.Command {
	var (
		encoding        string
		delimiter       string
		exportDelimiter string
	)

	cmd := &cobra.Command{
		Use:   "repair <input> <output> <bad>",
		Short: "Split a delimited file into valid and bad rows",
		Long: `repair streams a delimited text file, re-writes structurally valid rows to
the output with the export delimiter, and collects rows with a wrong column
count into the bad-rows report.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			delim, err := singleRune(delimiter)
			if err != nil {
				return fault.New(fault.KindSourceError, err)
			}

			exportDelim, err := singleRune(exportDelimiter)
			if err != nil {
				return fault.New(fault.KindSourceError, err)
			}

			valid, bad, err := repair.Process(args[0], args[1], args[2], repair.Options{
				Encoding:        encoding,
				Delimiter:       delim,
				ExportDelimiter: exportDelim,
			})
			if err != nil {
				if errors.Is(err, repair.ErrDecode) {
					return fault.New(fault.KindDecodeError, err)
				}

				return fault.New(fault.KindSourceError, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), `{"status":"ok","valid":%d,"bad":%d}`+"\n", valid, bad)

			return nil
		},
	}

	cmd.Flags().StringVar(&encoding, "encoding", "", "input text encoding (IANA name)")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "input field delimiter (default: comma)")
	cmd.Flags().StringVar(&exportDelimiter, "export-delimiter", "~", "output field delimiter")

	return cmd
}

// singleRune parses an optional single-character flag value.
func singleRune(s string) (rune, error) {
	if s == "" {
		return 0, nil
	}

	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("%w: %q", errMissingDelimiter, s)
	}

	return runes[0], nil
}
