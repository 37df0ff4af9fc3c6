package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"go.nomadlab.dev/datacleaner/fault"
	"go.nomadlab.dev/datacleaner/nomadfile"
)

func newFilenameCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filename",
		Short: "Build and validate canonical output filenames",
	}

	cmd.AddCommand(newFilenameBuildCmd(a), newFilenameValidateCmd(a))

	return cmd
}

func newFilenameBuildCmd(a *app) *cobra.Command {
	var (
		countryCode string
		basename    string
		year        int
		ver         int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a nomad-<cc>-<name>-<year>-v<version>.parquet filename",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year == 0 {
				year = time.Now().UTC().Year()
			}

			name, err := nomadfile.Build(a.cfg.AllowedCountryCodes, countryCode, basename, year, ver)
			if err != nil {
				return fault.New(fault.KindInvalidCountry, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), name)

			return nil
		},
	}

	cmd.Flags().StringVar(&countryCode, "country-code", "", "two-letter country code")
	cmd.Flags().StringVar(&basename, "basename", "", "source file basename")
	cmd.Flags().IntVar(&year, "year", 0, "dataset year (default: current UTC year)")
	cmd.Flags().IntVar(&ver, "version", 1, "dataset version")

	must(cmd.MarkFlagRequired("country-code"))
	must(cmd.MarkFlagRequired("basename"))

	return cmd
}

func newFilenameValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <filename>",
		Short: "Validate a canonical output filename",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := nomadfile.Validate(a.cfg.AllowedCountryCodes, args[0])
			if err != nil {
				return fault.New(fault.KindInvalidCountry, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "ok")

			return nil
		},
	}
}
