// Package repair splits a delimited text file into structurally valid rows,
// re-written with an export delimiter, and a report of bad rows. It streams
// row by row so arbitrarily large files can be processed.
package repair

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

var (
	// ErrIO indicates an unreadable input or unwritable output.
	ErrIO = errors.New("repairing csv")
	// ErrEmpty indicates an input with no header row.
	ErrEmpty = errors.New("empty input")
	// ErrDecode indicates an unknown encoding name.
	ErrDecode = errors.New("decoding input")
)

// Options configures a repair pass.
type Options struct {
	// Encoding is the IANA name of the input encoding; empty reads UTF-8.
	Encoding string
	// Delimiter is the input field separator. Zero means comma.
	Delimiter rune
	// ExportDelimiter is the output field separator. Zero means '~'.
	ExportDelimiter rune
	// Logger receives progress logs; nil uses [slog.Default].
	Logger *slog.Logger
}

func (o Options) delimiter() rune {
	if o.Delimiter != 0 {
		return o.Delimiter
	}

	return ','
}

func (o Options) exportDelimiter() rune {
	if o.ExportDelimiter != 0 {
		return o.ExportDelimiter
	}

	return '~'
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.Default()
}

// badHeader describes the columns of the bad-row report.
var badHeader = []string{"row_number", "error_type", "error_description", "row_content"}

// Process streams inputPath, writing structurally valid rows to outputPath
// with the export delimiter and rows with a wrong column count to badPath.
// Returns the valid and bad row counts.
func Process(inputPath, outputPath, badPath string, opts Options) (int64, int64, error) {
	in, err := os.Open(inputPath) //nolint:gosec // Input path from CLI flag is expected.
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer in.Close()

	var r io.Reader = in

	if name := strings.TrimSpace(opts.Encoding); name != "" && !strings.EqualFold(name, "utf-8") && !strings.EqualFold(name, "utf8") {
		enc, encErr := ianaindex.IANA.Encoding(name)
		if encErr != nil || enc == nil {
			return 0, 0, fmt.Errorf("%w: unknown encoding %q", ErrDecode, name)
		}

		r = enc.NewDecoder().Reader(in)
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.delimiter()
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	out, err := os.Create(outputPath) //nolint:gosec // Output path from CLI flag is expected.
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer out.Close()

	bad, err := os.Create(badPath) //nolint:gosec // Output path from CLI flag is expected.
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer bad.Close()

	writer := csv.NewWriter(out)
	writer.Comma = opts.exportDelimiter()
	badWriter := csv.NewWriter(bad)
	badWriter.Comma = opts.exportDelimiter()

	err = badWriter.Write(badHeader)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrIO, err)
	}

	header, err := reader.Read()
	if err == io.EOF {
		return 0, 0, ErrEmpty
	}

	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrIO, err)
	}

	err = writer.Write(header)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrIO, err)
	}

	expected := len(header)
	log := opts.logger()
	log.Info("repair started", "columns", expected,
		"export_delimiter", string(opts.exportDelimiter()))

	var validCount, badCount int64

	for rowNum := int64(2); ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			badCount++

			writeErr := badWriter.Write([]string{
				strconv.FormatInt(rowNum, 10),
				"parse_error",
				err.Error(),
				"",
			})
			if writeErr != nil {
				return validCount, badCount, fmt.Errorf("%w: %w", ErrIO, writeErr)
			}

			continue
		}

		if len(record) != expected {
			badCount++

			writeErr := badWriter.Write([]string{
				strconv.FormatInt(rowNum, 10),
				"column_count",
				fmt.Sprintf("got %d columns, want %d", len(record), expected),
				strings.Join(record, string(opts.delimiter())),
			})
			if writeErr != nil {
				return validCount, badCount, fmt.Errorf("%w: %w", ErrIO, writeErr)
			}

			continue
		}

		err = writer.Write(record)
		if err != nil {
			return validCount, badCount, fmt.Errorf("%w: %w", ErrIO, err)
		}

		validCount++
	}

	writer.Flush()
	badWriter.Flush()

	err = errors.Join(writer.Error(), badWriter.Error())
	if err != nil {
		return validCount, badCount, fmt.Errorf("%w: %w", ErrIO, err)
	}

	log.Info("repair finished", "valid", validCount, "bad", badCount)

	return validCount, badCount, nil
}
