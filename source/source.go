package source

import (
	"errors"
	"path/filepath"
	"strings"

	"go.nomadlab.dev/datacleaner/table"
)

var (
	// ErrIO indicates the input file is missing or unreadable.
	ErrIO = errors.New("reading source")
	// ErrDecode indicates a character decoding failure.
	ErrDecode = errors.New("decoding source")
	// ErrInvalidSchema indicates a malformed source schema, such as
	// duplicate column names after trimming.
	ErrInvalidSchema = errors.New("invalid source schema")
)

// DefaultNullTokens are the cell values treated as null when reading
// delimited text.
var DefaultNullTokens = []string{"", " ", "\t", "NULL", "null", "NaN", "nan", "None", "none"}

// defaultAnalyzeRows bounds the schema-inference prefix.
const defaultAnalyzeRows = 1000

// defaultChunkSize is the streaming batch width.
const defaultChunkSize = 50000

// Options configures a scan.
type Options struct {
	// Encoding is the IANA name of the input text encoding. Empty and
	// UTF-8 variants read the bytes unchanged; invalid UTF-8 is not
	// replaced.
	Encoding string
	// Delimiter is the field separator for delimited text. Zero means
	// comma.
	Delimiter rune
	// NullTokens are cell values read as null. Nil means
	// [DefaultNullTokens].
	NullTokens []string
	// AnalyzeRows bounds the schema-inference prefix. Zero means 1000.
	AnalyzeRows int
	// ChunkSize is the streaming batch width. Zero means 50000.
	ChunkSize int
}

func (o Options) analyzeRows() int {
	if o.AnalyzeRows > 0 {
		return o.AnalyzeRows
	}

	return defaultAnalyzeRows
}

func (o Options) chunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}

	return defaultChunkSize
}

func (o Options) delimiter() rune {
	if o.Delimiter != 0 {
		return o.Delimiter
	}

	return ','
}

func (o Options) nullTokens() map[string]struct{} {
	tokens := o.NullTokens
	if tokens == nil {
		tokens = DefaultNullTokens
	}

	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}

	return set
}

// Open creates a lazy plan over the file at path. Parquet files are detected
// by extension (case-insensitive); everything else is read as delimited
// text. No rows are read until the plan is executed, except for the bounded
// schema-inference prefix of delimited sources.
func Open(path string, opts Options) (table.Plan, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return openParquet(path, opts)
	}

	return openCSV(path, opts)
}
