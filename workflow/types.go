package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalid indicates a workflow document that failed shape or semantic
// validation.
var ErrInvalid = errors.New("invalid workflow")

// Compression names a Parquet compression codec.
type Compression string

const (
	// CompressionZstd is Zstandard, the default.
	CompressionZstd Compression = "zstd"
	// CompressionSnappy is Snappy.
	CompressionSnappy Compression = "snappy"
	// CompressionGzip is Gzip.
	CompressionGzip Compression = "gzip"
	// CompressionNone disables compression.
	CompressionNone Compression = "none"
)

// Workflow is a normalised, validated workflow document.
type Workflow struct {
	Version        string              `json:"version,omitempty"`
	Source         *Source             `json:"source,omitempty"`
	Columns        Columns             `json:"columns"`
	DisplayNames   map[string]string   `json:"display_names"`
	Concatenations []Concatenation     `json:"concatenations"`
	RegexRules     map[string][]string `json:"regex_rules"`
	Dedup          Dedup               `json:"dedup"`
	NotEmpty       NotEmpty            `json:"not_empty"`
	Structure      *Structure          `json:"structure,omitempty"`
	Year           int                 `json:"year"`
	CountryCode    string              `json:"country_code"`
	OutputFilename string              `json:"output_filename,omitempty"`
	Export         Export              `json:"export"`
}

// Source records provenance emitted by the authoring tool. The engine does
// not act on it.
type Source struct {
	ParquetPath string   `json:"parquet_path,omitempty"`
	FileHash    string   `json:"file_hash,omitempty"`
	Schema      []string `json:"schema,omitempty"`
}

// Columns partitions source columns into retained standalone columns and
// excluded ones.
type Columns struct {
	Standalone []string `json:"standalone"`
	Exclude    []string `json:"exclude"`
}

// Concatenation creates a new textual column from source columns joined by
// a separator.
type Concatenation struct {
	Name          string   `json:"name"`
	SourceColumns []string `json:"source_columns"`
	Separator     string   `json:"separator"`
}

// Dedup configures row deduplication.
type Dedup struct {
	UniqueColumns []string `json:"unique_columns"`
}

// NotEmpty configures not-null row validation.
type NotEmpty struct {
	Columns []string `json:"columns"`
}

// Structure configures the optional output reshape into top-level main_info
// fields plus a nested additional_info struct.
type Structure struct {
	MainInfo       []string         `json:"main_info"`
	AdditionalInfo []AdditionalItem `json:"additional_info"`
}

// AdditionalItem is one entry of structure.additional_info: either a flat
// field reference or a named group of field references.
type AdditionalItem struct {
	// Field is the referenced column for flat items; empty for groups.
	Field string
	// Group is the nested struct key for group items; empty for fields.
	Group string
	// Members are the group's field references.
	Members []string
}

// IsGroup reports whether the item is a named group.
func (a AdditionalItem) IsGroup() bool { return a.Group != "" }

// UnmarshalJSON decodes either a JSON string (flat field) or a
// single-key object mapping a group name to a list of fields.
func (a *AdditionalItem) UnmarshalJSON(data []byte) error {
	var field string
	if err := json.Unmarshal(data, &field); err == nil {
		*a = AdditionalItem{Field: field}

		return nil
	}

	var group map[string][]string
	if err := json.Unmarshal(data, &group); err != nil {
		return fmt.Errorf("%w: additional_info item must be a string or a group object: %w", ErrInvalid, err)
	}

	if len(group) != 1 {
		return fmt.Errorf("%w: additional_info group must have exactly one key, got %d", ErrInvalid, len(group))
	}

	for key, members := range group {
		*a = AdditionalItem{Group: key, Members: members}
	}

	return nil
}

// MarshalJSON encodes the item back to its wire form.
func (a AdditionalItem) MarshalJSON() ([]byte, error) {
	if a.IsGroup() {
		return json.Marshal(map[string][]string{a.Group: a.Members})
	}

	return json.Marshal(a.Field)
}

// Export configures the output artifact.
type Export struct {
	Format  string        `json:"format"`
	Parquet ExportParquet `json:"parquet"`
}

// ExportParquet holds Parquet-specific export options.
type ExportParquet struct {
	Compression     Compression `json:"compression"`
	TargetMBPerFile int         `json:"target_mb_per_file,omitempty"`
}
