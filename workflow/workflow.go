// Package workflow loads, validates, and normalises the declarative JSON
// workflow documents that drive the engine.
//
// Loading happens in two stages: the document shape is checked against an
// embedded JSON Schema, then the decoded value gets defaults applied and its
// semantic invariants enforced (unique display names, unique concatenation
// targets, known pattern keys, an allowed country code, and a parquet export
// format).
package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.nomadlab.dev/datacleaner/pattern"
)

// Options parameterises workflow loading.
type Options struct {
	// AllowedCountryCodes is the accepted country_code set. Empty falls
	// back to the engine default.
	AllowedCountryCodes []string
	// Now supplies the clock for the year default; nil uses time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}

	return time.Now()
}

// Load reads, validates, and normalises a workflow JSON file.
func Load(path string, opts Options) (*Workflow, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Workflow path from CLI flag is expected.
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return Parse(data, opts)
}

// Parse validates and normalises a workflow JSON document.
func Parse(data []byte, opts Options) (*Workflow, error) {
	var doc any

	err := json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	err = validateShape(doc)
	if err != nil {
		return nil, err
	}

	var wf Workflow

	err = json.Unmarshal(data, &wf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	wf.applyDefaults(opts)

	err = wf.validate(opts)
	if err != nil {
		return nil, err
	}

	return &wf, nil
}

// applyDefaults fills absent fields per the normalisation rules: empty
// lists, current UTC year, "ru" country code, parquet export with zstd.
func (w *Workflow) applyDefaults(opts Options) {
	if w.DisplayNames == nil {
		w.DisplayNames = map[string]string{}
	}

	if w.RegexRules == nil {
		w.RegexRules = map[string][]string{}
	}

	if w.Year == 0 {
		w.Year = opts.now().UTC().Year()
	}

	if w.CountryCode == "" {
		w.CountryCode = "ru"
	}

	if w.Export.Format == "" {
		w.Export.Format = "parquet"
	}

	if w.Export.Parquet.Compression == "" {
		w.Export.Parquet.Compression = CompressionZstd
	}

	if w.Structure != nil && len(w.Structure.MainInfo) == 0 && len(w.Structure.AdditionalInfo) == 0 {
		w.Structure = nil
	}
}

// validate enforces load-time semantic invariants: unique display names,
// unique concatenation targets, known regex pattern keys, allowed country
// code, and parquet export format.
func (w *Workflow) validate(opts Options) error {
	seen := make(map[string]string, len(w.DisplayNames))
	for old, name := range w.DisplayNames {
		if name == "" {
			return fmt.Errorf("%w: display name for %q is empty", ErrInvalid, old)
		}

		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%w: display name %q assigned to both %q and %q",
				ErrInvalid, name, prev, old)
		}

		seen[name] = old
	}

	targets := make(map[string]struct{}, len(w.Concatenations))
	for _, c := range w.Concatenations {
		if c.Name == "" {
			return fmt.Errorf("%w: concatenation with empty name", ErrInvalid)
		}

		if _, ok := targets[c.Name]; ok {
			return fmt.Errorf("%w: duplicate concatenation %q", ErrInvalid, c.Name)
		}

		targets[c.Name] = struct{}{}

		if len(c.SourceColumns) == 0 {
			return fmt.Errorf("%w: concatenation %q has no source columns", ErrInvalid, c.Name)
		}
	}

	for col, keys := range w.RegexRules {
		for _, key := range keys {
			if _, ok := pattern.Lookup(key); !ok {
				return fmt.Errorf("%w: unknown pattern key %q for column %q", ErrInvalid, key, col)
			}
		}
	}

	allowed := opts.AllowedCountryCodes
	if len(allowed) == 0 {
		allowed = defaultCountryCodes
	}

	if !contains(allowed, w.CountryCode) {
		return fmt.Errorf("%w: country code %q not in allowed set %v",
			ErrInvalid, w.CountryCode, allowed)
	}

	if w.Export.Format != "parquet" {
		return fmt.Errorf("%w: unsupported export format %q", ErrInvalid, w.Export.Format)
	}

	switch w.Export.Parquet.Compression {
	case CompressionZstd, CompressionSnappy, CompressionGzip, CompressionNone:
	default:
		return fmt.Errorf("%w: unsupported parquet compression %q",
			ErrInvalid, w.Export.Parquet.Compression)
	}

	return nil
}

var defaultCountryCodes = []string{"ru", "kg", "uz", "tm", "ua", "by", "nl", "az"}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}

	return false
}
