package workflow

import (
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// shapeSchema describes the recognised workflow document shape. Unknown
// top-level keys are permitted (preserved but ignored); known keys must have
// the right types.
func shapeSchema() *jsonschema.Schema {
	stringArray := func() *jsonschema.Schema {
		return &jsonschema.Schema{
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		}
	}

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"version": {Type: "string"},
			"source": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"parquet_path": {Type: "string"},
					"file_hash":    {Type: "string"},
					"schema":       stringArray(),
				},
			},
			"columns": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"standalone": stringArray(),
					"exclude":    stringArray(),
				},
			},
			"display_names": {
				Type:                 "object",
				AdditionalProperties: &jsonschema.Schema{Type: "string"},
			},
			"concatenations": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type:     "object",
					Required: []string{"name", "source_columns"},
					Properties: map[string]*jsonschema.Schema{
						"name":           {Type: "string"},
						"source_columns": stringArray(),
						"separator":      {Type: "string"},
					},
				},
			},
			"regex_rules": {
				Type:                 "object",
				AdditionalProperties: stringArray(),
			},
			"dedup": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"unique_columns": stringArray(),
				},
			},
			"not_empty": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"columns": stringArray(),
				},
			},
			"structure": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"main_info": stringArray(),
					"additional_info": {
						Type: "array",
						Items: &jsonschema.Schema{
							AnyOf: []*jsonschema.Schema{
								{Type: "string"},
								{
									Type:                 "object",
									AdditionalProperties: stringArray(),
									MinProperties:        ptr(1),
									MaxProperties:        ptr(1),
								},
							},
						},
					},
				},
			},
			"year":            {Type: "integer"},
			"country_code":    {Type: "string"},
			"output_filename": {Type: "string"},
			"export": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"format": {Type: "string"},
					"parquet": {
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"compression": {
								Type: "string",
								Enum: []any{"zstd", "snappy", "gzip", "none"},
							},
							"target_mb_per_file": {Type: "integer"},
						},
					},
				},
			},
		},
	}
}

func ptr[T any](v T) *T { return &v }

var (
	resolvedShape     *jsonschema.Resolved
	resolvedShapeErr  error
	resolvedShapeOnce sync.Once
)

// validateShape checks a decoded JSON document against the workflow shape
// schema.
func validateShape(doc any) error {
	resolvedShapeOnce.Do(func() {
		resolvedShape, resolvedShapeErr = shapeSchema().Resolve(nil)
	})

	if resolvedShapeErr != nil {
		return fmt.Errorf("resolving workflow schema: %w", resolvedShapeErr)
	}

	err := resolvedShape.Validate(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}
