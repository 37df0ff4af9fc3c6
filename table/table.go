package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateColumn indicates two columns resolved to the same name.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrUnknownColumn indicates a reference to a column not in the schema.
	ErrUnknownColumn = errors.New("unknown column")
)

// Kind identifies the runtime type of a column.
type Kind int

const (
	// KindString is UTF-8 text. All regex and cleaning operations apply
	// only to columns of this kind.
	KindString Kind = iota
	// KindInt64 is a 64-bit signed integer.
	KindInt64
	// KindFloat64 is a 64-bit float.
	KindFloat64
	// KindBool is a boolean.
	KindBool
	// KindStruct is a nested group of named fields.
	KindStruct
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindStruct:
		return "struct"
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Type describes a column type. Fields is populated only for [KindStruct].
type Type struct {
	Fields []Field
	Kind   Kind
}

// String renders the type, recursing into struct fields.
func (t Type) String() string {
	if t.Kind != KindStruct {
		return t.Kind.String()
	}

	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name + " " + f.Type.String()
	}

	return "struct{" + strings.Join(names, ", ") + "}"
}

// StringType returns the textual column type.
func StringType() Type { return Type{Kind: KindString} }

// Int64Type returns the 64-bit integer column type.
func Int64Type() Type { return Type{Kind: KindInt64} }

// Float64Type returns the 64-bit float column type.
func Float64Type() Type { return Type{Kind: KindFloat64} }

// BoolType returns the boolean column type.
func BoolType() Type { return Type{Kind: KindBool} }

// StructType returns a nested struct type with the given fields.
func StructType(fields ...Field) Type {
	return Type{Kind: KindStruct, Fields: fields}
}

// Field is a named, typed schema member.
type Field struct {
	Name string
	Type Type
}

// Schema is an ordered list of uniquely named fields. The zero value is an
// empty schema; construct non-empty schemas with [NewSchema].
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from fields, rejecting duplicate names.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}

	for i, f := range fields {
		if _, ok := s.index[f.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, f.Name)
		}

		s.index[f.Name] = i
	}

	return s, nil
}

// MustSchema builds a schema from fields and panics on duplicates.
// Intended for literals in tests and static schemas.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}

	return s
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns the ordered fields. The caller must not mutate the result.
func (s *Schema) Fields() []Field { return s.fields }

// Field returns the field at position i.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Index returns the position of the named column, or -1 when absent.
func (s *Schema) Index(name string) int {
	i, ok := s.index[name]
	if !ok {
		return -1
	}

	return i
}

// Has reports whether the named column exists.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]

	return ok
}

// Names returns the column names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}

	return names
}

// String renders the schema as "name type, name type, ...".
func (s *Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.Name + " " + f.Type.String()
	}

	return strings.Join(parts, ", ")
}

// Row is one record aligned to a schema. A nil element is a null value.
// Element dynamic types: string, int64, float64, bool, and map[string]any
// for struct columns.
type Row []any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)

	return out
}

// Batch is a contiguous run of rows sharing one schema.
type Batch struct {
	Schema *Schema
	Rows   []Row
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int { return len(b.Rows) }
