package argschema

import (
	"fmt"
	"strconv"
	"strings"
)

// Metadata keys understood by the emitter.
const (
	MetaHelp      = "help"
	MetaChoices   = "choices"
	MetaNargs     = "nargs"
	MetaEnv       = "env"
	MetaValueName = "value-name"
	MetaRequired  = "required"
	MetaRange     = "range"
)

// Metadata holds optional per-field settings, keyed by the Meta* constants.
type Metadata map[string]any

func (m Metadata) lookupString(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Values are the keyword arguments handed to a Constructor: field name to value.
type Values map[string]any

// Constructor builds a structure instance from its field values. Fields absent from the given values must be
// given the structure's own default.
type Constructor func(Values) (any, error)

// Field declares one field of a structure.
type Field struct {
	Name       string
	Type       Type
	Positional bool
	Default    any
	Metadata   Metadata
}

// FieldOption sets metadata on a field created by Optional or Positional.
type FieldOption func(*Field)

func Help(text string) FieldOption {
	return func(f *Field) { f.meta()[MetaHelp] = text }
}

// Choices restricts the values accepted for the field, overriding the members of an enum.
func Choices(values ...string) FieldOption {
	return func(f *Field) { f.meta()[MetaChoices] = values }
}

// Nargs sets the arity of a list field: "*" (default), "+", or a fixed count such as "2".
func Nargs(nargs string) FieldOption {
	return func(f *Field) { f.meta()[MetaNargs] = nargs }
}

// Env names an environment variable that provides the field's value when its token is absent.
func Env(name string) FieldOption {
	return func(f *Field) { f.meta()[MetaEnv] = name }
}

func ValueName(name string) FieldOption {
	return func(f *Field) { f.meta()[MetaValueName] = name }
}

// NotRequired marks a field with an Unset default as optional: when absent, the constructor's own default applies.
func NotRequired() FieldOption {
	return func(f *Field) { f.meta()[MetaRequired] = false }
}

// Range restricts an Int or Float field, or the elements of a list of them, to the values of a Go numeric type.
func Range(r NumericRange) FieldOption {
	return func(f *Field) { f.meta()[MetaRange] = r }
}

func (f *Field) meta() Metadata {
	if f.Metadata == nil {
		f.Metadata = make(Metadata)
	}
	return f.Metadata
}

// Optional declares a flag-style field. Pass Unset as the default to make it required.
func Optional(name string, t Type, def any, opts ...FieldOption) Field {
	f := Field{Name: name, Type: t, Default: def}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Positional declares a positional field. Pass Unset as the default to make it required.
func Positional(name string, t Type, def any, opts ...FieldOption) Field {
	f := Optional(name, t, def, opts...)
	f.Positional = true
	return f
}

// IsRequired reports whether parsing must fail when no token or environment variable provides the field.
func (f Field) IsRequired() bool {
	if v, ok := f.Metadata[MetaRequired]; ok {
		switch tv := v.(type) {
		case bool:
			return tv
		case string:
			b, err := strconv.ParseBool(tv)
			return err == nil && b
		}
	}
	return IsUnset(f.Default)
}

// Schema describes a structure: an ordered list of fields and the constructor that builds it.
type Schema struct {
	Name        string
	Description string
	Fields      []Field
	Construct   Constructor
	selector    string
}

// NewSchema creates a schema. A nil constructor makes reconstruction produce the Values map itself.
func NewSchema(name string, construct Constructor, fields ...Field) *Schema {
	return &Schema{Name: name, Fields: fields, Construct: construct}
}

// WithSelector sets the explicit name under which the schema is selected when it is an arm of a variant.
func (s *Schema) WithSelector(name string) *Schema {
	s.selector = name
	return s
}

func (s *Schema) WithDescription(description string) *Schema {
	s.Description = description
	return s
}

// SelectorName returns the name selecting this schema among the arms of a variant: the explicit selector if one
// was set, the schema name otherwise.
func (s *Schema) SelectorName() string {
	if s.selector != "" {
		return s.selector
	}
	return s.Name
}

func (s *Schema) construct(values Values) (any, error) {
	if s.Construct == nil {
		return values, nil
	}
	return s.Construct(values)
}

// variantSchema stands in for a variant's prefix until a branch is selected. It is never constructed.
func variantSchema(arms []*Schema) *Schema {
	names := make([]string, len(arms))
	for i, arm := range arms {
		names[i] = arm.Name
	}
	return &Schema{
		Name: "variant[" + strings.Join(names, "|") + "]",
		Construct: func(Values) (any, error) {
			return nil, fmt.Errorf("%w: no branch selected", ErrUnselectedVariant)
		},
	}
}
