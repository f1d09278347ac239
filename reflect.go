package argschema

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type Tag string

const (
	TagName        Tag = "name"
	TagDescription Tag = "desc"
	TagDefault     Tag = "default"
	TagRequired    Tag = "required"
	TagPositional  Tag = "positional"
	TagEnv         Tag = "env"
	TagValueName   Tag = "value-name"
	TagChoices     Tag = "choices"
	TagNargs       Tag = "nargs"
	TagSkip        Tag = "arg"
)

type ErrInvalidTag struct {
	Cause error
	Tag   Tag
	Value string
}

func (e *ErrInvalidTag) Error() string {
	return fmt.Sprintf("invalid tag '%s=%s': %s", e.Tag, e.Value, e.Cause)
}

func (e *ErrInvalidTag) Unwrap() error {
	return e.Cause
}

// Enumerated is implemented by named string types whose values are restricted to a fixed set. Such fields are
// declared as enums, and their members are the returned values.
type Enumerated interface {
	EnumValues() []string
}

// Named is implemented by variant arms that are selected by a name other than their lower-cased type name.
type Named interface {
	SelectorName() string
}

// Described is implemented by structures that provide a description for help screens.
type Described interface {
	Describe() string
}

var (
	enumeratedType = reflect.TypeFor[Enumerated]()
	namedType      = reflect.TypeFor[Named]()
	describedType  = reflect.TypeFor[Described]()
	filePathType   = reflect.TypeFor[FilePath]()
)

// SchemaOption configures how Go types are translated into schemas.
type SchemaOption func(*reflectConfig)

type reflectConfig struct {
	variants map[reflect.Type][]reflect.Type
}

// WithVariant registers the arms of the interface type I. Every field typed I becomes a variant whose arms are the
// dynamic types of the given values; pointer arms are reconstructed as pointers.
func WithVariant[I any](arms ...I) SchemaOption {
	return func(c *reflectConfig) {
		it := reflect.TypeFor[I]()
		for _, arm := range arms {
			c.variants[it] = append(c.variants[it], reflect.TypeOf(arm))
		}
	}
}

// SchemaOf derives the schema of the struct type T (or pointer to struct) from its exported fields and their tags.
func SchemaOf[T any](opts ...SchemaOption) (*Schema, error) {
	t, err := TypeOf[T](opts...)
	if err != nil {
		return nil, err
	} else if t.Kind != KindNested {
		return nil, schemaErrorf(RootKey, ErrUnsupportedType, "%s is not a struct", reflect.TypeFor[T]())
	}
	return t.Schema, nil
}

// MustSchemaOf is like SchemaOf but panics on error.
func MustSchemaOf[T any](opts ...SchemaOption) *Schema {
	s, err := SchemaOf[T](opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// TypeOf derives the type of T: a struct (or pointer to struct) becomes a nested type, and an interface registered
// with WithVariant becomes a variant.
func TypeOf[T any](opts ...SchemaOption) (Type, error) {
	r := newReflector(opts...)
	return r.typeFor(reflect.TypeFor[T](), RootKey)
}

// ParseTo compiles the parser of T, parses the given arguments and returns the reconstructed instance.
func ParseTo[T any](args []string, envVars map[string]string, opts ...SchemaOption) (T, error) {
	var result T
	t, err := TypeOf[T](opts...)
	if err != nil {
		return result, err
	}
	p, err := Compile(t)
	if err != nil {
		return result, err
	}
	v, err := p.Interpret(args, envVars)
	if err != nil {
		return result, err
	}
	result, ok := v.(T)
	if !ok {
		return result, &ReconstructionError{Path: RootKey, Cause: fmt.Errorf("got %T instead of %T", v, result)}
	}
	return result, nil
}

type reflector struct {
	config     reflectConfig
	schemas    map[reflect.Type]*Schema
	inProgress map[reflect.Type]bool
}

func newReflector(opts ...SchemaOption) *reflector {
	r := &reflector{
		config:     reflectConfig{variants: make(map[reflect.Type][]reflect.Type)},
		schemas:    make(map[reflect.Type]*Schema),
		inProgress: make(map[reflect.Type]bool),
	}
	for _, opt := range opts {
		opt(&r.config)
	}
	return r
}

func (r *reflector) typeFor(rt reflect.Type, path Key) (Type, error) {
	if rt == filePathType {
		return PathLike(), nil
	} else if rt.Kind() == reflect.String && rt.Implements(enumeratedType) {
		values := reflect.Zero(rt).Interface().(Enumerated).EnumValues()
		return EnumOf(NewEnum(rt.Name(), values...)), nil
	}

	switch rt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int(), nil
	case reflect.Float32, reflect.Float64:
		return Float(), nil
	case reflect.String:
		return Text(), nil
	case reflect.Bool:
		return Bool(), nil
	case reflect.Slice:
		elem, err := r.typeFor(rt.Elem(), path)
		if err != nil {
			return Type{}, err
		}
		return ListOf(elem), nil
	case reflect.Struct:
		s, err := r.schemaFor(rt, path)
		if err != nil {
			return Type{}, err
		}
		return NestedOf(s), nil
	case reflect.Pointer:
		if rt.Elem().Kind() != reflect.Struct {
			return Type{}, schemaErrorf(path, ErrUnsupportedType, "%s", rt)
		}
		s, err := r.schemaFor(rt, path)
		if err != nil {
			return Type{}, err
		}
		return NestedOf(s), nil
	case reflect.Interface:
		armTypes := r.config.variants[rt]
		if len(armTypes) == 0 {
			return Type{}, schemaErrorf(path, ErrUnsupportedType, "no variant arms registered for %s", rt)
		}
		var arms []*Schema
		for _, at := range armTypes {
			if at == nil || (at.Kind() != reflect.Struct && (at.Kind() != reflect.Pointer || at.Elem().Kind() != reflect.Struct)) {
				return Type{}, schemaErrorf(path, ErrUnsupportedType, "variant arm %s of %s is not a struct", at, rt)
			}
			arm, err := r.schemaFor(at, path)
			if err != nil {
				return Type{}, err
			}
			arms = append(arms, arm)
		}
		return VariantOf(arms...), nil
	default:
		return Type{}, schemaErrorf(path, ErrUnsupportedType, "%s", rt)
	}
}

// schemaFor returns the schema of the given struct type, or pointer to struct type.
func (r *reflector) schemaFor(rt reflect.Type, path Key) (*Schema, error) {
	if s, ok := r.schemas[rt]; ok {
		return s, nil
	} else if r.inProgress[rt] {
		return nil, schemaErrorf(path, ErrRecursiveStructure, "%s contains itself", rt)
	}
	r.inProgress[rt] = true
	defer delete(r.inProgress, rt)

	st := rt
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}

	s := &Schema{Name: st.Name()}
	fieldIndex := make(map[string]int)
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() || sf.Tag.Get(string(TagSkip)) == "-" {
			continue
		}
		f, err := r.fieldFor(sf, path)
		if err != nil {
			return nil, fmt.Errorf("invalid field '%s.%s': %w", st, sf.Name, err)
		}
		fieldIndex[f.Name] = i
		s.Fields = append(s.Fields, f)
	}
	s.Construct = structConstructor(rt, fieldIndex)

	instance := newInstance(rt)
	if rt.Implements(namedType) {
		s.selector = instance.Interface().(Named).SelectorName()
	}
	if rt.Implements(describedType) {
		s.Description = instance.Interface().(Described).Describe()
	}

	r.schemas[rt] = s
	return s, nil
}

// fieldFor reads a single struct field and its tags, in the same manner the flag tags are read.
func (r *reflector) fieldFor(sf reflect.StructField, path Key) (Field, error) {
	name := fieldNameToSchemaName(sf.Name)
	if tag, ok := sf.Tag.Lookup(string(TagName)); ok {
		if tag == "" {
			return Field{}, &ErrInvalidTag{Cause: fmt.Errorf("must not be empty"), Tag: TagName, Value: tag}
		}
		name = tag
	}

	t, err := r.typeFor(sf.Type, path.Push(name))
	if err != nil {
		return Field{}, err
	}
	f := Field{Name: name, Type: t, Default: Unset}
	structural := t.Kind == KindNested || t.Kind == KindVariant

	// Booleans are switches: off unless stated otherwise
	if t.Kind == KindBool {
		f.Default = false
	}
	if r, ok := rangeOf(sf.Type); ok {
		f.meta()[MetaRange] = r
	}
	if tag, ok := sf.Tag.Lookup(string(TagDefault)); ok {
		if structural {
			return Field{}, &ErrInvalidTag{Cause: fmt.Errorf("cannot be used on %s fields", t.Kind), Tag: TagDefault, Value: tag}
		}
		f.Default = tag
	}
	if tag, ok := sf.Tag.Lookup(string(TagPositional)); ok {
		v, err := parseBoolTag(TagPositional, tag)
		if err != nil {
			return Field{}, err
		}
		f.Positional = v
	}
	if tag, ok := sf.Tag.Lookup(string(TagRequired)); ok {
		v, err := parseBoolTag(TagRequired, tag)
		if err != nil {
			return Field{}, err
		}
		f.meta()[MetaRequired] = v
	}
	if tag, ok := sf.Tag.Lookup(string(TagDescription)); ok {
		f.meta()[MetaHelp] = tag
	}
	if tag, ok := sf.Tag.Lookup(string(TagEnv)); ok {
		if tag == "" {
			return Field{}, &ErrInvalidTag{Cause: fmt.Errorf("must not be empty"), Tag: TagEnv, Value: tag}
		}
		f.meta()[MetaEnv] = schemaNameToEnvVarName(tag)
	}
	if tag, ok := sf.Tag.Lookup(string(TagValueName)); ok {
		if tag == "" {
			return Field{}, &ErrInvalidTag{Cause: fmt.Errorf("must not be empty"), Tag: TagValueName, Value: tag}
		} else if t.Kind == KindBool {
			return Field{}, &ErrInvalidTag{Cause: fmt.Errorf("not supported for bool fields"), Tag: TagValueName, Value: tag}
		}
		f.meta()[MetaValueName] = tag
	}
	if tag, ok := sf.Tag.Lookup(string(TagChoices)); ok {
		var choices []string
		for _, c := range strings.Split(tag, ",") {
			if c = strings.TrimSpace(c); c != "" {
				choices = append(choices, c)
			}
		}
		if len(choices) == 0 {
			return Field{}, &ErrInvalidTag{Cause: fmt.Errorf("must not be empty"), Tag: TagChoices, Value: tag}
		}
		f.meta()[MetaChoices] = choices
	}
	if tag, ok := sf.Tag.Lookup(string(TagNargs)); ok {
		if t.Kind != KindList {
			return Field{}, &ErrInvalidTag{Cause: fmt.Errorf("only supported for slice fields"), Tag: TagNargs, Value: tag}
		}
		f.meta()[MetaNargs] = tag
	}
	return f, nil
}

// rangeOf returns the range of values the given numeric type (or slice of it) can hold, when it is narrower than the
// values of Int and Float fields.
func rangeOf(rt reflect.Type) (NumericRange, bool) {
	if rt.Kind() == reflect.Slice {
		rt = rt.Elem()
	}
	switch rt.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return NumericRange{Bits: rt.Bits()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NumericRange{Unsigned: true, Bits: rt.Bits()}, true
	case reflect.Int:
		if rt.Bits() < 64 {
			return NumericRange{Bits: rt.Bits()}, true
		}
	case reflect.Float32:
		return NumericRange{Bits: 32}, true
	}
	return NumericRange{}, false
}

func parseBoolTag(tag Tag, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) {
			err = ne.Err
		}
		return false, &ErrInvalidTag{Cause: err, Tag: tag, Value: value}
	}
	return v, nil
}

// newInstance returns an addressable zero instance of the given struct type, or a pointer to a new zero struct.
func newInstance(rt reflect.Type) reflect.Value {
	if rt.Kind() == reflect.Pointer {
		return reflect.New(rt.Elem())
	}
	return reflect.New(rt).Elem()
}

// structConstructor returns a constructor setting the struct fields found in fieldIndex by name. Absent fields keep
// their zero value.
func structConstructor(rt reflect.Type, fieldIndex map[string]int) Constructor {
	return func(values Values) (any, error) {
		instance := newInstance(rt)
		target := instance
		if rt.Kind() == reflect.Pointer {
			target = instance.Elem()
		}
		for name, value := range values {
			i, ok := fieldIndex[name]
			if !ok {
				return nil, fmt.Errorf("%w: '%s' for %s", ErrUnexpectedKeyword, name, rt)
			}
			if err := assign(target.Field(i), value); err != nil {
				return nil, fmt.Errorf("failed setting field '%s' of %s: %w", name, rt, err)
			}
		}
		return instance.Interface(), nil
	}
}

// assign stores a reconstructed value into a struct field, converting it to the field's Go type.
func assign(dst reflect.Value, value any) error {
	if value == nil {
		return nil
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(dst.Type()) {
		dst.Set(v)
		return nil
	}

	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := value.(int)
		if !ok {
			break
		} else if dst.OverflowInt(int64(i)) {
			return fmt.Errorf("value %d overflows %s", i, dst.Type())
		}
		dst.SetInt(int64(i))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var u uint64
		switch tv := value.(type) {
		case int:
			if tv < 0 {
				return fmt.Errorf("value %d overflows %s", tv, dst.Type())
			}
			u = uint64(tv)
		case uint64:
			u = tv
		default:
			return fmt.Errorf("%w: cannot assign %T to %s", errors.ErrUnsupported, value, dst.Type())
		}
		if dst.OverflowUint(u) {
			return fmt.Errorf("value %d overflows %s", u, dst.Type())
		}
		dst.SetUint(u)
		return nil
	case reflect.Float32, reflect.Float64:
		f, ok := value.(float64)
		if !ok {
			break
		} else if dst.OverflowFloat(f) {
			return fmt.Errorf("value %g overflows %s", f, dst.Type())
		}
		dst.SetFloat(f)
		return nil
	case reflect.String:
		switch tv := value.(type) {
		case string:
			dst.SetString(tv)
			return nil
		case EnumMember:
			dst.SetString(tv.Value)
			return nil
		case FilePath:
			dst.SetString(string(tv))
			return nil
		}
	case reflect.Slice:
		items, ok := value.([]any)
		if !ok {
			break
		}
		slice := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := assign(slice.Index(i), item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		dst.Set(slice)
		return nil
	}
	return fmt.Errorf("%w: cannot assign %T to %s", errors.ErrUnsupported, value, dst.Type())
}
