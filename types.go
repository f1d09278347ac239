package argschema

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Kind is the closed set of field types a schema may declare.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindText
	KindBool
	KindPath
	KindEnum
	KindList
	KindNested
	KindVariant
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindPath:
		return "path"
	case KindEnum:
		return "enum"
	case KindList:
		return "list"
	case KindNested:
		return "nested"
	case KindVariant:
		return "variant"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Type is the declared type of a field. Build it with Int, Float, Text, Bool, PathLike, EnumOf, ListOf, NestedOf or
// VariantOf.
type Type struct {
	Kind   Kind
	Enum   *Enum
	Elem   *Type
	Schema *Schema
	Arms   []*Schema
}

func Int() Type      { return Type{Kind: KindInt} }
func Float() Type    { return Type{Kind: KindFloat} }
func Text() Type     { return Type{Kind: KindText} }
func Bool() Type     { return Type{Kind: KindBool} }
func PathLike() Type { return Type{Kind: KindPath} }

func EnumOf(e *Enum) Type { return Type{Kind: KindEnum, Enum: e} }

func ListOf(elem Type) Type { return Type{Kind: KindList, Elem: &elem} }

func NestedOf(s *Schema) Type { return Type{Kind: KindNested, Schema: s} }

// VariantOf declares a field holding exactly one of the given structures, selected by sub-command.
func VariantOf(arms ...*Schema) Type { return Type{Kind: KindVariant, Arms: arms} }

func (t Type) String() string {
	switch t.Kind {
	case KindEnum:
		if t.Enum != nil {
			return t.Enum.Name
		}
	case KindList:
		if t.Elem != nil {
			return "list[" + t.Elem.String() + "]"
		}
	case KindNested:
		if t.Schema != nil {
			return t.Schema.Name
		}
	case KindVariant:
		names := make([]string, len(t.Arms))
		for i, arm := range t.Arms {
			if arm != nil {
				names[i] = arm.Name
			}
		}
		return "variant[" + strings.Join(names, "|") + "]"
	}
	return t.Kind.String()
}

// FilePath is the value type of PathLike fields.
type FilePath string

func (p FilePath) String() string {
	return string(p)
}

// EnumMember is one value of an Enum, and the value type of Enum fields.
type EnumMember struct {
	Name  string
	Value string
}

func (m EnumMember) String() string {
	return m.Value
}

// Enum is a named, ordered set of members.
type Enum struct {
	Name    string
	Members []EnumMember
}

// NewEnum creates an enum whose member names and values are equal.
func NewEnum(name string, values ...string) *Enum {
	e := &Enum{Name: name}
	for _, v := range values {
		e.Members = append(e.Members, EnumMember{Name: v, Value: v})
	}
	return e
}

// Lookup finds the member with the given value, falling back to a match by name.
func (e *Enum) Lookup(s string) (EnumMember, bool) {
	for _, m := range e.Members {
		if m.Value == s {
			return m, true
		}
	}
	for _, m := range e.Members {
		if m.Name == s {
			return m, true
		}
	}
	return EnumMember{}, false
}

// Values returns the values of all members, in declaration order.
func (e *Enum) Values() []string {
	values := make([]string, len(e.Members))
	for i, m := range e.Members {
		values[i] = m.Value
	}
	return values
}

type unset struct{}

func (unset) String() string { return "<unset>" }

// Unset is the sentinel default of a field that has no default value. A required field declares Unset as its
// default; a non-required field with an Unset default falls back to its constructor's own default.
var Unset any = unset{}

func IsUnset(v any) bool {
	_, ok := v.(unset)
	return ok
}

// NumericRange restricts an Int or Float field (or the elements of a list of them) to the values of a Go numeric
// type: signed or unsigned integers of the given bit size, or 32-bit floats.
type NumericRange struct {
	Unsigned bool
	Bits     int
}

func (r *NumericRange) String() string {
	if r.Unsigned {
		return fmt.Sprintf("uint%d", r.Bits)
	}
	return fmt.Sprintf("int%d", r.Bits)
}

// validFor reports whether the range can restrict values of the given kind.
func (r *NumericRange) validFor(k Kind) bool {
	switch k {
	case KindInt:
		return r.Bits == 8 || r.Bits == 16 || r.Bits == 32 || r.Bits == 64
	case KindFloat:
		return !r.Unsigned && (r.Bits == 32 || r.Bits == 64)
	default:
		return false
	}
}

// check fails with strconv.ErrRange when the value is outside the range. A nil range accepts everything.
func (r *NumericRange) check(v any) error {
	if r == nil {
		return nil
	}
	switch tv := v.(type) {
	case int:
		if r.Unsigned {
			if tv < 0 || r.Bits < 64 && uint64(tv) > 1<<r.Bits-1 {
				return strconv.ErrRange
			}
		} else if r.Bits < 64 && (tv < -1<<(r.Bits-1) || tv > 1<<(r.Bits-1)-1) {
			return strconv.ErrRange
		}
	case uint64:
		if !r.Unsigned || r.Bits < 64 && tv > 1<<r.Bits-1 {
			return strconv.ErrRange
		}
	case float64:
		if r.Bits == 32 && !math.IsInf(tv, 0) && math.Abs(tv) > math.MaxFloat32 {
			return strconv.ErrRange
		}
	}
	return nil
}

func inRange(v any, r *NumericRange) (any, error) {
	if err := r.check(v); err != nil {
		return nil, err
	}
	return v, nil
}

var errNotConvertible = errors.New("not convertible")

// convertToken converts an external token to a value of the given scalar, path, enum or bool type, within the given
// range if there is one. Integers are ints, except unsigned values above math.MaxInt which are uint64.
func convertToken(t Type, r *NumericRange, s string) (any, error) {
	switch t.Kind {
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 0)
		if err == nil {
			return inRange(int(i), r)
		} else if r == nil || !r.Unsigned || !errors.Is(err, strconv.ErrRange) || strings.HasPrefix(s, "-") {
			return nil, numErrorCause(err)
		}
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, numErrorCause(err)
		}
		return inRange(u, r)
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, numErrorCause(err)
		}
		return inRange(f, r)
	case KindText:
		return s, nil
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, numErrorCause(err)
		}
		return b, nil
	case KindPath:
		if s == "" {
			return nil, errors.New("empty path")
		}
		return FilePath(filepath.Clean(s)), nil
	case KindEnum:
		if m, ok := t.Enum.Lookup(s); ok {
			return m, nil
		}
		return nil, fmt.Errorf("not a member of %s", t.Enum.Name)
	default:
		return nil, fmt.Errorf("%w: %s", errNotConvertible, t)
	}
}

func numErrorCause(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}

// normalizeDefault converts a declared default to the value representation of the given type. Strings are
// converted through the type, like tokens; values already in the right representation are kept. Numbers must fall
// within the given range.
func normalizeDefault(t Type, r *NumericRange, v any) (any, error) {
	if v == nil || IsUnset(v) {
		return v, nil
	}
	if t.Kind == KindList {
		var items []any
		switch tv := v.(type) {
		case []any:
			items = tv
		case []string:
			for _, s := range tv {
				items = append(items, s)
			}
		case []int:
			for _, i := range tv {
				items = append(items, i)
			}
		case []float64:
			for _, f := range tv {
				items = append(items, f)
			}
		case string:
			if tv != "" {
				for _, s := range strings.Split(tv, ",") {
					items = append(items, strings.TrimSpace(s))
				}
			}
		default:
			return nil, fmt.Errorf("%w: %T is not a list", errNotConvertible, v)
		}
		result := make([]any, len(items))
		for i, item := range items {
			converted, err := normalizeDefault(*t.Elem, r, item)
			if err != nil {
				return nil, err
			}
			result[i] = converted
		}
		return result, nil
	}

	if s, ok := v.(string); ok && t.Kind != KindText {
		return convertToken(t, r, s)
	}
	switch t.Kind {
	case KindInt:
		switch tv := v.(type) {
		case int:
			return inRange(tv, r)
		case int64:
			return inRange(int(tv), r)
		case int32:
			return inRange(int(tv), r)
		case uint64:
			if tv > math.MaxInt {
				return inRange(tv, r)
			}
			return inRange(int(tv), r)
		}
	case KindFloat:
		switch tv := v.(type) {
		case float64:
			return inRange(tv, r)
		case float32:
			return float64(tv), nil
		case int:
			return inRange(float64(tv), r)
		}
	case KindText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindPath:
		if p, ok := v.(FilePath); ok {
			return FilePath(filepath.Clean(string(p))), nil
		}
	case KindEnum:
		if m, ok := v.(EnumMember); ok {
			if _, found := t.Enum.Lookup(m.Value); found {
				return m, nil
			}
			return nil, fmt.Errorf("not a member of %s", t.Enum.Name)
		}
	}
	return nil, fmt.Errorf("%w: %T is not a %s", errNotConvertible, v, t)
}
