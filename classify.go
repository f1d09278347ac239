package argschema

// Shape is the argument shape a field is emitted as.
type Shape int

const (
	ShapeInvalid Shape = iota
	ShapeBoolPair
	ShapeList
	ShapeChoice
	ShapeNested
	ShapeVariant
	ShapeScalar
)

func (s Shape) String() string {
	switch s {
	case ShapeBoolPair:
		return "bool-pair"
	case ShapeList:
		return "list"
	case ShapeChoice:
		return "choice"
	case ShapeNested:
		return "nested"
	case ShapeVariant:
		return "variant"
	case ShapeScalar:
		return "scalar"
	default:
		return "invalid"
	}
}

// classify decides the argument shape of the field at the given path.
func classify(path Key, f Field) (Shape, error) {
	t := f.Type
	switch t.Kind {
	case KindBool:
		if f.Positional {
			return ShapeInvalid, schemaErrorf(path, ErrUnsupportedType, "boolean fields cannot be positional")
		}
		return ShapeBoolPair, nil
	case KindList:
		if t.Elem == nil {
			return ShapeInvalid, schemaErrorf(path, ErrUnsupportedType, "list without element type")
		}
		switch t.Elem.Kind {
		case KindInt, KindFloat, KindText, KindPath, KindBool:
		case KindEnum:
			if t.Elem.Enum == nil || len(t.Elem.Enum.Members) == 0 {
				return ShapeInvalid, schemaErrorf(path, ErrUnsupportedType, "list of an empty enum")
			}
		default:
			return ShapeInvalid, schemaErrorf(path, ErrUnsupportedType, "list of %s", t.Elem.Kind)
		}
		return ShapeList, nil
	case KindEnum:
		if t.Enum == nil || len(t.Enum.Members) == 0 {
			return ShapeInvalid, schemaErrorf(path, ErrUnsupportedType, "enum without members")
		}
		return ShapeChoice, nil
	case KindNested:
		if t.Schema == nil {
			return ShapeInvalid, schemaErrorf(path, ErrUnsupportedType, "nested field without schema")
		} else if f.Positional {
			return ShapeInvalid, schemaErrorf(path, ErrUnsupportedType, "nested fields cannot be positional")
		}
		return ShapeNested, nil
	case KindVariant:
		if len(t.Arms) == 0 {
			return ShapeInvalid, schemaErrorf(path, ErrUnsupportedType, "variant without arms")
		} else if f.Positional {
			return ShapeInvalid, schemaErrorf(path, ErrUnsupportedType, "variant fields cannot be positional")
		}
		for i, arm := range t.Arms {
			if arm == nil {
				return ShapeInvalid, schemaErrorf(path, ErrUnsupportedType, "variant arm %d is nil", i)
			}
		}
		return ShapeVariant, nil
	case KindInt, KindFloat, KindText, KindPath:
		return ShapeScalar, nil
	default:
		return ShapeInvalid, schemaErrorf(path, ErrUnsupportedType, "%s", t.Kind)
	}
}
