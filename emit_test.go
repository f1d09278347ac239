package argschema

import (
	"errors"
	"testing"

	. "github.com/arikkfir/justest"
)

func TestCompileSchemaErrors(t *testing.T) {
	t.Parallel()
	type testCase struct {
		typeFactory   func() Type
		expectedCause error
	}
	testCases := map[string]testCase{
		"top-level scalar": {
			typeFactory:   func() Type { return Int() },
			expectedCause: ErrUnsupportedType,
		},
		"duplicate selector": {
			typeFactory: func() Type {
				return VariantOf(NewSchema("Train", nil), NewSchema("train", nil))
			},
			expectedCause: ErrDuplicateSelector,
		},
		"duplicate explicit selector": {
			typeFactory: func() Type {
				return VariantOf(NewSchema("A", nil).WithSelector("run"), NewSchema("B", nil).WithSelector("run"))
			},
			expectedCause: ErrDuplicateSelector,
		},
		"list of structures": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("items", ListOf(NestedOf(NewSchema("Item", nil))), nil)))
			},
			expectedCause: ErrUnsupportedType,
		},
		"positional boolean": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Positional("cuda", Bool(), false)))
			},
			expectedCause: ErrUnsupportedType,
		},
		"empty enum": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("choice", EnumOf(NewEnum("Empty")), Unset)))
			},
			expectedCause: ErrUnsupportedType,
		},
		"same token from two nested structures": {
			typeFactory: func() Type {
				inner := NewSchema("Inner", nil, Optional("lr", Float(), 0.1))
				return NestedOf(NewSchema("Outer", nil,
					Optional("a", NestedOf(inner), nil),
					Optional("b", NestedOf(inner), nil),
				))
			},
			expectedCause: ErrPathCollision,
		},
		"negated token collides with a field": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil,
					Optional("cuda", Bool(), true),
					Optional("no_cuda", Int(), 1),
				))
			},
			expectedCause: ErrPathCollision,
		},
		"field declared twice": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("n", Int(), 1), Optional("n", Int(), 2)))
			},
			expectedCause: ErrPathCollision,
		},
		"reserved help token": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("help", Bool(), false)))
			},
			expectedCause: ErrReservedToken,
		},
		"two variants in one command": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil,
					Optional("first", VariantOf(NewSchema("A", nil)), nil),
					Optional("second", VariantOf(NewSchema("B", nil)), nil),
				))
			},
			expectedCause: ErrMultipleVariants,
		},
		"recursive structure": {
			typeFactory: func() Type {
				s := NewSchema("Node", nil)
				s.Fields = []Field{Optional("next", NestedOf(s), nil)}
				return NestedOf(s)
			},
			expectedCause: ErrRecursiveStructure,
		},
		"dash in field name": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("int-arg", Int(), 1)))
			},
			expectedCause: ErrInvalidField,
		},
		"unconvertible default": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("n", Int(), "many")))
			},
			expectedCause: ErrInvalidDefault,
		},
		"default outside the enum": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("choice", EnumOf(datasetsEnum), "cifar")))
			},
			expectedCause: ErrInvalidDefault,
		},
		"default outside the range": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("n", Int(), 300, Range(NumericRange{Bits: 8}))))
			},
			expectedCause: ErrInvalidDefault,
		},
		"list default outside the range": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("ns", ListOf(Int()), "1,-1", Range(NumericRange{Unsigned: true, Bits: 8}))))
			},
			expectedCause: ErrInvalidDefault,
		},
		"range on a text field": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("s", Text(), "", Range(NumericRange{Bits: 8}))))
			},
			expectedCause: ErrInvalidField,
		},
		"unsupported range size": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("n", Int(), 0, Range(NumericRange{Bits: 7}))))
			},
			expectedCause: ErrInvalidField,
		},
		"choice not convertible to the field type": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("n", Int(), 5, Choices("5", "many"))))
			},
			expectedCause: ErrInvalidField,
		},
		"invalid nargs": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil, Optional("ways", ListOf(Int()), Unset, Nargs("0"))))
			},
			expectedCause: ErrInvalidField,
		},
		"positional after variadic positional": {
			typeFactory: func() Type {
				return NestedOf(NewSchema("Args", nil,
					Positional("files", ListOf(PathLike()), Unset),
					Positional("out", PathLike(), Unset),
				))
			},
			expectedCause: ErrInvalidField,
		},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p, err := Compile(tc.typeFactory())
			With(t).Verify(p == nil).Will(EqualTo(true)).OrFail()
			With(t).Verify(errors.Is(err, tc.expectedCause)).Will(EqualTo(true)).OrFail()

			var se *SchemaError
			With(t).Verify(errors.As(err, &se)).Will(EqualTo(true)).OrFail()
		})
	}
}

func TestCompileDeclarations(t *testing.T) {
	t.Parallel()

	t.Run("flags and negations", func(t *testing.T) {
		t.Parallel()
		p := MustCompile(NestedOf(newArgsSchema()))
		var tokens []string
		for _, d := range p.root.flags {
			tokens = append(tokens, d.token)
			if d.negToken != "" {
				tokens = append(tokens, d.negToken)
			}
		}
		With(t).Verify(tokens).Will(EqualTo([]string{
			"--missing-arg",
			"--int-arg",
			"--default-int-arg",
			"--float-arg",
			"--string-arg",
			"--path-arg",
			"--choice-arg",
			"--list-arg",
			"--true-bool-arg", "--no-true-bool-arg",
			"--false-bool-arg", "--no-false-bool-arg",
		})).OrFail()
	})

	t.Run("shapes", func(t *testing.T) {
		t.Parallel()
		p := MustCompile(NestedOf(newArgsSchema()))
		shapes := make(map[string]string)
		for _, d := range p.root.flags {
			shapes[d.dest.String()] = d.shape.String()
		}
		With(t).Verify(shapes).Will(EqualTo(map[string]string{
			"missing_arg":     "scalar",
			"int_arg":         "scalar",
			"default_int_arg": "scalar",
			"float_arg":       "scalar",
			"string_arg":      "scalar",
			"path_arg":        "scalar",
			"choice_arg":      "choice",
			"list_arg":        "list",
			"true_bool_arg":   "bool-pair",
			"false_bool_arg":  "bool-pair",
		})).OrFail()
	})

	t.Run("choices of enums", func(t *testing.T) {
		t.Parallel()
		p := MustCompile(NestedOf(newArgsSchema()))
		d, ok := p.root.tokens["--choice-arg"]
		With(t).Verify(ok).Will(EqualTo(true)).OrFail()
		With(t).Verify(d.choices).Will(EqualTo([]string{"omniglot", "mnist"})).OrFail()
	})

	t.Run("variant arms become commands", func(t *testing.T) {
		t.Parallel()
		p := MustCompile(NestedOf(newComplexSchema(newArgsSchema(), newArgs2Schema().WithSelector("fancy_name"))))
		With(t).Verify(p.root.variant.branchNames()).Will(EqualTo([]string{"args", "fancy_name"})).OrFail()
		With(t).Verify(p.root.variant.dest.String()).Will(EqualTo("args")).OrFail()

		// Arm fields are emitted under the variant's own prefix
		branch := p.root.variant.lookup("fancy_name")
		With(t).Verify(branch.path()).Will(EqualTo([]string{"fancy_name"})).OrFail()
		With(t).Verify(branch.flags[0].dest.String()).Will(EqualTo("args.int_arg")).OrFail()
	})

	t.Run("required fields", func(t *testing.T) {
		t.Parallel()
		p := MustCompile(NestedOf(NewSchema("Args", nil,
			Optional("a", Int(), Unset),
			Optional("b", Int(), Unset, NotRequired()),
			Optional("c", Int(), 1),
		)))
		var required []bool
		for _, d := range p.root.flags {
			required = append(required, d.required)
		}
		With(t).Verify(required).Will(EqualTo([]bool{true, false, false})).OrFail()
	})
}

func TestMustCompilePanics(t *testing.T) {
	t.Parallel()
	defer func() {
		With(t).Verify(recover()).Will(Not(BeNil())).OrFail()
	}()
	MustCompile(Text())
}
