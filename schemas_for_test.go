package argschema

import (
	"context"
)

var datasetsEnum = NewEnum("Datasets", "omniglot", "mnist")

// newArgsSchema mirrors the reference argument structure: one field of every terminal kind, with and without defaults.
func newArgsSchema() *Schema {
	return NewSchema("Args", nil,
		Optional("missing_arg", Int(), Unset),
		Optional("int_arg", Int(), 100, Help("Number of batches")),
		Optional("default_int_arg", Int(), 30),
		Optional("float_arg", Float(), 0.1),
		Optional("string_arg", Text(), "hello"),
		Optional("path_arg", PathLike(), "./save/proto-1"),
		Optional("choice_arg", EnumOf(datasetsEnum), "omniglot"),
		Optional("list_arg", ListOf(Int()), []int{1, 2, 3}),
		Optional("true_bool_arg", Bool(), true),
		Optional("false_bool_arg", Bool(), false),
	)
}

type args2 struct {
	IntArg int
}

func newArgs2Schema() *Schema {
	return NewSchema("Args2", func(v Values) (any, error) {
		return args2{IntArg: v["int_arg"].(int)}, nil
	}, Optional("int_arg", Int(), Unset))
}

// newComplexSchema holds a variant of the two argument structures under the "args" field.
func newComplexSchema(arms ...*Schema) *Schema {
	if len(arms) == 0 {
		arms = []*Schema{newArgsSchema(), newArgs2Schema()}
	}
	return NewSchema("ComplexArg", nil, Optional("args", VariantOf(arms...), nil))
}

func newActionSchema(ran *int, err error) *Schema {
	return NewSchema("Train", func(v Values) (any, error) {
		epochs := v["epochs"].(int)
		return ActionFunc(func(context.Context) error {
			*ran = epochs
			return err
		}), nil
	}, Optional("epochs", Int(), 10))
}
