package argschema

import (
	"errors"
	"strings"
	"testing"

	. "github.com/arikkfir/justest"
)

func TestReconstruct(t *testing.T) {
	t.Parallel()

	t.Run("round trip of every terminal kind", func(t *testing.T) {
		t.Parallel()
		p := MustCompile(NestedOf(newArgsSchema()))
		args := strings.Split("--missing-arg 80 --int-arg 80 --path-arg ./save/hello --choice-arg mnist --float-arg 0.2 --string-arg hi --list-arg 3 4 5 --no-true-bool-arg --false-bool-arg", " ")
		v, err := p.Interpret(args, nil)
		With(t).Verify(err).Will(BeNil()).OrFail()
		With(t).Verify(v).Will(EqualTo(Values{
			"missing_arg":     80,
			"int_arg":         80,
			"default_int_arg": 30,
			"float_arg":       0.2,
			"string_arg":      "hi",
			"path_arg":        FilePath("save/hello"),
			"choice_arg":      EnumMember{Name: "mnist", Value: "mnist"},
			"list_arg":        []any{3, 4, 5},
			"true_bool_arg":   false,
			"false_bool_arg":  true,
		})).OrFail()
	})

	t.Run("nested structures", func(t *testing.T) {
		t.Parallel()
		inner := NewSchema("Inner", nil, Optional("lr", Float(), 0.1))
		empty := NewSchema("Empty", nil)
		p := MustCompile(NestedOf(NewSchema("Outer", nil,
			Optional("optimizer", NestedOf(inner), nil),
			Optional("extra", NestedOf(empty), nil),
			Optional("epochs", Int(), 10),
		)))
		v, err := p.Interpret([]string{"--lr", "0.5"}, nil)
		With(t).Verify(err).Will(BeNil()).OrFail()
		With(t).Verify(v).Will(EqualTo(Values{
			"optimizer": Values{"lr": 0.5},
			"extra":     Values{},
			"epochs":    10,
		})).OrFail()
	})

	t.Run("unset fields fall back to the constructor", func(t *testing.T) {
		t.Parallel()
		p := MustCompile(NestedOf(NewSchema("Args", nil,
			Optional("seed", Int(), Unset, NotRequired()),
			Optional("epochs", Int(), 10),
		)))
		v, err := p.Interpret(nil, nil)
		With(t).Verify(err).Will(BeNil()).OrFail()
		With(t).Verify(v).Will(EqualTo(Values{"epochs": 10})).OrFail()
	})

	t.Run("variant field holds the selected arm", func(t *testing.T) {
		t.Parallel()
		p := MustCompile(NestedOf(newComplexSchema()))
		v, err := p.Interpret(strings.Split("args2 --int-arg 80", " "), nil)
		With(t).Verify(err).Will(BeNil()).OrFail()
		With(t).Verify(v).Will(EqualTo(Values{"args": args2{IntArg: 80}})).OrFail()
	})

	t.Run("top-level variant returns the arm itself", func(t *testing.T) {
		t.Parallel()
		p := MustCompile(VariantOf(newArgsSchema(), newArgs2Schema()))
		v, err := p.Interpret(strings.Split("args2 --int-arg 5", " "), nil)
		With(t).Verify(err).Will(BeNil()).OrFail()
		With(t).Verify(v).Will(EqualTo(args2{IntArg: 5})).OrFail()

		v, err = p.Interpret(strings.Split("args --missing-arg 1", " "), nil)
		With(t).Verify(err).Will(BeNil()).OrFail()
		values, ok := v.(Values)
		With(t).Verify(ok).Will(EqualTo(true)).OrFail()
		With(t).Verify(values["missing_arg"]).Will(EqualTo(1)).OrFail()
		With(t).Verify(len(values)).Will(EqualTo(10)).OrFail()
	})

	t.Run("variant arms without fields", func(t *testing.T) {
		t.Parallel()
		p := MustCompile(VariantOf(
			NewSchema("Start", func(Values) (any, error) { return "started", nil }),
			NewSchema("Stop", func(Values) (any, error) { return "stopped", nil }),
		))
		v, err := p.Interpret([]string{"stop"}, nil)
		With(t).Verify(err).Will(BeNil()).OrFail()
		With(t).Verify(v).Will(EqualTo("stopped")).OrFail()
	})
}

func TestReconstructErrors(t *testing.T) {
	t.Parallel()

	t.Run("nil result", func(t *testing.T) {
		t.Parallel()
		_, err := Reconstruct(nil)
		With(t).Verify(err).Will(Fail(`^failed reconstructing '<root>': nil result$`)).OrFail()
	})

	t.Run("missing selector", func(t *testing.T) {
		t.Parallel()
		_, err := Reconstruct(&Result{})
		With(t).Verify(errors.Is(err, ErrMissingSelector)).Will(EqualTo(true)).OrFail()
	})

	t.Run("missing nested selector", func(t *testing.T) {
		t.Parallel()
		res := &Result{}
		res.Selectors.Set(RootKey, NewSchema("Outer", nil))
		res.Values.Set(KeyOf("inner", "lr"), 0.1)
		_, err := Reconstruct(res)

		var re *ReconstructionError
		With(t).Verify(errors.As(err, &re)).Will(EqualTo(true)).OrFail()
		With(t).Verify(re.Path.String()).Will(EqualTo("inner")).OrFail()
		With(t).Verify(errors.Is(err, ErrMissingSelector)).Will(EqualTo(true)).OrFail()
	})

	t.Run("unselected variant", func(t *testing.T) {
		t.Parallel()
		res := &Result{}
		res.Selectors.Set(RootKey, variantSchema([]*Schema{newArgs2Schema()}))
		_, err := Reconstruct(res)
		With(t).Verify(errors.Is(err, ErrUnselectedVariant)).Will(EqualTo(true)).OrFail()
	})

	t.Run("constructor failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		res := &Result{}
		res.Selectors.Set(RootKey, NewSchema("Args", func(Values) (any, error) { return nil, boom }))
		_, err := Reconstruct(res)
		With(t).Verify(err).Will(Fail(`^failed reconstructing '<root>': boom$`)).OrFail()
		With(t).Verify(errors.Is(err, boom)).Will(EqualTo(true)).OrFail()
	})

	t.Run("input is not modified", func(t *testing.T) {
		t.Parallel()
		res := &Result{}
		res.Selectors.Set(RootKey, NewSchema("Args", nil))
		res.Values.Set(KeyOf("seed"), Unset)
		res.Values.Set(KeyOf("epochs"), 3)
		v, err := Reconstruct(res)
		With(t).Verify(err).Will(BeNil()).OrFail()
		With(t).Verify(v).Will(EqualTo(Values{"epochs": 3})).OrFail()
		With(t).Verify(res.Values.Has(KeyOf("seed"))).Will(EqualTo(true)).OrFail()
	})
}
