package argschema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/fatih/color"
)

type ExitCode int

const (
	ExitCodeSuccess          ExitCode = 0
	ExitCodeError            ExitCode = 1
	ExitCodeMisconfiguration ExitCode = 2
)

// Action is implemented by reconstructed values that can be run, typically the arms of a top-level variant.
type Action interface {
	Run(context.Context) error
}

type ActionFunc func(context.Context) error

func (i ActionFunc) Run(ctx context.Context) error {
	if i != nil {
		return i(ctx)
	} else {
		return nil
	}
}

// PreRunHook is implemented by reconstructed values that must run before the action, e.g. to set up resources
// described by a shared options structure.
type PreRunHook interface {
	PreRun(context.Context) error
}

type PreRunHookFunc func(context.Context) error

func (i PreRunHookFunc) PreRun(ctx context.Context) error {
	if i != nil {
		return i(ctx)
	} else {
		return nil
	}
}

// PostRunHook is implemented by reconstructed values that must run after the action, receiving its error and the
// exit code. Post-run hooks run even when a pre-run hook or the action failed.
type PostRunHook interface {
	PostRun(context.Context, error, ExitCode) error
}

type PostRunHookFunc func(context.Context, error, ExitCode) error

func (i PostRunHookFunc) PostRun(ctx context.Context, err error, exitCode ExitCode) error {
	if i != nil {
		return i(ctx, err, exitCode)
	} else {
		return nil
	}
}

var errorColor = color.New(color.FgRed, color.Bold)

// ExecuteWithContext parses the given CLI args and environment variables with the given parser, and reconstructs the
// resulting value. If "--help" was given, the help screen of the selected command is printed instead. If the value, or
// a value nested in its fields, is an Action, it is run with the given context. Hooks implemented by the value and its
// nested values run around it: pre-run hooks outermost first, post-run hooks innermost first.
func ExecuteWithContext(ctx context.Context, w io.Writer, p *Parser, args []string, envVars map[string]string) (value any, exitCode ExitCode) {
	exitCode = ExitCodeSuccess

	res, err := p.Parse(args, envVars)
	if err != nil {
		var he *helpError
		var ce *CommandError
		if errors.As(err, &he) {
			if err := p.PrintHelp(w, he.command, getTerminalWidth()); err != nil {
				_, _ = fmt.Fprintf(w, "%s\n", err)
				exitCode = ExitCodeMisconfiguration
			}
			return
		} else if errors.Is(err, ErrValidation) && errors.As(err, &ce) {
			_, _ = errorColor.Fprintln(w, err)
			if err := p.PrintUsageLine(w, ce.Command, getTerminalWidth()); err != nil {
				_, _ = fmt.Fprintf(w, "%s\n", err)
				exitCode = ExitCodeError
				return
			}
			exitCode = ExitCodeMisconfiguration
			return
		}
		_, _ = errorColor.Fprintln(w, err)
		exitCode = ExitCodeError
		return
	}

	value, err = Reconstruct(res)
	if err != nil {
		_, _ = errorColor.Fprintln(w, err)
		exitCode = ExitCodeError
		return
	}

	// Results
	var actionError error
	chain := chainOf(value)

	// Ensure we invoke post-run hooks before we return
	defer func() {
		for i := len(chain) - 1; i >= 0; i-- {
			if h, ok := chain[i].(PostRunHook); ok {
				if err := h.PostRun(ctx, actionError, exitCode); err != nil {
					_, _ = errorColor.Fprintln(w, err)
					exitCode = ExitCodeError
				}
			}
		}
	}()

	// Invoke all "PreRun" hooks, starting at the root value
	for _, v := range chain {
		if h, ok := v.(PreRunHook); ok {
			if err := h.PreRun(ctx); err != nil {
				_, _ = errorColor.Fprintln(w, err)
				actionError = err
				exitCode = ExitCodeError
				return
			}
		}
	}

	if action := firstAction(chain); action != nil {
		p.logger.Debug("Running action", "command", res.Command, "action", fmt.Sprintf("%T", action))
		if err := action.Run(ctx); err != nil {
			_, _ = errorColor.Fprintln(w, err)
			actionError = err
			exitCode = ExitCodeError
		}
	}
	return
}

// Execute is like ExecuteWithContext, using a context that gets canceled when an OS termination signal is received.
//
//goland:noinspection GoUnusedExportedFunction
func Execute(w io.Writer, p *Parser, args []string, envVars map[string]string) (any, ExitCode) {
	ctx, cancel := context.WithCancel(SetupSignalHandler())
	defer cancel()

	return ExecuteWithContext(ctx, w, p, args, envVars)
}

// firstAction returns the first Action of the chain: the reconstructed value itself, or else the first Action found in
// its fields, depth first.
func firstAction(chain []any) Action {
	for _, v := range chain {
		if action, ok := v.(Action); ok {
			return action
		}
	}
	return nil
}

// chainOf returns the given value followed by the values of its exported struct, pointer and interface fields,
// depth first. Nil values are omitted.
func chainOf(value any) []any {
	if value == nil {
		return nil
	}

	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	chain := []any{value}
	if v.Kind() != reflect.Struct {
		return chain
	}
	for i := 0; i < v.NumField(); i++ {
		if !v.Type().Field(i).IsExported() {
			continue
		}
		f := v.Field(i)
		switch f.Kind() {
		case reflect.Interface, reflect.Pointer:
			if f.IsNil() {
				continue
			}
		case reflect.Struct:
		default:
			continue
		}
		chain = append(chain, chainOf(f.Interface())...)
	}
	return chain
}
