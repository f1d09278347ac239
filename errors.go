package argschema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHelp is returned by Parse when "--help" is given.
	ErrHelp = errors.New("help requested")

	// ErrValidation matches every error caused by user input: unknown or missing tokens and invalid values.
	ErrValidation = errors.New("invalid arguments")

	ErrDuplicateSelector  = errors.New("duplicate selector")
	ErrUnsupportedType    = errors.New("unsupported field type")
	ErrPathCollision      = errors.New("path collision")
	ErrReservedToken      = errors.New("reserved token")
	ErrMultipleVariants   = errors.New("multiple variants in one command")
	ErrRecursiveStructure = errors.New("recursive structure")
	ErrInvalidField       = errors.New("invalid field")
	ErrInvalidDefault     = errors.New("invalid default value")

	ErrMissingSelector   = errors.New("missing selector")
	ErrUnselectedVariant = errors.New("unselected variant")
	ErrUnexpectedKeyword = errors.New("unexpected keyword")
)

// SchemaError is returned while compiling a parser from a malformed schema, before any input is seen.
type SchemaError struct {
	Path  Key
	Cause error
}

func (e *SchemaError) Error() string {
	if e.Path.IsRoot() {
		return fmt.Sprintf("invalid schema: %s", e.Cause)
	}
	return fmt.Sprintf("invalid schema at '%s': %s", e.Path, e.Cause)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

func schemaErrorf(path Key, cause error, format string, args ...any) error {
	return &SchemaError{Path: path, Cause: fmt.Errorf("%w: %s", cause, fmt.Sprintf(format, args...))}
}

// ReconstructionError signals that a parsed flat map could not be turned into an instance. It indicates a bug in
// the emitted parser or in a constructor, never a user mistake.
type ReconstructionError struct {
	Path  Key
	Cause error
}

func (e *ReconstructionError) Error() string {
	return fmt.Sprintf("failed reconstructing '%s': %s", displayPath(e.Path), e.Cause)
}

func (e *ReconstructionError) Unwrap() error {
	return e.Cause
}

func displayPath(k Key) string {
	if k.IsRoot() {
		return "<root>"
	}
	return k.String()
}

type ErrUnknownFlag struct {
	Flag    string
	Command string
}

func (e *ErrUnknownFlag) Error() string {
	return fmt.Sprintf("unknown flag: %s", e.Flag)
}

func (e *ErrUnknownFlag) Is(target error) bool {
	return target == ErrValidation
}

type ErrUnknownArgument struct {
	Argument string
	Choices  []string
}

func (e *ErrUnknownArgument) Error() string {
	if len(e.Choices) > 0 {
		return fmt.Sprintf("unknown command '%s' (choose from: %s)", e.Argument, strings.Join(e.Choices, ", "))
	}
	return fmt.Sprintf("unrecognized argument: %s", e.Argument)
}

func (e *ErrUnknownArgument) Is(target error) bool {
	return target == ErrValidation
}

type ErrRequiredFlagMissing struct {
	Flag string
}

func (e *ErrRequiredFlagMissing) Error() string {
	return fmt.Sprintf("required flag is missing: %s", e.Flag)
}

func (e *ErrRequiredFlagMissing) Is(target error) bool {
	return target == ErrValidation
}

type ErrSubcommandRequired struct {
	Choices []string
}

func (e *ErrSubcommandRequired) Error() string {
	return fmt.Sprintf("a command is required (choose from: %s)", strings.Join(e.Choices, ", "))
}

func (e *ErrSubcommandRequired) Is(target error) bool {
	return target == ErrValidation
}

type ErrMissingValue struct {
	Flag     string
	Expected string
}

func (e *ErrMissingValue) Error() string {
	return fmt.Sprintf("flag %s expects %s", e.Flag, e.Expected)
}

func (e *ErrMissingValue) Is(target error) bool {
	return target == ErrValidation
}

type ErrInvalidValue struct {
	Cause error
	Value string
	Flag  string
}

func (e *ErrInvalidValue) Error() string {
	return fmt.Sprintf("invalid value '%s' for flag '%s': %s", e.Value, e.Flag, e.Cause)
}

func (e *ErrInvalidValue) Unwrap() error {
	return e.Cause
}

func (e *ErrInvalidValue) Is(target error) bool {
	return target == ErrValidation
}

// helpError carries the command path whose help was requested.
type helpError struct {
	command []string
}

func (e *helpError) Error() string {
	return ErrHelp.Error()
}

func (e *helpError) Is(target error) bool {
	return target == ErrHelp
}
