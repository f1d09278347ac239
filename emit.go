package argschema

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

const helpToken = "--help"

// Option configures a Parser created by Compile.
type Option func(*Parser)

// WithLogger sets the logger receiving debug records about emitted arguments and parsed tokens.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// WithProgramName sets the program name shown in help screens. Defaults to the base name of os.Args[0].
func WithProgramName(name string) Option {
	return func(p *Parser) { p.name = name }
}

func WithDescription(description string) Option {
	return func(p *Parser) { p.description = description }
}

// Parser is the compiled form of a schema. It is immutable and may be used for any number of concurrent parses.
type Parser struct {
	name        string
	description string
	root        *node
	logger      *slog.Logger
}

// node is the declaration set of one command: the root, or one branch of a variant.
type node struct {
	name        string
	description string
	parent      *node
	stamps      Selectors
	flags       []*argDecl
	positionals []*argDecl
	tokens      map[string]*argDecl
	dests       KeyMap[*argDecl]
	variant     *variantDecl
}

type variantDecl struct {
	dest     Key
	branches []*node
}

type argDecl struct {
	dest       Key
	shape      Shape
	typ        Type
	token      string
	negToken   string
	positional bool
	nargs      string
	rng        *NumericRange
	choices    []string
	choiceVals []any
	def        any
	required   bool
	help       string
	valueName  string
	env        string
}

func newNode(name, description string, parent *node) *node {
	return &node{name: name, description: description, parent: parent, tokens: make(map[string]*argDecl)}
}

// path returns the names of the sub-commands leading to this node, excluding the root.
func (n *node) path() []string {
	var names []string
	for c := n; c.parent != nil; c = c.parent {
		names = append([]string{c.name}, names...)
	}
	return names
}

func (n *node) decls() []*argDecl {
	return append(slices.Clone(n.flags), n.positionals...)
}

func (v *variantDecl) branchNames() []string {
	names := make([]string, len(v.branches))
	for i, b := range v.branches {
		names[i] = b.name
	}
	return names
}

func (v *variantDecl) lookup(token string) *node {
	for _, b := range v.branches {
		if b.name == token {
			return b
		}
	}
	return nil
}

// Compile builds a parser for the given type, which must be NestedOf a schema or VariantOf several.
func Compile(t Type, opts ...Option) (*Parser, error) {
	p := &Parser{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(p)
	}
	if p.name == "" && len(os.Args) > 0 {
		p.name = filepath.Base(os.Args[0])
	}

	e := &emitter{logger: p.logger, active: make(map[*Schema]bool)}
	switch t.Kind {
	case KindNested:
		if t.Schema == nil {
			return nil, schemaErrorf(RootKey, ErrUnsupportedType, "nested type without schema")
		}
		if p.description == "" {
			p.description = t.Schema.Description
		}
		p.root = newNode("", p.description, nil)
		if err := e.emit(p.root, t.Schema, RootKey); err != nil {
			return nil, err
		}
	case KindVariant:
		if _, err := classify(RootKey, Field{Type: t}); err != nil {
			return nil, err
		}
		p.root = newNode("", p.description, nil)

		// A top-level variant is emitted under the empty segment: reconstruction returns the selected arm itself
		p.root.stamps.Set(RootKey, variantSchema(t.Arms))
		if err := e.emitVariant(p.root, t.Arms, KeyOf("")); err != nil {
			return nil, err
		}
	default:
		return nil, schemaErrorf(RootKey, ErrUnsupportedType, "top-level type must be nested or variant, got %s", t.Kind)
	}
	return p, nil
}

// MustCompile is like Compile but panics on schema errors.
func MustCompile(t Type, opts ...Option) *Parser {
	p, err := Compile(t, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

type emitter struct {
	logger *slog.Logger
	active map[*Schema]bool
}

// emit registers the fields of the given schema, located at the given prefix, into the given node.
func (e *emitter) emit(n *node, s *Schema, prefix Key) error {
	if s == nil {
		return schemaErrorf(prefix, ErrUnsupportedType, "nil schema")
	} else if e.active[s] {
		return schemaErrorf(prefix, ErrRecursiveStructure, "%s contains itself", s.Name)
	}
	e.active[s] = true
	defer delete(e.active, s)

	// Stamp the selector before the fields, so the reconstructor knows which constructor owns this prefix
	n.stamps.Set(prefix, s)
	e.logger.Debug("Stamped selector", "prefix", prefix.String(), "schema", s.Name, "command", n.path())

	names := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if err := validateFieldName(prefix, f.Name); err != nil {
			return err
		} else if names[f.Name] {
			return schemaErrorf(prefix, ErrPathCollision, "field '%s' declared twice in %s", f.Name, s.Name)
		}
		names[f.Name] = true

		dest := prefix.Push(f.Name)
		shape, err := classify(dest, f)
		if err != nil {
			return err
		}
		switch shape {
		case ShapeNested:
			err = e.emit(n, f.Type.Schema, dest)
		case ShapeVariant:
			err = e.emitVariant(n, f.Type.Arms, dest)
		default:
			err = e.declare(n, dest, shape, f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// emitVariant creates one branch per arm. Each arm is emitted with the variant's own prefix: the selector name is a
// dispatch key, not a nesting level.
func (e *emitter) emitVariant(n *node, arms []*Schema, dest Key) error {
	if n.variant != nil {
		return schemaErrorf(dest, ErrMultipleVariants, "'%s' already selects the command", n.variant.dest)
	}

	n.stamps.Set(dest, variantSchema(arms))
	v := &variantDecl{dest: dest}
	selected := make(map[string]*Schema, len(arms))
	for _, arm := range arms {
		name := ManglePositional(KeyOf(arm.SelectorName()), "")
		if name == "" || strings.HasPrefix(name, "-") {
			return schemaErrorf(dest, ErrInvalidField, "invalid selector name '%s' for %s", arm.SelectorName(), arm.Name)
		} else if other, ok := selected[name]; ok {
			return schemaErrorf(dest, ErrDuplicateSelector, "'%s' selects both %s and %s", name, other.Name, arm.Name)
		}
		selected[name] = arm

		branch := newNode(name, arm.Description, n)
		if err := e.emit(branch, arm, dest); err != nil {
			return err
		}
		v.branches = append(v.branches, branch)
		e.logger.Debug("Registered branch", "dest", dest.String(), "command", branch.path(), "schema", arm.Name)
	}
	n.variant = v
	return nil
}

// declare registers the externally visible argument of a terminal field.
func (e *emitter) declare(n *node, dest Key, shape Shape, f Field) error {
	rng, err := fieldRange(dest, f)
	if err != nil {
		return err
	}
	def, err := normalizeDefault(f.Type, rng, f.Default)
	if err != nil {
		return schemaErrorf(dest, ErrInvalidDefault, "%v: %s", f.Default, err)
	}

	d := &argDecl{
		dest:       dest,
		shape:      shape,
		typ:        f.Type,
		positional: f.Positional,
		def:        def,
		rng:        rng,
		required:   f.IsRequired(),
	}
	d.help, _ = f.Metadata.lookupString(MetaHelp)
	d.valueName, _ = f.Metadata.lookupString(MetaValueName)
	d.env, _ = f.Metadata.lookupString(MetaEnv)

	// Arity & choices
	switch shape {
	case ShapeList:
		d.typ = *f.Type.Elem
		d.nargs = "*"
		if nargs, ok := f.Metadata.lookupString(MetaNargs); ok {
			if !validNargs(nargs) {
				return schemaErrorf(dest, ErrInvalidField, "invalid nargs '%s'", nargs)
			}
			d.nargs = nargs
		}
		if d.typ.Kind == KindEnum {
			d.choices = d.typ.Enum.Values()
		}
	case ShapeChoice:
		d.choices = f.Type.Enum.Values()
	}
	if v, ok := f.Metadata[MetaChoices]; ok && shape != ShapeBoolPair {
		choices, ok := v.([]string)
		if !ok || len(choices) == 0 {
			return schemaErrorf(dest, ErrInvalidField, "choices must be a non-empty []string, got %T", v)
		}
		d.choices = choices
	}
	for _, c := range d.choices {
		v, err := convertToken(d.typ, d.rng, c)
		if err != nil {
			return schemaErrorf(dest, ErrInvalidField, "invalid choice '%s': %s", c, err)
		}
		d.choiceVals = append(d.choiceVals, v)
	}

	// Tokens
	if f.Positional {
		d.token = ManglePositional(dest, "")
		if last := len(n.positionals) - 1; last >= 0 && n.positionals[last].shape == ShapeList {
			return schemaErrorf(dest, ErrInvalidField, "positional field follows variadic positional '%s'", n.positionals[last].dest)
		}
	} else {
		d.token = MangleOptional(dest, "")
		if shape == ShapeBoolPair {
			d.negToken = negatedToken(dest)
		}
	}
	for _, token := range []string{d.token, d.negToken} {
		if token == "" {
			continue
		} else if token == helpToken {
			return schemaErrorf(dest, ErrReservedToken, "'%s' is reserved", helpToken)
		} else if other, ok := n.tokens[token]; ok {
			return schemaErrorf(dest, ErrPathCollision, "token '%s' is already used by '%s'", token, other.dest)
		}
	}
	if other, ok := n.dests.Get(dest); ok {
		return schemaErrorf(dest, ErrPathCollision, "destination already used by '%s'", other.token)
	}

	n.tokens[d.token] = d
	if d.negToken != "" {
		n.tokens[d.negToken] = d
	}
	n.dests.Set(dest, d)
	if f.Positional {
		n.positionals = append(n.positionals, d)
	} else {
		n.flags = append(n.flags, d)
	}
	e.logger.Debug("Registered argument", "dest", dest.String(), "token", d.token, "shape", shape.String(), "required", d.required)
	return nil
}

// fieldRange returns the numeric range declared in the field's metadata, or nil if there is none.
func fieldRange(dest Key, f Field) (*NumericRange, error) {
	v, ok := f.Metadata[MetaRange]
	if !ok {
		return nil, nil
	}
	kind := f.Type.Kind
	if kind == KindList && f.Type.Elem != nil {
		kind = f.Type.Elem.Kind
	}
	r, ok := v.(NumericRange)
	if !ok || !r.validFor(kind) {
		return nil, schemaErrorf(dest, ErrInvalidField, "range %+v does not apply to %s fields", v, f.Type)
	}
	return &r, nil
}

func validateFieldName(prefix Key, name string) error {
	if name == "" {
		return schemaErrorf(prefix, ErrInvalidField, "empty field name")
	} else if strings.Contains(name, "-") {
		return schemaErrorf(prefix, ErrInvalidField, "field name '%s' contains '-'", name)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return schemaErrorf(prefix, ErrInvalidField, "field name %q contains invalid characters", name)
		}
	}
	return nil
}

func validNargs(nargs string) bool {
	if nargs == "*" || nargs == "+" {
		return true
	}
	n, err := strconv.Atoi(nargs)
	return err == nil && n > 0
}

// fixedNargs returns the fixed count of a list argument, or 0 when its count is open.
func (d *argDecl) fixedNargs() int {
	n, err := strconv.Atoi(d.nargs)
	if err != nil {
		return 0
	}
	return n
}

// displayToken is the spelling of the argument used in messages.
func (d *argDecl) displayToken() string {
	if d.positional {
		return strings.ToUpper(d.token)
	}
	return d.token
}

func (d *argDecl) metavar() string {
	if d.valueName != "" {
		return d.valueName
	} else if len(d.choices) > 0 {
		return "{" + strings.Join(d.choices, ",") + "}"
	}
	return strings.ToUpper(d.typ.Kind.String())
}

func (d *argDecl) String() string {
	return fmt.Sprintf("%s(%s)", d.token, d.dest)
}
