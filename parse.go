package argschema

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// Result is the output of one parse: the flat dest-to-value map, the selectors of every structure prefix, and the
// sub-commands chosen along the way. It is consumed by Reconstruct.
type Result struct {
	Values    FlatMap
	Selectors Selectors
	Command   []string
}

// CommandError wraps a validation error with the command path in which it occurred.
type CommandError struct {
	Command []string
	Err     error
}

func (e *CommandError) Error() string {
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Parse converts the given tokens into a Result. Environment variables named by fields' "env" metadata are used
// for fields whose tokens are absent. The returned error matches ErrValidation for user mistakes, and ErrHelp when
// "--help" was given.
func (p *Parser) Parse(args []string, envVars map[string]string) (*Result, error) {
	st := &parseState{
		logger: p.logger,
		env:    envVars,
		given:  make(map[*argDecl]bool),
	}
	if err := st.parseNode(p.root, args, false); err != nil {
		var he *helpError
		if errors.As(err, &he) {
			return nil, err
		}
		return nil, &CommandError{Command: slices.Clone(st.command), Err: err}
	}
	return &Result{Values: st.values, Selectors: st.selectors, Command: st.command}, nil
}

// Interpret parses the given tokens and reconstructs the resulting instance.
func (p *Parser) Interpret(args []string, envVars map[string]string) (any, error) {
	res, err := p.Parse(args, envVars)
	if err != nil {
		return nil, err
	}
	return Reconstruct(res)
}

type parseState struct {
	logger    *slog.Logger
	env       map[string]string
	values    FlatMap
	selectors Selectors
	command   []string
	given     map[*argDecl]bool
}

// enter applies the node's selector stamps, then its defaults, then values from environment variables.
func (st *parseState) enter(n *node) error {
	for _, k := range n.stamps.Keys() {
		s, _ := n.stamps.Get(k)
		st.selectors.Set(k, s)
	}
	for _, d := range n.decls() {
		if items, ok := d.def.([]any); ok {
			st.values.Set(d.dest, slices.Clone(items))
		} else {
			st.values.Set(d.dest, d.def)
		}
		if d.env == "" {
			continue
		}
		if raw, found := st.env[d.env]; found {
			v, err := d.convertEnv(raw)
			if err != nil {
				return err
			}
			st.values.Set(d.dest, v)
			st.given[d] = true
			st.logger.Debug("Applied environment variable", "env", d.env, "dest", d.dest.String())
		}
	}
	return nil
}

func (st *parseState) parseNode(n *node, tokens []string, onlyPositionals bool) error {
	if err := st.enter(n); err != nil {
		return err
	}

	nextPositional := 0
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		st.logger.Debug("Parsing token", "token", token, "index", i, "command", n.path(), "only_positionals", onlyPositionals)

		if !onlyPositionals && token == "--" {
			onlyPositionals = true
			continue
		} else if !onlyPositionals && token == helpToken {
			return &helpError{command: slices.Clone(st.command)}
		} else if !onlyPositionals && isFlagToken(token) {
			consumed, err := st.parseFlag(n, tokens[i:])
			if err != nil {
				return err
			}
			i += consumed - 1
			continue
		}

		// Positional fields are filled in declaration order
		if nextPositional < len(n.positionals) {
			d := n.positionals[nextPositional]
			nextPositional++
			if d.shape != ShapeList {
				v, err := d.convert(token)
				if err != nil {
					return err
				}
				st.values.Set(d.dest, v)
				st.given[d] = true
				continue
			}

			// A variadic positional consumes every following positional token
			j := i
			for j < len(tokens) && (onlyPositionals || !isFlagToken(tokens[j])) {
				j++
			}
			if err := st.setList(d, tokens[i:j]); err != nil {
				return err
			}
			i = j - 1
			continue
		}

		// Remaining positional tokens select a branch, which parses the rest
		if n.variant != nil {
			branch := n.variant.lookup(token)
			if branch == nil {
				return &ErrUnknownArgument{Argument: token, Choices: n.variant.branchNames()}
			}
			st.command = append(st.command, branch.name)
			st.logger.Debug("Selected branch", "command", st.command, "dest", n.variant.dest.String())
			if err := st.parseNode(branch, tokens[i+1:], onlyPositionals); err != nil {
				return err
			}
			return st.verify(n, true)
		}
		return &ErrUnknownArgument{Argument: token}
	}
	return st.verify(n, false)
}

// parseFlag applies the flag at the head of the given tokens, returning how many tokens it consumed.
func (st *parseState) parseFlag(n *node, tokens []string) (int, error) {
	name, inline, hasInline := strings.Cut(tokens[0], "=")
	d, ok := n.tokens[name]
	if !ok || d.positional {
		return 0, &ErrUnknownFlag{Flag: name, Command: strings.Join(st.command, " ")}
	}

	switch d.shape {
	case ShapeBoolPair:
		if hasInline {
			return 0, &ErrInvalidValue{Cause: errors.New("flag takes no value"), Value: inline, Flag: name}
		}
		// Both tokens share one destination, the last one given wins
		st.values.Set(d.dest, name == d.token)
		st.given[d] = true
		return 1, nil
	case ShapeList:
		if hasInline {
			return 1, st.setList(d, []string{inline})
		}
		consumed := 1
		limit := d.fixedNargs()
		for consumed < len(tokens) && !isFlagToken(tokens[consumed]) && (limit == 0 || consumed <= limit) {
			consumed++
		}
		return consumed, st.setList(d, tokens[1:consumed])
	default:
		var raw string
		consumed := 1
		if hasInline {
			raw = inline
		} else if len(tokens) < 2 || isFlagToken(tokens[1]) {
			return 0, &ErrMissingValue{Flag: name, Expected: "a value"}
		} else {
			raw = tokens[1]
			consumed = 2
		}
		v, err := d.convert(raw)
		if err != nil {
			return 0, err
		}
		st.values.Set(d.dest, v)
		st.given[d] = true
		return consumed, nil
	}
}

func (st *parseState) setList(d *argDecl, raw []string) error {
	switch n := d.fixedNargs(); {
	case d.nargs == "+" && len(raw) == 0:
		return &ErrMissingValue{Flag: d.displayToken(), Expected: "at least one value"}
	case n > 0 && len(raw) != n:
		return &ErrMissingValue{Flag: d.displayToken(), Expected: fmt.Sprintf("%d values", n)}
	}
	items := make([]any, len(raw))
	for i, s := range raw {
		v, err := d.convert(s)
		if err != nil {
			return err
		}
		items[i] = v
	}
	st.values.Set(d.dest, items)
	st.given[d] = true
	return nil
}

// verify fails if a required argument of the node was not given, or if the node has branches but none was selected.
func (st *parseState) verify(n *node, branchSelected bool) error {
	for _, d := range n.decls() {
		if d.required && !st.given[d] {
			return &ErrRequiredFlagMissing{Flag: d.displayToken()}
		}
	}
	if n.variant != nil && !branchSelected {
		return &ErrSubcommandRequired{Choices: n.variant.branchNames()}
	}
	return nil
}

// convert converts a single token to the argument's type and validates it against the argument's choices.
func (d *argDecl) convert(raw string) (any, error) {
	return d.convertAs(raw, d.displayToken())
}

func (d *argDecl) convertAs(raw, flag string) (any, error) {
	v, err := convertToken(d.typ, d.rng, raw)
	if len(d.choiceVals) > 0 && (err != nil || !slices.Contains(d.choiceVals, v)) {
		return nil, &ErrInvalidValue{
			Cause: fmt.Errorf("must be one of: %s", strings.Join(d.choices, ", ")),
			Value: raw,
			Flag:  flag,
		}
	} else if err != nil {
		return nil, &ErrInvalidValue{Cause: err, Value: raw, Flag: flag}
	}
	return v, nil
}

// convertEnv converts an environment variable value; lists are comma-separated.
func (d *argDecl) convertEnv(raw string) (any, error) {
	flag := "$" + d.env
	if d.shape != ShapeList {
		return d.convertAs(raw, flag)
	}
	items := []any{}
	if raw != "" {
		for _, s := range strings.Split(raw, ",") {
			v, err := d.convertAs(strings.TrimSpace(s), flag)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
	}
	return items, nil
}

// isFlagToken reports whether the token looks like a flag rather than a value; negative numbers are values.
func isFlagToken(token string) bool {
	if len(token) < 2 || token[0] != '-' {
		return false
	}
	if _, err := strconv.ParseFloat(token, 64); err == nil {
		return false
	}
	return true
}
