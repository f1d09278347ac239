package argschema

import (
	"fmt"
	"io"
	"strings"
)

const helpDescription = "Show this help screen and exit."

// lookup returns the node of the given sub-command path.
func (p *Parser) lookup(command []string) (*node, error) {
	n := p.root
	for _, name := range command {
		var next *node
		if n.variant != nil {
			next = n.variant.lookup(name)
		}
		if next == nil {
			return nil, &ErrUnknownArgument{Argument: name}
		}
		n = next
	}
	return n, nil
}

// chain returns the nodes leading to this node, starting at the root.
func (n *node) chain() []*node {
	var chain []*node
	for c := n; c != nil; c = c.parent {
		chain = append([]*node{c}, chain...)
	}
	return chain
}

func (p *Parser) fullName(n *node) string {
	return strings.Join(append([]string{p.name}, n.path()...), " ")
}

// PrintHelp writes the help screen of the given sub-command path, wrapped to the given width.
func (p *Parser) PrintHelp(w io.Writer, command []string, width int) error {
	n, err := p.lookup(command)
	if err != nil {
		return err
	}
	ww, err := newWrapWriter(width)
	if err != nil {
		return err
	}

	prefix4 := strings.Repeat(" ", 4)
	fullName := p.fullName(n)

	// Command name & description
	if n.description != "" {
		_, _ = fmt.Fprint(ww, fullName)
		_, _ = fmt.Fprint(ww, ": ")
		_ = ww.setIndent(prefix4)
		_, _ = fmt.Fprintln(ww, n.description)
		_ = ww.setIndent("")
	} else {
		_, _ = fmt.Fprintln(ww, fullName)
	}
	_, _ = fmt.Fprintln(ww)

	// Usage line
	_, _ = fmt.Fprintln(ww, "Usage:")
	_ = ww.setIndent(prefix4)
	p.printUsage(ww, n)
	_ = ww.setIndent("")
	_, _ = fmt.Fprintln(ww)
	_, _ = fmt.Fprintln(ww)

	// Flags, then positional arguments
	flags := []helpEntry{{usage: "[" + helpToken + "]", description: helpDescription}}
	for _, d := range n.flags {
		flags = append(flags, helpEntry{usage: d.usage(), description: d.description()})
	}
	printEntries(ww, "Flags:", flags)

	if len(n.positionals) > 0 {
		var positionals []helpEntry
		for _, d := range n.positionals {
			positionals = append(positionals, helpEntry{usage: d.usage(), description: d.description()})
		}
		printEntries(ww, "Arguments:", positionals)
	}

	// Sub-commands
	if n.variant != nil {
		var subCommands []helpEntry
		for _, b := range n.variant.branches {
			subCommands = append(subCommands, helpEntry{usage: b.name, description: b.description})
		}
		printEntries(ww, "Available sub-commands:", subCommands)
	}

	if _, err = w.Write([]byte(ww.String())); err != nil {
		return err
	}
	return nil
}

// PrintUsageLine writes the single usage line of the given sub-command path, wrapped to the given width.
func (p *Parser) PrintUsageLine(w io.Writer, command []string, width int) error {
	n, err := p.lookup(command)
	if err != nil {
		return err
	}
	ww, err := newWrapWriter(width)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprint(ww, "Usage: ")
	_ = ww.setIndent(strings.Repeat(" ", 4))
	p.printUsage(ww, n)
	_ = ww.setIndent("")
	_, _ = fmt.Fprintln(ww)

	if _, err = w.Write([]byte(ww.String())); err != nil {
		return err
	}
	return nil
}

// printUsage prints the arguments of every command in the chain, each after its command name.
func (p *Parser) printUsage(w io.Writer, n *node) {
	_, _ = fmt.Fprint(w, p.name)
	for _, c := range n.chain() {
		if c.parent != nil {
			_, _ = fmt.Fprint(w, " "+c.name)
		}
		for _, d := range c.decls() {
			_, _ = fmt.Fprint(w, " "+d.usage())
		}
	}
	if n.variant != nil {
		_, _ = fmt.Fprintf(w, " {%s} ...", strings.Join(n.variant.branchNames(), ","))
	}
}

type helpEntry struct {
	usage       string
	description string
}

// printEntries prints a titled two-column list; descriptions start at the tens-column following the longest usage.
func printEntries(ww *wrapWriter, title string, entries []helpEntry) {
	_, _ = fmt.Fprintln(ww, title)

	usageColWidth := 0
	for _, e := range entries {
		if len(e.usage) > usageColWidth {
			usageColWidth = len(e.usage)
		}
	}
	descriptionStartColumn := usageColWidth + (10 - usageColWidth%10)

	prefix4 := strings.Repeat(" ", 4)
	for _, e := range entries {
		_ = ww.setIndent(prefix4)
		_, _ = fmt.Fprint(ww, e.usage)
		_, _ = fmt.Fprint(ww, strings.Repeat(" ", descriptionStartColumn-len(e.usage)))
		_ = ww.setIndent(prefix4 + strings.Repeat(" ", descriptionStartColumn))
		_, _ = fmt.Fprintln(ww, e.description)
	}
	_ = ww.setIndent("")
	_, _ = fmt.Fprintln(ww)
}

// usage renders the argument as it appears in usage lines, e.g. "[--epochs=INT]" or "[--cuda|--no-cuda]".
func (d *argDecl) usage() string {
	var s string
	switch {
	case d.positional && d.shape == ShapeList:
		s = d.displayToken() + "..."
	case d.positional:
		s = d.displayToken()
	case d.shape == ShapeBoolPair:
		s = d.token + "|" + d.negToken
	case d.shape == ShapeList:
		s = d.token + "=" + d.metavar() + "..."
	default:
		s = d.token + "=" + d.metavar()
	}
	if !d.required {
		s = "[" + s + "]"
	}
	return s
}

// description renders the help text of the argument, followed by its default value and environment variable.
func (d *argDecl) description() string {
	var details []string
	if def := formatValue(d.def); def != "" {
		details = append(details, "default value: "+def)
	}
	if d.env != "" {
		details = append(details, "environment variable: "+d.env)
	}
	switch {
	case len(details) == 0:
		return d.help
	case d.help == "":
		return strings.Join(details, ", ")
	default:
		return d.help + " (" + strings.Join(details, ", ") + ")"
	}
}
