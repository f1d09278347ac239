package argschema

import (
	"fmt"
	"strings"
)

// wrapWriter accumulates text, breaking lines longer than its width at the last space. Every line started while an
// indent is set begins with that indent, including lines created by wrapping.
type wrapWriter struct {
	out       strings.Builder
	line      []rune
	lineStart int
	width     int
	indent    string
}

func newWrapWriter(width int) (*wrapWriter, error) {
	if width <= 0 {
		return nil, fmt.Errorf("illegal width: %d", width)
	}
	return &wrapWriter{width: width}, nil
}

func (w *wrapWriter) setIndent(indent string) error {
	if len(indent) >= w.width {
		return fmt.Errorf("invalid indent '%s': too large for width %d", indent, w.width)
	} else if strings.Contains(indent, "\n") {
		return fmt.Errorf("invalid indent '%s': cannot contain new lines", indent)
	}
	w.indent = indent
	return nil
}

func (w *wrapWriter) Write(p []byte) (int, error) {
	for _, r := range string(p) {
		switch {
		case r == '\n':
			w.endLine()
		case r == ' ' && len(w.line) >= w.width:
			// A space at the edge is a natural break; it is dropped
			w.endLine()
		default:
			if len(w.line) == 0 {
				w.line = append(w.line, []rune(w.indent)...)
				w.lineStart = len(w.line)
			}
			w.line = append(w.line, r)
			if len(w.line) > w.width && r != ' ' {
				w.wrap()
			}
		}
	}
	return len(p), nil
}

// wrap moves the last word of the current line to a new line, if the line has a space to break at.
func (w *wrapWriter) wrap() {
	for j := len(w.line) - 1; j > w.lineStart; j-- {
		if w.line[j] == ' ' {
			tail := append([]rune(nil), w.line[j+1:]...)
			w.line = w.line[:j]
			w.endLine()
			w.line = append(w.line, []rune(w.indent)...)
			w.lineStart = len(w.line)
			w.line = append(w.line, tail...)
			return
		}
	}
}

func (w *wrapWriter) endLine() {
	w.out.WriteString(strings.TrimRight(string(w.line), " "))
	w.out.WriteByte('\n')
	w.line = w.line[:0]
	w.lineStart = 0
}

func (w *wrapWriter) String() string {
	return w.out.String() + strings.TrimRight(string(w.line), " ")
}
