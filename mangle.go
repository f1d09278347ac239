package argschema

import (
	"strings"
)

// NegationPrefix is prepended to a boolean flag's name to form the token that sets it to false.
const NegationPrefix = "no"

const flagTokenPrefix = "--"

// MangleOptional returns the flag token of the field at the given key: only the last segment is used, underscores
// become dashes, and the result is "--name", or "--prefix-name" when a prefix is given.
func MangleOptional(k Key, prefix string) string {
	name := strings.ReplaceAll(k.Last(), "_", "-")
	if prefix != "" {
		return flagTokenPrefix + prefix + "-" + name
	}
	return flagTokenPrefix + name
}

// DemangleOptional inverts MangleOptional, returning the last-segment field name encoded in the given token.
func DemangleOptional(token, prefix string) (string, bool) {
	name, ok := strings.CutPrefix(token, flagTokenPrefix)
	if !ok {
		return "", false
	}
	if prefix != "" {
		if name, ok = strings.CutPrefix(name, prefix+"-"); !ok {
			return "", false
		}
	}
	if name == "" {
		return "", false
	}
	return strings.ReplaceAll(name, "-", "_"), true
}

// ManglePositional returns the positional (or sub-command) token of the given key: the last segment, lower-cased,
// optionally rendered as "prefix_name".
func ManglePositional(k Key, prefix string) string {
	name := strings.ToLower(k.Last())
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

// DemanglePositional inverts ManglePositional. Since mangling lower-cases the name, the returned name is equal to
// the original one only up to case.
func DemanglePositional(token, prefix string) (string, bool) {
	name := token
	if prefix != "" {
		var ok bool
		if name, ok = strings.CutPrefix(token, prefix+"_"); !ok {
			return "", false
		}
	}
	if name == "" {
		return "", false
	}
	return name, true
}

// negatedToken returns the token disabling the boolean field at the given key.
func negatedToken(k Key) string {
	return MangleOptional(k, NegationPrefix)
}
