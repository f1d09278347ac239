package argschema

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/sys/unix"
)

// splitCamelCase converts a Go identifier such as "HTTPPort" or "MissingArg" into lower-case words joined by sep,
// e.g. "http_port" and "missing_arg" for '_'.
func splitCamelCase(name string, sep rune) string {
	runes := []rune(name)
	var result []rune
	for i, r := range runes {
		if i == 0 {
			result = append(result, unicode.ToLower(r))
		} else if unicode.IsUpper(r) {
			if unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) {
				result = append(result, sep)
			}
			result = append(result, unicode.ToLower(r))
		} else {
			if i >= 2 && unicode.IsUpper(runes[i-1]) && unicode.IsUpper(runes[i-2]) {
				last := result[len(result)-1]
				result = append(result[0:len(result)-1], sep, last)
			}
			result = append(result, r)
		}
	}
	return string(result)
}

func fieldNameToSchemaName(fieldName string) string {
	return splitCamelCase(fieldName, '_')
}

func schemaNameToEnvVarName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

// formatValue renders a field value for help screens.
func formatValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case EnumMember:
		return tv.Value
	case []any:
		parts := make([]string, len(tv))
		for i, e := range tv {
			parts[i] = formatValue(e)
		}
		return strings.Join(parts, ",")
	default:
		if IsUnset(v) {
			return ""
		}
		return fmt.Sprint(v)
	}
}

// EnvVarsArrayToMap converts "NAME=VALUE" pairs, as returned by os.Environ, into the map expected by Parse.
func EnvVarsArrayToMap(envVars []string) map[string]string {
	envVarsMap := make(map[string]string)
	for _, nameValue := range envVars {
		name, value, ok := strings.Cut(nameValue, "=")
		if !ok {
			panic(fmt.Sprintf("illegal environment variable: %s", nameValue))
		}
		envVarsMap[name] = value
	}
	return envVarsMap
}

func getTerminalWidth() int {
	fd := int(os.Stdout.Fd())
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 80
	}
	return int(ws.Col)
}
