package infrastructure

import "strings"

// ShellEscape escapes a string for display in a shell command line.
// Only used when logging commands; exec.Command takes arguments verbatim.
func ShellEscape(s string) string {
	if s == "" {
		return "''"
	}

	if !strings.ContainsFunc(s, isShellSpecialChar) {
		return s
	}

	// Single quotes protect everything but a single quote, which becomes '"'"'
	var result strings.Builder
	result.WriteString("'")
	for _, c := range s {
		if c == '\'' {
			result.WriteString("'\"'\"'")
		} else {
			result.WriteRune(c)
		}
	}
	result.WriteString("'")
	return result.String()
}

// ShellEscapeCommand creates a shell-safe command line string for logging.
func ShellEscapeCommand(binary string, args ...string) string {
	escaped := ShellEscape(binary)
	for _, arg := range args {
		escaped += " " + ShellEscape(arg)
	}
	return escaped
}

// QuoteExecArg quotes one argument of a desktop entry Exec key.
// Double quotes are always added, and ", `, $ and \ are backslash-escaped.
func QuoteExecArg(s string) string {
	var result strings.Builder
	result.WriteByte('"')
	for _, c := range s {
		switch c {
		case '"', '`', '$', '\\':
			result.WriteByte('\\')
		}
		result.WriteRune(c)
	}
	result.WriteByte('"')
	return result.String()
}

func isShellSpecialChar(c rune) bool {
	switch c {
	case ' ', '\t', '\'', '"', '$', '`', '\\', '!', '*', '?', '[', ']',
		'(', ')', '{', '}', '|', ';', '<', '>', '&', '~', '#', '%', '\n', '\r':
		return true
	default:
		return false
	}
}
