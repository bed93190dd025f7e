package terminal

import (
	"runtime"
	"strings"
)

// Adapt rewrites model-issued command text for the local platform:
// path separators are normalized, privilege-elevation prefixes are
// stripped, and environment-variable assignment syntax is translated.
func Adapt(command string) string {
	return adaptFor(runtime.GOOS, command)
}

func adaptFor(goos, command string) string {
	command = strings.TrimSpace(command)
	command = stripElevation(command)

	if goos == "windows" {
		if assignment, ok := cutPrefixFold(command, "export "); ok {
			command = "set " + assignment
		}
		return strings.ReplaceAll(command, "/", `\`)
	}

	if assignment, ok := cutPrefixFold(command, "set "); ok && strings.Contains(assignment, "=") {
		command = "export " + assignment
	}
	return strings.ReplaceAll(command, `\`, "/")
}

// stripElevation removes leading sudo/doas prefixes. The assistant has
// no way to answer a password prompt, so elevated commands run plain.
func stripElevation(command string) string {
	for {
		switch {
		case strings.HasPrefix(command, "sudo "):
			command = strings.TrimSpace(strings.TrimPrefix(command, "sudo "))
		case strings.HasPrefix(command, "doas "):
			command = strings.TrimSpace(strings.TrimPrefix(command, "doas "))
		default:
			return command
		}
	}
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func shellName() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "bash"
}

func shellFlag() string {
	if runtime.GOOS == "windows" {
		return "/C"
	}
	return "-c"
}
