package cmd

import (
	"fmt"
	"path"
	"strings"
)

// validateNotePath checks a vault-relative note path given on the command
// line. Absolute paths and paths leaving the vault are rejected.
func validateNotePath(arg string) error {
	if strings.TrimSpace(arg) == "" {
		return fmt.Errorf("note path is empty")
	}
	if strings.ContainsRune(arg, 0) {
		return fmt.Errorf("note path contains a NUL byte")
	}

	slashed := strings.ReplaceAll(arg, "\\", "/")
	if path.IsAbs(slashed) || (len(slashed) > 1 && slashed[1] == ':') {
		return fmt.Errorf("note path must be relative to the vault: %s", arg)
	}
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return fmt.Errorf("path traversal attempt detected: %s", arg)
		}
	}
	return nil
}
