// Package guard provides the static dangerous-pattern filter applied to
// candidate shell commands before they reach the execution pipeline.
//
// This is a blocklist, not a sandbox. It catches the well-known disaster
// shapes; a sufficiently obfuscated command bypasses it. That is a known,
// accepted limitation: the filter is advisory and must be
// combined with the approval gate for anything consequential.
package guard

import (
	"regexp"
	"strings"
)

// dangerousPatterns are the fixed disaster shapes. Matching any one of
// them classifies the command as dangerous.
var dangerousPatterns = []*regexp.Regexp{
	// Recursive deletion of the filesystem root.
	regexp.MustCompile(`(^|\s|;|&&|\|\|)rm\s+(-[a-zA-Z]+\s+)*-[a-zA-Z]*[rR][a-zA-Z]*\s+/+(\s|$|;)`),
	regexp.MustCompile(`rm\s+.*--no-preserve-root`),

	// Shell fork bomb.
	regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;?\s*:`),

	// Writing directly to raw disk devices.
	regexp.MustCompile(`>\s*/dev/(sd[a-z]|nvme\d+n\d+|hd[a-z])`),

	// Filesystem format utilities.
	regexp.MustCompile(`(^|\s|;|&&)mkfs(\.[a-z0-9]+)?\b`),

	// Raw disk dumps targeting devices.
	regexp.MustCompile(`(^|\s|;|&&)dd\s+[^|;]*of=/dev/`),

	// System credential file access.
	regexp.MustCompile(`/etc/shadow`),

	// Download-then-pipe-to-shell.
	regexp.MustCompile(`(curl|wget)\s+[^|;]*\|\s*(sudo\s+)?(ba|z|da)?sh\b`),
}

// IsDangerous reports whether command matches any known dangerous
// pattern. Pure function: identical input always yields identical output.
func IsDangerous(command string) bool {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return false
	}
	for _, p := range dangerousPatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}
