package warroom

import "regexp"

// highRiskPatterns flag command strings that warrant a war room review.
// This is an advisory routing signal for callers, less strict than the
// execution pipeline's dangerous-pattern filter: matching here routes a
// proposal into review, it does not block anything.
var highRiskPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(^|\s)sudo\s`),
	regexp.MustCompile(`git\s+push\s+[^|;]*(--force|-f)\b`),
	regexp.MustCompile(`npm\s+(install|i)\s+(-g|--global)\b`),
	regexp.MustCompile(`pip3?\s+install\s+[^|;]*--(user|break-system-packages)\b`),
	regexp.MustCompile(`brew\s+install\b`),
	regexp.MustCompile(`rm\s+(-[a-zA-Z]+\s+)*-[a-zA-Z]*[rR][a-zA-Z]*[fF]`),
	regexp.MustCompile(`rm\s+(-[a-zA-Z]+\s+)*-[a-zA-Z]*[fF][a-zA-Z]*[rR]`),
}

// RequiresWarRoom reports whether a command string is risky enough to
// route through the war room before execution.
func RequiresWarRoom(command string) bool {
	for _, p := range highRiskPatterns {
		if p.MatchString(command) {
			return true
		}
	}
	return false
}
