package extract

import (
	"strings"
	"unicode"
)

// Normalize strips control and other non-printable runes, collapses
// whitespace runs to single spaces, and drops separator-rule lines left
// behind by scanners. It is idempotent: Normalize(Normalize(s)) ==
// Normalize(s) for any input.
func Normalize(s string) string {
	if strings.ContainsAny(s, "-_") {
		s = dropRuleLines(s)
	}
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case !unicode.IsPrint(r):
			// control characters, stray surrogates, replacement noise
		default:
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	out := b.String()
	// collapsing can fuse an interrupted rule back together ("-\x01-" -> "--")
	if out != "" && strings.Trim(out, "-_") == "" {
		return ""
	}
	return out
}

// dropRuleLines removes lines that are nothing but a run of dashes or
// underscores, while line boundaries still exist.
func dropRuleLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if t := strings.TrimSpace(line); t != "" && strings.Trim(t, "-_") == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
