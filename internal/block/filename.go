package block

import (
	"regexp"
	"strings"
)

var (
	bracketChars   = regexp.MustCompile(`[\[\]{}()]`)
	unsafeChars    = regexp.MustCompile(`[^\w\-.]`)
	underscoreRuns = regexp.MustCompile(`_+`)
	hyphenRuns     = regexp.MustCompile(`-+`)
)

// Filename derives the block file name for a display name. The
// mapping is deterministic so a model always maps to the same file
// across runs: lowercase, spaces to hyphens, brackets dropped, any
// other unsafe rune to underscore, separator runs collapsed, trailing
// separators trimmed.
func Filename(displayName string) string {
	s := strings.ToLower(displayName)
	s = strings.ReplaceAll(s, " ", "-")
	s = bracketChars.ReplaceAllString(s, "")
	s = unsafeChars.ReplaceAllString(s, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.TrimRight(s, "-_")
	return s + ".yaml"
}
