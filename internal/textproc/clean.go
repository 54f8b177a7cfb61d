package textproc

import (
	"regexp"
	"strings"
)

var (
	pageMarkerRe  = regexp.MustCompile(`(?i)Page\s*\d+\s*of\s*\d+`)
	isolatedNumRe = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	nonASCIIRe    = regexp.MustCompile(`[^\x00-\x7F]+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Clean normalizes raw extracted text into the form the rest of the
// pipeline consumes. It strips "Page X of Y" markers, lines that contain
// nothing but a number (usually page footers), and non-ASCII artifacts,
// then collapses all whitespace runs to a single space.
//
// One rule can expose another: removing encoding artifacts may leave a
// bare page number, and removing a footer line may join the halves of a
// page marker. The pass therefore repeats until the text stops changing,
// which is what makes Clean idempotent: Clean(Clean(s)) == Clean(s).
func Clean(raw string) string {
	s := cleanOnce(raw)
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = pageMarkerRe.ReplaceAllString(s, "")
	s = isolatedNumRe.ReplaceAllString(s, "")
	s = nonASCIIRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
