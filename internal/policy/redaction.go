// Package policy masks sensitive content before it reaches logs.
package policy

import "regexp"

type redaction struct {
	kind        string
	pattern     *regexp.Regexp
	replacement string
}

// Order matters: card numbers would otherwise match the phone pattern, and
// an email address can contain digits.
var transcriptRedactions = []redaction{
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[email]"},
	{"secret", regexp.MustCompile(`\b(?:sk|pk|rk)[-_][A-Za-z0-9_\-]{16,}\b`), "[secret]"},
	{"card", regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[card]"},
	{"phone", regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[phone]"},
}

// RedactTranscript masks emails, API keys, card numbers and phone numbers in
// recognised speech. It returns the masked text and the kinds it replaced.
func RedactTranscript(text string) (string, []string) {
	var kinds []string
	for _, r := range transcriptRedactions {
		next := r.pattern.ReplaceAllString(text, r.replacement)
		if next != text {
			kinds = append(kinds, r.kind)
			text = next
		}
	}
	return text, kinds
}
