package voice

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	fencedCodeRe   = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe   = regexp.MustCompile("`[^`]*`")
	markdownLinkRe = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	bareURLRe      = regexp.MustCompile(`https?://\S+`)
)

var markupReplacer = strings.NewReplacer(
	"*", " ",
	"_", " ",
	"#", " ",
	"|", " ",
	"~", " ",
	"<", " ",
	">", " ",
	"\\", " ",
)

// speakableText strips markdown and symbol noise from an agent reply before
// it is handed to a synthesiser. Whitespace runs collapse to one space.
func speakableText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = fencedCodeRe.ReplaceAllString(raw, " ")
	raw = inlineCodeRe.ReplaceAllString(raw, " ")
	raw = markdownLinkRe.ReplaceAllString(raw, "$1")
	raw = bareURLRe.ReplaceAllString(raw, " ")
	raw = markupReplacer.Replace(raw)

	var b strings.Builder
	b.Grow(len(raw))
	space := true
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			if !space {
				b.WriteByte(' ')
				space = true
			}
		case unicode.IsControl(r), r == '\u200d', r == '\ufe0f':
		case unicode.In(r, unicode.So, unicode.Sk):
			// emoji
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return strings.TrimSpace(b.String())
}
