package htmlutil

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements end a line of text when they open or close.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Tr: true,
}

// droppedElements have their content discarded along with the tags.
var droppedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Iframe: true, atom.Noscript: true, atom.Template: true,
}

// StripTags reduces a fragment of HTML to plain text. Block-level elements
// become line breaks, entities are decoded, whitespace inside a line is
// collapsed and blank lines are removed. Only complete tags naming a known
// element are removed, so text like "a<b" or "x<y>z" survives as written.
func StripTags(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skipDepth := 0
	consumed := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// an unterminated tag at the end is text the user typed
			if skipDepth == 0 && consumed < len(s) {
				b.WriteString(s[consumed:])
			}
			return normalize(b.String())
		}
		raw := z.Raw()
		consumed += len(raw)

		switch tt {
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			rawTag := string(raw)
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == 0 || !strings.HasSuffix(rawTag, ">") {
				if skipDepth == 0 {
					b.WriteString(rawTag)
				}
				continue
			}
			if droppedElements[a] {
				switch {
				case tt == html.StartTagToken:
					skipDepth++
				case tt == html.EndTagToken && skipDepth > 0:
					skipDepth--
				}
				continue
			}
			if blockElements[a] {
				b.WriteByte('\n')
			}
		case html.CommentToken, html.DoctypeToken:
		}
	}
}

// Sanitize turns user-supplied text into stored plain text and truncates it
// to at most max runes. A max of 0 means no limit.
func Sanitize(s string, max int) string {
	out := StripTags(s)
	if max > 0 {
		if r := []rune(out); len(r) > max {
			out = strings.TrimSpace(string(r[:max]))
		}
	}
	return out
}

func normalize(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
