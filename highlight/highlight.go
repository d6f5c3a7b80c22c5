// Package highlight marks the words of a text that match a search query.
//
// It is independent of ranking: it works on already-fetched text and does no I/O.
package highlight

import (
	"cmp"
	"html"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

// wordChars are the runes that make up a word. Combining marks are included
// so Devanagari and Telugu vowel signs do not split a word.
const wordChars = `\p{L}\p{M}\p{N}_`

// wordStart matches the start of text or a non-word rune. RE2 has no
// lookbehind, so the rune is consumed and matches are read from group 1.
const wordStart = `(?:^|[^` + wordChars + `])`

// MinTokenLength is the shortest query word that is matched. Shorter words
// ("a", "the", "fix") are ignored.
const MinTokenLength = 4

// Highlighter wraps matches in Open and Close.
type Highlighter struct {
	Open  string
	Close string
	// Escape HTML-escapes the text outside the markers.
	Escape bool
}

// Default wraps matches in a highlight span and leaves the text as is.
var Default = Highlighter{
	Open:  `<span class="highlight">`,
	Close: `</span>`,
}

// HTML is Default with the surrounding text escaped, safe to embed in a page.
var HTML = Highlighter{
	Open:   Default.Open,
	Close:  Default.Close,
	Escape: true,
}

// Terminal renders matches in bold for ANSI terminals.
var Terminal = Highlighter{
	Open:  "\x1b[1m",
	Close: "\x1b[0m",
}

// Tokens returns the query words that take part in matching: lowercased,
// stripped of surrounding punctuation, at least MinTokenLength runes long.
func Tokens(query string) []string {
	var out []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
		})
		if utf8.RuneCountInString(word) < MinTokenLength {
			continue
		}
		out = append(out, word)
	}
	return out
}

// Matches returns the words of text that start with a query token, e.g. the
// token "leak" matches "leaking". Matching is case-insensitive and whole-word.
// Each word is reported once, in the form it first appears in text.
func Matches(text, query string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, token := range Tokens(query) {
		re := regexp.MustCompile(`(?i)` + wordStart + `(` + regexp.QuoteMeta(token) + `[` + wordChars + `]*)`)
		for _, sub := range re.FindAllStringSubmatch(text, -1) {
			found := sub[1]
			key := strings.ToLower(found)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, found)
		}
	}
	return out
}

// Highlight wraps every whole-word, case-insensitive occurrence of each match
// using the Default markers. With no matches text is returned unchanged.
func Highlight(text string, matches []string) string {
	return Default.Highlight(text, matches)
}

// Highlight wraps every whole-word, case-insensitive occurrence of each match
// in h.Open and h.Close. All matches are applied in one pass, so markers are
// never nested and a marker is never itself matched.
func (h Highlighter) Highlight(text string, matches []string) string {
	re, words := pattern(matches)
	if re == nil {
		if h.Escape {
			return html.EscapeString(text)
		}
		return text
	}

	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if _, ok := words[strings.ToLower(text[start:end])]; !ok {
			// A longer word that only begins with a match.
			continue
		}
		b.WriteString(h.escape(text[last:start]))
		b.WriteString(h.Open)
		b.WriteString(h.escape(text[start:end]))
		b.WriteString(h.Close)
		last = end
	}
	b.WriteString(h.escape(text[last:]))
	return b.String()
}

func (h Highlighter) escape(s string) string {
	if h.Escape {
		return html.EscapeString(s)
	}
	return s
}

// pattern builds one alternation of all matches, longest first so that a
// longer word wins over its prefix at the same position. Each candidate runs
// to the end of its word and counts only if the whole word is in the returned set.
func pattern(matches []string) (*regexp.Regexp, map[string]struct{}) {
	set := make(map[string]struct{}, len(matches))
	words := make([]string, 0, len(matches))
	for _, m := range matches {
		if m != "" {
			w := strings.ToLower(m)
			set[w] = struct{}{}
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil, nil
	}
	slices.SortFunc(words, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
	})
	words = slices.Compact(words)

	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(`(?i)` + wordStart + `((?:` + strings.Join(quoted, "|") + `)[` + wordChars + `]*)`)
	return re, set
}

// Technician is a technician's display fields with query matches marked.
type Technician struct {
	Service     string   `json:"service"`
	Description string   `json:"description"`
	Specialties []string `json:"specialties"`
	Matches     []string `json:"matches"`
}

// Fields highlights the service, description and each specialty of t
// against query.
func (h Highlighter) Fields(t *core.Technician, query string) Technician {
	var out Technician
	seen := make(map[string]struct{})
	mark := func(text string) string {
		matches := Matches(text, query)
		for _, m := range matches {
			key := strings.ToLower(m)
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				out.Matches = append(out.Matches, m)
			}
		}
		return h.Highlight(text, matches)
	}

	out.Service = mark(t.Service)
	out.Description = mark(t.Description)
	out.Specialties = make([]string, len(t.Specialties))
	for i, s := range t.Specialties {
		out.Specialties[i] = mark(s)
	}
	return out
}

// Fields highlights t with the Default markers.
func Fields(t *core.Technician, query string) Technician {
	return Default.Fields(t, query)
}
