package layout

import (
	"iter"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/bidi"

	"sbadm/common"
	"sbadm/entity"
)

var placeholderRe = regexp.MustCompile(`(?i)\{(name|he|his|him)\}`)

var pronouns = map[common.Gender]map[string]string{
	common.GenderMale:   {"he": "he", "his": "his", "him": "him"},
	common.GenderFemale: {"he": "she", "his": "hers", "him": "her"},
	common.GenderBoth:   {"he": "they", "his": "their", "him": "them"},
}

// Substitute replaces {name} with reader name (upper-cased when asked) and
// {he}, {his}, {him} with pronouns for gender. Tokens are matched ignoring
// case, token starting with capital letter produces capitalized
// replacement. With empty name {name} is left as is.
func Substitute(text, name string, gender common.Gender, upper bool) string {
	name = strings.TrimSpace(name)
	if upper {
		name = cases.Upper(language.Und).String(name)
	}
	set, ok := pronouns[gender]
	if !ok {
		set = pronouns[common.GenderBoth]
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(token string) string {
		word := strings.ToLower(token[1 : len(token)-1])
		var repl string
		if word == "name" {
			if name == "" {
				return token
			}
			repl = name
		} else {
			repl = set[word]
		}
		if r, _ := utf8.DecodeRuneInString(token[1:]); unicode.IsUpper(r) {
			repl = capitalize(repl)
		}
		return repl
	})
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// CoverText is cover meta with placeholders resolved.
type CoverText struct {
	Headline string
	Body     string
	Footer   string
}

// ResolveCoverText substitutes placeholders in cover strings. Per page
// UppercaseName setting wins over upper argument.
func ResolveCoverText(meta *entity.CoverMeta, readerName string, gender common.Gender, upper bool) CoverText {
	if meta == nil {
		return CoverText{}
	}
	if meta.UppercaseName != nil {
		upper = *meta.UppercaseName
	}
	return CoverText{
		Headline: Substitute(meta.Headline, readerName, gender, upper),
		Body:     Substitute(meta.Body, readerName, gender, upper),
		Footer:   Substitute(meta.Footer, readerName, gender, upper),
	}
}

// SplitLines splits on explicit line breaks only. Lines are kept verbatim,
// empty ones included.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// words iterates over non-empty words. NBSP does not separate words.
func words(in string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var word strings.Builder
		for _, sym := range in {
			if isSeparator(sym) {
				if word.Len() > 0 {
					if !yield(word.String()) {
						return
					}
					word.Reset()
				}
				continue
			}
			word.WriteRune(sym)
		}
		if word.Len() > 0 {
			yield(word.String())
		}
	}
}

func isSeparator(r rune) bool {
	if uint32(r) <= unicode.MaxLatin1 {
		switch r {
		case '\t', '\n', '\v', '\f', '\r', ' ', 0x85:
			return true
		}
		return false
	}
	return unicode.IsSpace(r)
}

// Wrap breaks text into lines not wider than maxWidth. Explicit line breaks
// are kept, words are broken on whitespace and only a single word wider
// than maxWidth is split between characters.
func Wrap(text string, maxWidth, size float64, bold bool, m Measurer) []string {
	var out []string
	for _, para := range SplitLines(text) {
		var line string
		empty := true
		for w := range words(para) {
			empty = false
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if m.Measure(candidate, size, bold) <= maxWidth {
				line = candidate
				continue
			}
			if line != "" {
				out = append(out, line)
			}
			line = w
			for m.Measure(line, size, bold) > maxWidth {
				head, tail := splitToFit(line, maxWidth, size, bold, m)
				out = append(out, head)
				line = tail
			}
		}
		if empty || line != "" {
			out = append(out, line)
		}
	}
	return out
}

// splitToFit cuts longest prefix fitting maxWidth, at least one grapheme
// cluster, so combining marks stay with their base letters.
func splitToFit(s string, maxWidth, size float64, bold bool, m Measurer) (string, string) {
	it := graphemes.FromString(s)
	it.Next()
	cut := it.End()
	for it.Next() && m.Measure(s[:it.End()], size, bold) <= maxWidth {
		cut = it.End()
	}
	return s[:cut], s[cut:]
}

// IsRTL reports whether first strong directional character of text is right
// to left.
func IsRTL(text string) bool {
	for i := 0; i < len(text); {
		props, size := bidi.LookupString(text[i:])
		if size == 0 {
			break
		}
		switch props.Class() {
		case bidi.R, bidi.AL:
			return true
		case bidi.L:
			return false
		}
		i += size
	}
	return false
}
