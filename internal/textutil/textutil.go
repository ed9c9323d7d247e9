// Package textutil holds Unicode-aware helpers shared by the parser and the
// normalizer. Go's regexp \b only understands ASCII word characters, which
// breaks on Turkish letters, so word-bounded matching is done here instead.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var reSpaces = regexp.MustCompile(`\s+`)

// IsWordRune reports whether r is a Unicode word character: letter, digit,
// nonspacing mark or underscore.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r)
}

func boundedAt(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		first, _ := utf8.DecodeRuneInString(s[start:])
		if IsWordRune(r) == IsWordRune(first) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		last, _ := utf8.DecodeLastRuneInString(s[:end])
		if IsWordRune(r) == IsWordRune(last) {
			return false
		}
	}
	return true
}

// ContainsWord reports whether re matches s with a Unicode word boundary on
// both sides of the match.
func ContainsWord(re *regexp.Regexp, s string) bool {
	for _, loc := range re.FindAllStringIndex(s, -1) {
		if loc[0] < loc[1] && boundedAt(s, loc[0], loc[1]) {
			return true
		}
	}
	return false
}

// FindWord returns the first word-bounded match of re in s.
func FindWord(re *regexp.Regexp, s string) (string, bool) {
	for _, loc := range re.FindAllStringIndex(s, -1) {
		if loc[0] < loc[1] && boundedAt(s, loc[0], loc[1]) {
			return s[loc[0]:loc[1]], true
		}
	}
	return "", false
}

// ReplaceWords replaces the word-bounded matches of re in s with repl.
func ReplaceWords(re *regexp.Regexp, s, repl string) string {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		if loc[0] == loc[1] || !boundedAt(s, loc[0], loc[1]) {
			continue
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(repl)
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// CollapseSpaces squeezes whitespace runs to one space and trims.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// FoldKey is NFKC followed by full case folding.
func FoldKey(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// FoldCompat is NFKD followed by lower casing, used for learned-corpus keys.
func FoldCompat(s string) string {
	return strings.ToLower(norm.NFKD.String(s))
}

// TitleTR title-cases with Turkish dotted/dotless i rules.
func TitleTR(s string) string {
	return cases.Title(language.Turkish).String(s)
}

// UpperTR upper-cases with Turkish rules (i -> İ).
func UpperTR(s string) string {
	return cases.Upper(language.Turkish).String(s)
}

// LowerTR lower-cases with Turkish rules (İ -> i, I -> ı).
func LowerTR(s string) string {
	return cases.Lower(language.Turkish).String(s)
}

// RuneLen counts characters, not bytes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
