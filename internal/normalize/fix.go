package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/pantry-receipts/internal/textutil"
)

// digitLookalikes are digits OCR returns in place of letters. They are only
// swapped when the digit sits between two letters.
var digitLookalikes = map[rune]rune{'0': 'O', '1': 'I', '5': 'S', '8': 'B'}

var (
	reNumber   = regexp.MustCompile(`\d+[.,]?\d*`)
	reUnitWord = regexp.MustCompile(`(?i)KG|GRAM|GR|LITRE|LT|ML|ADET|ADT|AD|PCS|PC|G|L|X`)
	reSymbols  = regexp.MustCompile(`[%#*«»()\[\]{}.,;:!?\-_/\\|]`)
)

// misreads are literal substring corrections for words OCR gets wrong on
// Turkish receipts, plus brand fragments that carry no product meaning.
var misreads = strings.NewReplacer(
	"STY", "SİY",
	"SUT", "SÜT",
	"CAY", "ÇAY",
	"KGDOGS", "",
	"DOGS", "",
	"CANGA", "",
	"FLZ", "",
)

// FixOCR applies the deterministic corrections: Turkish upper case, letter
// lookalike digits inside words, quantity and unit removal, symbol noise and
// known misreads. The result is what the pattern layer matches against.
func FixOCR(raw string) string {
	s := textutil.UpperTR(strings.TrimSpace(raw))
	s = fixDigitLookalikes(s)
	s = reNumber.ReplaceAllString(s, "")
	s = textutil.ReplaceWords(reUnitWord, s, "")
	s = reSymbols.ReplaceAllString(s, " ")
	s = textutil.CollapseSpaces(s)
	s = misreads.Replace(s)
	return textutil.CollapseSpaces(s)
}

func fixDigitLookalikes(s string) string {
	rs := []rune(s)
	for i := 1; i < len(rs)-1; i++ {
		sub, ok := digitLookalikes[rs[i]]
		if ok && unicode.IsLetter(rs[i-1]) && unicode.IsLetter(rs[i+1]) {
			rs[i] = sub
		}
	}
	return string(rs)
}
