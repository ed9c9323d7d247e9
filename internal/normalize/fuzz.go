package normalize

import (
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// indel counts a substitution as one deletion plus one insertion, which turns
// the Levenshtein distance into the InDel distance the ratios are based on.
var indel = levenshtein.NewParams().SubCost(2)

const unbaseScale = 0.95

// Ratio is the normalized InDel similarity of a and b, in [0,100].
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la+lb == 0 {
		return 100
	}
	d := levenshtein.Distance(a, b, indel)
	return 100 * (1 - float64(d)/float64(la+lb))
}

// PartialRatio is the best Ratio of the shorter string against any window of
// the longer one, windows overhanging either end included.
func PartialRatio(a, b string) float64 {
	s, l := []rune(a), []rune(b)
	if len(s) > len(l) {
		s, l = l, s
	}
	if len(s) == 0 {
		if len(l) == 0 {
			return 100
		}
		return 0
	}
	short := string(s)
	m := len(s)
	best := 0.0
	for start := -(m - 1); start < len(l); start++ {
		lo, hi := max(0, start), min(len(l), start+m)
		if r := Ratio(short, string(l[lo:hi])); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortedTokens(s string) []string {
	t := strings.Fields(s)
	slices.Sort(t)
	return t
}

func tokenSet(s string) []string {
	return slices.Compact(sortedTokens(s))
}

// splitSets returns the sorted intersection and both sorted differences.
func splitSets(a, b string) (common, onlyA, onlyB []string) {
	ta, tb := tokenSet(a), tokenSet(b)
	for _, t := range ta {
		if _, found := slices.BinarySearch(tb, t); found {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range tb {
		if _, found := slices.BinarySearch(ta, t); !found {
			onlyB = append(onlyB, t)
		}
	}
	return common, onlyA, onlyB
}

func tokenSortRatio(a, b string) float64 {
	return Ratio(strings.Join(sortedTokens(a), " "), strings.Join(sortedTokens(b), " "))
}

func tokenSetRatio(a, b string) float64 {
	common, onlyA, onlyB := splitSets(a, b)
	if len(common) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}
	sect := strings.Join(common, " ")
	ab := strings.Join(onlyA, " ")
	ba := strings.Join(onlyB, " ")
	if sect != "" {
		ab = sect + " " + ab
		ba = sect + " " + ba
	}
	res := Ratio(ab, ba)
	if sect != "" {
		res = math.Max(res, math.Max(Ratio(sect, ab), Ratio(sect, ba)))
	}
	return res
}

func tokenRatio(a, b string) float64 {
	return math.Max(tokenSortRatio(a, b), tokenSetRatio(a, b))
}

func partialTokenRatio(a, b string) float64 {
	common, onlyA, onlyB := splitSets(a, b)
	if len(common) > 0 {
		return 100
	}
	res := PartialRatio(strings.Join(tokenSet(a), " "), strings.Join(tokenSet(b), " "))
	if len(onlyA) == len(tokenSet(a)) && len(onlyB) == len(tokenSet(b)) {
		return res
	}
	return math.Max(res, PartialRatio(strings.Join(onlyA, " "), strings.Join(onlyB, " ")))
}

// WRatio combines the plain, partial and token ratios, scaling the partial
// ones down as the length difference grows. Empty input scores 0.
func WRatio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))
	end := Ratio(a, b)
	if lenRatio < 1.5 {
		return math.Max(end, tokenRatio(a, b)*unbaseScale)
	}
	partialScale := 0.9
	if lenRatio >= 8 {
		partialScale = 0.6
	}
	end = math.Max(end, PartialRatio(a, b)*partialScale)
	return math.Max(end, partialTokenRatio(a, b)*unbaseScale*partialScale)
}

// Threshold is the minimum WRatio accepted for a query of queryLen
// characters. Short queries need a closer match.
func Threshold(base, queryLen int) int {
	return max(60, min(85, base+(8-min(queryLen, 8))))
}
