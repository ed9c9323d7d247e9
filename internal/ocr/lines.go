package ocr

import (
	"strings"
)

type lineKey struct {
	block, par, line int
}

// AggregateLines groups tokens by their (block, paragraph, line) index in
// order of first appearance, joins their text with single spaces and
// averages the non-negative confidences. Blank tokens are ignored; line
// numbers are assigned 1..n.
func AggregateLines(tokens []Token) []RawLine {
	type acc struct {
		words []string
		sum   float64
		n     int
	}
	var order []lineKey
	groups := make(map[lineKey]*acc)

	for _, t := range tokens {
		txt := strings.TrimSpace(t.Text)
		if txt == "" {
			continue
		}
		k := lineKey{t.Block, t.Paragraph, t.Line}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
			order = append(order, k)
		}
		a.words = append(a.words, txt)
		if t.Confidence >= 0 {
			a.sum += t.Confidence
			a.n++
		}
	}

	out := make([]RawLine, 0, len(order))
	for _, k := range order {
		a := groups[k]
		ln := RawLine{LineNumber: len(out) + 1, Text: strings.Join(a.words, " ")}
		if a.n > 0 {
			avg := a.sum / float64(a.n)
			ln.AvgConfidence = &avg
		}
		out = append(out, ln)
	}
	return out
}

// MeanConfidence averages the per-line confidences that are set; 0 if none are.
func MeanConfidence(lines []RawLine) float64 {
	var sum float64
	n := 0
	for _, l := range lines {
		if l.AvgConfidence != nil {
			sum += *l.AvgConfidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
