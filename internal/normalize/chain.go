package normalize

import (
	"math"

	"github.com/joseph-ayodele/pantry-receipts/internal/textutil"
)

// Query is one item passing through the chain. Original is the parser's
// name with spaces collapsed, Fixed is Original after FixOCR, and Corpus is
// the fuzzy corpus snapshot, possibly empty.
type Query struct {
	Original string
	Fixed    string
	Corpus   *Snapshot
}

// Strategy is one layer of the cascade. Apply reports false when the layer
// has no answer it is willing to stand behind.
type Strategy interface {
	Name() string
	Apply(q *Query) (NormalizationResult, bool)
}

// DeterministicFix recognizes text that already is a canonical name. Its
// corrections are carried to later layers through Query.Fixed.
type DeterministicFix struct {
	// canonical maps FoldKey(name) to the display name, for names known
	// without the catalog (curated table and learned labels).
	canonical map[string]string
}

func NewDeterministicFix(learned *Learned) *DeterministicFix {
	d := &DeterministicFix{canonical: map[string]string{}}
	for _, n := range CuratedNames() {
		d.canonical[textutil.FoldKey(n)] = n
	}
	for _, n := range learned.Names() {
		if _, ok := d.canonical[textutil.FoldKey(n)]; !ok {
			d.canonical[textutil.FoldKey(n)] = n
		}
	}
	return d
}

func (d *DeterministicFix) Name() string { return "deterministic_fix" }

func (d *DeterministicFix) Apply(q *Query) (NormalizationResult, bool) {
	if q.Original == "" {
		return NormalizationResult{}, false
	}
	key := textutil.FoldKey(q.Original)
	if e, ok := q.Corpus.canonical(key); ok {
		r := NormalizationResult{
			NormalizedName: e.Canonical,
			Confidence:     ExactMatchConfidence,
			Method:         MethodExactMatch,
			OriginalText:   q.Original,
		}
		r.Match = linkedMatch(e, r.NormalizedName, 100)
		return r, true
	}
	if name, ok := d.canonical[key]; ok {
		return NormalizationResult{
			NormalizedName: name,
			Confidence:     ExactMatchConfidence,
			Method:         MethodExactMatch,
			OriginalText:   q.Original,
			Match:          ProductMatch{NormalizedName: name, Score: 100},
		}, true
	}
	return NormalizationResult{}, false
}

// PatternMatch consults the learned corpus for an exact hit, then takes the
// stronger of the curated table and learned keyword voting.
type PatternMatch struct {
	learned *Learned
	accept  float64
}

func NewPatternMatch(learned *Learned, accept float64) *PatternMatch {
	return &PatternMatch{learned: learned, accept: accept}
}

func (p *PatternMatch) Name() string { return "pattern_match" }

func (p *PatternMatch) Apply(q *Query) (NormalizationResult, bool) {
	res := NormalizationResult{OriginalText: q.Original}

	learnable := !isStrictNonFood(q.Original)
	key := learnedKey(q.Original)
	if learnable {
		if name, ok := p.learned.exactMatch(key); ok {
			res.NormalizedName, res.Confidence, res.Method = name, ExactMatchConfidence, MethodExactMatch
			return res, true
		}
	}

	if name, conf, ok := matchCurated(q.Fixed); ok {
		res.NormalizedName, res.Confidence, res.Method = name, conf, MethodPatternMatch
	}
	if learnable {
		if name, conf, ok := p.learned.keywordMatch(key); ok && conf > res.Confidence {
			res.NormalizedName, res.Confidence, res.Method = name, conf, MethodKeywordMatch
		}
	}
	if res.Method == "" || res.Confidence < p.accept {
		return NormalizationResult{}, false
	}
	return res, true
}

// matchCurated returns the curated name with the best span coverage of text.
// Confidence is min(0.95, span/len(text) * 1.2); earlier patterns win ties.
func matchCurated(text string) (string, float64, bool) {
	n := textutil.RuneLen(text)
	if n == 0 {
		return "", 0, false
	}
	var (
		best     string
		bestConf float64
	)
	for _, p := range curatedPatterns {
		m := p.find(text)
		if m == "" {
			continue
		}
		conf := math.Min(ExactMatchConfidence, float64(textutil.RuneLen(m))/float64(n)*1.2)
		if conf > bestConf {
			best, bestConf = p.name, conf
		}
	}
	return best, bestConf, best != ""
}

// FuzzyMatch scores the cleaned query against the catalog and alias corpus
// with WRatio and accepts at or above Threshold.
type FuzzyMatch struct {
	base int
}

func NewFuzzyMatch(base int) *FuzzyMatch {
	return &FuzzyMatch{base: base}
}

func (f *FuzzyMatch) Name() string { return "fuzzy_match" }

func (f *FuzzyMatch) Apply(q *Query) (NormalizationResult, bool) {
	cleaned := CleanName(q.Original)
	if cleaned == "" || q.Corpus.Len() == 0 {
		return NormalizationResult{}, false
	}
	e, score, ok := q.Corpus.Best(cleaned)
	if !ok || score < float64(Threshold(f.base, textutil.RuneLen(cleaned))) {
		return NormalizationResult{}, false
	}
	r := NormalizationResult{
		NormalizedName: e.Canonical,
		Confidence:     score / 100,
		Method:         MethodFuzzyMatch,
		OriginalText:   q.Original,
	}
	r.Match = linkedMatch(e, e.Canonical, int(score))
	return r, true
}

func linkedMatch(e CorpusEntry, name string, score int) ProductMatch {
	pid := e.ProductID
	return ProductMatch{
		NormalizedName: name,
		ProductID:      &pid,
		CategoryID:     e.CategoryID,
		Score:          score,
	}
}
