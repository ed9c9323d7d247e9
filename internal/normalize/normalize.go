// Package normalize maps noisy receipt product names to canonical names
// through an ordered chain of layers: deterministic fixes, curated and
// learned patterns, then fuzzy matching against the product catalog.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sync"

	"github.com/joseph-ayodele/pantry-receipts/internal/textutil"
)

// Method records which layer produced a NormalizationResult.
type Method string

const (
	MethodExactMatch   Method = "exact_match"
	MethodKeywordMatch Method = "keyword_match"
	MethodFuzzyMatch   Method = "fuzzy_match"
	MethodPatternMatch Method = "pattern_match"
	MethodBasicCleanup Method = "basic_cleanup"
	MethodOCRFallback  Method = "ocr_fallback"
)

const (
	ExactMatchConfidence   = 0.95
	BasicCleanupConfidence = 0.3
	OCRFallbackConfidence  = 0.1

	DefaultPatternAccept  = 0.6
	DefaultFuzzyBaseScore = 72
)

// ProductMatch links a normalized name to the catalog. ProductID is nil when
// the name did not resolve to a catalog product.
type ProductMatch struct {
	NormalizedName string
	ProductID      *int64
	CategoryID     *int
	Score          int
}

// Linked reports whether the match carries a catalog product.
func (m ProductMatch) Linked() bool { return m.ProductID != nil }

type NormalizationResult struct {
	NormalizedName string
	Confidence     float64
	Method         Method
	OriginalText   string
	Match          ProductMatch
}

type Config struct {
	PatternAccept  float64
	FuzzyBaseScore int
}

func (c Config) withDefaults() Config {
	if c.PatternAccept <= 0 {
		c.PatternAccept = DefaultPatternAccept
	}
	if c.FuzzyBaseScore <= 0 {
		c.FuzzyBaseScore = DefaultFuzzyBaseScore
	}
	return c
}

// Normalizer runs the chain. The fuzzy corpus is loaded from the source on
// first use and kept until Reload; each Normalizer holds its own snapshot.
type Normalizer struct {
	source CorpusSource
	chain  []Strategy
	logger *slog.Logger

	mu     sync.Mutex
	corpus *Snapshot
}

// New builds a Normalizer. source may be nil, in which case the fuzzy layer
// never matches and alias learning is a no-op.
func New(cfg Config, source CorpusSource, learned *Learned, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if learned == nil {
		learned = NewLearned(nil)
	}
	cfg = cfg.withDefaults()
	return &Normalizer{
		source: source,
		logger: logger,
		chain: []Strategy{
			NewDeterministicFix(learned),
			NewPatternMatch(learned, cfg.PatternAccept),
			NewFuzzyMatch(cfg.FuzzyBaseScore),
		},
	}
}

// Normalize returns exactly one result for raw. The first layer that answers
// wins; when none does, the fixed text is cleaned and title-cased.
func (n *Normalizer) Normalize(ctx context.Context, raw string) NormalizationResult {
	q := &Query{Original: textutil.CollapseSpaces(raw)}
	q.Fixed = FixOCR(q.Original)
	q.Corpus = n.snapshot(ctx)

	for _, s := range n.chain {
		if r, ok := s.Apply(q); ok {
			if !r.Match.Linked() {
				r.Match = n.link(q.Corpus, r)
			}
			n.logger.Debug("normalize.ok", "layer", s.Name(), "raw", q.Original,
				"name", r.NormalizedName, "method", r.Method, "confidence", r.Confidence)
			return r
		}
	}
	r := fallback(q)
	n.logger.Debug("normalize.fallback", "raw", q.Original, "name", r.NormalizedName, "method", r.Method)
	return r
}

// link attaches a catalog product to a name produced without the catalog,
// when the name is itself in the corpus. Method and confidence are kept.
func (n *Normalizer) link(corpus *Snapshot, r NormalizationResult) ProductMatch {
	m := r.Match
	m.NormalizedName = r.NormalizedName
	if m.Score == 0 {
		m.Score = int(math.Round(r.Confidence * 100))
	}
	if e, ok := corpus.Lookup(r.NormalizedName); ok {
		pid := e.ProductID
		m.ProductID, m.CategoryID = &pid, e.CategoryID
	}
	return m
}

var reNotWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

func fallback(q *Query) NormalizationResult {
	cleaned := textutil.CollapseSpaces(reNotWord.ReplaceAllString(q.Fixed, ""))
	if textutil.RuneLen(cleaned) >= 3 {
		name := textutil.TitleTR(cleaned)
		return NormalizationResult{
			NormalizedName: name,
			Confidence:     BasicCleanupConfidence,
			Method:         MethodBasicCleanup,
			OriginalText:   q.Original,
			Match:          ProductMatch{NormalizedName: name, Score: int(BasicCleanupConfidence * 100)},
		}
	}
	name := textutil.TitleTR(q.Original)
	return NormalizationResult{
		NormalizedName: name,
		Confidence:     OCRFallbackConfidence,
		Method:         MethodOCRFallback,
		OriginalText:   q.Original,
		Match:          ProductMatch{NormalizedName: name, Score: int(OCRFallbackConfidence * 100)},
	}
}

// snapshot returns the loaded corpus, loading it on first use. A failed load
// is logged and retried on the next call; meanwhile the fuzzy layer is empty.
func (n *Normalizer) snapshot(ctx context.Context) *Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.corpus != nil || n.source == nil {
		return n.corpus
	}
	s, err := n.load(ctx)
	if err != nil {
		n.logger.Warn("normalize.corpus.load_failed", "err", err)
		return nil
	}
	n.corpus = s
	return s
}

func (n *Normalizer) load(ctx context.Context) (*Snapshot, error) {
	entries, err := n.source.LoadEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	s := NewSnapshot(entries)
	n.logger.Info("normalize.corpus.loaded", "entries", s.Len())
	return s, nil
}

// Reload replaces the corpus snapshot with a fresh load. On error the old
// snapshot stays in place.
func (n *Normalizer) Reload(ctx context.Context) error {
	if n.source == nil {
		return errors.New("normalize: no corpus source")
	}
	s, err := n.load(ctx)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.corpus = s
	n.mu.Unlock()
	return nil
}

// CorpusSize is the number of distinct keys in the current snapshot.
func (n *Normalizer) CorpusSize() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.corpus.Len()
}

// LearnAlias records raw as an alias of productID. Confidence is clamped to
// [0,100]. Nothing is written for blank text or a zero product id.
func (n *Normalizer) LearnAlias(ctx context.Context, raw string, productID int64, confidence int) error {
	alias := AliasKey(raw)
	if n.source == nil || alias == "" || productID == 0 {
		return nil
	}
	if err := n.source.UpsertAlias(ctx, alias, productID, ClampAliasConfidence(confidence)); err != nil {
		return fmt.Errorf("upsert alias %q: %w", alias, err)
	}
	return nil
}

// AliasConfidence converts a result confidence to the 0..100 alias weight.
func AliasConfidence(r NormalizationResult) int {
	if r.Confidence <= 0 {
		return DefaultAliasConfidence
	}
	return ClampAliasConfidence(int(math.Round(r.Confidence * 100)))
}

// Names returns the names of the chain's layers in order.
func (n *Normalizer) Names() []string {
	out := make([]string, len(n.chain))
	for i, s := range n.chain {
		out[i] = s.Name()
	}
	return out
}
