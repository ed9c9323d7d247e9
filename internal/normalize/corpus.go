package normalize

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/joseph-ayodele/pantry-receipts/internal/textutil"
)

// DefaultAliasConfidence is used when an alias is learned without a score.
const DefaultAliasConfidence = 60

// ManualAliasConfidence is the weight of an alias confirmed by a user.
const ManualAliasConfidence = 100

// CorpusEntry is one matchable text: a catalog product name or an alias
// pointing at a product. Canonical is the product's display name, which is
// what a match returns.
type CorpusEntry struct {
	Text       string
	ProductID  int64
	CategoryID *int
	Canonical  string
	Alias      bool
}

// CorpusSource is the storage behind the fuzzy layer and alias learning.
type CorpusSource interface {
	LoadEntries(ctx context.Context) ([]CorpusEntry, error)
	// UpsertAlias inserts alias for productID if no row with the same alias
	// text exists. Inserting an existing alias is not an error.
	UpsertAlias(ctx context.Context, alias string, productID int64, confidence int) error
}

// LabeledPair is a historical (raw OCR text, reviewed name) observation.
type LabeledPair struct {
	Raw        string
	Normalized string
}

// LabelSource supplies the labeled pairs the learned corpus is built from.
type LabelSource interface {
	LoadLabels(ctx context.Context) ([]LabeledPair, error)
}

var (
	reParen   = regexp.MustCompile(`\s*[\(\[\{].*?[\)\]\}]\s*`)
	reUnit    = regexp.MustCompile(`(?i)(\d+([.,]\d+)?\s*(kg|gr|g|ml|lt|l)|\d+\s*x\s*\d+\s*(g|ml))`)
	reNonWord = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

	unitSuffixes = []string{" kg", " gr", " g", " ml", " lt", " l", " adet", " paket"}
)

// CleanName is the corpus key for a product name or alias: NFKC case-folded,
// with parentheticals, quantities and punctuation removed.
func CleanName(name string) string {
	s := strings.ReplaceAll(strings.TrimSpace(name), "İ", "i")
	s = textutil.FoldKey(s)
	s = strings.ReplaceAll(s, "\u0307", "")

	s = reParen.ReplaceAllString(s, " ")
	s = textutil.ReplaceWords(reUnit, s, " ")
	s = strings.TrimSpace(s)
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(s, suf) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suf))
		}
	}
	s = reNonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// AliasKey is how alias text is stored: trimmed, NFKC and case-folded.
func AliasKey(alias string) string {
	return textutil.FoldKey(strings.TrimSpace(alias))
}

// ClampAliasConfidence bounds confidence to [0,100].
func ClampAliasConfidence(c int) int {
	return max(0, min(100, c))
}

// Snapshot is a read-only view of the fuzzy corpus.
type Snapshot struct {
	choices []string
	byKey   map[string]CorpusEntry
	canon   map[string]CorpusEntry
}

func NewSnapshot(entries []CorpusEntry) *Snapshot {
	s := &Snapshot{
		byKey: make(map[string]CorpusEntry, len(entries)),
		canon: map[string]CorpusEntry{},
	}
	for _, e := range entries {
		if e.Canonical == "" {
			e.Canonical = e.Text
		}
		if !e.Alias {
			for _, n := range []string{e.Canonical, e.Text} {
				if k := textutil.FoldKey(strings.TrimSpace(n)); k != "" {
					if _, ok := s.canon[k]; !ok {
						s.canon[k] = e
					}
				}
			}
		}
		key := CleanName(e.Text)
		if key == "" {
			continue
		}
		if _, seen := s.byKey[key]; !seen {
			s.choices = append(s.choices, key)
		}
		s.byKey[key] = e
	}
	return s
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.choices)
}

func (s *Snapshot) canonical(foldKey string) (CorpusEntry, bool) {
	if s == nil {
		return CorpusEntry{}, false
	}
	e, ok := s.canon[foldKey]
	return e, ok
}

// Lookup finds the entry whose cleaned text equals CleanName(name).
func (s *Snapshot) Lookup(name string) (CorpusEntry, bool) {
	if s == nil {
		return CorpusEntry{}, false
	}
	e, ok := s.byKey[CleanName(name)]
	return e, ok
}

// Best returns the highest scoring choice for the cleaned query. The first
// choice wins ties.
func (s *Snapshot) Best(cleaned string) (CorpusEntry, float64, bool) {
	if s == nil || cleaned == "" {
		return CorpusEntry{}, 0, false
	}
	var (
		bestKey   string
		bestScore = -1.0
	)
	for _, c := range s.choices {
		if sc := WRatio(cleaned, c); sc > bestScore {
			bestKey, bestScore = c, sc
			if sc == 100 {
				break
			}
		}
	}
	if bestScore < 0 {
		return CorpusEntry{}, 0, false
	}
	return s.byKey[bestKey], bestScore, true
}

// MemoryCorpus is an in-process CorpusSource and LabelSource.
type MemoryCorpus struct {
	mu       sync.Mutex
	products []CorpusEntry
	aliases  []CorpusEntry
	seen     map[string]struct{}
	labels   []LabeledPair
}

func NewMemoryCorpus(products []CorpusEntry, labels []LabeledPair) *MemoryCorpus {
	m := &MemoryCorpus{seen: map[string]struct{}{}, labels: labels}
	for _, p := range products {
		if p.Canonical == "" {
			p.Canonical = p.Text
		}
		m.products = append(m.products, p)
	}
	return m
}

func (m *MemoryCorpus) LoadEntries(context.Context) ([]CorpusEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CorpusEntry, 0, len(m.products)+len(m.aliases))
	out = append(out, m.products...)
	out = append(out, m.aliases...)
	return out, nil
}

func (m *MemoryCorpus) LoadLabels(context.Context) ([]LabeledPair, error) {
	return m.labels, nil
}

func (m *MemoryCorpus) UpsertAlias(_ context.Context, alias string, productID int64, _ int) error {
	key := AliasKey(alias)
	if key == "" || productID == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.seen[key]; dup {
		return nil
	}
	e := CorpusEntry{Text: key, ProductID: productID, Alias: true}
	for _, p := range m.products {
		if p.ProductID == productID {
			e.CategoryID, e.Canonical = p.CategoryID, p.Canonical
			break
		}
	}
	m.seen[key] = struct{}{}
	m.aliases = append(m.aliases, e)
	return nil
}

// Aliases returns the learned alias texts in insertion order.
func (m *MemoryCorpus) Aliases() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.aliases))
	for i, a := range m.aliases {
		out[i] = a.Text
	}
	return out
}
