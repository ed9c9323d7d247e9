package normalize

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/joseph-ayodele/pantry-receipts/internal/textutil"
)

var (
	quantityPatterns = compileFolded(
		`\d+\s*(kilogram|kg|gram|gr|g|litre|lt|ml|l|adet|pcs|piece|paket|pack)`,
		`\d+\s*x\s*\d+`,
		`\d+\s*%\s*\d+`,
		`\d+\s*,\s*\d+`,
		`\d+\.\d+`,
		`\d+`,
	)
	pricePatterns = compileFolded(
		`\d+\s*(tl|lira|₺|€|\$|usd|eur)`,
		`\d+\s*,\s*\d+\s*(tl|lira|₺|€|\$|usd|eur)`,
		`\d+\.\d+\s*(tl|lira|₺|€|\$|usd|eur)`,
		`\d+\s*(tl|lira|₺|€|\$|usd|eur)\s*\d+`,
	)

	strictNonFood = []string{
		"peçete", "peçet", "tissue", "paper", "kağıt", "kagit", "plastik", "plastic",
		"poşet", "poset", "bag", "kart", "card", "indirim", "discount", "promosyon", "remy",
	}
)

func compileFolded(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// learnedKey is the lookup form of a raw text in the learned corpus:
// compatibility-decomposed, lower-cased, without quantities or prices.
func learnedKey(raw string) string {
	s := textutil.CollapseSpaces(textutil.FoldCompat(raw))
	for _, re := range quantityPatterns {
		s = re.ReplaceAllString(s, "")
	}
	for _, re := range pricePatterns {
		s = re.ReplaceAllString(s, "")
	}
	return textutil.CollapseSpaces(s)
}

func isStrictNonFood(raw string) bool {
	low := strings.ToLower(raw)
	for _, k := range strictNonFood {
		if strings.Contains(low, k) {
			return true
		}
	}
	return false
}

// Learned is the corpus of labeled (raw, normalized) pairs. It is built once
// and never mutated afterwards.
type Learned struct {
	exact    map[string]string
	keywords map[string][]string
	names    []string
}

// NewLearned indexes pairs by full key and by every word longer than two
// characters. Pairs with an empty, "null" or unchanged label are skipped.
func NewLearned(pairs []LabeledPair) *Learned {
	l := &Learned{exact: map[string]string{}, keywords: map[string][]string{}}
	seenName := map[string]struct{}{}
	for _, p := range pairs {
		norm := strings.TrimSpace(p.Normalized)
		if p.Raw == "" || norm == "" || norm == "null" || norm == p.Raw {
			continue
		}
		key := learnedKey(p.Raw)
		if textutil.RuneLen(key) < 3 || textutil.RuneLen(norm) < 3 {
			continue
		}
		for _, w := range strings.Fields(key) {
			if textutil.RuneLen(w) <= 2 {
				continue
			}
			if !slices.Contains(l.keywords[w], norm) {
				l.keywords[w] = append(l.keywords[w], norm)
			}
		}
		l.exact[key] = norm
		if _, ok := seenName[norm]; !ok {
			seenName[norm] = struct{}{}
			l.names = append(l.names, norm)
		}
	}
	return l
}

// LoadLearned builds a Learned corpus from src. A load failure is logged and
// yields an empty corpus.
func LoadLearned(ctx context.Context, src LabelSource, logger *slog.Logger) *Learned {
	if logger == nil {
		logger = slog.Default()
	}
	if src == nil {
		return NewLearned(nil)
	}
	pairs, err := src.LoadLabels(ctx)
	if err != nil {
		logger.Error("normalize.labels.load_failed", "err", err)
		return NewLearned(nil)
	}
	l := NewLearned(pairs)
	logger.Info("normalize.labels.loaded", "patterns", len(l.exact), "keywords", len(l.keywords))
	return l
}

func (l *Learned) Len() int {
	if l == nil {
		return 0
	}
	return len(l.exact)
}

// Names lists the distinct normalized names in first-seen order.
func (l *Learned) Names() []string {
	if l == nil {
		return nil
	}
	return l.names
}

func (l *Learned) exactMatch(key string) (string, bool) {
	if l == nil {
		return "", false
	}
	v, ok := l.exact[key]
	return v, ok
}

// keywordMatch votes for normalized names sharing words with key. The name
// with the most votes wins, earliest vote first on ties; confidence is
// votes over the number of words in key.
func (l *Learned) keywordMatch(key string) (string, float64, bool) {
	if l == nil {
		return "", 0, false
	}
	words := strings.Fields(key)
	if len(words) == 0 {
		return "", 0, false
	}
	votes := map[string]int{}
	var order []string
	for _, w := range words {
		for _, name := range l.keywords[w] {
			if votes[name] == 0 {
				order = append(order, name)
			}
			votes[name]++
		}
	}
	if len(order) == 0 {
		return "", 0, false
	}
	best := order[0]
	for _, name := range order[1:] {
		if votes[name] > votes[best] {
			best = name
		}
	}
	return best, float64(votes[best]) / float64(len(words)), true
}
