package normalize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func catalog() *MemoryCorpus {
	return NewMemoryCorpus([]CorpusEntry{
		{Text: "Domates", ProductID: 1, CategoryID: intPtr(2)},
		{Text: "Süt Yarım Yağlı", ProductID: 2, CategoryID: intPtr(20)},
		{Text: "Tomato", Canonical: "Domates", ProductID: 1, CategoryID: intPtr(2)},
	}, nil)
}

func TestNormalize_PatternMatchOnMilkLine(t *testing.T) {
	n := New(Config{}, nil, nil, nil)
	r := n.Normalize(context.Background(), "SÜT YARIM YAĞLI 1LT")

	assert.Equal(t, "Süt Yarım Yağlı", r.NormalizedName)
	assert.Equal(t, MethodPatternMatch, r.Method)
	assert.InDelta(t, 0.95, r.Confidence, 1e-9)
	assert.Equal(t, "SÜT YARIM YAĞLI 1LT", r.OriginalText)
	assert.False(t, r.Match.Linked())
}

func TestNormalize_PatternMatchLinksCatalogProduct(t *testing.T) {
	n := New(Config{}, catalog(), nil, nil)
	r := n.Normalize(context.Background(), "SÜT YARIM YAĞLI 1LT")

	assert.Equal(t, MethodPatternMatch, r.Method)
	require.True(t, r.Match.Linked())
	assert.Equal(t, int64(2), *r.Match.ProductID)
	assert.Equal(t, 20, *r.Match.CategoryID)
	assert.Equal(t, 95, r.Match.Score)
}

func TestNormalize_CanonicalNamesAreStable(t *testing.T) {
	n := New(Config{}, catalog(), nil, nil)
	ctx := context.Background()

	for _, name := range append(CuratedNames(), "Domates", "Tomato") {
		r := n.Normalize(ctx, name)
		assert.Equal(t, MethodExactMatch, r.Method, name)
		assert.GreaterOrEqual(t, r.Confidence, ExactMatchConfidence, name)
	}

	r := n.Normalize(ctx, "Domates")
	assert.Equal(t, "Domates", r.NormalizedName)
	require.True(t, r.Match.Linked())
	assert.Equal(t, int64(1), *r.Match.ProductID)

	again := n.Normalize(ctx, r.NormalizedName)
	assert.Equal(t, r.NormalizedName, again.NormalizedName)

	en := n.Normalize(ctx, "Tomato")
	assert.Equal(t, "Domates", en.NormalizedName)
}

func TestNormalize_LearnedExactAndKeyword(t *testing.T) {
	learned := NewLearned([]LabeledPair{
		{Raw: "DMTS SALKIM", Normalized: "Salkım Domates"},
	})
	n := New(Config{}, catalog(), learned, nil)
	ctx := context.Background()

	r := n.Normalize(ctx, "DMTS SALKIM 1KG")
	assert.Equal(t, MethodExactMatch, r.Method)
	assert.Equal(t, "Salkım Domates", r.NormalizedName)

	r = n.Normalize(ctx, "DMTS SALKIM TAZE")
	assert.Equal(t, MethodKeywordMatch, r.Method)
	assert.Equal(t, "Salkım Domates", r.NormalizedName)
	assert.InDelta(t, 2.0/3.0, r.Confidence, 1e-9)
}

func TestNormalize_AcceptedPatternNeverFallsThrough(t *testing.T) {
	learned := NewLearned([]LabeledPair{{Raw: "DMTS SALKIM", Normalized: "Salkım Domates"}})
	n := New(Config{}, catalog(), learned, nil)
	ctx := context.Background()

	for _, raw := range []string{"SÜT YARIM YAĞLI 1LT", "STYAH CAY 1KG", "DMTS SALKIM TAZE", "PEYN1R 500GR"} {
		r := n.Normalize(ctx, raw)
		assert.GreaterOrEqual(t, r.Confidence, DefaultPatternAccept, raw)
		assert.NotEqual(t, MethodFuzzyMatch, r.Method, raw)
		assert.NotEqual(t, MethodBasicCleanup, r.Method, raw)
	}
}

func TestNormalize_FuzzyMatch(t *testing.T) {
	n := New(Config{}, catalog(), nil, nil)
	r := n.Normalize(context.Background(), "DOMATEZ")

	assert.Equal(t, MethodFuzzyMatch, r.Method)
	assert.Equal(t, "Domates", r.NormalizedName)
	assert.InDelta(t, 1-2.0/14.0, r.Confidence, 1e-6)
	require.True(t, r.Match.Linked())
	assert.Equal(t, int64(1), *r.Match.ProductID)
	assert.Equal(t, 2, *r.Match.CategoryID)
	assert.Equal(t, 85, r.Match.Score)
}

func TestNormalize_Fallbacks(t *testing.T) {
	n := New(Config{}, catalog(), nil, nil)
	ctx := context.Background()

	r := n.Normalize(ctx, "KALEM")
	assert.Equal(t, MethodBasicCleanup, r.Method)
	assert.Equal(t, "Kalem", r.NormalizedName)
	assert.InDelta(t, BasicCleanupConfidence, r.Confidence, 1e-9)
	assert.False(t, r.Match.Linked())

	r = n.Normalize(ctx, "12 KG")
	assert.Equal(t, MethodOCRFallback, r.Method)
	assert.Equal(t, "12 Kg", r.NormalizedName)
	assert.InDelta(t, OCRFallbackConfidence, r.Confidence, 1e-9)
}

func TestNormalize_StrictNonFoodSkipsLearned(t *testing.T) {
	learned := NewLearned([]LabeledPair{{Raw: "POSET BUYUK", Normalized: "Poşet"}})
	n := New(Config{}, nil, learned, nil)

	r := n.Normalize(context.Background(), "POSET BUYUK")
	assert.Equal(t, MethodBasicCleanup, r.Method)
	assert.Equal(t, "Poset Buyuk", r.NormalizedName)
}

func TestLearnAlias_Idempotent(t *testing.T) {
	src := catalog()
	n := New(Config{}, src, nil, nil)
	ctx := context.Background()

	require.NoError(t, n.LearnAlias(ctx, "DMTS 1KG", 1, 150))
	require.NoError(t, n.LearnAlias(ctx, "  dmts 1kg ", 1, 40))
	require.NoError(t, n.LearnAlias(ctx, "", 1, 40))
	require.NoError(t, n.LearnAlias(ctx, "XYZ", 0, 40))

	assert.Equal(t, []string{"dmts 1kg"}, src.Aliases())
}

func TestLearnAlias_FeedsFuzzyAfterReload(t *testing.T) {
	src := catalog()
	n := New(Config{}, src, nil, nil)
	ctx := context.Background()

	before := n.Normalize(ctx, "DMTS")
	assert.Equal(t, MethodBasicCleanup, before.Method)

	require.NoError(t, n.LearnAlias(ctx, "DMTS", 1, 80))
	require.NoError(t, n.Reload(ctx))

	after := n.Normalize(ctx, "DMTS")
	assert.Equal(t, MethodFuzzyMatch, after.Method)
	assert.Equal(t, "Domates", after.NormalizedName)
	assert.Equal(t, int64(1), *after.Match.ProductID)
}

type countingSource struct {
	*MemoryCorpus
	loads int
	fail  int
}

func (c *countingSource) LoadEntries(ctx context.Context) ([]CorpusEntry, error) {
	c.loads++
	if c.fail > 0 {
		c.fail--
		return nil, errors.New("catalog offline")
	}
	return c.MemoryCorpus.LoadEntries(ctx)
}

func TestNormalize_CorpusLoadedOnce(t *testing.T) {
	src := &countingSource{MemoryCorpus: catalog()}
	n := New(Config{}, src, nil, nil)
	ctx := context.Background()

	n.Normalize(ctx, "DOMATEZ")
	n.Normalize(ctx, "DOMATEZ")
	assert.Equal(t, 1, src.loads)
	assert.Equal(t, 3, n.CorpusSize())
}

func TestNormalize_CorpusFailureRetried(t *testing.T) {
	src := &countingSource{MemoryCorpus: catalog(), fail: 1}
	n := New(Config{}, src, nil, nil)
	ctx := context.Background()

	r := n.Normalize(ctx, "DOMATEZ")
	assert.Equal(t, MethodBasicCleanup, r.Method)

	r = n.Normalize(ctx, "DOMATEZ")
	assert.Equal(t, MethodFuzzyMatch, r.Method)
	assert.Equal(t, 2, src.loads)
}

func TestFixOCR(t *testing.T) {
	cases := map[string]string{
		"SÜT YARIM YAĞLI 1LT": "SÜT YARIM YAĞLI",
		"PEYN1R 500GR":        "PEYNIR",
		"STYAH CAY 1KG":       "SİYAH ÇAY",
		"sut  *  kakao":       "SÜT KAKAO",
		"12 KG":               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, FixOCR(in), in)
	}
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "süt yarım yağlı", CleanName("Süt (1 LT) Yarım Yağlı 500 gr"))
	assert.Equal(t, "piliç bonfile", CleanName("PİLİÇ BONFİLE"))
	assert.Equal(t, "domates", CleanName("Domates 1 kg"))
	assert.Equal(t, "ketçap", CleanName("Ketçap!!"))
	assert.Equal(t, "", CleanName("  "))
}

func TestLearned(t *testing.T) {
	l := NewLearned([]LabeledPair{
		{Raw: "KASAR PEY", Normalized: "Kaşar Peyniri"},
		{Raw: "BEYAZ PEY", Normalized: "Beyaz Peynir"},
		{Raw: "XX", Normalized: "Xx Yy"},
		{Raw: "null test", Normalized: "null"},
		{Raw: "Elma", Normalized: "Elma"},
	})
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []string{"Kaşar Peyniri", "Beyaz Peynir"}, l.Names())

	name, ok := l.exactMatch(learnedKey("KASAR PEY 250 GR"))
	require.True(t, ok)
	assert.Equal(t, "Kaşar Peyniri", name)

	// "pey" votes for both; the first labeled one wins the tie
	name, conf, ok := l.keywordMatch("pey taze")
	require.True(t, ok)
	assert.Equal(t, "Kaşar Peyniri", name)
	assert.InDelta(t, 0.5, conf, 1e-9)

	name, conf, ok = l.keywordMatch("beyaz pey")
	require.True(t, ok)
	assert.Equal(t, "Beyaz Peynir", name)
	// every query word voted for the winner
	assert.InDelta(t, 1.0, conf, 1e-9)

	_, _, ok = l.keywordMatch("elma")
	assert.False(t, ok)
}

type failingLabels struct{}

func (failingLabels) LoadLabels(context.Context) ([]LabeledPair, error) {
	return nil, errors.New("boom")
}

func TestLoadLearned(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, 0, LoadLearned(ctx, failingLabels{}, nil).Len())
	assert.Equal(t, 0, LoadLearned(ctx, nil, nil).Len())

	src := NewMemoryCorpus(nil, []LabeledPair{{Raw: "DMTS SALKIM", Normalized: "Salkım Domates"}})
	assert.Equal(t, 1, LoadLearned(ctx, src, nil).Len())
}

func TestAliasConfidence(t *testing.T) {
	assert.Equal(t, 86, AliasConfidence(NormalizationResult{Confidence: 0.857}))
	assert.Equal(t, DefaultAliasConfidence, AliasConfidence(NormalizationResult{}))
	assert.Equal(t, 100, ClampAliasConfidence(150))
	assert.Equal(t, 0, ClampAliasConfidence(-3))
}

func TestMatchCurated_ShortNamesNeedWordBoundary(t *testing.T) {
	_, _, ok := matchCurated("TUNA")
	assert.False(t, ok)

	name, conf, ok := matchCurated("UN 1KG")
	require.True(t, ok)
	assert.Equal(t, "Un", name)
	assert.InDelta(t, 2.0/6.0*1.2, conf, 1e-9)

	r := New(Config{}, nil, nil, nil).Normalize(context.Background(), "TUNA")
	assert.NotEqual(t, "Un", r.NormalizedName)
	assert.NotEqual(t, MethodPatternMatch, r.Method)
}
