package ocr

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBest_ProductCountOutweighsConfidence(t *testing.T) {
	variants := []Variant{
		{Name: "a", Products: 4, MeanConfidence: 40},
		{Name: "b", Products: 2, MeanConfidence: 90},
	}
	assert.InDelta(t, 16.0, variants[0].Score(), 1e-9)
	assert.InDelta(t, 15.0, variants[1].Score(), 1e-9)
	assert.Equal(t, 0, SelectBest(variants))
}

func TestSelectBest_TiesAndFailures(t *testing.T) {
	t.Run("tie keeps first", func(t *testing.T) {
		vs := []Variant{{Name: "x", Products: 1}, {Name: "y", Products: 1}}
		assert.Equal(t, 0, SelectBest(vs))
	})
	t.Run("failed variants are skipped", func(t *testing.T) {
		vs := []Variant{{Name: "x", Products: 9, Err: errors.New("boom")}, {Name: "y"}}
		assert.Equal(t, 1, SelectBest(vs))
	})
	t.Run("nothing usable", func(t *testing.T) {
		assert.Equal(t, -1, SelectBest(nil))
		assert.Equal(t, -1, SelectBest([]Variant{{Err: errors.New("x")}}))
	})
}

func TestAggregateLines(t *testing.T) {
	tokens := []Token{
		{Text: "SUT", Confidence: 80, Block: 1, Paragraph: 1, Line: 1},
		{Text: "12,50", Confidence: 60, Block: 1, Paragraph: 1, Line: 1},
		{Text: "  ", Confidence: 95, Block: 1, Paragraph: 1, Line: 2},
		{Text: "EKMEK", Confidence: -1, Block: 1, Paragraph: 1, Line: 2},
		{Text: "TOPLAM", Confidence: 90, Block: 2, Paragraph: 1, Line: 1},
		{Text: "5,00", Confidence: -1, Block: 1, Paragraph: 1, Line: 2},
	}
	lines := AggregateLines(tokens)
	require.Len(t, lines, 3)

	assert.Equal(t, 1, lines[0].LineNumber)
	assert.Equal(t, "SUT 12,50", lines[0].Text)
	require.NotNil(t, lines[0].AvgConfidence)
	assert.InDelta(t, 70.0, *lines[0].AvgConfidence, 1e-9)

	assert.Equal(t, "EKMEK 5,00", lines[1].Text)
	assert.Nil(t, lines[1].AvgConfidence)

	assert.Equal(t, 3, lines[2].LineNumber)
	assert.Equal(t, "TOPLAM", lines[2].Text)

	assert.InDelta(t, 80.0, MeanConfidence(lines), 1e-9)
	assert.Equal(t, 0.0, MeanConfidence(nil))
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t640\t480\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t50\t12\t91.5\tSÜT\n" +
	"5\t1\t1\t1\t1\t2\t70\t10\t40\t12\t88\t12,50\n" +
	"5\t1\t1\t1\t2\t1\t10\t30\t50\t12\t-1\tEKMEK\n" +
	"short\tline\n"

func TestParseTSV(t *testing.T) {
	tokens := ParseTSV(sampleTSV)
	require.Len(t, tokens, 3)
	assert.Equal(t, Token{Text: "SÜT", Confidence: 91.5, Block: 1, Paragraph: 1, Line: 1}, tokens[0])
	assert.Equal(t, -1.0, tokens[2].Confidence)
	assert.Equal(t, 2, tokens[2].Line)
}

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	out   string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return nil, []byte("engine exploded"), f.err
	}
	return []byte(f.out), nil, nil
}

func TestTesseract_Recognize(t *testing.T) {
	fr := &fakeRunner{out: sampleTSV}
	eng := NewTesseract(TesseractConfig{TessdataDir: "/td", TmpDir: t.TempDir()}, fr, nil)

	pass := DefaultPasses("", 3)[0]
	tokens, err := eng.Recognize(context.Background(), []byte("png-bytes"), pass)
	require.NoError(t, err)
	assert.Len(t, tokens, 3)

	require.Len(t, fr.calls, 1)
	cmd := strings.Join(fr.calls[0], " ")
	assert.True(t, strings.HasPrefix(cmd, "tesseract "))
	assert.Contains(t, cmd, "stdout -l tur+eng --psm 6 --oem 3 --tessdata-dir /td tsv")

	fr.err = errors.New("exit status 1")
	_, err = eng.Recognize(context.Background(), []byte("png-bytes"), pass)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine exploded")
}

func TestDefaultPasses(t *testing.T) {
	passes := DefaultPasses("", 3)
	require.Len(t, passes, 3)
	assert.Equal(t, []PageSegMode{PSMSingleBlock, PSMSingleColumn, PSMSparseText},
		[]PageSegMode{passes[0].PSM, passes[1].PSM, passes[2].PSM})
	for _, p := range passes {
		assert.Equal(t, DefaultLang, p.Lang)
	}
}

func TestNewEngine(t *testing.T) {
	eng, err := NewEngine(EngineConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Tesseract{}, eng)

	_, err = NewEngine(EngineConfig{Kind: "paddle"}, nil)
	assert.Error(t, err)
}

// scriptedEngine returns canned lines per (image, psm) pair.
type scriptedEngine struct {
	out map[string][]Token
	err map[string]error
}

func (s scriptedEngine) Recognize(_ context.Context, img []byte, pass PassConfig) ([]Token, error) {
	key := string(img) + "/" + pass.Name
	if err := s.err[key]; err != nil {
		return nil, err
	}
	return s.out[key], nil
}

// priceCounter treats any line containing a comma as a product.
type priceCounter struct{}

func (priceCounter) CountProducts(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.Contains(l, ",") {
			n++
		}
	}
	return n
}

func line(n int, conf float64, words ...string) []Token {
	out := make([]Token, len(words))
	for i, w := range words {
		out[i] = Token{Text: w, Confidence: conf, Block: 1, Paragraph: 1, Line: n}
	}
	return out
}

func concat(ts ...[]Token) []Token {
	var out []Token
	for _, t := range ts {
		out = append(out, t...)
	}
	return out
}

func TestReconciler_PicksBestVariant(t *testing.T) {
	eng := scriptedEngine{
		out: map[string][]Token{
			"E/psm6": concat(line(1, 40, "SUT", "1,0"), line(2, 40, "UN", "2,0"), line(3, 40, "CAY", "3,0"), line(4, 40, "YAG", "4,0")),
			"E/psm4": concat(line(1, 90, "SUT", "1,0"), line(2, 90, "UN", "2,0")),
			"O/psm6": concat(line(1, 99, "TOPLAM")),
		},
		err: map[string]error{"O/psm4": errors.New("tesseract crashed")},
	}

	for _, parallel := range []bool{false, true} {
		r := NewReconciler(eng, priceCounter{}, nil, WithParallel(parallel))
		sel, err := r.Reconcile(context.Background(), Image{Name: "enhanced", Data: []byte("E")}, Image{Name: "original", Data: []byte("O")})
		require.NoError(t, err)

		assert.Len(t, sel.Variants, 6)
		assert.Equal(t, "enhanced/psm6", sel.Best.Name)
		assert.Equal(t, 4, sel.Best.Products)
		assert.Len(t, sel.Best.Lines, 4)
		assert.Error(t, sel.Variants[4].Err)
	}
}

func TestReconciler_EmptyIsNotAnError(t *testing.T) {
	r := NewReconciler(scriptedEngine{}, priceCounter{}, nil)
	sel, err := r.Reconcile(context.Background(), Image{Name: "enhanced", Data: []byte("E")})
	require.NoError(t, err)
	assert.Empty(t, sel.Best.Lines)
	assert.Equal(t, "enhanced/psm6", sel.Best.Name)
}

func TestReconciler_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReconciler(scriptedEngine{}, priceCounter{}, nil)
	_, err := r.Reconcile(ctx, Image{Name: "enhanced", Data: []byte("E")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 8))
	assert.Equal(t, "ab...(truncated)", truncate("abcdef", 2))
	// "ş" is two bytes; cutting inside it backs off to the rune start.
	assert.Equal(t, "a...(truncated)", truncate("aşb", 2))
}
