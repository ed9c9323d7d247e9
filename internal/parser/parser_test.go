package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_ProductWithDecimalComma(t *testing.T) {
	p := New(nil)
	item, ok := p.ParseLine("SÜT YARIM YAĞLI 1LT 12,50")
	require.True(t, ok)
	assert.Equal(t, "SÜT YARIM YAĞLI 1LT", item.RawName)
	assert.Equal(t, Price(1250), item.Price)
	assert.Equal(t, "12.50", item.Price.String())
	assert.Equal(t, "SÜT YARIM YAĞLI 1LT 12,50", item.OriginalLine)
}

func TestParseLine_TotalsAreDiscarded(t *testing.T) {
	p := New(nil)
	for _, ln := range []string{
		"TOPLAM 145,90",
		"ARA TOPLAM 120,00",
		"KDV 8,20",
		"NAKİT 200,00",
	} {
		_, ok := p.ParseLine(ln)
		assert.False(t, ok, ln)
	}
}

func TestParseLine_BoilerplateWithoutPrice(t *testing.T) {
	p := New(nil)
	for _, ln := range []string{
		"KASİYER: AHMET",
		"TEL: 0212 555 44 33",
		"TEŞEKKÜR EDERİZ",
		"FİŞ NO: 0042",
	} {
		_, ok := p.ParseLine(ln)
		assert.False(t, ok, ln)
	}
}

func TestParseLine_Grammars(t *testing.T) {
	cases := []struct {
		line  string
		name  string
		price Price
	}{
		{"EKMEK (%01): 7,50", "EKMEK", 750},
		{"YUMURTA %08 *12,00", "YUMURTA", 1200},
		{"ÇAYKUR 408 x14,95", "ÇAYKUR", 1495},
		{"MAKARNA 408 *3,50", "MAKARNA", 350},
		{"DOMATES SALCA 408 «31,95", "DOMATES SALCA", 3195},
		{"BISKUVI 408 »4,45", "BISKUVI", 445},
		{"LIMON #08 x1,15", "LIMON", 115},
		{"Mİ YUMURTA 15 LI 45,90", "Yumurta", 4590},
		{"TEL ŞEHRİYE 500G 9,75", "Tel Şehriye", 975},
	}
	p := New(nil)
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			item, ok := p.ParseLine(tc.line)
			require.True(t, ok)
			assert.Equal(t, tc.name, item.RawName)
			assert.Equal(t, tc.price, item.Price)
		})
	}
}

func TestParseLine_WeighedItem(t *testing.T) {
	cases := []struct {
		line  string
		price Price
	}{
		{"DOMATES 0,850KG x 45,90 = 39,02", 3902},
		{"DOMATES 0,850KG = 12,50", 1250},
		{"DOMATES 0,850 KG X 14,70 = 12,50", 1250},
	}
	p := New(nil)
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			item, ok := p.ParseLine(tc.line)
			require.True(t, ok)
			assert.Equal(t, "DOMATES", item.RawName)
			assert.Equal(t, tc.price, item.Price)
		})
	}
}

func TestParseLine_NonFoodRejected(t *testing.T) {
	p := New(nil)
	for _, ln := range []string{"POŞET 0,25", "PEÇETE 100LU 24,90", "DAPHNE SAMPUAN 89,90"} {
		_, ok := p.ParseLine(ln)
		assert.False(t, ok, ln)
	}
}

func TestParseLine_NoGrammar(t *testing.T) {
	p := New(nil)
	for _, ln := range []string{"", "SUT", "12,50", "AB 3,00"} {
		_, ok := p.ParseLine(ln)
		assert.False(t, ok, ln)
	}
}

func TestParseLines_CountsUnparsed(t *testing.T) {
	lines := []string{
		"MİGROS TİCARET A.Ş.",
		"SÜT YARIM YAĞLI 1LT 12,50",
		"TOPLAM 145,90",
		"EKMEK 7,50",
	}
	p := New(nil)
	res := p.ParseLines(lines)
	require.Len(t, res.Items, 2)
	assert.Equal(t, 2, res.Unparsed)
	assert.Equal(t, "EKMEK", res.Items[1].RawName)
	assert.Equal(t, 2, p.CountProducts(lines))
}

func TestParsePrice(t *testing.T) {
	cases := map[string]Price{
		"12,50":    1250,
		"12.50 TL": 1250,
		"3,7":      370,
		"₺5":       500,
		"2 ,00":    200,
		"3 99":     39900,
	}
	for in, want := range cases {
		got, ok := ParsePrice(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "TL", "abc"} {
		_, ok := ParsePrice(in)
		assert.False(t, ok, in)
	}
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "YUFKA", CleanName("YUKKA"))
	assert.Equal(t, "Kekik", CleanName("KEKIK 50G"))
	assert.Equal(t, "SOĞAN KURU", CleanName("SOGR KURU"))
	assert.Equal(t, "PEYNIR BEYAZ", CleanName("PEYNIR*BEYAZ 163,50"))
	assert.Equal(t, "", CleanName("X*"))
	assert.Equal(t, "", CleanName("EFSANE UN"))
}
