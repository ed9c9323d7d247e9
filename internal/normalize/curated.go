package normalize

import (
	"regexp"

	"github.com/joseph-ayodele/pantry-receipts/internal/textutil"
)

type curatedPattern struct {
	re   *regexp.Regexp
	name string
	word bool
}

func curated(expr, name string) curatedPattern {
	return curatedPattern{re: regexp.MustCompile(`(?i)` + expr), name: name}
}

// curatedWord only matches as a whole word, for names short enough to sit
// inside unrelated words ("UN" in "TUNA").
func curatedWord(expr, name string) curatedPattern {
	p := curated(expr, name)
	p.word = true
	return p
}

func (p curatedPattern) find(text string) string {
	if p.word {
		m, _ := textutil.FindWord(p.re, text)
		return m
	}
	return p.re.FindString(text)
}

// curatedPatterns map obfuscated spellings to canonical names. They are
// searched, not anchored, so a product buried in noise still matches; the
// longer the matched span relative to the text, the higher the confidence.
// Letters OCR confuses with I are spelled out as classes since Go does not
// fold dotted and dotless i.
var curatedPatterns = []curatedPattern{
	// dairy
	curated(`S[UÜİIıi]+T.*?Y?AR[İIıi]+M.*?YA[GĞ]+L[İIıi]+`, "Süt Yarım Yağlı"),
	curated(`S[UÜİIıi]+T.*?TAM.*?YA[GĞ]+L[İIıi]+`, "Süt Tam Yağlı"),
	curated(`S[UÜİIıi]+T`, "Süt"),
	curated(`S[UÜ]+ZME.*?PEYN[İIıi]+R`, "Süzme Peynir"),
	curated(`PEYN[İIıi]+R`, "Peynir"),

	// oils
	curated(`OMEGA\s*[0-9]*\s*YA[GĞ][İIıi]`, "Omega 3 Yağı"),
	curated(`ZEYT[İIıi]N\s*YA[GĞ][İIıi]`, "Zeytinyağı"),
	curated(`AY[CÇ][İIıi]CEK\s*YA[GĞ][İIıi]`, "Ayçiçek Yağı"),
	curated(`YA[GĞ]`, "Yağ"),

	// tea
	curated(`S[İIıi]+Y?AH.*?[CÇ]AY`, "Siyah Çay"),
	curated(`YE[SŞ]+[İIıi]+L.*?[CÇ]AY`, "Yeşil Çay"),
	curated(`[CÇ]AY`, "Çay"),

	// sugar
	curated(`[SŞ]+EKER.*?K[UÜ]+P`, "Küp Şeker"),
	curated(`[SŞ]+EKER.*?TOZ`, "Toz Şeker"),
	curated(`[SŞ]+EKER`, "Şeker"),

	// pasta
	curated(`BONCUK\s*MAKARNA`, "Boncuk Makarna"),
	curated(`TEL\s*[SŞ]EHR[İIıi]YE`, "Tel Şehriye"),
	curated(`ARPA\s*[SŞ]EHR[İIıi]YE`, "Arpa Şehriye"),
	curated(`[SŞ]EHR[İIıi]YE`, "Şehriye"),
	curated(`MAKARNA`, "Makarna"),

	// spices
	curated(`PUL\s*B[İIıi]+BER`, "Pul Biber"),
	curated(`B[İIıi]+BER`, "Biber"),
	curated(`KEK[İIıi]+K`, "Kekik"),
	curated(`NANE`, "Nane"),
	curated(`K[İIıi]+M[İIıi]+ON`, "Kimyon"),
	curated(`KARAMEL+[İIıi]+`, "Karamelli Bar"),

	// pickles
	curated(`TUR[SŞ]U\s*KAR[İIıi][SŞ][İIıi]K`, "Karışık Turşu"),
	curated(`TUR[SŞ]U`, "Turşu"),

	// seeds
	curated(`AY[CÇ]+EK[İIıi]+RDE[GĞ]+[İIıi]+`, "Ayçekirdeği"),
	curated(`[CÇ]+EK[İIıi]+RDEK`, "Çekirdek"),

	curated(`YUMURTA`, "Yumurta"),

	// rice and flour
	curated(`P[İIıi]LAV\s*L[İIıi]K`, "Pilavlık Pirinç"),
	curated(`P[İIıi]R[İIıi]N[CÇ]`, "Pirinç"),
	curatedWord(`UN`, "Un"),

	// salt
	curated(`TUZ.*?[YT]+OTLU`, "Otlu Tuz"),
	curated(`TUZ`, "Tuz"),
}

// CuratedNames lists every canonical name the curated table can produce.
func CuratedNames() []string {
	out := make([]string, len(curatedPatterns))
	for i, p := range curatedPatterns {
		out[i] = p.name
	}
	return out
}
