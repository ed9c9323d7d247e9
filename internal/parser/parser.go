// Package parser splits OCR receipt lines into product names and prices.
package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/pantry-receipts/internal/textutil"
)

// MinNameLen is the shortest product name kept after cleanup, in characters.
const MinNameLen = 3

// Price is an amount in minor units (kuruş).
type Price int64

func (p Price) Float64() float64 { return float64(p) / 100 }

func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", int64(p)/100, int64(p)%100)
}

// ParsedItem is one product line.
type ParsedItem struct {
	RawName      string
	Price        Price
	OriginalLine string
}

// Result is the outcome of parsing one receipt's lines.
type Result struct {
	Items    []ParsedItem
	Unparsed int
}

type LineParser struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *LineParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineParser{logger: logger}
}

// ParseLines parses each line independently. Lines that are boilerplate or
// match no grammar are counted in Unparsed and otherwise ignored.
func (p *LineParser) ParseLines(lines []string) Result {
	var res Result
	for _, ln := range lines {
		if item, ok := p.ParseLine(ln); ok {
			res.Items = append(res.Items, item)
			continue
		}
		res.Unparsed++
	}
	p.logger.Debug("parser.lines", "parsed", len(res.Items), "unparsed", res.Unparsed)
	return res
}

// CountProducts is ParseLines without the allocation of items.
func (p *LineParser) CountProducts(lines []string) int {
	n := 0
	for _, ln := range lines {
		if _, ok := p.ParseLine(ln); ok {
			n++
		}
	}
	return n
}

// ParseLine returns the product on line, if any.
func (p *LineParser) ParseLine(line string) (ParsedItem, bool) {
	up := strings.ToUpper(line)
	if isBoilerplate(up) && !rePriceLike.MatchString(up) {
		return ParsedItem{}, false
	}

	for _, rx := range linePatterns {
		m := rx.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		nameRaw := strings.TrimSpace(m[rx.SubexpIndex("name")])
		price, ok := ParsePrice(m[rx.SubexpIndex("price")])
		if nameRaw == "" || !ok || textutil.RuneLen(nameRaw) < MinNameLen {
			continue
		}
		name := CleanName(nameRaw)
		if textutil.RuneLen(name) < MinNameLen {
			continue
		}
		return ParsedItem{RawName: name, Price: price, OriginalLine: line}, true
	}
	return ParsedItem{}, false
}

func isBoilerplate(up string) bool {
	for _, k := range skipKeywords {
		if strings.Contains(up, k) {
			return true
		}
	}
	return false
}

// ParsePrice reads "12,50", "12.50 TL" or "₺3,7" style amounts. Currency
// marks and spaces are dropped, a decimal comma becomes a point, and the
// first \d+(\.\d{1,2})? token is used.
func ParsePrice(s string) (Price, bool) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, false
	}
	s = strings.NewReplacer("TL", "", "₺", "", " ", "", ",", ".").Replace(s)
	tok := rePriceToken.FindString(s)
	if tok == "" {
		return 0, false
	}
	whole, frac, _ := strings.Cut(tok, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false
	}
	cents := w * 100
	if frac != "" {
		if len(frac) == 1 {
			frac += "0"
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, false
		}
		cents += f
	}
	return Price(cents), true
}

// CleanName reduces a raw name to the product words. It returns "" for
// non-food items, summary lines and anything shorter than MinNameLen.
func CleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	for _, c := range contextualNames {
		if textutil.ContainsWord(c.re, name) {
			return c.name
		}
	}

	up := strings.ToUpper(name)
	for _, k := range nonFoodKeywords {
		if strings.Contains(up, k) {
			return ""
		}
	}

	name = strings.NewReplacer("YUKKA", "YUFKA", "SOGR", "SOĞAN").Replace(name)
	name = textutil.ReplaceWords(reEmbedPrice, name, "")
	name = reSymbolNoise.ReplaceAllString(name, " ")
	name = textutil.CollapseSpaces(name)

	if textutil.ContainsWord(summaryWords, strings.ToUpper(name)) {
		return ""
	}
	if textutil.RuneLen(name) < MinNameLen {
		return ""
	}
	return name
}
