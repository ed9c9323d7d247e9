package recipe

import (
	"strings"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/textutil"
)

// CategoryDiscount scales the priority of a category-level match.
const CategoryDiscount = 0.7

type synonym struct {
	key    string
	values []string
}

// synonyms link English ingredient names to Turkish product names. Ordered:
// the first key contained in the ingredient that hits a product wins.
var synonyms = []synonym{
	{"eggs", []string{"yumurta", "egg"}},
	{"egg", []string{"yumurta", "eggs"}},
	{"milk", []string{"süt", "milk"}},
	{"cheese", []string{"peynir", "cheese"}},
	{"cream cheese", []string{"krem peynir", "cream cheese"}},
	{"mozzarella", []string{"mozzarella", "peynir"}},
	{"tomatoes", []string{"domates", "tomato"}},
	{"tomato", []string{"domates", "tomatoes"}},
	{"onions", []string{"soğan", "onion"}},
	{"onion", []string{"soğan", "onions"}},
	{"potatoes", []string{"patates", "potato"}},
	{"potato", []string{"patates", "potatoes"}},
	{"bread", []string{"ekmek", "bread"}},
	{"rice", []string{"pirinç", "rice"}},
	{"pasta", []string{"makarna", "pasta"}},
	{"chicken", []string{"tavuk", "chicken"}},
	{"beef", []string{"biftek", "beef", "dana"}},
	{"meat", []string{"et", "meat"}},
	{"butter", []string{"tereyağı", "butter"}},
	{"oil", []string{"yağ", "oil"}},
	{"salt", []string{"tuz", "salt"}},
	{"pepper", []string{"biber", "pepper"}},
}

// MatchKind says how an ingredient was tied to an owned product.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchDirect
	MatchSynonym
	MatchCategory
)

func (k MatchKind) String() string {
	switch k {
	case MatchDirect:
		return "direct"
	case MatchSynonym:
		return "synonym"
	case MatchCategory:
		return "category"
	default:
		return "none"
	}
}

// Match is the product an ingredient resolved to and the weight it carries.
type Match struct {
	Product OwnedProduct
	Kind    MatchKind
	Weight  float64
}

// MatchIngredient tries every product for a direct or synonym hit before
// falling back to a coarse food-category hit at a discount.
func MatchIngredient(ingredient string, products []OwnedProduct) (Match, bool) {
	name := strings.ToLower(strings.TrimSpace(ingredient))
	if name == "" {
		return Match{}, false
	}
	for _, p := range products {
		if kind := matchesProduct(name, p); kind != MatchNone {
			return Match{Product: p, Kind: kind, Weight: float64(p.PriorityScore)}, true
		}
	}
	for _, p := range products {
		if sameCategory(name, p) {
			return Match{Product: p, Kind: MatchCategory, Weight: float64(p.PriorityScore) * CategoryDiscount}, true
		}
	}
	return Match{}, false
}

func matchesProduct(ingredient string, p OwnedProduct) MatchKind {
	en, tr := productNames(p)
	if strings.Contains(en, ingredient) || strings.Contains(tr, ingredient) {
		return MatchDirect
	}
	for _, s := range synonyms {
		if !strings.Contains(ingredient, s.key) {
			continue
		}
		for _, v := range s.values {
			if strings.Contains(en, v) || strings.Contains(tr, v) {
				return MatchSynonym
			}
		}
	}
	return MatchNone
}

func sameCategory(ingredient string, p OwnedProduct) bool {
	en, tr := productNames(p)
	for _, g := range constants.FoodGroups() {
		terms := constants.FoodGroupTerms(g)
		if !containsAny(ingredient, terms) {
			continue
		}
		if containsAny(en, terms) || containsAny(tr, terms) {
			return true
		}
	}
	return false
}

// productNames lowers the English name as usual and the Turkish one with
// Turkish casing, so "PİRİNÇ" compares equal to "pirinç".
func productNames(p OwnedProduct) (en, tr string) {
	return strings.ToLower(p.NameEN), textutil.LowerTR(p.NameTR)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
