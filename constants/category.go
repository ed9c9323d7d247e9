package constants

import (
	"strings"
)

// FoodGroup is the coarse grouping used when a recipe ingredient has no
// direct or synonym match against an owned product.
type FoodGroup string

const (
	Dairy      FoodGroup = "dairy"
	Vegetables FoodGroup = "vegetables"
	Grains     FoodGroup = "grains"
	Protein    FoodGroup = "protein"
	Spices     FoodGroup = "spices"
)

var allFoodGroups = []FoodGroup{Dairy, Vegetables, Grains, Protein, Spices}

// foodGroupTerms lists Turkish and English words belonging to each group.
var foodGroupTerms = map[FoodGroup][]string{
	Dairy:      {"süt", "peynir", "yoğurt", "milk", "cheese", "yogurt"},
	Vegetables: {"domates", "soğan", "patates", "havuç", "tomato", "onion", "potato", "carrot"},
	Grains:     {"ekmek", "pirinç", "makarna", "un", "bread", "rice", "pasta", "flour"},
	Protein:    {"tavuk", "et", "biftek", "yumurta", "chicken", "meat", "beef", "egg"},
	Spices:     {"tuz", "biber", "baharat", "salt", "pepper", "spice"},
}

func FoodGroups() []FoodGroup {
	out := make([]FoodGroup, len(allFoodGroups))
	copy(out, allFoodGroups)
	return out
}

// FoodGroupTerms returns the vocabulary of a group. The slice must not be modified.
func FoodGroupTerms(g FoodGroup) []string {
	return foodGroupTerms[g]
}

// Catalog category ids as seeded in the categories table.
const (
	CategoryOlives    = 1
	CategoryPoultry   = 3
	CategoryCocoa     = 5
	CategoryCheese    = 7
	CategoryPastaRice = 11
	CategoryFlour     = 18
	CategorySugar     = 19
	CategoryMilk      = 20
)

// DefaultShelfLifeDays is used when neither a rule nor a category default exists.
const DefaultShelfLifeDays = 7

var categoryShelfLife = map[int]int{
	CategoryOlives:    30,
	CategoryPoultry:   3,
	CategoryCocoa:     365,
	CategoryCheese:    7,
	CategoryPastaRice: 30,
	CategoryFlour:     365,
	CategorySugar:     365,
	CategoryMilk:      3,
}

// CategoryShelfLife returns the policy default for a category id.
func CategoryShelfLife(categoryID *int) int {
	if categoryID == nil {
		return DefaultShelfLifeDays
	}
	if d, ok := categoryShelfLife[*categoryID]; ok {
		return d
	}
	return DefaultShelfLifeDays
}

// Canonicalize maps a free-form label to a FoodGroup.
func Canonicalize(input string) (FoodGroup, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]FoodGroup{
		"süt ürünleri":   Dairy,
		"dairy products": Dairy,
		"sebze":          Vegetables,
		"veg":            Vegetables,
		"tahıl":          Grains,
		"bakliyat":       Grains,
		"et ürünleri":    Protein,
		"meat":           Protein,
		"baharat":        Spices,
		"spice":          Spices,
	}

	if g, ok := synonyms[normalized]; ok {
		return g, true
	}

	for _, g := range allFoodGroups {
		if normalized == string(g) {
			return g, true
		}
	}

	return "", false
}

var categoryNames = map[int]string{
	CategoryOlives:    "Zeytin",
	CategoryPoultry:   "Tavuk",
	CategoryCocoa:     "Kakao",
	CategoryCheese:    "Peynir",
	CategoryPastaRice: "Makarna & Pirinç",
	CategoryFlour:     "Un",
	CategorySugar:     "Şeker",
	CategoryMilk:      "Süt",
}

// CategoryNames returns a copy of the seeded category id to name table.
func CategoryNames() map[int]string {
	out := make(map[int]string, len(categoryNames))
	for id, name := range categoryNames {
		out[id] = name
	}
	return out
}
