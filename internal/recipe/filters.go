package recipe

import (
	"slices"
	"strings"
)

// DefaultMaxMissing drops candidates that need too much shopping.
const DefaultMaxMissing = 8

const maxEssentialMissing = 3

var pantryStaples = []string{
	"salt", "pepper", "oil", "butter", "flour", "sugar", "garlic", "onion",
	"tuz", "biber", "yağ", "tereyağı", "un", "şeker", "sarımsak", "soğan",
	"water", "su", "vinegar", "sirke", "lemon", "limon", "herbs", "otlar",
}

var optionalExtras = []string{
	"sauce", "sos", "spice", "baharat", "seasoning", "herb", "ot",
	"condiment", "dressing", "marinade", "marine",
}

// Preferences carries the user's personalization settings.
type Preferences struct {
	Allergies       []string
	Dislikes        []string
	Diets           []string
	LikedCategories []string
}

// Personalized is a candidate that passed the filters, with its score.
type Personalized struct {
	Candidate Candidate
	Score     float64
}

// Personalize removes candidates with allergens, disliked ingredients or more
// than maxMissing missing ingredients, then orders the rest by personalization
// score. ingredients are the names the search was made with.
func Personalize(candidates []Candidate, prefs Preferences, ingredients []string, maxMissing int) []Personalized {
	if maxMissing <= 0 {
		maxMissing = DefaultMaxMissing
	}
	out := make([]Personalized, 0, len(candidates))
	for _, c := range candidates {
		all := append(slices.Clone(c.Used), c.Missing...)
		if overlaps(prefs.Allergies, all) || overlaps(prefs.Dislikes, c.Used) {
			continue
		}
		if len(c.Missing) > maxMissing {
			continue
		}
		out = append(out, Personalized{Candidate: c, Score: personalizationScore(c, prefs, ingredients)})
	}
	slices.SortStableFunc(out, func(a, b Personalized) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return out
}

func personalizationScore(c Candidate, prefs Preferences, ingredients []string) float64 {
	var score float64
	if total := len(c.Used) + len(c.Missing); total > 0 {
		score += float64(len(c.Used)) / float64(total) * 50
	}
	if len(prefs.Diets) > 0 {
		score += 20
	}
	if len(prefs.LikedCategories) > 0 {
		score += 10
	}
	if len(ingredients) > 0 {
		hits := 0
		for _, ing := range ingredients {
			if overlaps([]string{ing}, c.Used) {
				hits++
			}
		}
		score += float64(hits) / float64(len(ingredients)) * 20
	}
	return min(score, 100)
}

// overlaps reports whether any term and name contain one another.
func overlaps(terms, names []string) bool {
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		for _, n := range names {
			n = strings.ToLower(strings.TrimSpace(n))
			if n == "" {
				continue
			}
			if strings.Contains(n, t) || strings.Contains(t, n) {
				return true
			}
		}
	}
	return false
}

// EssentialMissing hides pantry staples and optional seasonings from a
// missing-ingredient list and keeps at most three entries.
func EssentialMissing(missing []string) []string {
	var out []string
	for _, m := range missing {
		lower := strings.ToLower(m)
		if containsAny(lower, pantryStaples) || containsAny(lower, optionalExtras) {
			continue
		}
		out = append(out, m)
		if len(out) == maxEssentialMissing {
			break
		}
	}
	return out
}
