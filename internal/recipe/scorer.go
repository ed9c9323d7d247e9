package recipe

import (
	"fmt"
	"slices"
)

const (
	missingPenalty  = 2.0
	completionBonus = 20.0
)

// Candidate is a recipe returned by the search boundary.
type Candidate struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	Image          string   `json:"image,omitempty"`
	ReadyInMinutes int      `json:"ready_in_minutes,omitempty"`
	Servings       int      `json:"servings,omitempty"`
	SourceURL      string   `json:"source_url,omitempty"`
	Used           []string `json:"used"`
	Missing        []string `json:"missing"`
	Instructions   string   `json:"instructions,omitempty"`
	Summary        string   `json:"summary,omitempty"`
}

// Score is the priority of one candidate against the owned products.
type Score struct {
	Value   float64
	Urgency Urgency
	Matched []string
}

// ScoreCandidate averages the priority of matched ingredients, subtracts a
// mild penalty per missing ingredient and adds a completion bonus.
func ScoreCandidate(c Candidate, products []OwnedProduct) Score {
	var total float64
	var matched []string
	for _, ing := range c.Used {
		m, ok := MatchIngredient(ing, products)
		if !ok {
			continue
		}
		total += m.Weight
		if m.Kind == MatchCategory {
			matched = append(matched, fmt.Sprintf("%s (~%s)", ing, m.Product.NameTR))
		} else {
			matched = append(matched, ing)
		}
	}
	used := len(matched)
	if used == 0 {
		return Score{Value: 0, Urgency: NoMatch}
	}
	missing := len(c.Missing)
	avg := total / float64(used)
	ratio := float64(used) / float64(used+missing)
	value := max(0, avg-missingPenalty*float64(missing)+completionBonus*ratio)
	return Score{Value: value, Urgency: UrgencyFor(value), Matched: matched}
}

// Recommendation is a scored candidate ready for display.
type Recommendation struct {
	Candidate
	TitleTR          string   `json:"title_tr,omitempty"`
	UsedTR           []string `json:"used_tr,omitempty"`
	EssentialMissing []string `json:"essential_missing,omitempty"`
	MissingTR        []string `json:"missing_tr,omitempty"`
	PriorityScore    float64  `json:"priority_score"`
	Urgency          Urgency  `json:"urgency"`
}

// Rank scores every candidate and orders them by descending score. Equal
// scores keep candidate order.
func Rank(candidates []Candidate, products []OwnedProduct) []Recommendation {
	out := make([]Recommendation, 0, len(candidates))
	for _, c := range candidates {
		s := ScoreCandidate(c, products)
		out = append(out, Recommendation{
			Candidate:        c,
			EssentialMissing: EssentialMissing(c.Missing),
			PriorityScore:    s.Value,
			Urgency:          s.Urgency,
		})
	}
	slices.SortStableFunc(out, func(a, b Recommendation) int {
		switch {
		case a.PriorityScore > b.PriorityScore:
			return -1
		case a.PriorityScore < b.PriorityScore:
			return 1
		default:
			return 0
		}
	})
	return out
}
