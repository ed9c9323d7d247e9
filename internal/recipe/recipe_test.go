package recipe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityScore(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{-3, 100}, {0, 100}, {1, 80}, {2, 80}, {3, 80}, {4, 60}, {7, 60},
		{8, 40}, {14, 40}, {15, 20}, {20, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PriorityScore(tt.days), "days=%d", tt.days)
	}
}

func TestPriorityScoreIsMonotonic(t *testing.T) {
	prev := PriorityScore(-10)
	for d := -9; d <= 60; d++ {
		cur := PriorityScore(d)
		assert.LessOrEqual(t, cur, prev, "days=%d", d)
		prev = cur
	}
}

func TestUrgencyFor(t *testing.T) {
	assert.Equal(t, VeryUrgent, UrgencyFor(80.5))
	assert.Equal(t, Urgent, UrgencyFor(80))
	assert.Equal(t, Medium, UrgencyFor(60))
	assert.Equal(t, Low, UrgencyFor(40))
	assert.Equal(t, VeryLow, UrgencyFor(20))
	assert.Equal(t, VeryLow, UrgencyFor(0))
}

func TestScoreFullyMatchedAcrossLanguages(t *testing.T) {
	products := []OwnedProduct{
		{NameTR: "domates", PriorityScore: 60},
		{NameTR: "soğan", PriorityScore: 60},
	}
	s := ScoreCandidate(Candidate{Used: []string{"tomato", "onion"}}, products)

	assert.InDelta(t, 80.0, s.Value, 1e-9)
	assert.Equal(t, Urgent, s.Urgency)
	assert.Equal(t, []string{"tomato", "onion"}, s.Matched)
}

func TestScoreCategoryMatchIsDiscounted(t *testing.T) {
	products := []OwnedProduct{{NameTR: "yoğurt", PriorityScore: 80}}
	s := ScoreCandidate(Candidate{Used: []string{"cheddar cheese"}}, products)

	assert.InDelta(t, 80*0.7+20, s.Value, 1e-9)
	assert.Equal(t, []string{"cheddar cheese (~yoğurt)"}, s.Matched)
}

func TestScoreMissingPenaltyAndBonus(t *testing.T) {
	products := []OwnedProduct{{NameTR: "domates", PriorityScore: 100}}
	s := ScoreCandidate(Candidate{Used: []string{"tomato"}, Missing: []string{"basil", "garlic"}}, products)

	assert.InDelta(t, 100-4+20.0/3, s.Value, 1e-9)
	assert.Equal(t, VeryUrgent, s.Urgency)
}

func TestScoreNoMatch(t *testing.T) {
	products := []OwnedProduct{{NameTR: "domates", PriorityScore: 100}}
	s := ScoreCandidate(Candidate{Used: []string{"chocolate", ""}}, products)

	assert.Zero(t, s.Value)
	assert.Equal(t, NoMatch, s.Urgency)
}

func TestDirectMatchBeatsCategory(t *testing.T) {
	products := []OwnedProduct{
		{NameTR: "yoğurt", PriorityScore: 100},
		{NameEN: "Milk", NameTR: "Süt", PriorityScore: 40},
	}
	m, ok := MatchIngredient("milk", products)
	require.True(t, ok)
	assert.Equal(t, MatchDirect, m.Kind)
	assert.InDelta(t, 40.0, m.Weight, 1e-9)
}

func TestSynonymMatchUsesTurkishCasing(t *testing.T) {
	products := []OwnedProduct{{NameTR: "PİRİNÇ BALDO", PriorityScore: 60}}
	m, ok := MatchIngredient("long grain rice", products)
	require.True(t, ok)
	assert.Equal(t, MatchSynonym, m.Kind)
	assert.InDelta(t, 60.0, m.Weight, 1e-9)
}

func TestRankIsStableAndDescending(t *testing.T) {
	products := []OwnedProduct{
		{NameTR: "domates", PriorityScore: 60},
		{NameTR: "ekmek", PriorityScore: 100},
	}
	candidates := []Candidate{
		{ID: 1, Title: "first tomato", Used: []string{"tomato"}},
		{ID: 2, Title: "nothing", Used: []string{"chocolate"}},
		{ID: 3, Title: "bread", Used: []string{"bread"}},
		{ID: 4, Title: "second tomato", Used: []string{"tomatoes"}},
	}
	got := Rank(candidates, products)
	require.Len(t, got, 4)

	var ids []int64
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{3, 1, 4, 2}, ids)
	assert.Equal(t, NoMatch, got[3].Urgency)
}

func TestEssentialMissing(t *testing.T) {
	got := EssentialMissing([]string{"salt", "basil", "soy sauce", "Olive Oil", "parmesan", "mint leaves", "cream"})
	assert.Equal(t, []string{"basil", "parmesan", "mint leaves"}, got)
	assert.Empty(t, EssentialMissing([]string{"water", "sugar"}))
}

func TestPersonalize(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Used: []string{"tomato"}, Missing: []string{"Peanut butter"}},
		{ID: 2, Used: []string{"tomato"}, Missing: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}},
		{ID: 3, Used: []string{"shrimp"}},
		{ID: 4, Used: []string{"tomato"}, Missing: []string{"egg"}},
		{ID: 5, Used: []string{"tomato", "onion"}, Missing: []string{"egg"}},
	}
	prefs := Preferences{
		Allergies: []string{"peanut"},
		Dislikes:  []string{"Shrimp"},
		Diets:     []string{"vegetarian"},
	}
	got := Personalize(candidates, prefs, []string{"tomato", "onion"}, 0)
	require.Len(t, got, 2)

	assert.Equal(t, int64(5), got[0].Candidate.ID)
	assert.InDelta(t, 2.0/3*50+20+20, got[0].Score, 1e-9)
	assert.Equal(t, int64(4), got[1].Candidate.ID)
	assert.InDelta(t, 25+20+10, got[1].Score, 1e-9)
}

func TestFromReceipt(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	got := FromReceipt(names)
	require.Len(t, got, 10)
	assert.Equal(t, 100, got[0].PriorityScore)
	assert.Equal(t, 90, got[1].PriorityScore)
	assert.Equal(t, 20, got[8].PriorityScore)
	assert.Equal(t, 20, got[9].PriorityScore)
	assert.Equal(t, 7, got[9].DaysRemaining)
}

func TestFromInventory(t *testing.T) {
	now := time.Date(2026, 1, 10, 18, 30, 0, 0, time.UTC)
	day := func(d int) *time.Time {
		v := time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	five := 5
	items := []InventoryItem{
		{NameEN: "Bread", NameTR: "Ekmek", Qty: 1, Status: "in_stock"},
		{NameEN: "Milk", NameTR: "Süt", Qty: 1, Status: "in_stock", ExpectedExpiryDate: day(12)},
		{NameEN: "Yogurt", Qty: 1, Status: "in_stock", ExpectedExpiryDate: day(10)},
		{NameEN: "Cheese", NameTR: "Peynir", Qty: 2, Status: "in_stock", RuleDays: &five},
		{NameEN: "Eggs", Qty: 1, Status: "consumed"},
		{NameEN: "Rice", Qty: 0, Status: "in_stock"},
	}
	got := FromInventory(items, now)
	require.Len(t, got, 3)

	assert.Equal(t, OwnedProduct{NameEN: "Milk", NameTR: "Süt", DaysRemaining: 2, PriorityScore: 80}, got[0])
	assert.Equal(t, OwnedProduct{NameEN: "Cheese", NameTR: "Peynir", DaysRemaining: 5, PriorityScore: 60}, got[1])
	assert.Equal(t, OwnedProduct{NameEN: "Bread", NameTR: "Ekmek", DaysRemaining: 30, PriorityScore: 20}, got[2])
}

func TestDecodeCandidates(t *testing.T) {
	got, err := DecodeCandidates([]byte(`[{"id":7,"title":"Menemen","used":["tomato","egg"],"missing":[]}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Menemen", got[0].Title)
	assert.Equal(t, []string{"tomato", "egg"}, got[0].Used)

	_, err = DecodeCandidates([]byte(`[{"title":"","used":[],"missing":[]}]`))
	assert.Error(t, err)
	_, err = DecodeCandidates([]byte(`[{"title":"x","used":"tomato","missing":[]}]`))
	assert.Error(t, err)
}

type fakeSearcher struct {
	candidates []Candidate
	err        error
	details    map[int64]Details
	gotNumber  int
	gotIngr    []string
}

func (f *fakeSearcher) Search(_ context.Context, ingredients []string, number int, _ []string) ([]Candidate, error) {
	f.gotIngr = ingredients
	f.gotNumber = number
	return f.candidates, f.err
}

func (f *fakeSearcher) Details(_ context.Context, id int64) (Details, error) {
	d, ok := f.details[id]
	if !ok {
		return Details{}, errors.New("not found")
	}
	return d, nil
}

type prefixTranslator struct{}

func (prefixTranslator) Translate(_ context.Context, text, _, _ string) string { return "tr:" + text }

func TestRecommenderFromReceipt(t *testing.T) {
	search := &fakeSearcher{
		candidates: []Candidate{
			{ID: 1, Title: "Salad", Used: []string{"tomato"}, Missing: []string{"cucumber", "feta"}},
			{ID: 2, Title: "Menemen", Used: []string{"onion", "tomato"}},
		},
		details: map[int64]Details{
			2: {ReadyInMinutes: 15, Servings: 2, SourceURL: "https://example.com/menemen", Instructions: "Cook."},
		},
	}
	r := NewRecommender(RecommenderConfig{MaxRecipes: 5}, search, prefixTranslator{}, nil)

	got := r.FromReceipt(context.Background(), []string{"domates", "soğan"}, Preferences{})
	require.Len(t, got, 2)
	assert.Equal(t, 10, search.gotNumber)

	assert.Equal(t, int64(2), got[0].ID)
	assert.InDelta(t, 115.0, got[0].PriorityScore, 1e-9)
	assert.Equal(t, "tr:Menemen", got[0].TitleTR)
	assert.Equal(t, 15, got[0].ReadyInMinutes)
	assert.Equal(t, "Cook.", got[0].Instructions)

	assert.Equal(t, int64(1), got[1].ID)
	assert.Equal(t, "https://spoonacular.com/recipes/1", got[1].SourceURL)
	assert.Equal(t, []string{"cucumber", "feta"}, got[1].EssentialMissing)
	assert.Equal(t, []string{"tr:cucumber", "tr:feta"}, got[1].MissingTR)
}

func TestRecommenderFromInventoryDropsUnmatched(t *testing.T) {
	search := &fakeSearcher{
		candidates: []Candidate{
			{ID: 1, Title: "Brownies", Used: []string{"chocolate"}},
			{ID: 2, Title: "Toast", Used: []string{"bread"}},
		},
	}
	r := NewRecommender(RecommenderConfig{}, search, nil, nil)
	products := []OwnedProduct{
		NewOwnedProduct("Milk", "Süt", 20),
		NewOwnedProduct("Bread", "Ekmek", 1),
	}

	got := r.FromInventory(context.Background(), products, Preferences{})
	require.Len(t, got, 1)
	assert.Equal(t, "Toast", got[0].Title)
	assert.Equal(t, []string{"Bread", "Milk"}, search.gotIngr)
}

func TestRecommenderSearchFailure(t *testing.T) {
	r := NewRecommender(RecommenderConfig{}, &fakeSearcher{err: errors.New("boom")}, nil, nil)
	assert.Empty(t, r.FromReceipt(context.Background(), []string{"süt"}, Preferences{}))
}
