package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var ingredientListSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []string{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	},
}

// searchResultSchema covers the fields read from a findByIngredients reply.
var searchResultSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []string{"id", "title"},
		"properties": map[string]any{
			"id":                map[string]any{"type": "integer"},
			"title":             map[string]any{"type": "string"},
			"image":             map[string]any{"type": "string"},
			"usedIngredients":   ingredientListSchema,
			"missedIngredients": ingredientListSchema,
		},
	},
}

// candidateListSchema covers candidates submitted directly by callers.
var candidateListSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []string{"title", "used", "missing"},
		"properties": map[string]any{
			"id":               map[string]any{"type": "integer", "minimum": 0},
			"title":            map[string]any{"type": "string", "minLength": 1},
			"image":            map[string]any{"type": "string"},
			"ready_in_minutes": map[string]any{"type": "integer", "minimum": 0},
			"servings":         map[string]any{"type": "integer", "minimum": 0},
			"source_url":       map[string]any{"type": "string"},
			"used":             map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"missing":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"instructions":     map[string]any{"type": "string"},
			"summary":          map[string]any{"type": "string"},
		},
	},
}

var (
	compileSearch     = sync.OnceValues(func() (*jsonschema.Schema, error) { return compileSchema(searchResultSchema) })
	compileCandidates = sync.OnceValues(func() (*jsonschema.Schema, error) { return compileSchema(candidateListSchema) })
)

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// DecodeCandidates validates and decodes a JSON array of candidates.
func DecodeCandidates(data []byte) ([]Candidate, error) {
	schema, err := compileCandidates()
	if err != nil {
		return nil, err
	}
	if err := validate(schema, data); err != nil {
		return nil, err
	}
	var out []Candidate
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return out, nil
}

type searchIngredient struct {
	Name string `json:"name"`
}

type searchHit struct {
	ID                int64              `json:"id"`
	Title             string             `json:"title"`
	Image             string             `json:"image"`
	UsedIngredients   []searchIngredient `json:"usedIngredients"`
	MissedIngredients []searchIngredient `json:"missedIngredients"`
}

// decodeSearchResult validates a findByIngredients reply and maps it to
// candidates.
func decodeSearchResult(data []byte) ([]Candidate, error) {
	schema, err := compileSearch()
	if err != nil {
		return nil, err
	}
	if err := validate(schema, data); err != nil {
		return nil, err
	}
	var hits []searchHit
	if err := json.Unmarshal(data, &hits); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}
	out := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, Candidate{
			ID:      h.ID,
			Title:   h.Title,
			Image:   h.Image,
			Used:    names(h.UsedIngredients),
			Missing: names(h.MissedIngredients),
		})
	}
	return out, nil
}

func names(in []searchIngredient) []string {
	out := make([]string, 0, len(in))
	for _, i := range in {
		out = append(out, i.Name)
	}
	return out
}
