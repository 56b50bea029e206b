package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type weatherArgs struct {
	City  string   `json:"city" description:"City name"`
	Days  int      `json:"days,omitempty" description:"Forecast days"`
	Scale *string  `json:"scale" description:"Optional temperature scale"`
	Tags  []string `json:"tags,omitempty"`
}

func TestFromStruct(t *testing.T) {
	s := FromStruct(weatherArgs{})

	props, ok := s["properties"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, props, "city")
	assert.Contains(t, props, "days")
	assert.Contains(t, props, "scale")
	assert.Contains(t, props, "tags")

	city := props["city"].(map[string]any)
	assert.Equal(t, "string", city["type"])
	assert.Equal(t, "City name", city["description"])

	// Only non-pointer, non-omitempty fields are required.
	req, _ := s["required"].([]string)
	assert.ElementsMatch(t, []string{"city"}, req)
}

func TestFromStruct_NonStruct(t *testing.T) {
	s := FromStruct("not a struct")
	assert.Equal(t, "object", s["type"])
	assert.Empty(t, s["properties"])
}

func TestValidate_MissingRequired(t *testing.T) {
	s := map[string]any{
		"type":       "object",
		"properties": map[string]any{"city": map[string]any{"type": "string"}},
		"required":   []any{"city"},
	}
	err := Validate(map[string]any{}, s)
	assert.Error(t, err)
	verr, ok := err.(*ValidationError)
	assert.True(t, ok)
	assert.Equal(t, "city", verr.Field)
}

func TestValidate_TypeMismatch(t *testing.T) {
	s := map[string]any{
		"type":       "object",
		"properties": map[string]any{"days": map[string]any{"type": "integer"}},
	}
	assert.Error(t, Validate(map[string]any{"days": "three"}, s))
	// JSON decoded numbers arrive as float64 and must pass the integer check.
	assert.NoError(t, Validate(map[string]any{"days": float64(3)}, s))
	assert.Error(t, Validate(map[string]any{"days": 3.5}, s))
}

func TestValidate_ExtraFieldsAllowed(t *testing.T) {
	s := map[string]any{
		"type":       "object",
		"properties": map[string]any{"city": map[string]any{"type": "string"}},
	}
	assert.NoError(t, Validate(map[string]any{"city": "Berlin", "unknown": 1}, s))
}
