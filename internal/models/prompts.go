package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FinalPromptResult is the structured output of the final prompt stage.
// It is only ever constructed by ParseFinalPromptResult - never partially
// populated, because a silently incomplete prompt would produce an
// unpredictable image.
type FinalPromptResult struct {
	PositivePrompt string `json:"positivePrompt"`
	NegativePrompt string `json:"negativePrompt"`
	Style          string `json:"style"`
	Mood           string `json:"mood"`
	CulturalThemes string `json:"culturalThemes"`
}

// MalformedOutputError means the model's JSON output failed to parse or
// failed field-presence validation. Raw carries the offending text for
// diagnosis; it may echo user input and must not be shown to end users.
type MalformedOutputError struct {
	Field string // first missing field, empty for parse failures
	Raw   string
	cause error
}

func (e *MalformedOutputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("model output is missing required field %s", e.Field)
	}
	return fmt.Sprintf("model output is not valid JSON: %v", e.cause)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.cause
}

// finalPromptFields is the validation order; the first missing field
// determines the error raised.
var finalPromptFields = []struct {
	name string
	get  func(*FinalPromptResult) string
}{
	{"positivePrompt", func(r *FinalPromptResult) string { return r.PositivePrompt }},
	{"negativePrompt", func(r *FinalPromptResult) string { return r.NegativePrompt }},
	{"style", func(r *FinalPromptResult) string { return r.Style }},
	{"mood", func(r *FinalPromptResult) string { return r.Mood }},
	{"culturalThemes", func(r *FinalPromptResult) string { return r.CulturalThemes }},
}

// ParseFinalPromptResult strips any markdown code fences the model added
// despite instructions, parses the JSON, and validates all five fields are
// present and non-empty. There is no default-filling.
func ParseFinalPromptResult(raw string) (*FinalPromptResult, error) {
	cleaned := StripCodeFences(raw)

	var result FinalPromptResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, &MalformedOutputError{Raw: raw, cause: err}
	}

	for _, field := range finalPromptFields {
		if strings.TrimSpace(field.get(&result)) == "" {
			return nil, &MalformedOutputError{Field: field.name, Raw: raw}
		}
	}

	return &result, nil
}

// StripCodeFences removes a ```json / ``` wrapper from model output.
func StripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
