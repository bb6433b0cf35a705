package models

import "fmt"

// Stage identifies which pipeline stage an AnswerSet is being validated for.
type Stage string

const (
	// StageFollowUp requires card1 through card7.
	StageFollowUp Stage = "followUp"
	// StageFinal additionally requires card8 (the follow-up answer).
	StageFinal Stage = "final"
)

// AnswerSet is one questionnaire session. The card fields are semantically
// fixed: style, color, placement, size, meaning, avoid-list, extra details,
// and the follow-up answer. The pipeline never mutates an AnswerSet.
type AnswerSet struct {
	Card1 string `json:"card1"` // desired art style
	Card2 string `json:"card2"` // color preferences
	Card3 string `json:"card3"` // body placement
	Card4 string `json:"card4"` // approximate size
	Card5 string `json:"card5"` // meaning / story
	Card6 string `json:"card6"` // elements to avoid
	Card7 string `json:"card7"` // extra details
	Card8 string `json:"card8"` // answer to the follow-up question (final stage only)
}

// ValidationError reports the first missing required field for a stage.
// It is raised before any network call - a missing card is a programming
// error in the caller, never a retryable provider condition.
type ValidationError struct {
	Stage Stage
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("answer set is missing required field %s for stage %s", e.Field, e.Stage)
}

// requiredCard pairs a field name with an accessor so the check order is
// explicit: card1..card7, then card8 for the final stage.
type requiredCard struct {
	name string
	get  func(*AnswerSet) string
}

var baseCards = []requiredCard{
	{"card1", func(a *AnswerSet) string { return a.Card1 }},
	{"card2", func(a *AnswerSet) string { return a.Card2 }},
	{"card3", func(a *AnswerSet) string { return a.Card3 }},
	{"card4", func(a *AnswerSet) string { return a.Card4 }},
	{"card5", func(a *AnswerSet) string { return a.Card5 }},
	{"card6", func(a *AnswerSet) string { return a.Card6 }},
	{"card7", func(a *AnswerSet) string { return a.Card7 }},
}

var finalCards = append(append([]requiredCard{}, baseCards...),
	requiredCard{"card8", func(a *AnswerSet) string { return a.Card8 }},
)

// ValidateForStage checks the stage's required fields in fixed order and
// fails fast on the first empty one. No side effects.
func (a *AnswerSet) ValidateForStage(stage Stage) error {
	cards := baseCards
	if stage == StageFinal {
		cards = finalCards
	}

	for _, card := range cards {
		if card.get(a) == "" {
			return &ValidationError{Stage: stage, Field: card.name}
		}
	}
	return nil
}
