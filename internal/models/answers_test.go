package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeAnswers() AnswerSet {
	return AnswerSet{
		Card1: "neo-traditional",
		Card2: "muted earth tones",
		Card3: "left forearm",
		Card4: "about 15cm",
		Card5: "memorial for my grandmother",
		Card6: "no skulls",
		Card7: "she loved roses",
		Card8: "a single stem, slightly wilted",
	}
}

func TestValidateForStageFollowUp(t *testing.T) {
	answers := completeAnswers()
	answers.Card8 = "" // not required yet at this stage

	require.NoError(t, answers.ValidateForStage(StageFollowUp))
}

func TestValidateForStageFinal(t *testing.T) {
	answers := completeAnswers()

	require.NoError(t, answers.ValidateForStage(StageFinal))
}

func TestValidateForStageFinalRequiresCard8(t *testing.T) {
	answers := completeAnswers()
	answers.Card8 = ""

	err := answers.ValidateForStage(StageFinal)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "card8", validationErr.Field)
	assert.Equal(t, StageFinal, validationErr.Stage)
}

func TestValidateForStageReportsFirstMissingCard(t *testing.T) {
	// With several cards missing, the error must name the lowest-numbered one.
	answers := completeAnswers()
	answers.Card2 = ""
	answers.Card5 = ""
	answers.Card7 = ""

	for _, stage := range []Stage{StageFollowUp, StageFinal} {
		err := answers.ValidateForStage(stage)
		require.Error(t, err)

		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "card2", validationErr.Field)
		assert.Equal(t, stage, validationErr.Stage)
	}
}

func TestValidateForStageEmptySet(t *testing.T) {
	var answers AnswerSet

	err := answers.ValidateForStage(StageFollowUp)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "card1", validationErr.Field)
}
