package prompt

import (
	"strings"

	"github.com/inkmuse/inkmuse-api/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetFollowUpInstructions loads the follow-up stage instruction template
func (l *Loader) GetFollowUpInstructions() string {
	return strings.TrimSpace(string(embedded.FollowUpInstructionsTxt))
}

// GetFinalPromptInstructions loads the final prompt stage instruction template
func (l *Loader) GetFinalPromptInstructions() string {
	return strings.TrimSpace(string(embedded.FinalPromptInstructionsTxt))
}
