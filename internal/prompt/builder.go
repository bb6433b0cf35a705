package prompt

import (
	"fmt"
	"strings"

	"github.com/inkmuse/inkmuse-api/internal/models"
)

// Builder compiles stage instructions from a validated AnswerSet. Both
// builders are deterministic string assembly with no I/O: the same answers
// always produce byte-identical output.
type Builder struct {
	loader *Loader
}

// NewBuilder creates a prompt builder backed by the embedded templates
func NewBuilder() *Builder {
	return &Builder{loader: NewPromptLoader()}
}

// BuildFollowUpInstruction compiles the stage-1 system instruction. It embeds
// card1 through card7 only; card8 does not exist yet at this stage.
func (b *Builder) BuildFollowUpInstruction(answers *models.AnswerSet) string {
	var sb strings.Builder
	sb.WriteString(b.loader.GetFollowUpInstructions())
	sb.WriteString("\n\nClient questionnaire answers:\n")
	writeBaseAnswers(&sb, answers)
	return sb.String()
}

// BuildFinalPromptInstruction compiles the stage-2 system instruction,
// embedding all eight answers including the follow-up.
func (b *Builder) BuildFinalPromptInstruction(answers *models.AnswerSet) string {
	var sb strings.Builder
	sb.WriteString(b.loader.GetFinalPromptInstructions())
	sb.WriteString("\n\nClient questionnaire answers:\n")
	writeBaseAnswers(&sb, answers)
	fmt.Fprintf(&sb, "8. Follow-up answer: %s\n", answers.Card8)
	return sb.String()
}

func writeBaseAnswers(sb *strings.Builder, answers *models.AnswerSet) {
	fmt.Fprintf(sb, "1. Preferred art style: %s\n", answers.Card1)
	fmt.Fprintf(sb, "2. Color preferences: %s\n", answers.Card2)
	fmt.Fprintf(sb, "3. Body placement: %s\n", answers.Card3)
	fmt.Fprintf(sb, "4. Approximate size: %s\n", answers.Card4)
	fmt.Fprintf(sb, "5. Meaning or story: %s\n", answers.Card5)
	fmt.Fprintf(sb, "6. Elements to avoid: %s\n", answers.Card6)
	fmt.Fprintf(sb, "7. Additional details: %s\n", answers.Card7)
}
