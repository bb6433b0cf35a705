package embedded

import (
	_ "embed"
)

// Embed the stage instruction templates

//go:embed data/prompts/followup_instructions.txt
var FollowUpInstructionsTxt []byte

//go:embed data/prompts/final_prompt_instructions.txt
var FinalPromptInstructionsTxt []byte
