package summarize

import (
	"fmt"
	"strings"
)

// PromptBuilder constructs the prompts for both summarization tiers.
type PromptBuilder struct{}

func (pb *PromptBuilder) BuildChunkPrompt(chunkText string) string {
	var sb strings.Builder
	sb.WriteString("Summarize the following legal document text in 3-4 bullet points.\n")
	sb.WriteString("Each bullet point must start with '- ' and state one concrete provision.\n\n")
	sb.WriteString("Text:\n")
	sb.WriteString(chunkText)
	return sb.String()
}

func (pb *PromptBuilder) BuildCombinePrompt(bullets string) string {
	var sb strings.Builder
	sb.WriteString("Using these sub-summaries of a legal document, write one final summary (5-10 bullet points) covering:\n")
	sb.WriteString("- Purpose\n- Definitions\n- Eligibility\n- Obligations\n- Enforcement\n\n")
	fmt.Fprintf(&sb, "Sub-summaries:\n%s", bullets)
	return sb.String()
}
