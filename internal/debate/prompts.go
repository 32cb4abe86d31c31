package debate

import "fmt"

const (
	initialPrompt = "Given the problem below, analyze it and propose 2-3 possible solutions, " +
		"listing both pros and cons. Format the response as a markdown-formatted debate."

	reviewPrompt = "The other participants have proposed and critiqued solutions above. " +
		"Evaluate the most recent responses critically, highlight potential weaknesses or " +
		"missing considerations, and propose refinements or alternatives. If you agree, " +
		"refine the proposal to reflect the most effective plan."

	consensusProbePrompt = "Considering the discussion so far, have the participants reached " +
		"consensus on a recommended solution? Answer with a single word: YES or NO."

	synthesisPrompt = "Summarize the entire discussion and arrive at a concrete, actionable " +
		"consensus solution that synthesizes the best parts of all viewpoints."
)

// buildPrompt replays the transcript ahead of the instruction, so every
// call sees the full discussion in "Role: content" form.
func buildPrompt(transcript, persona, instruction string) string {
	if persona != "" {
		instruction = fmt.Sprintf("You are acting as a %s.\n\n%s", persona, instruction)
	}
	return transcript + "\n\n" + instruction
}
