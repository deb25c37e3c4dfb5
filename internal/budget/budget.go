// Package budget estimates the token size of generation prompts. Because the
// generation client supports several backends with different tokenizers,
// it uses a character heuristic: 1 token ≈ 4 characters.
package budget

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// messageOverhead is the per-message framing cost most chat APIs add.
	messageOverhead = 4
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimatePrompt returns the estimated input size of a system + user message
// pair, including per-message framing.
func EstimatePrompt(system, user string) int {
	total := 0
	for _, content := range []string{system, user} {
		total += messageOverhead + Estimate(content)
	}
	return total
}
