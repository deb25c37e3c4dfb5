package pipeline

import (
	"fmt"
	"strings"

	"github.com/54b3r/quoteseek/internal/rag"
)

// SystemPrompt instructs the model to select verbatim quotes from the
// supplied paragraphs and answer with a raw JSON array.
const SystemPrompt = `You are a search assistant that finds quotes from recorded talks in response to a user's question. Each quote should either answer the question or offer relevant information and inspiration.

RULES:
1. Return as many relevant quotes as possible (at least 6 to 8 when available).
2. Cover different aspects of the question: teachings, practical steps, personal experiences, promises, and present-day counsel.
3. Copy each quote EXACTLY from the provided paragraphs. Do not modify, shorten, or merge paragraphs.
4. Copy every metadata field exactly as provided.
5. Never invent a quote.
6. Order quotes by relevance to the question.

Format each quote exactly as:
[{
    "speaker": "exact name",
    "role": "exact role",
    "title": "exact title",
    "youtube_link": "exact link",
    "paragraph_deep_link": "exact link",
    "paragraph_text": "exact quote",
    "start_time": number,
    "end_time": number
}]`

// BuildPrompt renders the user prompt: every passage with its metadata, then
// the question, then the output instruction.
func BuildPrompt(query string, passages []rag.Passage) string {
	var b strings.Builder
	b.WriteString("Relevant paragraphs with metadata:\n\n")

	for i := range passages {
		p := &passages[i]
		fmt.Fprintf(&b, "Speaker: %s\n", p.Metadata.Speaker)
		fmt.Fprintf(&b, "Role: %s\n", p.Metadata.Role)
		fmt.Fprintf(&b, "Title: %s\n", p.Metadata.Title)
		fmt.Fprintf(&b, "YouTube Link: %s\n", p.Metadata.SourceLink)
		fmt.Fprintf(&b, "Paragraph Deep Link: %s\n", p.Metadata.DeepLink)
		fmt.Fprintf(&b, "Start Time: %d\n", p.Metadata.StartTime)
		fmt.Fprintf(&b, "End Time: %d\n", p.Metadata.EndTime)
		fmt.Fprintf(&b, "Paragraph Text: %s\n\n", p.Text)
	}

	fmt.Fprintf(&b, "User question: %s\n\n", query)
	b.WriteString("Return ONLY a raw JSON array of quote objects in the format described. " +
		"Do not wrap it in markdown or add any commentary.")
	return b.String()
}
