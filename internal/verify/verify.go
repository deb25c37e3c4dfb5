// Package verify guarantees that no quote returned to a caller is invented by
// the language model. Every candidate proposed by the model is matched against
// the text of the passages that were actually retrieved for the query; only
// matches survive, and their output fields are rebuilt from the passage.
package verify

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/54b3r/quoteseek/internal/rag"
)

// previewLen is the number of characters of a quote logged per decision.
const previewLen = 50

// Candidate is a quote proposed by the language model. Every field is
// untrusted; only Text is used, as the lookup key.
type Candidate struct {
	// Speaker is the model-asserted speaker. Ignored.
	Speaker string `json:"speaker"`
	// Role is the model-asserted role. Ignored.
	Role string `json:"role"`
	// Title is the model-asserted talk title. Ignored.
	Title string `json:"title"`
	// SourceLink is the model-asserted recording link. Ignored.
	SourceLink string `json:"youtube_link"`
	// DeepLink is the model-asserted paragraph link. Ignored.
	DeepLink string `json:"paragraph_deep_link"`
	// Text is the quoted paragraph text the model claims to have copied.
	Text string `json:"paragraph_text"`
	// StartTime is the model-asserted start offset; models emit numbers or strings.
	StartTime any `json:"start_time"`
	// EndTime is the model-asserted end offset; models emit numbers or strings.
	EndTime any `json:"end_time"`
}

// Quote is a verified quote. It corresponds to exactly one retrieved passage
// and every field is copied from that passage.
type Quote struct {
	Speaker    string `json:"speaker"`
	Role       string `json:"role"`
	Title      string `json:"title"`
	SourceLink string `json:"youtube_link"`
	DeepLink   string `json:"paragraph_deep_link"`
	Text       string `json:"paragraph_text"`
	StartTime  int    `json:"start_time"`
	EndTime    int    `json:"end_time"`
}

// Normalize reduces text to its letters, digits, and whitespace, then trims
// the result. Case is preserved. It absorbs punctuation drift and escape
// artifacts the model introduces when copying a paragraph.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// index maps every lookup form of a passage's text to the passage.
type index map[string]*rag.Passage

// newIndex builds the lookup table from the retrieved passages. When two
// passages share a key, the first (highest scored) one wins.
func newIndex(passages []rag.Passage) index {
	idx := make(index, len(passages)*3)
	for i := range passages {
		p := &passages[i]
		for _, key := range []string{p.Text, strings.TrimSpace(p.Text), Normalize(p.Text)} {
			if key == "" {
				continue
			}
			if _, taken := idx[key]; !taken {
				idx[key] = p
			}
		}
	}
	return idx
}

// lookup resolves a candidate's text by its raw form, then its normalized form.
func (idx index) lookup(text string) (*rag.Passage, bool) {
	if text == "" {
		return nil, false
	}
	if p, ok := idx[text]; ok {
		return p, true
	}
	norm := Normalize(text)
	if norm == "" {
		return nil, false
	}
	p, ok := idx[norm]
	return p, ok
}

// Verify filters candidates down to the ones whose text matches a retrieved
// passage and rebuilds each survivor from that passage. Output order follows
// candidate order. Unmatched candidates are logged and dropped. An empty
// result is returned as an empty, non-nil slice; deciding whether that is a
// failure belongs to the caller.
func Verify(log *slog.Logger, passages []rag.Passage, candidates []Candidate) []Quote {
	if log == nil {
		log = slog.Default()
	}

	idx := newIndex(passages)
	quotes := make([]Quote, 0, len(candidates))

	for _, c := range candidates {
		p, ok := idx.lookup(c.Text)
		if !ok {
			log.Info("verify: unverified quote dropped", slog.String("preview", preview(c.Text)))
			continue
		}

		q := fromPassage(p)
		log.Debug("verify: quote verified",
			slog.String("passage_id", p.ID),
			slog.String("preview", preview(q.Text)),
		)
		quotes = append(quotes, q)
	}

	return quotes
}

// fromPassage builds a Quote from passage data only.
func fromPassage(p *rag.Passage) Quote {
	return Quote{
		Speaker:    p.Metadata.Speaker,
		Role:       p.Metadata.Role,
		Title:      p.Metadata.Title,
		SourceLink: p.Metadata.SourceLink,
		DeepLink:   p.Metadata.DeepLink,
		Text:       p.Text,
		StartTime:  p.Metadata.StartTime,
		EndTime:    p.Metadata.EndTime,
	}
}

// preview truncates s to previewLen runes for logging.
func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}
