// Package rag defines the retrieval side of the quote search pipeline: the
// Passage model returned for a query and the interfaces for embedding,
// vector search, and end-to-end retrieval.
// Concrete implementations (Qdrant, etc.) satisfy these interfaces so the
// pipeline never depends on a specific backend.
package rag

import (
	"context"
)

// Metadata is the source attribution stored alongside every indexed passage.
// The verifier copies these fields into each verified quote verbatim.
type Metadata struct {
	// Speaker is the name of the person who delivered the passage.
	Speaker string

	// Role is the speaker's title or calling at the time of the talk.
	Role string

	// Title is the title of the talk the passage belongs to.
	Title string

	// SourceLink is the link to the full recording of the talk.
	SourceLink string

	// SourceID is the stable identifier of the recording (e.g. a video ID).
	SourceID string

	// DeepLink is the link to this specific paragraph in the published text.
	DeepLink string

	// ParagraphIndex is the 1-based position of the passage within its talk.
	ParagraphIndex int

	// StartTime is the offset in seconds where the passage begins in the recording.
	StartTime int

	// EndTime is the offset in seconds where the passage ends in the recording.
	EndTime int
}

// Passage is a unit of retrieved source text. Passages are immutable once
// returned by a Retriever.
type Passage struct {
	// ID is the composite corpus identifier ("<talk>-<paragraph>").
	ID string

	// Score is the similarity score assigned during retrieval.
	Score float32

	// Text is the raw paragraph text as indexed.
	Text string

	// Metadata holds the attribution fields for the passage.
	Metadata Metadata
}

// VectorStore is the interface for searching passage embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Search performs a semantic similarity search and returns the top-k
	// most relevant passages for the given query embedding, ordered by
	// descending score.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Passage, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface used by the pipeline to fetch the
// passages relevant to a question. It combines embedding and vector search.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns at most topK passages ordered by descending score.
	// An empty result is not an error.
	Retrieve(ctx context.Context, query string, topK int) ([]Passage, error)
}
