package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

// fakeEmbedder returns a fixed vector or error.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

// fakeStore returns canned passages and records the requested topK.
type fakeStore struct {
	passages []Passage
	gotTopK  int
}

func (f *fakeStore) Search(_ context.Context, _ []float32, topK int) ([]Passage, error) {
	f.gotTopK = topK
	return append([]Passage(nil), f.passages...), nil
}

func (f *fakeStore) Close() error { return nil }

func TestNewRetriever_RejectsNilDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, &fakeStore{}, 5); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewRetriever(&fakeEmbedder{}, nil, 5); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	r, err := NewRetriever(&fakeEmbedder{}, store, 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	if _, err := r.Retrieve(context.Background(), "faith", 0); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if store.gotTopK != 15 {
		t.Errorf("topK: want 15, got %d", store.gotTopK)
	}
}

func TestRetrieve_SortsAndTruncates(t *testing.T) {
	t.Parallel()

	store := &fakeStore{passages: []Passage{
		{ID: "a", Score: 0.2},
		{ID: "b", Score: 0.9},
		{ID: "c", Score: 0.5},
	}}
	r, err := NewRetriever(&fakeEmbedder{}, store, 10)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	got, err := r.Retrieve(context.Background(), "hope", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 passages, got %d", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("order: want [b c], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestRetrieve_EmbedError(t *testing.T) {
	t.Parallel()

	cause := errors.New("rate limited")
	r, err := NewRetriever(&fakeEmbedder{err: cause}, &fakeStore{}, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	_, err = r.Retrieve(context.Background(), "q", 5)
	if !errors.Is(err, cause) {
		t.Errorf("want wrapped cause, got %v", err)
	}
}

func TestPassageFromPayload(t *testing.T) {
	t.Parallel()

	payload := qdrant.NewValueMap(map[string]any{
		"id":                  "12-4",
		"paragraph_text":      "Faith is the first step",
		"speaker":             "A",
		"role":                "Apostle",
		"title":               "On Faith",
		"youtube_link":        "https://youtube.com/watch?v=abc",
		"youtube_id":          "abc",
		"paragraph_deep_link": "https://example.org/2024/04/faith?lang=eng#p4",
		"paragraph_index":     4,
		"start_time":          10.7,
		"end_time":            "20",
	})

	p := passageFromPayload("uuid-1", 0.87, payload)

	if p.ID != "12-4" {
		t.Errorf("ID: want corpus id 12-4, got %q", p.ID)
	}
	if p.Text != "Faith is the first step" {
		t.Errorf("Text: got %q", p.Text)
	}
	if p.Metadata.Speaker != "A" || p.Metadata.SourceID != "abc" {
		t.Errorf("metadata strings not mapped: %+v", p.Metadata)
	}
	if p.Metadata.ParagraphIndex != 4 {
		t.Errorf("ParagraphIndex: want 4, got %d", p.Metadata.ParagraphIndex)
	}
	if p.Metadata.StartTime != 10 || p.Metadata.EndTime != 20 {
		t.Errorf("times: want 10/20, got %d/%d", p.Metadata.StartTime, p.Metadata.EndTime)
	}
	if p.Score != 0.87 {
		t.Errorf("Score: want 0.87, got %v", p.Score)
	}
}

func TestPassageFromPayload_MissingFields(t *testing.T) {
	t.Parallel()

	p := passageFromPayload("7", 0.1, map[string]*qdrant.Value{})
	if p.ID != "7" {
		t.Errorf("ID: want point id fallback 7, got %q", p.ID)
	}
	if p.Text != "" || p.Metadata.StartTime != 0 {
		t.Errorf("expected zero values, got %+v", p)
	}
}

func TestQdrantConfigFromEnv(t *testing.T) {
	for _, k := range []string{"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION", "QDRANT_API_KEY", "QDRANT_TLS"} {
		t.Setenv(k, "")
	}
	cfg := QdrantConfigFromEnv()
	if cfg.Host != "localhost" || cfg.Port != 6334 || cfg.Collection != DefaultCollection || cfg.UseTLS {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	t.Setenv("QDRANT_HOST", "qdrant.internal")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("QDRANT_COLLECTION", "quotes-v2")
	t.Setenv("QDRANT_TLS", "true")
	cfg = QdrantConfigFromEnv()
	if cfg.Host != "qdrant.internal" || cfg.Port != 7000 || cfg.Collection != "quotes-v2" || !cfg.UseTLS {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}
