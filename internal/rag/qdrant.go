package rag

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/quoteseek/internal/config"
)

// Payload keys written by the corpus pipeline for every indexed passage.
const (
	payloadID             = "id"
	payloadText           = "paragraph_text"
	payloadSpeaker        = "speaker"
	payloadRole           = "role"
	payloadTitle          = "title"
	payloadSourceLink     = "youtube_link"
	payloadSourceID       = "youtube_id"
	payloadDeepLink       = "paragraph_deep_link"
	payloadParagraphIndex = "paragraph_index"
	payloadStartTime      = "start_time"
	payloadEndTime        = "end_time"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection holding the passage corpus.
	Collection string

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// DefaultCollection is the passage collection queried when QDRANT_COLLECTION
// is unset.
const DefaultCollection = "talk-paragraphs"

// QdrantConfigFromEnv reads QDRANT_HOST, QDRANT_PORT, QDRANT_COLLECTION,
// QDRANT_API_KEY and QDRANT_TLS.
func QdrantConfigFromEnv() *QdrantConfig {
	return &QdrantConfig{
		Host:       config.String("QDRANT_HOST", "localhost"),
		Port:       config.Int("QDRANT_PORT", 6334),
		Collection: config.String("QDRANT_COLLECTION", DefaultCollection),
		APIKey:     config.String("QDRANT_API_KEY", ""),
		UseTLS:     config.Bool("QDRANT_TLS", false),
	}
}

// QdrantStore implements VectorStore backed by a Qdrant instance.
// The collection is provisioned by the corpus pipeline; this store only reads.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore connects to Qdrant and verifies that the target collection
// exists. A missing collection is a configuration error: the index is built
// offline and is never created here.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant: collection %q does not exist", cfg.Collection)
	}

	return &QdrantStore{client: client, cfg: cfg}, nil
}

// Client returns the underlying gRPC client, used for readiness probes.
func (s *QdrantStore) Client() *qdrant.Client {
	return s.client
}

// Search performs a cosine similarity search and returns the top-k results.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Passage, error) {
	limit := uint64(topK) //nolint:gosec // topK is validated positive by the retriever
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	passages := make([]Passage, 0, len(results))
	for _, r := range results {
		passages = append(passages, passageFromPayload(pointID(r.GetId()), r.GetScore(), r.GetPayload()))
	}

	return passages, nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// pointID renders a Qdrant point ID as a string regardless of its kind.
func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// passageFromPayload maps a Qdrant point payload onto a Passage. The corpus
// "id" payload field wins over the point ID because Qdrant only accepts
// UUIDs or integers as point IDs.
func passageFromPayload(id string, score float32, payload map[string]*qdrant.Value) Passage {
	p := Passage{
		ID:    id,
		Score: score,
		Text:  stringValue(payload[payloadText]),
		Metadata: Metadata{
			Speaker:        stringValue(payload[payloadSpeaker]),
			Role:           stringValue(payload[payloadRole]),
			Title:          stringValue(payload[payloadTitle]),
			SourceLink:     stringValue(payload[payloadSourceLink]),
			SourceID:       stringValue(payload[payloadSourceID]),
			DeepLink:       stringValue(payload[payloadDeepLink]),
			ParagraphIndex: intValue(payload[payloadParagraphIndex]),
			StartTime:      intValue(payload[payloadStartTime]),
			EndTime:        intValue(payload[payloadEndTime]),
		},
	}
	if corpusID := stringValue(payload[payloadID]); corpusID != "" {
		p.ID = corpusID
	}
	return p
}

// stringValue returns the string form of a payload value, or "" when absent.
func stringValue(v *qdrant.Value) string {
	if v == nil {
		return ""
	}
	switch v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return v.GetStringValue()
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(v.GetIntegerValue(), 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(v.GetDoubleValue(), 'f', -1, 64)
	default:
		return ""
	}
}

// intValue coerces a payload value to an integer. The corpus stores times as
// integers, floats, or numeric strings depending on which pipeline version
// wrote them; fractional seconds are truncated.
func intValue(v *qdrant.Value) int {
	if v == nil {
		return 0
	}
	switch v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		return int(v.GetIntegerValue())
	case *qdrant.Value_DoubleValue:
		return int(math.Trunc(v.GetDoubleValue()))
	case *qdrant.Value_StringValue:
		f, err := strconv.ParseFloat(v.GetStringValue(), 64)
		if err != nil {
			return 0
		}
		return int(math.Trunc(f))
	default:
		return 0
	}
}
