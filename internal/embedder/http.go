package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseBytes caps how much of an embeddings response is read.
const maxResponseBytes = 16 << 20

// postJSON sends in as a JSON POST and decodes a 2xx reply into out. For any
// other status the error carries the status code and, when apiMessage can
// extract one, the provider's own message; otherwise a short body excerpt.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, in, out any, apiMessage func([]byte) string) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := apiMessage(raw); msg != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
		}
		if excerpt := excerpt(raw); excerpt != "" && !strings.HasPrefix(excerpt, "{") {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, excerpt)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// excerpt returns the first line of body, shortened for error messages.
func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}

// checkVectors verifies one vector per input and, when dims > 0, that every
// vector has the length the Qdrant collection was built with.
func checkVectors(vecs [][]float32, inputs, dims int) error {
	if len(vecs) != inputs {
		return fmt.Errorf("expected %d embeddings, got %d", inputs, len(vecs))
	}
	if dims <= 0 {
		return nil
	}
	for i, v := range vecs {
		if len(v) != dims {
			return fmt.Errorf("embedding %d has %d dimensions, want %d (EMBEDDING_DIMENSIONS)", i, len(v), dims)
		}
	}
	return nil
}
