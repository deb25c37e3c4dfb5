package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/quoteseek/internal/jobs"
	"github.com/54b3r/quoteseek/internal/pipeline"
	"github.com/54b3r/quoteseek/internal/search"
	"github.com/54b3r/quoteseek/internal/verify"
)

// fakeSearcher is a test double for the searcher interface.
type fakeSearcher struct {
	mu sync.Mutex
	// result and err are returned by Submit.
	result search.Result
	err    error
	// jobs is consulted by Poll; entries are deleted once terminal.
	jobs map[string]jobs.Job
	// submitted records every Submit call.
	submitted []queryRequest
}

func (f *fakeSearcher) Submit(query string, topK int) (search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, queryRequest{Question: query, TopK: topK})
	if f.err != nil {
		return search.Result{}, f.err
	}
	if strings.TrimSpace(query) == "" {
		return search.Result{}, pipeline.ErrEmptyQuery
	}
	return f.result, nil
}

func (f *fakeSearcher) Poll(id string) (jobs.Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if ok && job.Status.Terminal() {
		delete(f.jobs, id)
	}
	return job, ok
}

// newTestServer builds a *Server with a fake searcher, an isolated metrics
// registry and a discarded log.
func newTestServer() *Server {
	s, _ := newTestServerWith(&fakeSearcher{}, &Config{})
	return s
}

// newTestServerWith builds a *Server around svc, filling in an isolated
// registry unless cfg already carries one.
func newTestServerWith(svc *fakeSearcher, cfg *Config) (*Server, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = reg
		cfg.MetricsGatherer = reg
	}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(svc, cfg)
	if err != nil {
		panic(err)
	}
	return s, reg
}

// do sends a request through the full router.
func do(t *testing.T, s *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "192.0.2.1:4000"
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&body), w.Body.String())
	return body
}

var sampleQuotes = []verify.Quote{{
	Speaker:    "Speaker A",
	Title:      "On Faith",
	SourceLink: "https://youtu.be/abc",
	Text:       "Faith is a principle of action.",
	StartTime:  10,
	EndTime:    20,
}}

func TestNew_RequiresSearcher(t *testing.T) {
	_, err := New(nil, &Config{})
	assert.Error(t, err)
}

func TestHandleQuery_Queued(t *testing.T) {
	svc := &fakeSearcher{result: search.Result{Status: jobs.StatusPending, JobID: "job-1"}}
	s, _ := newTestServerWith(svc, &Config{})

	w := do(t, s, http.MethodPost, "/api/query", `{"question":"what is faith?","top_k":5}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "job-1", body["job_id"])
	assert.NotContains(t, body, "response_text")
	assert.Equal(t, []queryRequest{{Question: "what is faith?", TopK: 5}}, svc.submitted)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.queryRequestsTotal.WithLabelValues("queued")))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestHandleQuery_CacheHit(t *testing.T) {
	svc := &fakeSearcher{result: search.Result{Status: jobs.StatusComplete, Cached: true, Quotes: sampleQuotes}}
	s, _ := newTestServerWith(svc, &Config{})

	w := do(t, s, http.MethodPost, "/api/query", `{"question":"what is faith?"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp queryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, jobs.StatusComplete, resp.Status)
	assert.True(t, resp.Cached)
	assert.Equal(t, sampleQuotes, resp.Quotes)
	assert.Contains(t, w.Body.String(), `"paragraph_text":"Faith is a principle of action."`)
	assert.Contains(t, w.Body.String(), `"youtube_link":"https://youtu.be/abc"`)
}

func TestHandleQuery_Errors(t *testing.T) {
	tests := map[string]struct {
		body       string
		err        error
		wantStatus int
		wantError  string
	}{
		"blank question":   {`{"question":"   "}`, nil, http.StatusBadRequest, emptyQuestionMessage},
		"missing question": {`{}`, nil, http.StatusBadRequest, emptyQuestionMessage},
		"empty body":       {``, nil, http.StatusBadRequest, emptyQuestionMessage},
		"malformed json":   {`{"question":`, nil, http.StatusBadRequest, "invalid request body"},
		"negative top_k":   {`{"question":"q","top_k":-1}`, nil, http.StatusBadRequest, "top_k must not be negative"},
		"queue full":       {`{"question":"q"}`, jobs.ErrQueueFull, http.StatusServiceUnavailable, "queue full"},
		"closed":           {`{"question":"q"}`, jobs.ErrClosed, http.StatusServiceUnavailable, "server shutting down"},
		"unexpected":       {`{"question":"q"}`, errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s, _ := newTestServerWith(&fakeSearcher{err: tt.err}, &Config{})

			w := do(t, s, http.MethodPost, "/api/query", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantError, decodeBody(t, w)["error"])
		})
	}
}

func TestHandleQuery_QueueFullSetsRetryAfter(t *testing.T) {
	s, _ := newTestServerWith(&fakeSearcher{err: jobs.ErrQueueFull}, &Config{})
	w := do(t, s, http.MethodPost, "/api/query", `{"question":"q"}`)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.queryRequestsTotal.WithLabelValues("rejected")))
}

func TestHandleJob_Lifecycle(t *testing.T) {
	svc := &fakeSearcher{jobs: map[string]jobs.Job{
		"p": {ID: "p", Status: jobs.StatusPending},
		"c": {ID: "c", Status: jobs.StatusComplete, Quotes: sampleQuotes},
		"e": {ID: "e", Status: jobs.StatusError, Error: "no verified quotes found"},
	}}
	s, _ := newTestServerWith(svc, &Config{})

	w := do(t, s, http.MethodGet, "/api/jobs/p", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decodeBody(t, w)["status"])

	w = do(t, s, http.MethodGet, "/api/jobs/c", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "complete", body["status"])
	assert.Len(t, body["response_text"], 1)

	w = do(t, s, http.MethodGet, "/api/jobs/e", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "no verified quotes found", body["error"])

	// Terminal results are delivered once.
	for _, id := range []string{"c", "e", "missing"} {
		w = do(t, s, http.MethodGet, "/api/jobs/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code, id)
		assert.Equal(t, "job not found", decodeBody(t, w)["error"])
	}

	// Pending jobs stay pollable.
	w = do(t, s, http.MethodGet, "/api/jobs/p", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_AuthProtectsQueryAndJobsOnly(t *testing.T) {
	s, _ := newTestServerWith(&fakeSearcher{
		result: search.Result{Status: jobs.StatusPending, JobID: "j"},
	}, &Config{APIKey: "secret"})

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodPost, "/api/query", `{"question":"q"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/jobs/j", "").Code)
	assert.Equal(t, http.StatusAccepted,
		do(t, s, http.MethodPost, "/api/query", `{"question":"q"}`, "Authorization", "Bearer secret").Code)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/ready", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/metrics", "").Code)
}

func TestRoutes_QueryIsRateLimited(t *testing.T) {
	s, _ := newTestServerWith(&fakeSearcher{
		result: search.Result{Status: jobs.StatusPending, JobID: "j"},
	}, &Config{RateLimit: 0.001, RateBurst: 1})

	assert.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/query", `{"question":"q"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodPost, "/api/query", `{"question":"q"}`).Code)
	// Polling is not rate limited.
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/jobs/j", "").Code)
}

func TestRoutes_UnknownMethod(t *testing.T) {
	s := newTestServer()
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/api/query", "").Code)
}

func TestRequestLogger_PropagatesRequestID(t *testing.T) {
	s := newTestServer()
	w := do(t, s, http.MethodGet, "/api/health", "", requestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}
