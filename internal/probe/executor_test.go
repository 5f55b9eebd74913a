package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssrsss/API-Check/internal/models"
)

// memorySink captures saved records for assertions.
type memorySink struct {
	mu   sync.Mutex
	recs []models.LogRecord
}

func (s *memorySink) Save(ctx context.Context, rec *models.LogRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, *rec)
}

func (s *memorySink) records() []models.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LogRecord(nil), s.recs...)
}

func testConfig(baseURL string) *models.ApiConfig {
	return &models.ApiConfig{
		ID:             "test-ep",
		Name:           "test-ep",
		APIKey:         "sk-test-key-123456",
		BaseURL:        baseURL,
		ConnectionMode: models.ConnectionModeStandard,
		Capabilities:   models.Capabilities{Chat: true, Models: true},
	}
}

func TestFetchModelsData(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/models", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4","object":"model","owned_by":"openai"}]}`))
	}))
	defer server.Close()

	sink := &memorySink{}
	e := NewExecutor(sink)

	list, err := e.FetchModels(context.Background(), testConfig(server.URL))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "gpt-4", list[0].ID)
	assert.Equal(t, "openai", list[0].OwnedBy)
	assert.Equal(t, "Bearer sk-test-key-123456", gotAuth)

	recs := sink.records()
	require.Len(t, recs, 1)
	assert.Equal(t, string(models.ProbeKindModels), recs[0].Kind)
	assert.Equal(t, 200, recs[0].StatusCode)
	assert.Equal(t, "test-ep", recs[0].EndpointID)
	assert.Empty(t, recs[0].Error)
	assert.Contains(t, recs[0].ResponseBody, `"gpt-4"`)
}

func TestFetchModelsBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
	}))
	defer server.Close()

	e := NewExecutor(&memorySink{})
	list, err := e.FetchModels(context.Background(), testConfig(server.URL))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[1].ID)
}

func TestFetchModelsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer server.Close()

	sink := &memorySink{}
	e := NewExecutor(sink)

	_, err := e.FetchModels(context.Background(), testConfig(server.URL))
	require.Error(t, err)

	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, 401, herr.StatusCode)
	assert.Contains(t, err.Error(), "invalid api key")

	recs := sink.records()
	require.Len(t, recs, 1)
	assert.Equal(t, 401, recs[0].StatusCode)
	assert.NotEmpty(t, recs[0].Error)
}

func TestFetchModelsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"object":"list"}`))
	}))
	defer server.Close()

	e := NewExecutor(&memorySink{})
	_, err := e.FetchModels(context.Background(), testConfig(server.URL))

	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
}

func TestFetchModelsMissingEndpoint(t *testing.T) {
	cfg := &models.ApiConfig{
		ID:             "custom-ep",
		Name:           "custom-ep",
		ConnectionMode: models.ConnectionModeCustom,
		ChatEndpoint:   "https://example.com/chat",
	}

	sink := &memorySink{}
	e := NewExecutor(sink)

	_, err := e.FetchModels(context.Background(), cfg)
	require.ErrorIs(t, err, ErrMissingEndpoint)

	// The caller configuration error is still audited.
	recs := sink.records()
	require.Len(t, recs, 1)
	assert.Equal(t, 0, recs[0].StatusCode)
}

func TestTestLatencySuccess(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hello"}}]}`))
	}))
	defer server.Close()

	sink := &memorySink{}
	e := NewExecutor(sink)

	result := e.TestLatency(context.Background(), testConfig(server.URL), "gpt-4", 5, false)

	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Equal(t, 200, result.StatusCode)
	assert.GreaterOrEqual(t, result.LatencyMs, int64(0))
	assert.Empty(t, result.Message)

	assert.Equal(t, "gpt-4", gotBody["model"])
	assert.Equal(t, float64(1), gotBody["max_tokens"])

	recs := sink.records()
	require.Len(t, recs, 1)
	assert.Equal(t, string(models.ProbeKindLatency), recs[0].Kind)
	assert.Equal(t, "gpt-4", recs[0].Model)
}

func TestTestLatencyTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer server.Close()

	sink := &memorySink{}
	e := NewExecutor(sink)

	start := time.Now()
	result := e.TestLatency(context.Background(), testConfig(server.URL), "gpt-4", 1, false)

	assert.Equal(t, models.StatusError, result.Status)
	assert.Contains(t, result.Message, "timed out")
	// A failed round reports no latency; the audit record keeps the elapsed time.
	assert.Equal(t, int64(0), result.LatencyMs)
	assert.Less(t, time.Since(start), 2*time.Second)

	recs := sink.records()
	require.Len(t, recs, 1)
	assert.GreaterOrEqual(t, recs[0].LatencyMs, int64(900))
}

func TestTestLatencyHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	e := NewExecutor(&memorySink{})
	result := e.TestLatency(context.Background(), testConfig(server.URL), "gpt-4", 5, false)

	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, 429, result.StatusCode)
	assert.Contains(t, result.Message, "rate limited")
}

func TestTestLatencyRedirectStatusIsError(t *testing.T) {
	// A 3xx with a well-formed body is still not a success; only 2xx is.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultipleChoices)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hello"}}]}`))
	}))
	defer server.Close()

	sink := &memorySink{}
	e := NewExecutor(sink)

	result := e.TestLatency(context.Background(), testConfig(server.URL), "gpt-4", 5, false)

	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, 300, result.StatusCode)
	assert.Contains(t, result.Message, "HTTP 300")
	assert.Equal(t, int64(0), result.LatencyMs)

	recs := sink.records()
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].Error)
}

func TestFetchModelsRedirectStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultipleChoices)
		w.Write([]byte(`{"data":[{"id":"gpt-4"}]}`))
	}))
	defer server.Close()

	e := NewExecutor(&memorySink{})
	_, err := e.FetchModels(context.Background(), testConfig(server.URL))

	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, 300, herr.StatusCode)
}

func TestTestToolSupportRedirectStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultipleChoices)
		w.Write([]byte(`{"choices":[{"message":{"tool_calls":[{"id":"call_1"}]}}]}`))
	}))
	defer server.Close()

	e := NewExecutor(&memorySink{})
	result := e.TestToolSupport(context.Background(), testConfig(server.URL), "gpt-4", 5)

	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, 300, result.StatusCode)
}

func TestTestLatencyStreamDrainsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	e := NewExecutor(&memorySink{})
	result := e.TestLatency(context.Background(), testConfig(server.URL), "gpt-4", 5, true)

	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Contains(t, result.ResponseBody, "[DONE]")
}

func TestTestLatencyMergesParams(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Params = map[string]any{"temperature": 0.2, "max_tokens": 16}
	cfg.Headers = map[string]string{"X-Custom": "yes"}

	e := NewExecutor(&memorySink{})
	result := e.TestLatency(context.Background(), cfg, "gpt-4", 5, false)

	assert.Equal(t, models.StatusSuccess, result.Status)
	// Config params override the request's own fields.
	assert.Equal(t, float64(16), gotBody["max_tokens"])
	assert.Equal(t, 0.2, gotBody["temperature"])
}

func TestTestToolSupportSupported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req["tools"])

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"location\":\"Paris\"}"}}]}}]}`))
	}))
	defer server.Close()

	sink := &memorySink{}
	e := NewExecutor(sink)

	result := e.TestToolSupport(context.Background(), testConfig(server.URL), "gpt-4", 5)

	assert.Equal(t, models.StatusSupported, result.Status)
	assert.Empty(t, result.Message)
	require.Len(t, sink.records(), 1)
}

func TestTestToolSupportLegacyFunctionCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"function_call":{"name":"get_weather","arguments":"{}"}}}]}`))
	}))
	defer server.Close()

	e := NewExecutor(&memorySink{})
	result := e.TestToolSupport(context.Background(), testConfig(server.URL), "gpt-4", 5)

	assert.Equal(t, models.StatusSupported, result.Status)
}

func TestTestToolSupportUnsupported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// An explicit null function_call must not read as support.
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"It is sunny in Paris.","function_call":null}}]}`))
	}))
	defer server.Close()

	e := NewExecutor(&memorySink{})
	result := e.TestToolSupport(context.Background(), testConfig(server.URL), "gpt-4", 5)

	assert.Equal(t, models.StatusUnsupported, result.Status)
	assert.Equal(t, "model answered without a tool call", result.Message)
}

func TestTestToolSupportHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"tools not allowed"}}`))
	}))
	defer server.Close()

	e := NewExecutor(&memorySink{})
	result := e.TestToolSupport(context.Background(), testConfig(server.URL), "gpt-4", 5)

	assert.Equal(t, models.StatusError, result.Status)
	assert.Contains(t, result.Message, "tools not allowed")
}

func TestParseModelList(t *testing.T) {
	list, err := parseModelList(`  [{"id":"x"}] `)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = parseModelList(`{"data":[]}`)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = parseModelList(`"nope"`)
	require.Error(t, err)

	_, err = parseModelList(`{`)
	require.Error(t, err)
}

func TestShortErrorText(t *testing.T) {
	assert.Equal(t, "invalid api key", shortErrorText(`{"error":{"message":"invalid api key"}}`))

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	short := shortErrorText(string(long))
	assert.Len(t, short, maxErrorTextLen)

	assert.Equal(t, "(empty body)", shortErrorText("  "))
	assert.Equal(t, "plain text failure", shortErrorText("plain text failure"))

	// Truncation never splits a multi-byte rune.
	wide := strings.Repeat("模", 100)
	assert.True(t, utf8.ValidString(shortErrorText(wide)))
	assert.LessOrEqual(t, len(shortErrorText(wide)), maxErrorTextLen)
}
