package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"character-chat/backend/internal/transcript"
	"character-chat/backend/pkg/logger"
	"character-chat/backend/pkg/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var pirateTurns = []transcript.Turn{
	{Role: transcript.TurnSystem, Content: "You are a pirate."},
	{Role: transcript.TurnAssistant, Content: "Ahoy!"},
	{Role: transcript.TurnUser, Content: "Hello"},
}

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int64   `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionBody(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(raw)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *GroqClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGroqClient(Options{
		BaseURL:     srv.URL + "/openai/v1/",
		APIKey:      "test-key",
		Temperature: DefaultTemperature,
	}, logger.Discard())
	require.NoError(t, err)
	return client
}

func TestGroqClientSendsTranscript(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("Arr, greetings matey")))
	})

	reply, err := client.Complete(context.Background(), pirateTurns)
	require.NoError(t, err)
	assert.Equal(t, "Arr, greetings matey", reply)

	assert.Equal(t, DefaultModel, got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.Equal(t, int64(DefaultMaxTokens), got.MaxTokens)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "user", got.Messages[2].Role)
	assert.Equal(t, "Hello", got.Messages[2].Content)
}

func TestGroqClientEmptyReplyFallsBack(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("")))
	})

	reply, err := client.Complete(context.Background(), pirateTurns)
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, reply)
}

func TestGroqClientNoChoicesFallsBack(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"m","choices":[]}`))
	})

	reply, err := client.Complete(context.Background(), pirateTurns)
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, reply)
}

func TestGroqClientUpstreamErrorIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	})

	_, err := client.Complete(context.Background(), pirateTurns)
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
	assert.Contains(t, upstream.Error(), "Invalid API Key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewGroqClientRequiresKey(t *testing.T) {
	_, err := NewGroqClient(Options{}, logger.Discard())
	assert.Error(t, err)
}

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(context.Context, []transcript.Turn) (string, error) {
	s.calls++
	return s.reply, s.err
}

func TestBreakerCompleterFailsFastWhenOpen(t *testing.T) {
	inner := &stubCompleter{err: &UpstreamError{Message: "rate limited", StatusCode: http.StatusTooManyRequests}}
	breaker := resilience.NewCircuitBreaker(resilience.Config{
		Name:             "completion",
		FailureThreshold: 1,
		Cooldown:         time.Hour,
	}, logger.Discard())
	completer := NewBreakerCompleter(inner, breaker)

	_, err := completer.Complete(context.Background(), pirateTurns)
	assert.EqualError(t, err, "rate limited")

	_, err = completer.Complete(context.Background(), pirateTurns)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, resilience.StateOpen, completer.Breaker().State())
}

func TestBreakerIgnoresRequestErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		if n <= 5 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"context_length_exceeded","type":"invalid_request_error","code":"context_length_exceeded"}}`))
			return
		}
		w.Write([]byte(completionBody("Arr!")))
	})
	breaker := resilience.NewCircuitBreaker(resilience.DefaultConfig("completion"), logger.Discard())
	completer := NewBreakerCompleter(client, breaker)

	for i := 0; i < 5; i++ {
		_, err := completer.Complete(context.Background(), pirateTurns)
		assert.EqualError(t, err, "context_length_exceeded")
	}

	reply, err := completer.Complete(context.Background(), pirateTurns)
	require.NoError(t, err)
	assert.Equal(t, "Arr!", reply)
	assert.Equal(t, resilience.StateClosed, breaker.State())
	assert.Equal(t, uint64(0), breaker.Metrics().TotalFailures)
}

func TestBreakerIgnoresCancelledRequests(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("Arr!")))
	})
	breaker := resilience.NewCircuitBreaker(resilience.DefaultConfig("completion"), logger.Discard())
	completer := NewBreakerCompleter(client, breaker)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := completer.Complete(cancelled, pirateTurns)
		assert.ErrorIs(t, err, context.Canceled)
	}

	reply, err := completer.Complete(context.Background(), pirateTurns)
	require.NoError(t, err)
	assert.Equal(t, "Arr!", reply)
	assert.Equal(t, resilience.StateClosed, breaker.State())
}

func TestBreakerCountsServerErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"over capacity","type":"server_error"}}`))
	})
	breaker := resilience.NewCircuitBreaker(resilience.Config{
		Name:             "completion",
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	}, logger.Discard())
	completer := NewBreakerCompleter(client, breaker)

	for i := 0; i < 2; i++ {
		_, err := completer.Complete(context.Background(), pirateTurns)
		assert.EqualError(t, err, "over capacity")
	}
	assert.Equal(t, resilience.StateOpen, breaker.State())
}

func TestIsAvailabilityFailure(t *testing.T) {
	assert.False(t, IsAvailabilityFailure(nil))
	assert.False(t, IsAvailabilityFailure(&UpstreamError{Err: context.Canceled}))
	assert.False(t, IsAvailabilityFailure(&UpstreamError{Err: context.DeadlineExceeded}))
	assert.False(t, IsAvailabilityFailure(&UpstreamError{StatusCode: http.StatusBadRequest}))
	assert.False(t, IsAvailabilityFailure(&UpstreamError{StatusCode: http.StatusUnauthorized}))
	assert.True(t, IsAvailabilityFailure(&UpstreamError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, IsAvailabilityFailure(&UpstreamError{StatusCode: http.StatusBadGateway}))
	assert.True(t, IsAvailabilityFailure(&UpstreamError{Err: errors.New("connection refused")}))
}

func outcomeCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "completion.requests" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("outcome"))
				counts[v.AsString()] += dp.Value
			}
		}
	}
	return counts
}

func TestInstrumentedCompleterCountsOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	tracer := tracenoop.NewTracerProvider().Tracer("test")

	inner := &stubCompleter{reply: "Arr"}
	completer, err := NewInstrumentedCompleter(inner, meter, tracer)
	require.NoError(t, err)

	reply, err := completer.Complete(context.Background(), pirateTurns)
	require.NoError(t, err)
	assert.Equal(t, "Arr", reply)

	inner.err = errors.New("boom")
	_, err = completer.Complete(context.Background(), pirateTurns)
	assert.Error(t, err)

	inner.err = &UpstreamError{Err: resilience.ErrCircuitOpen}
	_, err = completer.Complete(context.Background(), pirateTurns)
	assert.Error(t, err)

	assert.Equal(t, map[string]int64{
		outcomeSuccess:  1,
		outcomeError:    1,
		outcomeRejected: 1,
	}, outcomeCounts(t, reader))
}
