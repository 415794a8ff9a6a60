package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/agentswarm/llm"
	"github.com/BaSui01/agentswarm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		ProviderName: "test",
		APIKey:       "sk-test",
		BaseURL:      srv.URL,
		DefaultModel: "test-model",
		Timeout:      5 * time.Second,
	}, srv.Client(), zap.NewNop())
}

func userRequest(content string) *llm.ChatRequest {
	return &llm.ChatRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: content}},
		MaxTokens:   64,
		Temperature: 0.5,
	}
}

func TestProvider_Completion(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		assert.Equal(t, 64, body.MaxTokens)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"model": "test-model",
			"created": 1700000000,
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "hello"}}],
			"usage": {"prompt_tokens": 7, "completion_tokens": 2, "total_tokens": 9}
		}`))
	})

	resp, err := p.Completion(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.FirstContent())
	assert.Equal(t, "test", resp.Provider)
	assert.Equal(t, 9, resp.Usage.TotalTokens)
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestProvider_EmptyRequest(t *testing.T) {
	p := New(Config{}, nil, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	assert.Equal(t, "openai-compat", p.Name())
}

func TestProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      types.ErrorCode
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, types.ErrAuthentication, false},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, types.ErrRateLimited, true},
		{"quota", http.StatusBadRequest, `{"error":{"message":"insufficient quota"}}`, types.ErrQuotaExceeded, false},
		{"context", http.StatusBadRequest, `{"error":{"message":"maximum context length exceeded"}}`, types.ErrContextTooLong, false},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"nope"}}`, types.ErrInvalidRequest, false},
		{"not found", http.StatusNotFound, `not here`, types.ErrModelNotFound, false},
		{"unavailable", http.StatusServiceUnavailable, ``, types.ErrServiceUnavailable, true},
		{"bad gateway", http.StatusBadGateway, `upstream`, types.ErrUpstreamError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.Completion(context.Background(), userRequest("x"))
			require.Error(t, err)

			e, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.retryable, e.Retryable)
			assert.Equal(t, tt.status, e.HTTPStatus)
			assert.Equal(t, "test", e.Provider)
		})
	}
}

func TestProvider_MalformedBody(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := p.Completion(context.Background(), userRequest("x"))
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
}

func TestProvider_ContextCancelled(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Completion(ctx, userRequest("x"))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamTimeout))
	assert.False(t, types.IsRetryable(err))
}

func TestReadErrorMessage(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad field","type":"invalid_request_error"}}`))
	})

	_, err := p.Completion(context.Background(), userRequest("x"))
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "bad field (type: invalid_request_error)", e.Message)
}
