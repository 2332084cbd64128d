package model

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/menutalk/kiku/internal/errors"
)

var menuPhoto = Attachment{Data: []byte{0xff, 0xd8, 0xff, 0xe0}, MIMEType: "image/jpeg"}

func requireUpstream(t *testing.T, err error, wantCode string) {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeUpstream, appErr.Type)
	assert.Equal(t, http.StatusBadGateway, appErr.StatusCode)
	if wantCode != "" {
		assert.Equal(t, wantCode, appErr.ErrorCode)
	}
}

func TestGemini_Generate(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[{\"a\":"},{"text":"1}]"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	g := NewGeminiGenerator("test-key", "gemini-test", Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	text, err := g.Generate(context.Background(), "read this menu", []Attachment{menuPhoto})
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1}]`, text)

	require.Len(t, got.Contents, 1)
	parts := got.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "read this menu", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(menuPhoto.Data), parts[1].InlineData.Data)
	assert.Equal(t, defaultMaxTokens, got.GenerationConfig.MaxOutputTokens)
}

func TestGemini_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"quota"}}`, "MODEL_RATE_LIMIT"},
		{"server error", http.StatusServiceUnavailable, `{"error":{"message":"overloaded"}}`, "MODEL_SERVER_ERROR"},
		{"bad key", http.StatusForbidden, `{"error":{"message":"denied"}}`, "MODEL_CLIENT_ERROR"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "MODEL_EMPTY_RESPONSE"},
		{"blocked prompt", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, "MODEL_EMPTY_RESPONSE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewGeminiGenerator("k", "m", Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
			text, err := g.Generate(context.Background(), "p", nil)
			assert.Empty(t, text)
			requireUpstream(t, err, tt.wantCode)
			assert.Equal(t, int32(1), calls.Load(), "request must not be retried")
		})
	}
}

func TestGemini_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := NewGeminiGenerator("k", "m", Options{BaseURL: url})
	_, err := g.Generate(context.Background(), "p", nil)
	requireUpstream(t, err, "")
}

func TestOpenAI_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"detectedLanguage\":\"Thai\"}"}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("sk-test", "gpt-test", Options{BaseURL: srv.URL, MaxTokens: 100, HTTPClient: srv.Client()})
	text, err := g.Generate(context.Background(), "which language?", []Attachment{menuPhoto})
	require.NoError(t, err)
	assert.Equal(t, `{"detectedLanguage":"Thai"}`, text)

	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	content := got.Messages[0].Content
	require.Len(t, content, 2)
	assert.Equal(t, "text", content[0].Type)
	assert.Equal(t, "image_url", content[1].Type)
	assert.True(t, strings.HasPrefix(content[1].ImageURL.URL, "data:image/jpeg;base64,"))
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("k", "m", Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := g.Generate(context.Background(), "p", nil)
	requireUpstream(t, err, "MODEL_EMPTY_RESPONSE")
}

func TestAnthropic_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test","content":[{"type":"text","text":"[]"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":1}}`))
	}))
	defer srv.Close()

	g := NewAnthropicGenerator("ak", "claude-test", Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	text, err := g.Generate(context.Background(), "read this menu", []Attachment{menuPhoto})
	require.NoError(t, err)
	assert.Equal(t, "[]", text)

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	blocks := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, blocks, 2)
	assert.Equal(t, "image", blocks[0].(map[string]any)["type"])
	assert.Equal(t, "text", blocks[1].(map[string]any)["type"])
}

func TestAnthropic_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer srv.Close()

	g := NewAnthropicGenerator("ak", "claude-test", Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := g.Generate(context.Background(), "p", nil)
	requireUpstream(t, err, "MODEL_SERVER_ERROR")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&StatusError{Provider: ProviderGemini, StatusCode: 429}, KindRateLimit},
		{&StatusError{Provider: ProviderGemini, StatusCode: 402}, KindCredit},
		{&StatusError{Provider: ProviderGemini, StatusCode: 502}, KindServer},
		{&StatusError{Provider: ProviderGemini, StatusCode: 400}, KindClient},
		{context.DeadlineExceeded, KindTimeout},
		{errEmptyResponse, KindEmpty},
		{errors.New("Rate limit reached"), KindRateLimit},
		{errors.New("billing hard limit"), KindCredit},
		{errors.New("connection refused"), KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestUpstream_KeepsAppError(t *testing.T) {
	orig := apperrors.NewParseError("bad", "X", "raw", nil)
	assert.Same(t, orig, Upstream(ProviderGemini, orig))
}
