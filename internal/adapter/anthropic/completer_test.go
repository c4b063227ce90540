package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/bizanalyzer/internal/adapter/anthropic"
	"github.com/user/bizanalyzer/internal/entity"
)

const messageResponse = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-3-5-sonnet-latest",
	"content": [
		{"type": "text", "text": "{\"title\":\"Acme\","},
		{"type": "text", "text": "\"businessType\":\"Bakery\"}"}
	],
	"stop_reason": "end_turn",
	"stop_sequence": null,
	"usage": {"input_tokens": 120, "output_tokens": 18}
}`

func newCompleter(srv *httptest.Server) *anthropic.Completer {
	return newCompleterWithTemperature(srv, 0.5)
}

func newCompleterWithTemperature(srv *httptest.Server, temperature float64) *anthropic.Completer {
	return anthropic.NewCompleter(anthropic.Options{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/",
		Model:       "claude-3-5-sonnet-latest",
		MaxTokens:   1024,
		Temperature: temperature,
	}, nil)
}

func TestCompleter_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse))
	}))
	defer srv.Close()

	out, err := newCompleter(srv).Complete(context.Background(), entity.Prompt{
		System: "You analyze business websites.",
		User:   "Analyze this.",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Acme","businessType":"Bakery"}`, out)

	assert.Equal(t, "claude-3-5-sonnet-latest", body["model"])
	assert.EqualValues(t, 1024, body["max_tokens"])
	assert.EqualValues(t, 0.5, body["temperature"])
	require.Len(t, body["messages"], 1)
	require.Len(t, body["system"], 1)
}

func TestCompleter_ServerErrorIsNotRetriedBySDK(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	}))
	defer srv.Close()

	_, err := newCompleter(srv).Complete(context.Background(), entity.Prompt{User: "Analyze this."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic completion failed")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompleter_ZeroTemperatureIsSent(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse))
	}))
	defer srv.Close()

	_, err := newCompleterWithTemperature(srv, 0).Complete(context.Background(), entity.Prompt{User: "Analyze this."})
	require.NoError(t, err)

	require.Contains(t, body, "temperature")
	assert.EqualValues(t, 0, body["temperature"])
}
