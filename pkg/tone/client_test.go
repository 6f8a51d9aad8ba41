package tone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestAnalyze(t *testing.T) {
	var gotPath string
	var gotContent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		var req struct {
			Content string `json:"content"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotContent = req.Content

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{Tone: "tense", Confidence: 0.91})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	client := NewClient(cfg, testLogger())

	result, err := client.Analyze(context.Background(), "you are always late")
	require.NoError(t, err)

	assert.Equal(t, "/analyze", gotPath)
	assert.Equal(t, "you are always late", gotContent)
	assert.Equal(t, "tense", result.Tone)
	assert.Equal(t, 0.91, result.Confidence)
}

func TestAnalyzeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	client := NewClient(cfg, testLogger())

	_, err := client.Analyze(context.Background(), "hello")
	assert.ErrorContains(t, err, "503")
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	client := NewClient(cfg, testLogger())

	_, err := client.Analyze(context.Background(), "hello")
	assert.ErrorContains(t, err, "failed to parse tone response")
}

func TestAnalyzeUnreachableService(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://127.0.0.1:1"
	client := NewClient(cfg, testLogger())

	_, err := client.Analyze(context.Background(), "hello")
	assert.Error(t, err)
}
