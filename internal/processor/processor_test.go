package processor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fefejiro/peacepad/pkg/events"
	"github.com/fefejiro/peacepad/pkg/kafka"
	"github.com/fefejiro/peacepad/pkg/tone"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestMessageHandlerDropsMalformedJobs(t *testing.T) {
	p := NewProcessor(DefaultConfig(), nil, nil, nil, testLogger())
	handler := p.MessageHandler()

	err := handler(context.Background(), &kafka.ReceivedMessage{
		Topic: "peacepad.tone.jobs",
		Value: []byte("not json"),
	})

	// A malformed job cannot be fixed by redelivery, so the handler
	// swallows it and the consumer commits past it.
	assert.NoError(t, err)
	assert.Equal(t, int64(1), p.Stats().JobsFailed)
	assert.Equal(t, int64(0), p.Stats().JobsProcessed)
}

func TestProcessJobAnalyzerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	toneCfg := tone.DefaultConfig()
	toneCfg.BaseURL = server.URL
	analyzer := tone.NewClient(toneCfg, testLogger())

	p := NewProcessor(DefaultConfig(), nil, analyzer, nil, testLogger())

	err := p.ProcessJob(context.Background(), &events.ToneJob{
		MessageID:     "msg-1",
		PartnershipID: "partnership-1",
		Content:       "hello",
	})

	// Analysis failures surface so the caller can decide on retries.
	require.Error(t, err)
	assert.ErrorContains(t, err, "tone analysis failed for message msg-1")
	assert.Equal(t, int64(1), p.Stats().JobsFailed)
}

func TestMessageHandlerForwardsValidJobs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	toneCfg := tone.DefaultConfig()
	toneCfg.BaseURL = server.URL
	analyzer := tone.NewClient(toneCfg, testLogger())

	p := NewProcessor(DefaultConfig(), nil, analyzer, nil, testLogger())
	handler := p.MessageHandler()

	payload, err := json.Marshal(events.ToneJob{
		MessageID:     "msg-2",
		PartnershipID: "partnership-1",
		Content:       "hello",
	})
	require.NoError(t, err)

	err = handler(context.Background(), &kafka.ReceivedMessage{
		Topic: "peacepad.tone.jobs",
		Value: payload,
	})
	assert.ErrorContains(t, err, "tone analysis failed")
}
