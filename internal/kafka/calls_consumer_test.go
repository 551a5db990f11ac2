package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unweightedai/kol-trust-service/internal/errs"
	"github.com/unweightedai/kol-trust-service/internal/models"
)

// ---------------------------------------------------------------------------
// Mock CallRecorder
// ---------------------------------------------------------------------------

type recordedCall struct {
	Handle       string
	TokenAddress string
}

type mockRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
	err   error
}

func (m *mockRecorder) RecordCall(_ context.Context, handle, tokenAddress string) (*models.TokenCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.calls = append(m.calls, recordedCall{Handle: handle, TokenAddress: tokenAddress})
	return &models.TokenCall{ID: len(m.calls), KOLHandle: handle, TokenAddress: tokenAddress, RiskScore: 0.2}, nil
}

func (m *mockRecorder) Calls() []recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]recordedCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// ---------------------------------------------------------------------------
// processMessage tests
// ---------------------------------------------------------------------------

func TestCallsConsumer_processMessage(t *testing.T) {
	recorder := &mockRecorder{}
	consumer := &CallsConsumer{recorder: recorder}

	event := CallEvent{
		EventType: "TOKEN_CALL_DETECTED",
		Source:    "tweet-ingest",
		Timestamp: time.Now().Format(time.RFC3339),
		Data: CallEventData{
			Handle:       "@CryptoKol",
			TokenAddress: "So11111111111111111111111111111111111111112",
			PostID:       "17283",
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	err = consumer.processMessage(context.Background(), kafkago.Message{Value: payload})
	require.NoError(t, err)

	calls := recorder.Calls()
	require.Len(t, calls, 1)
	// Handles are normalized: lowered, @ stripped.
	assert.Equal(t, "cryptokol", calls[0].Handle)
	assert.Equal(t, "So11111111111111111111111111111111111111112", calls[0].TokenAddress)
}

func TestCallsConsumer_processMessage_IgnoresOtherEventTypes(t *testing.T) {
	recorder := &mockRecorder{}
	consumer := &CallsConsumer{recorder: recorder}

	payload, err := json.Marshal(CallEvent{EventType: "ACCOUNT_FOLLOWED"})
	require.NoError(t, err)

	err = consumer.processMessage(context.Background(), kafkago.Message{Value: payload})
	require.NoError(t, err)
	assert.Empty(t, recorder.Calls())
}

func TestCallsConsumer_processMessage_InvalidJSON(t *testing.T) {
	consumer := &CallsConsumer{recorder: &mockRecorder{}}

	err := consumer.processMessage(context.Background(), kafkago.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}

func TestCallsConsumer_processMessage_MissingFields(t *testing.T) {
	consumer := &CallsConsumer{recorder: &mockRecorder{}}

	payload, err := json.Marshal(CallEvent{
		EventType: "TOKEN_CALL_DETECTED",
		Data:      CallEventData{Handle: "cryptokol"},
	})
	require.NoError(t, err)

	err = consumer.processMessage(context.Background(), kafkago.Message{Value: payload})
	assert.Error(t, err)
}

func TestCallsConsumer_processMessage_DuplicateCallIsNotAnError(t *testing.T) {
	recorder := &mockRecorder{err: &errs.StateError{Op: "record call", Reason: "duplicate"}}
	consumer := &CallsConsumer{recorder: recorder}

	payload, err := json.Marshal(CallEvent{
		EventType: "TOKEN_CALL_DETECTED",
		Data: CallEventData{
			Handle:       "cryptokol",
			TokenAddress: "So11111111111111111111111111111111111111112",
		},
	})
	require.NoError(t, err)

	err = consumer.processMessage(context.Background(), kafkago.Message{Value: payload})
	assert.NoError(t, err)
}
