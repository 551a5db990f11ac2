package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/unweightedai/kol-trust-service/internal/errs"
	"github.com/unweightedai/kol-trust-service/internal/models"
)

// CallRecorder defines the tracker operation the consumer feeds
type CallRecorder interface {
	RecordCall(ctx context.Context, handle, tokenAddress string) (*models.TokenCall, error)
}

// CallEvent represents a token-call event from the tweet ingestion
// pipeline
type CallEvent struct {
	EventType string        `json:"event_type"`
	Source    string        `json:"source"`
	Timestamp string        `json:"timestamp"`
	Data      CallEventData `json:"data"`
}

// CallEventData holds the detected promotion details
type CallEventData struct {
	Handle       string `json:"handle"`
	TokenAddress string `json:"token_address"`
	PostID       string `json:"post_id,omitempty"`
	Text         string `json:"text,omitempty"`
}

// CallsConsumer handles consuming token-call events from Kafka
type CallsConsumer struct {
	reader   *kafka.Reader
	recorder CallRecorder
}

// NewCallsConsumer creates a new Kafka consumer for token-call events
func NewCallsConsumer(brokers []string, topic, groupID string, recorder CallRecorder) *CallsConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-calls",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &CallsConsumer{
		reader:   reader,
		recorder: recorder,
	}
}

// Start begins consuming messages from Kafka
func (c *CallsConsumer) Start(ctx context.Context) error {
	log.Printf("Starting calls consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Calls consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading call message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing call message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *CallsConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	log.Printf("Received call message from partition %d offset %d: key=%s",
		msg.Partition, msg.Offset, string(msg.Key))

	var event CallEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal call event: %w", err)
	}

	if event.EventType != "TOKEN_CALL_DETECTED" {
		log.Printf("Ignoring unknown call event type: %s", event.EventType)
		return nil
	}

	handle := strings.ToLower(strings.TrimPrefix(event.Data.Handle, "@"))
	if handle == "" || event.Data.TokenAddress == "" {
		return fmt.Errorf("call event missing handle or token address")
	}

	call, err := c.recorder.RecordCall(ctx, handle, event.Data.TokenAddress)
	if err != nil {
		// A duplicate promotion event is expected replay noise, not a
		// processing failure.
		if errs.IsState(err) {
			log.Printf("Skipping duplicate call for %s on %s", handle, event.Data.TokenAddress)
			return nil
		}
		return fmt.Errorf("failed to record call for %s: %w", handle, err)
	}

	log.Printf("Recorded call %d for %s: token=%s risk=%.2f",
		call.ID, handle, call.TokenAddress, call.RiskScore)
	return nil
}

// Close closes the Kafka consumer
func (c *CallsConsumer) Close() error {
	return c.reader.Close()
}
