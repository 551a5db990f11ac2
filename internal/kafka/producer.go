package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/unweightedai/kol-trust-service/internal/models"
)

// Producer publishes trust events for downstream consumers (digest
// bots, dashboards).
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Kafka producer for the alerts topic
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// ScamAlertEvent is published when a recorded call crosses the scam
// threshold.
type ScamAlertEvent struct {
	EventType    string             `json:"event_type"`
	Timestamp    string             `json:"timestamp"`
	Handle       string             `json:"handle"`
	TokenAddress string             `json:"token_address"`
	RiskScore    float64            `json:"risk_score"`
	RiskFactors  models.RiskFactors `json:"risk_factors"`
}

// TrustAdjustedEvent is published after every ledger adjustment.
type TrustAdjustedEvent struct {
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp"`
	Handle    string `json:"handle"`
	Delta     int    `json:"delta"`
	NewScore  int    `json:"new_score"`
	Reason    string `json:"reason"`
}

// PublishScamAlert publishes a SCAM_ALERT event for a high-risk call
func (p *Producer) PublishScamAlert(ctx context.Context, call *models.TokenCall) error {
	return p.publish(ctx, call.KOLHandle, ScamAlertEvent{
		EventType:    "SCAM_ALERT",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Handle:       call.KOLHandle,
		TokenAddress: call.TokenAddress,
		RiskScore:    call.RiskScore,
		RiskFactors:  call.RiskFactors,
	})
}

// PublishTrustAdjusted publishes a TRUST_ADJUSTED event
func (p *Producer) PublishTrustAdjusted(ctx context.Context, handle string, delta, newScore int, reason string) error {
	return p.publish(ctx, handle, TrustAdjustedEvent{
		EventType: "TRUST_ADJUSTED",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Handle:    handle,
		Delta:     delta,
		NewScore:  newScore,
		Reason:    reason,
	})
}

func (p *Producer) publish(ctx context.Context, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
