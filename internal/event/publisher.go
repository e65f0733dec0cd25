// Package event publishes terminal payment transitions for downstream
// consumers (enrollment, notifications). Delivery is best-effort; the ledger
// never blocks a committed transition on it.
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/eduhub/edupay/internal/models"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafka(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

func (p *KafkaPublisher) PublishOutcome(ctx context.Context, tx models.Transaction) error {
	payload := map[string]any{
		"event_id":       uuid.NewString(),
		"event_type":     "payment." + string(tx.Status),
		"event_version":  1,
		"occurred_at":    time.Now().UTC().Format(time.RFC3339),
		"transaction_id": tx.ID,
		"user_id":        tx.UserID,
		"amount":         tx.TotalAmount,
		"currency":       tx.Currency,
		"gateway":        string(tx.Gateway),
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(tx.ID),
		Value: value,
	})
}

// Noop is used when no brokers are configured.
type Noop struct{}

func (Noop) PublishOutcome(context.Context, models.Transaction) error { return nil }
func (Noop) Close() error                                             { return nil }
