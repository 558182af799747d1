package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tradepulse/engine/internal/domain"
	"github.com/tradepulse/engine/internal/port"
)

var _ port.TradePublisher = (*Publisher)(nil)

// Publisher pushes settled trades to a Kafka topic, keyed by instrument so
// per-instrument ordering is preserved.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Publisher) PublishTrade(ctx context.Context, t *domain.Trade) error {
	value, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(t.Instrument),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
