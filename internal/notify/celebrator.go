package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Handler receives decoded coupon events.
type Handler func(ctx context.Context, event Event) error

// Celebrator consumes coupon events and hands them to a Handler, typically
// the celebration effect.
type Celebrator struct {
	reader  messageReader
	handler Handler
	log     *zap.Logger
}

func NewCelebrator(handler Handler, log *zap.Logger, groupID, topic string, brokers ...string) *Celebrator {
	if topic == "" {
		topic = TopicCouponsEarned
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Celebrator{reader: reader, handler: handler, log: log}
}

// Run reads until ctx is cancelled. Bad messages are logged and skipped.
func (c *Celebrator) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.consumeOne(ctx)
	}
}

func (c *Celebrator) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn("error closing reader", zap.Error(err))
	}
}

func (c *Celebrator) consumeOne(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Warn("error reading message", zap.Error(err))
		}
		return
	}

	if eventType := headerValue(m.Headers, "event_type"); eventType != "" && eventType != EventTypeCouponsEarned {
		c.log.Debug("skipping message", zap.String("event_type", eventType))
		return
	}

	var event Event
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.log.Warn("error parsing message", zap.Error(err), zap.Int64("offset", m.Offset))
		return
	}

	if err := c.handler(ctx, event); err != nil {
		c.log.Warn("celebration handler failed",
			zap.String("session_id", event.SessionID), zap.Error(err))
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
