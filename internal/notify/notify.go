// Package notify delivers coupon celebrations to whoever renders them.
package notify

import (
	"context"
	"time"

	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TopicCouponsEarned     = "coupons-earned"
	EventTypeCouponsEarned = "coupons_earned"
)

// Event is published when a cart change makes coupons newly earned.
type Event struct {
	SessionID  string                    `json:"session_id"`
	Coupons    []domain.CouponDefinition `json:"coupons"`
	CartTotal  decimal.Decimal           `json:"cart_total"`
	MaxTotal   decimal.Decimal           `json:"max_total"`
	OccurredAt time.Time                 `json:"occurred_at"`
}

type Publisher interface {
	CouponsEarned(ctx context.Context, event Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) CouponsEarned(context.Context, Event) error { return nil }

// LogPublisher writes events to the log, for runs without a broker.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) CouponsEarned(_ context.Context, event Event) error {
	ids := make([]string, 0, len(event.Coupons))
	for _, c := range event.Coupons {
		ids = append(ids, c.ID)
	}
	p.log.Info("coupons earned",
		zap.String("session_id", event.SessionID),
		zap.Strings("coupon_ids", ids),
		zap.String("cart_total", event.CartTotal.String()),
		zap.String("max_total", event.MaxTotal.String()),
	)
	return nil
}
