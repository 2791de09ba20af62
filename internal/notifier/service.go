package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	kafkax "github.com/canteenworks/go-canteen-orders/internal/kafka"
	"github.com/canteenworks/go-canteen-orders/internal/orders"
	"github.com/canteenworks/go-canteen-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Service consumes order.placed events and sends the confirmation email.
// Email is best-effort end to end: send failures are logged and the message
// is still acked, never redelivered to spam the customer.
type Service struct {
	Redis  *redis.Client
	Mailer Mailer
	Log    *zap.Logger
}

func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Log.Warn("bad event envelope, skipping", zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	// dedup by event id so consumer-group rebalances don't double-send
	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		s.Log.Warn("bad order.placed payload, skipping", zap.Error(err))
		return nil
	}
	if p.UserEmail == "" {
		s.Log.Debug("order has no email on file", zap.String("order_id", p.OrderID))
		return nil
	}

	subject, body := ComposeOrderEmail(p)
	if err := s.Mailer.Send(ctx, p.UserEmail, subject, body); err != nil {
		s.Log.Warn("order email failed",
			zap.String("order_id", p.OrderID),
			zap.String("to", p.UserEmail),
			zap.Error(err))
		return nil
	}
	s.Log.Info("order email sent",
		zap.String("order_id", p.OrderID),
		zap.String("to", p.UserEmail))
	return nil
}

func ComposeOrderEmail(p orders.OrderPlacedPayload) (subject, body string) {
	subject = fmt.Sprintf("Order confirmation %s", shortID(p.OrderID))

	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your order!\n\nOrder %s (%s, %s)\n\n", p.OrderID, p.OrderType, p.PaymentMethod)
	for _, it := range p.Items {
		fmt.Fprintf(&b, "  %d x %s @ %d\n", it.Qty, it.Name, it.Price)
	}
	if p.OrderType == orders.TypeTakeaway {
		fmt.Fprintf(&b, "  takeaway surcharge: %d\n", orders.TakeawaySurcharge)
	}
	fmt.Fprintf(&b, "\nTotal: %d\n", p.TotalAmount)
	return subject, b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
