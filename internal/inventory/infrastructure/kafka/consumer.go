package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/commercekit/order-intake/internal/inventory/application"
	orderdom "github.com/commercekit/order-intake/internal/order/domain"
	"github.com/commercekit/order-intake/pkg/tracing"
)

// Deduper claims message keys so redelivered messages are processed once.
type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
}

type Consumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	svc    *application.Service
	idem   Deduper
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, svc *application.Service, idem Deduper) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("inventory-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		if c.process(ctx, msg) {
			_ = c.reader.CommitMessages(ctx, msg)
		}
	}
}

// process handles one fetched message and reports whether its offset should
// be committed. Offsets are not committed when the dedupe check itself fails,
// so the message is redelivered and retried.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Error("idempotency check failed", "err", err)
		return false
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return true
	}

	if et := headerValue(msg.Headers, "event_type"); et != orderdom.EventOrderCreated {
		return true
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderCreated")
	defer span.End()

	var ev orderdom.OrderCreated
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.log.Error("unmarshal failed", "err", err)
		return true
	}

	if err := c.svc.HandleOrderCreated(msgCtx, ev); err != nil {
		c.log.Error("stock check failed", "order_id", ev.OrderID, "err", err)
	} else {
		c.log.Info("stock levels checked", "order_id", ev.OrderID, "items", len(ev.Items))
	}
	return true
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
