package mq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vocespace/spacekeeper/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DialFunc opens a broker connection.
type DialFunc func() (*amqp.Connection, error)

// NewDialFunc dials plain AMQP unless TLS is requested by config or by an
// amqps:// URL.
func NewDialFunc(cfg *config.Config) DialFunc {
	return func() (*amqp.Connection, error) {
		url, useTLS := brokerURL(cfg.RabbitMQ)
		if useTLS {
			return amqp.DialTLS(url, &tls.Config{MinVersion: tls.VersionTLS12})
		}
		return amqp.Dial(url)
	}
}

func brokerURL(cfg config.RabbitMQCfg) (string, bool) {
	url := cfg.URL
	useTLS := cfg.EnableTLS || strings.HasPrefix(url, "amqps://")
	if useTLS && strings.HasPrefix(url, "amqp://") {
		url = "amqps://" + strings.TrimPrefix(url, "amqp://")
	}
	return url, useTLS
}

// headerCarrier lets the otel propagator read and write amqp headers.
type headerCarrier amqp.Table

func (c headerCarrier) Get(key string) string {
	v, ok := c[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func (c headerCarrier) Set(key, value string) { c[key] = value }

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

func declareFanout(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil)
}

// Publisher broadcasts JSON messages on a fanout exchange.
type Publisher struct {
	ch       *amqp.Channel
	exchange string
	tracer   trace.Tracer
	log      *zap.Logger
}

func NewPublisher(conn *amqp.Connection, log *zap.Logger, cfg *config.Config) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := declareFanout(ch, cfg.RabbitMQ.Exchange); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.RabbitMQ.Exchange, err)
	}
	return &Publisher{
		ch:       ch,
		exchange: cfg.RabbitMQ.Exchange,
		tracer:   otel.Tracer(cfg.App.Name),
		log:      log,
	}, nil
}

func (p *Publisher) Close() error { return p.ch.Close() }

func (p *Publisher) PublishJSON(ctx context.Context, body any) error {
	b, err := sonic.Marshal(body)
	if err != nil {
		return err
	}

	ctx, span := p.tracer.Start(ctx, "rabbitmq.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination", p.exchange),
			attribute.String("messaging.destination_kind", "exchange"),
			attribute.Int("messaging.message.body.size", len(b)),
		))
	defer span.End()

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))

	// space events are stale once delivered late, so they are not persisted
	err = p.ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    time.Now(),
		Body:         b,
		Headers:      headers,
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Subscriber receives every message published on the exchange through a
// private queue that disappears with the connection.
type Subscriber struct {
	ch     *amqp.Channel
	q      amqp.Queue
	tracer trace.Tracer
	log    *zap.Logger
}

func NewSubscriber(conn *amqp.Connection, log *zap.Logger, cfg *config.Config) (*Subscriber, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := declareFanout(ch, cfg.RabbitMQ.Exchange); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.RabbitMQ.Exchange, err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare subscriber queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", cfg.RabbitMQ.Exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bind %s to %s: %w", q.Name, cfg.RabbitMQ.Exchange, err)
	}
	return &Subscriber{ch: ch, q: q, tracer: otel.Tracer(cfg.App.Name), log: log}, nil
}

func (s *Subscriber) Close() error { return s.ch.Close() }

// Listen feeds each message to handler until ctx is done. Deliveries are
// auto-acked; a handler error is logged and the message dropped.
func (s *Subscriber) Listen(ctx context.Context, handler func(context.Context, []byte) error) error {
	msgs, err := s.ch.Consume(s.q.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}
	propagator := otel.GetTextMapPropagator()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return errors.New("subscriber channel closed")
			}
			msgCtx := ctx
			if m.Headers != nil {
				msgCtx = propagator.Extract(ctx, headerCarrier(m.Headers))
			}
			msgCtx, span := s.tracer.Start(msgCtx, "rabbitmq.consume",
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String("messaging.system", "rabbitmq"),
					attribute.String("messaging.destination", s.q.Name),
					attribute.String("messaging.operation", "receive"),
					attribute.Int("messaging.message.body.size", len(m.Body)),
				))
			if err := handler(msgCtx, m.Body); err != nil {
				span.RecordError(err)
				s.log.Error("consume error", zap.String("queue", s.q.Name), zap.Error(err))
			}
			span.End()
		}
	}
}
