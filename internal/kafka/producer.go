package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer wraps an async kafka writer behind a buffered inbox so HTTP
// handlers never block on the broker. Events are fire-and-forget; the
// database commit is the source of truth and consumers reconcile from it.
type Producer struct {
	w       *kafka.Writer
	log     *zap.Logger
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		log:     log,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start launches the background writer loop. The loop drains the inbox
// until Close is called, then flushes what is left and closes the writer.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.log.Warn("kafka publish failed",
					zap.String("topic", p.w.Topic),
					zap.ByteString("key", m.Key),
					zap.Error(err))
			}
		}
		_ = p.w.Close()
	}()
}

func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.inbox <- kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Close stops accepting messages; the writer loop flushes the remainder.
func (p *Producer) Close() { close(p.inbox) }

// WaitClosed blocks until the writer loop has exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
