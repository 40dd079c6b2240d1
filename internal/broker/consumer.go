package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/mmeshcher/link-service/internal/events"
)

// Outcome is the three-valued result of handling one message. The router,
// not the handler, translates it into broker acknowledgment primitives.
type Outcome int

const (
	// Success acknowledges the message; the broker removes it permanently.
	Success Outcome = iota
	// Retry rejects the message with requeue; the broker redelivers it.
	Retry
	// Fatal marks a message that will never succeed. There is no dead-letter
	// policy, so it is requeued like Retry and redelivers indefinitely.
	Fatal
)

// HandlerFunc processes one decoded event. Handlers must tolerate
// redelivery: the broker may deliver a message again after a crash between
// processing and acknowledgment.
type HandlerFunc func(ctx context.Context, ev any) Outcome

const (
	queueGroup    = "link-service"
	ackWait       = 30 * time.Second
	maxAckPending = 64
)

// Consumer subscribes one durable queue-group consumer per registered event
// kind and routes each delivery to its handler. Exactly one handler runs per
// message; messages of different kinds are processed concurrently, bounded
// by the per-subscription ack-pending limit.
type Consumer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	handlers map[events.Kind]HandlerFunc
	subs     []*nats.Subscription
}

func (c *Conn) Consumer() *Consumer {
	return &Consumer{
		js:       c.js,
		logger:   c.logger,
		handlers: make(map[events.Kind]HandlerFunc),
	}
}

func (c *Consumer) Register(kind events.Kind, handler HandlerFunc) {
	c.handlers[kind] = handler
}

func (c *Consumer) Start(ctx context.Context) error {
	for kind, handler := range c.handlers {
		sub, err := c.js.QueueSubscribe(
			kind.Subject(),
			queueGroup,
			func(msg *nats.Msg) {
				c.route(ctx, kind, handler, msg.Data, msg)
			},
			nats.Durable(durableName(kind)),
			nats.ManualAck(),
			nats.AckWait(ackWait),
			nats.MaxDeliver(-1),
			nats.MaxAckPending(maxAckPending),
		)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", kind, err)
		}

		c.subs = append(c.subs, sub)
		c.logger.Info("Consumer subscribed",
			zap.String("kind", string(kind)),
			zap.String("subject", kind.Subject()))
	}

	return nil
}

// acknowledger is the slice of *nats.Msg the router needs; tests stub it.
type acknowledger interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
}

func (c *Consumer) route(ctx context.Context, kind events.Kind, handler HandlerFunc, data []byte, msg acknowledger) {
	ev, err := events.Decode(kind, data)
	if err != nil {
		// Malformed payloads are not distinguished from transient failures:
		// they requeue and will redeliver until the payload is purged.
		c.logger.Error("Rejecting undecodable event",
			zap.String("kind", string(kind)),
			zap.Error(err))
		c.nak(kind, msg)
		return
	}

	switch outcome := handler(ctx, ev); outcome {
	case Success:
		if err := msg.Ack(); err != nil {
			c.logger.Error("Failed to acknowledge message",
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
	case Retry:
		c.logger.Warn("Handler failed, requeueing event",
			zap.String("kind", string(kind)))
		c.nak(kind, msg)
	case Fatal:
		c.logger.Error("Handler reported unprocessable event, requeueing",
			zap.String("kind", string(kind)))
		c.nak(kind, msg)
	default:
		c.logger.Error("Handler returned unknown outcome, requeueing",
			zap.String("kind", string(kind)),
			zap.Int("outcome", int(outcome)))
		c.nak(kind, msg)
	}
}

func (c *Consumer) nak(kind events.Kind, msg acknowledger) {
	if err := msg.Nak(); err != nil {
		c.logger.Error("Failed to reject message",
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

// Stop drains the subscriptions so in-flight messages finish before the
// process exits; anything unacknowledged redelivers.
func (c *Consumer) Stop() {
	for _, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			c.logger.Warn("Failed to drain subscription", zap.Error(err))
		}
	}
}

func durableName(kind events.Kind) string {
	switch kind {
	case events.KindLinkRedirect:
		return "link-redirect-stats"
	case events.KindAccountsMerged:
		return "accounts-merged"
	case events.KindUserDeleted:
		return "user-deleted"
	}
	return string(kind)
}
