// Package broker carries domain events over NATS JetStream.
//
// The process holds a single connection, established at startup and reused
// by the publisher and the consumer. The connection retries on its own when
// the broker is unavailable, so a down broker never crashes the host
// process.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/mmeshcher/link-service/internal/events"
)

const (
	streamName    = "LINK_EVENTS"
	streamSubject = "events.>"
	reconnectWait = 2 * time.Second
)

type Conn struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

func Connect(url string, logger *zap.Logger) (*Conn, error) {
	nc, err := nats.Connect(
		url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Broker disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Broker reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	js, err := nc.JetStream(nats.PublishAsyncErrHandler(func(_ nats.JetStream, msg *nats.Msg, err error) {
		logger.Error("Async publish failed",
			zap.String("subject", msg.Subject),
			zap.Error(err))
	}))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Conn{nc: nc, js: js, logger: logger}, nil
}

// EnsureStream provisions the durable event stream, updating its config if
// it already exists. Retries until the broker is reachable or ctx is done.
func (c *Conn) EnsureStream(ctx context.Context) error {
	cfg := &nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{streamSubject},
		Storage:  nats.FileStorage,
		Replicas: 1,
	}

	for {
		_, err := c.js.StreamInfo(streamName)
		switch {
		case err == nil:
			_, err = c.js.UpdateStream(cfg)
		case err == nats.ErrStreamNotFound:
			_, err = c.js.AddStream(cfg)
		}

		if err == nil {
			return nil
		}

		c.logger.Warn("Stream provisioning failed, retrying",
			zap.String("stream", streamName),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("ensure stream: %w", ctx.Err())
		case <-time.After(reconnectWait):
		}
	}
}

func (c *Conn) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}

// Publisher enqueues domain events. Publish waits only for the local
// enqueue, not for broker durability; delivery failures surface through the
// async error handler and are logged.
type Publisher struct {
	js     nats.JetStreamContext
	logger *zap.Logger
}

func (c *Conn) Publisher() *Publisher {
	return &Publisher{js: c.js, logger: c.logger}
}

func (p *Publisher) Publish(ctx context.Context, kind events.Kind, payload any) error {
	subject := kind.Subject()
	if subject == "" {
		return fmt.Errorf("%w: %q", events.ErrUnknownKind, string(kind))
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = p.js.PublishAsync(subject, data, nats.MsgId(uuid.New().String()))
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}
