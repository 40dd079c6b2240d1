package broker

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/link-service/internal/events"
)

type stubMsg struct {
	acked int
	naked int
}

func (s *stubMsg) Ack(_ ...nats.AckOpt) error { s.acked++; return nil }
func (s *stubMsg) Nak(_ ...nats.AckOpt) error { s.naked++; return nil }

func newTestConsumer() *Consumer {
	return &Consumer{
		logger:   zap.NewNop(),
		handlers: make(map[events.Kind]HandlerFunc),
	}
}

func TestRouteOutcomes(t *testing.T) {
	payload := []byte(`{"user_id":5}`)

	tests := []struct {
		name     string
		outcome  Outcome
		wantAcks int
		wantNaks int
	}{
		{name: "success acknowledges", outcome: Success, wantAcks: 1},
		{name: "retryable failure requeues", outcome: Retry, wantNaks: 1},
		{name: "fatal failure still requeues", outcome: Fatal, wantNaks: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConsumer()
			msg := &stubMsg{}

			var handled int
			handler := func(ctx context.Context, ev any) Outcome {
				handled++
				return tt.outcome
			}

			c.route(context.Background(), events.KindUserDeleted, handler, payload, msg)

			assert.Equal(t, 1, handled)
			assert.Equal(t, tt.wantAcks, msg.acked)
			assert.Equal(t, tt.wantNaks, msg.naked)
		})
	}
}

func TestRouteDecodesBeforeHandler(t *testing.T) {
	c := newTestConsumer()
	msg := &stubMsg{}

	var got any
	handler := func(ctx context.Context, ev any) Outcome {
		got = ev
		return Success
	}

	c.route(context.Background(), events.KindAccountsMerged, handler,
		[]byte(`{"source_user_id":10,"target_user_id":20}`), msg)

	require.IsType(t, events.AccountsMergedEvent{}, got)
	ev := got.(events.AccountsMergedEvent)
	assert.Equal(t, int64(10), ev.SourceUserID)
	assert.Equal(t, int64(20), ev.TargetUserID)
	assert.Equal(t, 1, msg.acked)
}

func TestRouteMalformedPayloadRequeues(t *testing.T) {
	c := newTestConsumer()
	msg := &stubMsg{}

	handler := func(ctx context.Context, ev any) Outcome {
		t.Fatal("handler must not run for a malformed payload")
		return Success
	}

	c.route(context.Background(), events.KindUserDeleted, handler, []byte(`{"user_id":`), msg)

	assert.Zero(t, msg.acked)
	assert.Equal(t, 1, msg.naked)
}

func TestRouteRedeliverySamePayload(t *testing.T) {
	c := newTestConsumer()

	var seen []int64
	handler := func(ctx context.Context, ev any) Outcome {
		seen = append(seen, ev.(events.UserDeletedEvent).UserID)
		if len(seen) == 1 {
			return Retry
		}
		return Success
	}

	payload := []byte(`{"user_id":7}`)

	first := &stubMsg{}
	c.route(context.Background(), events.KindUserDeleted, handler, payload, first)
	assert.Equal(t, 1, first.naked)

	// redelivery carries the same payload and reaches the handler again
	second := &stubMsg{}
	c.route(context.Background(), events.KindUserDeleted, handler, payload, second)
	assert.Equal(t, 1, second.acked)

	assert.Equal(t, []int64{7, 7}, seen)
}

func TestRegister(t *testing.T) {
	c := newTestConsumer()
	c.Register(events.KindUserDeleted, func(ctx context.Context, ev any) Outcome { return Success })
	c.Register(events.KindLinkRedirect, func(ctx context.Context, ev any) Outcome { return Success })

	assert.Len(t, c.handlers, 2)
}
