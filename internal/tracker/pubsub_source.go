package tracker

import (
	"context"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/campusbite/orderflow/pkg/logger"
)

const attrEventType = "event_type"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// PubSubSource consumes status events from a broker subscription shared by the
// whole process. The sink is normally the Manager, which fans events out.
type PubSubSource struct {
	subscription receiver
	logg         *logger.Logger
}

// NewPubSubSource wraps a status subscription.
func NewPubSubSource(subscription *pubsub.Subscriber, logg *logger.Logger) (*PubSubSource, error) {
	if subscription == nil {
		return nil, errors.New("status subscription required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &PubSubSource{subscription: subscription, logg: logg}, nil
}

// Run receives until ctx is cancelled.
func (s *PubSubSource) Run(ctx context.Context, sink Sink) error {
	return s.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.process(ctx, msg.ID, msg.Data, msg.Attributes, sink) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked. Undecodable messages are
// acked and dropped; only a failed hand-off to the sink asks for redelivery.
func (s *PubSubSource) process(ctx context.Context, id string, data []byte, attrs map[string]string, sink Sink) bool {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"message_id": id,
		"event_type": attrs[attrEventType],
	})

	var (
		event StatusEvent
		err   error
	)
	if eventType, ok := attrs[attrEventType]; ok {
		if eventType != EventStatusUpdated {
			s.logg.Debug(logCtx, "skipping non-status event")
			return true
		}
		event, err = ParseStatusPayload(data)
	} else {
		var matched bool
		event, matched, err = ParseFeedMessage(data)
		if err == nil && !matched {
			s.logg.Debug(logCtx, "skipping non-status event")
			return true
		}
	}
	if err != nil {
		s.logg.Error(logCtx, "failed to decode status event", err)
		return true
	}

	if err := sink.Publish(ctx, event); err != nil {
		s.logg.Error(s.logg.WithOrderID(logCtx, event.OrderID), "failed to dispatch status event", err)
		return false
	}
	return true
}
