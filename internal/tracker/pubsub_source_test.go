package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusbite/orderflow/pkg/enums"
)

type failingSink struct{}

func (failingSink) Publish(context.Context, StatusEvent) error {
	return errors.New("busy")
}

func TestPubSubSourceProcess(t *testing.T) {
	src := &PubSubSource{logg: testLogger()}
	ctx := context.Background()

	tests := []struct {
		name   string
		data   string
		attrs  map[string]string
		sink   Sink
		ack    bool
		expect *StatusEvent
	}{
		{
			name:   "feed frame",
			data:   `{"event":"order-status-updated","data":{"orderId":"A","status":"Delivered"}}`,
			ack:    true,
			expect: &StatusEvent{OrderID: "A", Status: enums.OrderStatusDelivered},
		},
		{
			name:   "bare payload with attribute",
			data:   `{"orderId":"B","status":"Cancelled"}`,
			attrs:  map[string]string{"event_type": "order-status-updated"},
			ack:    true,
			expect: &StatusEvent{OrderID: "B", Status: enums.OrderStatusCancelled},
		},
		{
			name:  "other event type",
			data:  `{}`,
			attrs: map[string]string{"event_type": "menu-updated"},
			ack:   true,
		},
		{
			name: "malformed dropped",
			data: `{"event":"order-status-updated","data":{"orderId":"A","status":"???"}}`,
			ack:  true,
		},
		{
			name: "sink failure redelivers",
			data: `{"event":"order-status-updated","data":{"orderId":"A","status":"Pending"}}`,
			sink: failingSink{},
			ack:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := tt.sink
			recorder := &chanSink{events: make(chan StatusEvent, 1)}
			if sink == nil {
				sink = recorder
			}
			ack := src.process(ctx, "msg-1", []byte(tt.data), tt.attrs, sink)
			assert.Equal(t, tt.ack, ack)
			if tt.expect != nil {
				select {
				case got := <-recorder.events:
					assert.Equal(t, *tt.expect, got)
				default:
					t.Fatal("expected event to be published")
				}
			} else {
				assert.Empty(t, recorder.events)
			}
		})
	}
}
