package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusbite/orderflow/pkg/config"
	"github.com/campusbite/orderflow/pkg/enums"
)

type chanSink struct {
	events chan StatusEvent
}

func (c *chanSink) Publish(ctx context.Context, event StatusEvent) error {
	select {
	case c.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newSource(url string, retries uint64) Source {
	factory := NewWebsocketFactory(config.FeedConfig{
		Kind:        config.FeedWebsocket,
		URL:         url,
		MaxRetries:  retries,
		BaseBackoff: time.Millisecond,
	}, nil, testLogger())
	return factory(Session{ID: "sess-1", UserID: "user-1", Token: "secret-token"})
}

func TestWebsocketSourceForwardsStatusEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var authHeader atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader.Store(r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"menu-updated","data":{}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"order-status-updated","data":{"orderId":"A","status":"Preparing"}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sink := &chanSink{events: make(chan StatusEvent, 4)}
	done := make(chan error, 1)
	go func() { done <- newSource(wsURL(server), 3).Run(ctx, sink) }()

	select {
	case event := <-sink.events:
		assert.Equal(t, StatusEvent{OrderID: "A", Status: enums.OrderStatusPreparing}, event)
	case <-time.After(3 * time.Second):
		t.Fatal("no event forwarded")
	}
	assert.Equal(t, "Bearer secret-token", authHeader.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("source did not stop")
	}
}

func TestWebsocketSourceGivesUpAfterRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	err := newSource(wsURL(server), 2).Run(context.Background(), &chanSink{events: make(chan StatusEvent, 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.EqualValues(t, 3, attempts.Load())
}

func TestWebsocketSourceCountsImmediateDropsAgainstBudget(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := newSource(wsURL(server), 2).Run(ctx, &chanSink{events: make(chan StatusEvent, 1)})
	require.ErrorIs(t, err, errDisconnected)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestWebsocketSourceResetsBudgetAfterDelivering(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if n <= 2 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"order-status-updated","data":{"orderId":"A","status":"Preparing"}}`))
		}
		_ = conn.Close()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := newSource(wsURL(server), 1).Run(ctx, &chanSink{events: make(chan StatusEvent, 4)})
	require.ErrorIs(t, err, errDisconnected)
	// two delivering connections, then one initial dial plus one retry
	assert.EqualValues(t, 4, attempts.Load())
}
