package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/campusbite/orderflow/pkg/config"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/metrics"
)

const sourceWebsocket = "websocket"

// stableConnection is how long a connection that delivered nothing must stay up
// before its loss resets the reconnect budget.
const stableConnection = 30 * time.Second

var (
	// errDisconnected is a drop counted against the current reconnect budget.
	errDisconnected = errors.New("status feed disconnected")
	// errConnectionLost ends a healthy connection; the budget starts over.
	errConnectionLost = errors.New("status feed connection lost")
)

// WebsocketSource subscribes to the push feed for one session. The bearer token is
// presented once at connect time.
type WebsocketSource struct {
	url         string
	token       string
	dialer      *websocket.Dialer
	maxRetries  uint64
	baseBackoff time.Duration
	stableAfter time.Duration
	metrics     *metrics.TrackerMetrics
	logg        *logger.Logger
}

// NewWebsocketFactory returns a SourceFactory dialing cfg.URL for each session.
func NewWebsocketFactory(cfg config.FeedConfig, m *metrics.TrackerMetrics, logg *logger.Logger) SourceFactory {
	return func(sess Session) Source {
		return &WebsocketSource{
			url:         cfg.URL,
			token:       sess.Token,
			dialer:      websocket.DefaultDialer,
			maxRetries:  cfg.MaxRetries,
			baseBackoff: cfg.BaseBackoff,
			stableAfter: stableConnection,
			metrics:     m,
			logg:        logg,
		}
	}
}

func (s *WebsocketSource) backoff() retry.Backoff {
	base := s.baseBackoff
	if base <= 0 {
		base = time.Second
	}
	return retry.WithMaxRetries(s.maxRetries, retry.WithCappedDuration(30*time.Second, retry.NewExponential(base)))
}

// Run connects and forwards events until ctx is cancelled or reconnects are
// exhausted. A connection that delivered a frame or stayed up for stableAfter
// earns a fresh retry budget; any other drop is retried with backoff.
func (s *WebsocketSource) Run(ctx context.Context, sink Sink) error {
	first := true
	for {
		err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
			if !first {
				s.metrics.IncReconnect(sourceWebsocket)
			}
			first = false
			conn, err := s.dial(ctx)
			if err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "status feed connect failed")
				return retry.RetryableError(err)
			}
			return s.consume(ctx, conn, sink)
		})
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, errConnectionLost) {
			continue
		}
		return err
	}
}

func (s *WebsocketSource) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}
	conn, resp, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial status feed: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial status feed: %w", err)
	}
	return conn, nil
}

func (s *WebsocketSource) consume(ctx context.Context, conn *websocket.Conn, sink Sink) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	s.logg.Info(ctx, "status feed connected")
	connected := time.Now()
	frames := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"error":  err.Error(),
				"frames": frames,
			})
			s.logg.Warn(logCtx, "status feed read failed")
			if frames > 0 || time.Since(connected) >= s.stableAfter {
				return errConnectionLost
			}
			return retry.RetryableError(errDisconnected)
		}
		frames++
		event, ok, err := ParseFeedMessage(data)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed feed message")
			continue
		}
		if !ok {
			continue
		}
		if err := sink.Publish(ctx, event); err != nil {
			if errors.Is(err, ErrStopped) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
