package tracker

import (
	"context"
	"strings"
	"sync"

	"github.com/campusbite/orderflow/pkg/db/models"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/metrics"
)

// Session identifies the authenticated session a tracker belongs to.
type Session struct {
	ID     string
	UserID string
	Token  string
}

// Source delivers status events into a sink until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, sink Sink) error
}

// SourceFactory builds a per-session feed source. A nil factory means events
// arrive process-wide through Publish.
type SourceFactory func(sess Session) Source

type entry struct {
	tracker *Tracker
	cancel  context.CancelFunc
}

// ManagerDeps bundles the collaborators shared by every session tracker.
type ManagerDeps struct {
	Orders   OrderService
	Repo     Repository
	Notifier Notifier
	Feed     SourceFactory
	Metrics  *metrics.TrackerMetrics
	Logger   *logger.Logger
}

// Manager owns one tracker per session.
type Manager struct {
	base context.Context
	deps ManagerDeps

	mu       sync.Mutex
	trackers map[string]*entry
}

// NewManager constructs a Manager. Trackers and feed sources outlive the
// request that created them and are bound to ctx instead.
func NewManager(ctx context.Context, deps ManagerDeps) (*Manager, error) {
	if deps.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order service required")
	}
	if deps.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Manager{
		base:     ctx,
		deps:     deps,
		trackers: map[string]*entry{},
	}, nil
}

// Get returns the running tracker for a session.
func (m *Manager) Get(sessionID string) (*Tracker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.trackers[sessionID]
	if !ok {
		return nil, false
	}
	return e.tracker, true
}

// Ensure returns the session's tracker, starting and hydrating one if needed.
// ctx must carry the session's bearer token for the order service.
func (m *Manager) Ensure(ctx context.Context, sess Session) (*Tracker, error) {
	if strings.TrimSpace(sess.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if t, ok := m.Get(sess.ID); ok {
		return t, nil
	}

	t, err := New(m.base, Options{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Orders:    m.deps.Orders,
		Repo:      m.deps.Repo,
		Notifier:  m.deps.Notifier,
		Metrics:   m.deps.Metrics,
		Logger:    m.deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := m.hydrate(ctx, t, sess); err != nil {
		t.Stop()
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.trackers[sess.ID]; ok {
		m.mu.Unlock()
		t.Stop()
		return existing.tracker, nil
	}
	srcCtx, cancel := context.WithCancel(m.base)
	e := &entry{tracker: t, cancel: cancel}
	m.trackers[sess.ID] = e
	active := len(m.trackers)
	m.mu.Unlock()

	m.deps.Metrics.SetActive(active)
	if m.deps.Feed != nil {
		go m.runSource(srcCtx, sess, e)
	}
	m.deps.Logger.Info(m.deps.Logger.WithSessionID(ctx, sess.ID), "order tracker started")
	return t, nil
}

// runSource feeds e's tracker until the source returns. A source that ends on
// its own retires the tracker so the next Ensure hydrates and subscribes again.
func (m *Manager) runSource(ctx context.Context, sess Session, e *entry) {
	logCtx := m.deps.Logger.WithSessionID(ctx, sess.ID)
	src := m.deps.Feed(sess)
	err := src.Run(ctx, e.tracker)
	if ctx.Err() != nil {
		m.deps.Logger.Debug(logCtx, "status feed closed")
		return
	}
	if err != nil {
		m.deps.Logger.Error(logCtx, "status feed stopped", err)
	} else {
		m.deps.Logger.Warn(logCtx, "status feed ended")
	}
	m.retire(sess.ID, e)
}

// retire drops e if it is still the session's current entry.
func (m *Manager) retire(sessionID string, e *entry) {
	m.mu.Lock()
	current, ok := m.trackers[sessionID]
	if ok && current == e {
		delete(m.trackers, sessionID)
	}
	active := len(m.trackers)
	m.mu.Unlock()

	e.cancel()
	e.tracker.Stop()
	if ok && current == e {
		m.deps.Metrics.SetActive(active)
	}
}

// hydrate loads the session's orders from the order service, carrying over the
// reviewed flag from the mirror. When the order service is unreachable the
// mirror alone is used.
func (m *Manager) hydrate(ctx context.Context, t *Tracker, sess Session) error {
	logCtx := m.deps.Logger.WithSessionID(ctx, sess.ID)

	var mirrored []models.TrackedOrder
	if m.deps.Repo != nil && sess.UserID != "" {
		rows, err := m.deps.Repo.ListByUser(ctx, sess.UserID)
		if err != nil {
			m.deps.Logger.Error(logCtx, "failed to read order mirror", err)
		} else {
			mirrored = rows
		}
	}
	reviewed := make(map[string]bool, len(mirrored))
	for _, row := range mirrored {
		reviewed[row.OrderID] = row.Reviewed
	}

	remote, err := m.deps.Orders.ListOrders(ctx)
	if err != nil {
		if len(mirrored) == 0 {
			return upstreamError(err, "list orders")
		}
		m.deps.Logger.Warn(m.deps.Logger.WithField(logCtx, "error", err.Error()), "order service unavailable, hydrating from mirror")
		orders := make([]Order, 0, len(mirrored))
		for _, row := range mirrored {
			orders = append(orders, fromModel(row))
		}
		return t.Track(ctx, orders...)
	}

	orders := make([]Order, 0, len(remote))
	for _, src := range remote {
		order := FromStorefront(src)
		if !order.Status.IsValid() {
			m.deps.Logger.Warn(m.deps.Logger.WithFields(logCtx, map[string]any{"order_id": src.ID, "status": src.Status}), "skipping order with unrecognized status")
			continue
		}
		order.Reviewed = reviewed[order.ID]
		orders = append(orders, order)
	}
	return t.Track(ctx, orders...)
}

func fromModel(row models.TrackedOrder) Order {
	order := Order{
		ID:            row.OrderID,
		Status:        row.Status,
		PaymentMethod: row.PaymentMethod,
		PaymentStatus: row.PaymentStatus,
		TotalAmount:   row.TotalAmount,
		CreatedAt:     row.PlacedAt,
		Reviewed:      row.Reviewed,
	}
	order.decorate()
	return order
}

// Publish routes a broker event to every running tracker. Trackers that do not
// hold the order drop it.
func (m *Manager) Publish(ctx context.Context, event StatusEvent) error {
	m.mu.Lock()
	targets := make([]*Tracker, 0, len(m.trackers))
	for _, e := range m.trackers {
		targets = append(targets, e.tracker)
	}
	m.mu.Unlock()

	matched := false
	for _, t := range targets {
		if err := t.send(ctx, envelope{event: &event, fanout: true}); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		matched = true
	}
	if !matched {
		m.deps.Logger.Debug(m.deps.Logger.WithOrderID(ctx, event.OrderID), "no tracker running for status event")
	}
	return nil
}

// Adopt hands newly placed orders to the session's running tracker. Without a
// running tracker the orders are picked up by the next hydration.
func (m *Manager) Adopt(ctx context.Context, sessionID string, orders ...Order) error {
	t, ok := m.Get(sessionID)
	if !ok {
		return nil
	}
	return t.Track(ctx, orders...)
}

// Stop tears down a session's tracker and its feed subscription.
func (m *Manager) Stop(sessionID string) bool {
	m.mu.Lock()
	e, ok := m.trackers[sessionID]
	if ok {
		delete(m.trackers, sessionID)
	}
	active := len(m.trackers)
	m.mu.Unlock()
	if !ok {
		return false
	}
	e.cancel()
	e.tracker.Stop()
	m.deps.Metrics.SetActive(active)
	return true
}

// Active reports how many sessions are tracked.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trackers)
}

// Shutdown stops every tracker.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.trackers))
	for id := range m.trackers {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Stop(id)
	}
}
