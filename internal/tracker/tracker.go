package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/campusbite/orderflow/internal/notifications"
	"github.com/campusbite/orderflow/pkg/db/models"
	"github.com/campusbite/orderflow/pkg/enums"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/metrics"
	"github.com/campusbite/orderflow/pkg/storefront"
)

// ErrStopped is returned when a tracker has been torn down.
var ErrStopped = errors.New("tracker: stopped")

const (
	outcomeApplied   = "applied"
	outcomeUnchanged = "unchanged"
	outcomeIgnored   = "ignored"

	inboxSize = 32
)

// OrderService is the order API surface the tracker needs.
type OrderService interface {
	ListOrders(ctx context.Context) ([]storefront.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	SubmitReview(ctx context.Context, req storefront.ReviewRequest) error
}

// Notifier raises user-visible notices.
type Notifier interface {
	Notify(ctx context.Context, notice notifications.Notice)
}

// Sink accepts status events from a feed source.
type Sink interface {
	Publish(ctx context.Context, event StatusEvent) error
}

// book is the reducer-owned order index. Only the run goroutine touches it.
type book struct {
	byID map[string]*Order
	ids  []string
}

func (b *book) put(order Order) bool {
	if existing, ok := b.byID[order.ID]; ok {
		order.Reviewed = order.Reviewed || existing.Reviewed
		order.decorate()
		*existing = order
		return false
	}
	order.decorate()
	b.byID[order.ID] = &order
	b.ids = append(b.ids, order.ID)
	sort.SliceStable(b.ids, func(i, j int) bool {
		return b.byID[b.ids[i]].CreatedAt.After(b.byID[b.ids[j]].CreatedAt)
	})
	return true
}

func (b *book) snapshot() []Order {
	out := make([]Order, 0, len(b.ids))
	for _, id := range b.ids {
		out = append(out, b.byID[id].clone())
	}
	return out
}

type envelope struct {
	event  *StatusEvent
	fanout bool
	cmd    func(*book)
}

// Tracker holds the orders of one session and applies status events to them.
// All state lives in a single reducer goroutine fed through one inbox, so events
// and commands are applied in arrival order.
type Tracker struct {
	sessionID string
	userID    string
	orders    OrderService
	repo      Repository
	notifier  Notifier
	metrics   *metrics.TrackerMetrics
	logg      *logger.Logger

	inbox  chan envelope
	done   chan struct{}
	cancel context.CancelFunc
}

// Options configures a Tracker.
type Options struct {
	SessionID string
	UserID    string
	Orders    OrderService
	Repo      Repository
	Notifier  Notifier
	Metrics   *metrics.TrackerMetrics
	Logger    *logger.Logger
}

// New starts a tracker. The reducer runs until ctx is cancelled or Stop is called.
func New(ctx context.Context, opts Options) (*Tracker, error) {
	if strings.TrimSpace(opts.SessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if opts.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order service required")
	}
	if opts.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := &Tracker{
		sessionID: opts.SessionID,
		userID:    opts.UserID,
		orders:    opts.Orders,
		repo:      opts.Repo,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		logg:      opts.Logger,
		inbox:     make(chan envelope, inboxSize),
		done:      make(chan struct{}),
		cancel:    cancel,
	}
	go t.run(opts.Logger.WithSessionID(runCtx, opts.SessionID))
	return t, nil
}

// SessionID returns the owning session.
func (t *Tracker) SessionID() string {
	return t.sessionID
}

// Stop terminates the reducer and waits for it to exit.
func (t *Tracker) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed once the reducer has exited.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)
	b := &book{byID: map[string]*Order{}}
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-t.inbox:
			if msg.event != nil {
				t.reduce(ctx, b, *msg.event, msg.fanout)
				continue
			}
			msg.cmd(b)
		}
	}
}

func (t *Tracker) reduce(ctx context.Context, b *book, event StatusEvent, fanout bool) {
	logCtx := t.logg.WithFields(ctx, map[string]any{
		"order_id": event.OrderID,
		"status":   event.Status.String(),
	})

	order, ok := b.byID[event.OrderID]
	if !ok {
		t.metrics.IncEvent(outcomeIgnored)
		if !fanout {
			t.logg.Info(logCtx, ErrUnknownOrder.Error())
		}
		return
	}
	if order.Status == event.Status {
		t.metrics.IncEvent(outcomeUnchanged)
		return
	}

	previous := order.Status
	order.Status = event.Status
	order.decorate()
	t.metrics.IncEvent(outcomeApplied)
	t.logg.Info(t.logg.WithField(logCtx, "previous_status", previous.String()), "order status updated")

	if t.repo != nil {
		if err := t.repo.UpdateStatus(ctx, order.ID, order.Status); err != nil {
			t.logg.Error(logCtx, "failed to mirror order status", err)
		}
	}
	if t.notifier != nil {
		t.notifier.Notify(ctx, notifications.Notice{
			SessionID: t.sessionID,
			OrderID:   order.ID,
			Title:     "Order update",
			Message:   statusMessage(order.ID, order.Status),
		})
	}
}

func statusMessage(orderID string, status enums.OrderStatus) string {
	ref := orderID
	if len(ref) > 6 {
		ref = ref[len(ref)-6:]
	}
	return fmt.Sprintf("Order #%s is now %s", strings.ToUpper(ref), status)
}

// Publish enqueues a status event for this session.
func (t *Tracker) Publish(ctx context.Context, event StatusEvent) error {
	return t.send(ctx, envelope{event: &event})
}

func (t *Tracker) send(ctx context.Context, msg envelope) error {
	select {
	case t.inbox <- msg:
		return nil
	case <-t.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// query runs fn inside the reducer and waits for it to finish.
func (t *Tracker) query(ctx context.Context, fn func(*book)) error {
	reply := make(chan struct{})
	if err := t.send(ctx, envelope{cmd: func(b *book) {
		fn(b)
		close(reply)
	}}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-t.done:
		select {
		case <-reply:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the tracked orders, newest first.
func (t *Tracker) Snapshot(ctx context.Context) ([]Order, error) {
	var out []Order
	err := t.query(ctx, func(b *book) {
		out = b.snapshot()
	})
	return out, err
}

// Order returns one tracked order.
func (t *Tracker) Order(ctx context.Context, orderID string) (Order, bool, error) {
	var (
		out   Order
		found bool
	)
	err := t.query(ctx, func(b *book) {
		if order, ok := b.byID[orderID]; ok {
			out, found = order.clone(), true
		}
	})
	return out, found, err
}

// Track adds or refreshes orders and mirrors them.
func (t *Tracker) Track(ctx context.Context, orders ...Order) error {
	if len(orders) == 0 {
		return nil
	}
	var rows []models.TrackedOrder
	err := t.query(ctx, func(b *book) {
		for _, order := range orders {
			if strings.TrimSpace(order.ID) == "" {
				continue
			}
			b.put(order.clone())
			stored := b.byID[order.ID]
			if stored.Status.IsValid() {
				rows = append(rows, stored.toModel(t.sessionID, t.userID))
			}
		}
	})
	if err != nil {
		return err
	}
	if t.repo != nil && len(rows) > 0 {
		if err := t.repo.Upsert(ctx, rows); err != nil {
			t.logg.Error(t.logg.WithSessionID(ctx, t.sessionID), "failed to mirror tracked orders", err)
		}
	}
	return nil
}

// Cancel asks the order service to cancel a pending order and marks it Cancelled
// locally once the service confirms. On failure the local status is untouched.
func (t *Tracker) Cancel(ctx context.Context, orderID string) (Order, error) {
	current, found, err := t.Order(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !found {
		return Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !current.Status.Cancellable() {
		return Order{}, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled").
			WithDetails(map[string]any{"status": current.Status.String()})
	}

	if err := t.orders.CancelOrder(ctx, orderID); err != nil {
		return Order{}, upstreamError(err, "cancel order")
	}

	var updated Order
	if err := t.query(ctx, func(b *book) {
		if order, ok := b.byID[orderID]; ok {
			order.Status = enums.OrderStatusCancelled
			order.decorate()
			updated = order.clone()
		}
	}); err != nil {
		return Order{}, err
	}
	if t.repo != nil {
		if err := t.repo.UpdateStatus(ctx, orderID, enums.OrderStatusCancelled); err != nil {
			t.logg.Error(t.logg.WithOrderID(ctx, orderID), "failed to mirror cancellation", err)
		}
	}
	t.logg.Info(t.logg.WithOrderID(ctx, orderID), "order cancelled")
	return updated, nil
}

// Review submits a review for a delivered, not yet reviewed order.
func (t *Tracker) Review(ctx context.Context, orderID string, rating int, comment string) (Order, error) {
	if rating < 1 || rating > 5 {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"field": "rating"})
	}
	current, found, err := t.Order(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !found {
		return Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !current.Reviewable {
		return Order{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be reviewed").
			WithDetails(map[string]any{"status": current.Status.String(), "reviewed": current.Reviewed})
	}

	if err := t.orders.SubmitReview(ctx, storefront.ReviewRequest{
		Order:   orderID,
		Rating:  rating,
		Comment: strings.TrimSpace(comment),
	}); err != nil {
		return Order{}, upstreamError(err, "submit review")
	}

	var updated Order
	if err := t.query(ctx, func(b *book) {
		if order, ok := b.byID[orderID]; ok {
			order.Reviewed = true
			order.decorate()
			updated = order.clone()
		}
	}); err != nil {
		return Order{}, err
	}
	if t.repo != nil {
		if err := t.repo.MarkReviewed(ctx, orderID); err != nil {
			t.logg.Error(t.logg.WithOrderID(ctx, orderID), "failed to mirror review flag", err)
		}
	}
	return updated, nil
}

type publicMessager interface {
	PublicMessage() string
	UpstreamStatus() int
}

// upstreamError maps an order service failure. A 4xx answer is the service
// refusing the action and surfaces its message as a CONFLICT.
func upstreamError(err error, action string) error {
	var pm publicMessager
	if errors.As(err, &pm) && pm.PublicMessage() != "" {
		if status := pm.UpstreamStatus(); status >= 400 && status < 500 {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, pm.PublicMessage())
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, pm.PublicMessage())
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
