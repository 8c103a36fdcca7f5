package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/campusbite/orderflow/internal/cart"
	"github.com/campusbite/orderflow/internal/payment"
	"github.com/campusbite/orderflow/internal/promo"
	"github.com/campusbite/orderflow/pkg/auth"
	"github.com/campusbite/orderflow/pkg/enums"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/metrics"
	"github.com/campusbite/orderflow/pkg/pricing"
)

// PaymentDispatcher starts payment for a created order.
type PaymentDispatcher interface {
	Dispatch(ctx context.Context, orderID string, amount decimal.Decimal, method enums.PaymentMethod) (payment.Outcome, error)
}

// Service drives checkout flows. It logs and counts every transition.
type Service struct {
	orders     OrderCreator
	dispatcher PaymentDispatcher
	calc       pricing.Calculator
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
	newAttempt func() string
	now        func() time.Time
}

// NewService builds the checkout service.
func NewService(orders OrderCreator, dispatcher PaymentDispatcher, calc pricing.Calculator, m *metrics.CheckoutMetrics, logg *logger.Logger) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("payment dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		orders:     orders,
		dispatcher: dispatcher,
		calc:       calc,
		metrics:    m,
		logg:       logg,
		newAttempt: uuid.NewString,
		now:        time.Now,
	}, nil
}

// SubmitRequest carries the session state a submission reads and mutates.
type SubmitRequest struct {
	Cart          *cart.Cart
	Promo         promo.Application
	Flow          *Flow
	Method        enums.PaymentMethod
	AgreedToTerms bool
}

// SubmitResult is the outcome of a successful submission.
type SubmitResult struct {
	Order       PlacedOrder
	Submission  OrderSubmission
	RedirectURL string
	State       State
}

// Enter returns the flow to show on the checkout page, creating one when needed.
// An empty cart with no order in flight yields ErrEmptyCart.
func (s *Service) Enter(ctx context.Context, flow *Flow, c *cart.Cart, profile auth.Profile) (*Flow, error) {
	empty := c == nil || c.IsEmpty()
	if ShouldRedirectToMenu(empty, flow) {
		return nil, ErrEmptyCart
	}
	if flow != nil && (flow.Guard.Active() || flow.State == StateSubmitting) {
		return flow, nil
	}
	if flow == nil || flow.State == StateCompleted {
		flow = NewFlow(DetailsFromProfile(profile))
		s.logg.Info(ctx, "checkout flow started")
		s.metrics.IncTransition("none", flow.State.String())
	}
	return flow, nil
}

// SubmitDetails advances CollectingDetails to SelectingPayment.
func (s *Service) SubmitDetails(ctx context.Context, flow *Flow, details DeliveryDetails) error {
	if flow == nil {
		return ErrEmptyCart
	}
	from := flow.State
	if err := flow.SubmitDetails(details); err != nil {
		s.logg.Info(s.logg.WithField(ctx, "error", err.Error()), "delivery details rejected")
		return err
	}
	s.transitioned(ctx, from, flow.State)
	return nil
}

// Back returns to CollectingDetails.
func (s *Service) Back(ctx context.Context, flow *Flow) error {
	if flow == nil {
		return ErrEmptyCart
	}
	from := flow.State
	if err := flow.Back(); err != nil {
		return err
	}
	s.transitioned(ctx, from, flow.State)
	return nil
}

// Retry re-enters SelectingPayment after a failed submission.
func (s *Service) Retry(ctx context.Context, flow *Flow) error {
	if flow == nil {
		return ErrEmptyCart
	}
	from := flow.State
	if err := flow.Retry(); err != nil {
		return err
	}
	s.transitioned(ctx, from, flow.State)
	return nil
}

// Submit places the order. The cart is cleared only once the order exists and
// payment has been dispatched; on any failure the flow ends in Failed with the
// cart untouched and the guard released. The submission is not cancellable, so
// it runs detached from ctx cancellation.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	flow := req.Flow
	if flow == nil || req.Cart == nil {
		return SubmitResult{}, ErrEmptyCart
	}
	if req.Cart.IsEmpty() {
		return SubmitResult{}, ErrEmptyCart
	}

	from := flow.State
	attemptID := s.newAttempt()
	if err := flow.BeginSubmission(req.Method, req.AgreedToTerms, attemptID); err != nil {
		return SubmitResult{}, err
	}
	s.transitioned(ctx, from, flow.State)

	ctx = context.WithoutCancel(ctx)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"attempt_id":     attemptID,
		"payment_method": req.Method.String(),
	})
	started := s.now()
	defer func() {
		s.metrics.ObserveSubmission(req.Method.String(), s.now().Sub(started))
	}()

	sub, err := NewOrderSubmission(req.Cart, req.Promo, flow.Details, req.Method, s.calc)
	if err != nil {
		return SubmitResult{}, s.fail(ctx, flow, "submission_failed", req.Method, &SubmissionError{Cause: err})
	}

	placed, err := s.orders.CreateOrder(ctx, sub, attemptID)
	if err != nil {
		return SubmitResult{}, s.fail(ctx, flow, "submission_failed", req.Method, &SubmissionError{Cause: err})
	}
	flow.OrderCreated(placed.ID)
	ctx = s.logg.WithOrderID(ctx, placed.ID)
	s.logg.Info(ctx, "order created")

	outcome, err := s.dispatcher.Dispatch(ctx, placed.ID, sub.Totals().Total, req.Method)
	if err != nil {
		return SubmitResult{}, s.fail(ctx, flow, "payment_failed", req.Method, err)
	}

	req.Cart.Clear()
	if err := flow.Complete(outcome.RedirectURL); err != nil {
		return SubmitResult{}, err
	}
	s.transitioned(ctx, StateSubmitting, flow.State)
	s.metrics.IncSubmission("completed", req.Method.String())

	return SubmitResult{
		Order:       placed,
		Submission:  sub,
		RedirectURL: outcome.RedirectURL,
		State:       flow.State,
	}, nil
}

// Success handles arrival at the success view. It releases the guard and reports
// the order that was placed, if any. The caller discards the flow afterwards.
func (s *Service) Success(ctx context.Context, flow *Flow) string {
	if flow == nil {
		return ""
	}
	orderID := flow.ArriveAtSuccess()
	s.logg.Info(s.logg.WithOrderID(ctx, orderID), "checkout success view reached")
	return orderID
}

func (s *Service) fail(ctx context.Context, flow *Flow, outcome string, method enums.PaymentMethod, cause error) error {
	if err := flow.Fail(cause); err != nil {
		s.logg.Error(ctx, "checkout failure transition rejected", err)
	}
	s.logg.Error(ctx, "order submission failed", cause)
	s.transitioned(ctx, StateSubmitting, flow.State)
	s.metrics.IncSubmission(outcome, method.String())
	return cause
}

func (s *Service) transitioned(ctx context.Context, from, to State) {
	s.metrics.IncTransition(from.String(), to.String())
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"from": from.String(),
		"to":   to.String(),
	}), "checkout transition")
}
