package checkout

import (
	"context"
	"net/http"

	"github.com/campusbite/orderflow/api/middleware"
	"github.com/campusbite/orderflow/api/responses"
	"github.com/campusbite/orderflow/api/validators"
	"github.com/campusbite/orderflow/internal/cart"
	checkoutsvc "github.com/campusbite/orderflow/internal/checkout"
	"github.com/campusbite/orderflow/internal/session"
	"github.com/campusbite/orderflow/internal/tracker"
	"github.com/campusbite/orderflow/pkg/auth"
	"github.com/campusbite/orderflow/pkg/enums"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/pricing"
)

// SessionStore mutates per-session state under the session lock.
type SessionStore interface {
	Do(ctx context.Context, sessionID string, fn func(*session.State) error) error
}

// Flows drives the checkout state machine.
type Flows interface {
	Enter(ctx context.Context, flow *checkoutsvc.Flow, c *cart.Cart, profile auth.Profile) (*checkoutsvc.Flow, error)
	SubmitDetails(ctx context.Context, flow *checkoutsvc.Flow, details checkoutsvc.DeliveryDetails) error
	Back(ctx context.Context, flow *checkoutsvc.Flow) error
	Retry(ctx context.Context, flow *checkoutsvc.Flow) error
	Submit(ctx context.Context, req checkoutsvc.SubmitRequest) (checkoutsvc.SubmitResult, error)
	Success(ctx context.Context, flow *checkoutsvc.Flow) string
}

// OrderAdopter hands a placed order to the session's live tracker.
type OrderAdopter interface {
	Adopt(ctx context.Context, sessionID string, orders ...tracker.Order) error
}

// Deps bundles the checkout handler collaborators.
type Deps struct {
	Store   SessionStore
	Flows   Flows
	Tracker OrderAdopter
	Calc    pricing.Calculator
	Logger  *logger.Logger
}

// CheckoutEnter starts or resumes the session's checkout flow. An empty cart
// with no order in flight is a CONFLICT pointing at the menu.
func CheckoutEnter(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withFlow(w, r, deps, http.StatusOK, func(context.Context, *session.State) error {
			return nil
		})
	}
}

// CheckoutDetails validates delivery details and advances to payment selection.
// The draft is stored even when validation fails.
func CheckoutDetails(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload detailsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), deps.Logger, w, err)
			return
		}
		withFlow(w, r, deps, http.StatusOK, func(ctx context.Context, state *session.State) error {
			return deps.Flows.SubmitDetails(ctx, state.Checkout, payload.toDetails())
		})
	}
}

// CheckoutBack returns to the details step.
func CheckoutBack(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withFlow(w, r, deps, http.StatusOK, func(ctx context.Context, state *session.State) error {
			return deps.Flows.Back(ctx, state.Checkout)
		})
	}
}

// CheckoutRetry re-enters payment selection after a failed submission.
func CheckoutRetry(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withFlow(w, r, deps, http.StatusOK, func(ctx context.Context, state *session.State) error {
			return deps.Flows.Retry(ctx, state.Checkout)
		})
	}
}

// CheckoutSubmit places the order and starts payment.
func CheckoutSubmit(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil || deps.Flows == nil {
			responses.WriteError(r.Context(), deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		sessionID, err := middleware.RequireSession(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), deps.Logger, w, err)
			return
		}
		var payload submitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), deps.Logger, w, err)
			return
		}

		// An unknown method reaches the flow unset so it records the field error.
		method, parseErr := enums.ParsePaymentMethod(payload.PaymentMethod)
		if parseErr != nil && payload.PaymentMethod != "" {
			deps.Logger.Debug(deps.Logger.WithField(r.Context(), "error", parseErr.Error()), "unknown payment method submitted")
		}

		var result checkoutsvc.SubmitResult
		err = deps.Store.Do(r.Context(), sessionID, func(state *session.State) error {
			if state.Checkout == nil {
				return checkoutsvc.ErrEmptyCart
			}
			res, err := deps.Flows.Submit(r.Context(), checkoutsvc.SubmitRequest{
				Cart:          state.Cart,
				Promo:         state.Promo,
				Flow:          state.Checkout,
				Method:        method,
				AgreedToTerms: payload.AgreedToTerms,
			})
			if err != nil {
				return err
			}
			state.OrderPlaced()
			result = res
			return nil
		})
		if err != nil {
			responses.WriteError(r.Context(), deps.Logger, w, checkoutsvc.ToAPIError(err))
			return
		}

		if deps.Tracker != nil {
			placed := tracker.FromStorefront(result.StorefrontOrder())
			if err := deps.Tracker.Adopt(r.Context(), sessionID, placed); err != nil && deps.Logger != nil {
				deps.Logger.Error(deps.Logger.WithOrderID(r.Context(), result.Order.ID), "failed to hand placed order to tracker", err)
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, SubmitView{
			State:       result.State.String(),
			OrderID:     result.Order.ID,
			RedirectURL: result.RedirectURL,
			Totals:      result.Submission.Totals(),
		})
	}
}

// CheckoutSuccess runs when the success view mounts. It releases the
// submission guard and discards the finished flow.
func CheckoutSuccess(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil || deps.Flows == nil {
			responses.WriteError(r.Context(), deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		sessionID, err := middleware.RequireSession(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), deps.Logger, w, err)
			return
		}

		var view SuccessView
		err = deps.Store.Do(r.Context(), sessionID, func(state *session.State) error {
			view.OrderID = deps.Flows.Success(r.Context(), state.Checkout)
			state.Checkout = nil
			return nil
		})
		if err != nil {
			responses.WriteError(r.Context(), deps.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// withFlow runs fn against the session's flow, creating the flow first when
// the session has none, and responds with the resulting flow view.
func withFlow(w http.ResponseWriter, r *http.Request, deps Deps, status int, fn func(context.Context, *session.State) error) {
	if deps.Store == nil || deps.Flows == nil {
		responses.WriteError(r.Context(), deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
		return
	}
	ctx := r.Context()
	sessionID, err := middleware.RequireSession(ctx)
	if err != nil {
		responses.WriteError(ctx, deps.Logger, w, err)
		return
	}

	var view FlowView
	err = deps.Store.Do(ctx, sessionID, func(state *session.State) error {
		flow, err := deps.Flows.Enter(ctx, state.Checkout, state.Cart, middleware.ProfileFromContext(ctx))
		if err != nil {
			return err
		}
		state.Checkout = flow
		fnErr := fn(ctx, state)
		view = newFlowView(state, deps.Calc)
		return fnErr
	})
	if err != nil {
		responses.WriteError(ctx, deps.Logger, w, checkoutsvc.ToAPIError(err))
		return
	}
	responses.WriteSuccessStatus(w, status, view)
}
