package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/campusbite/orderflow/api/middleware"
	"github.com/campusbite/orderflow/api/responses"
	"github.com/campusbite/orderflow/api/validators"
	"github.com/campusbite/orderflow/internal/promo"
	"github.com/campusbite/orderflow/internal/session"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/pricing"
)

// SessionStore loads and mutates per-session state.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*session.State, error)
	Do(ctx context.Context, sessionID string, fn func(*session.State) error) error
}

// PromoApplier validates promo codes.
type PromoApplier interface {
	Apply(ctx context.Context, code string, orderAmount decimal.Decimal) (promo.Application, error)
}

// CartFetch returns the session cart with its totals.
func CartFetch(store SessionStore, calc pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session store unavailable"))
			return
		}
		sessionID, err := middleware.RequireSession(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := store.Load(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(state, calc))
	}
}

// CartAddItem adds one unit of a product.
func CartAddItem(store SessionStore, calc pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product := payload.toProduct()
		mutate(w, r, store, calc, logg, http.StatusCreated, func(state *session.State) error {
			state.AddItem(product)
			return nil
		})
	}
}

// CartSetQuantity updates a line's quantity. Values below 1 are stored as 1;
// unknown products leave the cart unchanged.
func CartSetQuantity(store SessionStore, calc pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mutate(w, r, store, calc, logg, http.StatusOK, func(state *session.State) error {
			if !state.SetQuantity(productID, *payload.Quantity) && logg != nil {
				logg.Debug(logg.WithField(r.Context(), "product_id", productID), "quantity update for product not in cart")
			}
			return nil
		})
	}
}

// CartRemoveItem drops a product from the cart.
func CartRemoveItem(store SessionStore, calc pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mutate(w, r, store, calc, logg, http.StatusOK, func(state *session.State) error {
			state.RemoveItem(productID)
			return nil
		})
	}
}

// CartClear empties the cart.
func CartClear(store SessionStore, calc pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutate(w, r, store, calc, logg, http.StatusOK, func(state *session.State) error {
			state.ClearCart()
			return nil
		})
	}
}

// PromoApply validates a code against the current subtotal. A rejection leaves
// any previously applied promo in place.
func PromoApply(store SessionStore, promos PromoApplier, calc pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if promos == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo validator unavailable"))
			return
		}
		var payload applyPromoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mutate(w, r, store, calc, logg, http.StatusOK, func(state *session.State) error {
			if state.Cart.IsEmpty() {
				return pkgerrors.New(pkgerrors.CodeConflict, "add items before applying a promo code")
			}
			app, err := promos.Apply(r.Context(), payload.Code, state.Cart.Subtotal())
			if err != nil {
				return err
			}
			state.Promo = app
			return nil
		})
	}
}

// PromoRemove clears the applied promo without contacting the validator.
func PromoRemove(store SessionStore, calc pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutate(w, r, store, calc, logg, http.StatusOK, func(state *session.State) error {
			state.Promo.Remove()
			return nil
		})
	}
}

func mutate(w http.ResponseWriter, r *http.Request, store SessionStore, calc pricing.Calculator, logg *logger.Logger, status int, fn func(*session.State) error) {
	if store == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session store unavailable"))
		return
	}
	sessionID, err := middleware.RequireSession(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	var view CartView
	err = store.Do(r.Context(), sessionID, func(state *session.State) error {
		if err := fn(state); err != nil {
			return err
		}
		view = newCartView(state, calc)
		return nil
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, status, view)
}

func productIDParam(r *http.Request) (string, error) {
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	if productID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id required").
			WithDetails(map[string]any{"field": "productId"})
	}
	return productID, nil
}
