package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campusbite/orderflow/api/middleware"
	"github.com/campusbite/orderflow/api/responses"
	"github.com/campusbite/orderflow/api/validators"
	"github.com/campusbite/orderflow/internal/tracker"
	"github.com/campusbite/orderflow/pkg/auth"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
)

// Trackers returns the running order tracker for a session, starting one when needed.
type Trackers interface {
	Ensure(ctx context.Context, sess tracker.Session) (*tracker.Tracker, error)
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

type listResponse struct {
	Orders []tracker.Order `json:"orders"`
}

// List returns every order of the session with its live status.
func List(trackers Trackers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := sessionTracker(w, r, trackers, logg)
		if !ok {
			return
		}
		orders, err := t.Snapshot(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read tracked orders"))
			return
		}
		if orders == nil {
			orders = []tracker.Order{}
		}
		responses.WriteSuccess(w, listResponse{Orders: orders})
	}
}

// Cancel cancels a pending order.
func Cancel(trackers Trackers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		t, ok := sessionTracker(w, r, trackers, logg)
		if !ok {
			return
		}
		order, err := t.Cancel(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Review submits a rating and optional comment for a delivered order.
func Review(trackers Trackers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		t, ok := sessionTracker(w, r, trackers, logg)
		if !ok {
			return
		}
		order, err := t.Review(r.Context(), orderID, payload.Rating, validators.SanitizeString(payload.Comment, 1000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func sessionTracker(w http.ResponseWriter, r *http.Request, trackers Trackers, logg *logger.Logger) (*tracker.Tracker, bool) {
	if trackers == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order tracking unavailable"))
		return nil, false
	}
	sessionID, err := middleware.RequireSession(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	t, err := trackers.Ensure(r.Context(), tracker.Session{
		ID:     sessionID,
		UserID: middleware.UserIDFromContext(r.Context()),
		Token:  auth.TokenFromContext(r.Context()),
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return t, true
}

func orderIDParam(r *http.Request) (string, error) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required").
			WithDetails(map[string]any{"field": "orderId"})
	}
	return orderID, nil
}
