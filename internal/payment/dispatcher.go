package payment

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/campusbite/orderflow/pkg/enums"
	"github.com/campusbite/orderflow/pkg/logger"
)

// Gateway starts a hosted payment and returns the page the customer must visit.
type Gateway interface {
	Initiate(ctx context.Context, orderID string, amount decimal.Decimal) (string, error)
}

// Outcome is how the order proceeds after dispatch.
type Outcome struct {
	Method      enums.PaymentMethod `json:"payment_method"`
	RedirectURL string              `json:"redirect_url,omitempty"`
}

// Redirects reports whether the customer leaves for a hosted payment page.
func (o Outcome) Redirects() bool {
	return o.RedirectURL != ""
}

// InitiationError means the order exists but payment could not start.
type InitiationError struct {
	OrderID string
	Cause   error
}

func (e *InitiationError) Error() string {
	return fmt.Sprintf("payment initiation for order %s failed: %v", e.OrderID, e.Cause)
}

func (e *InitiationError) Unwrap() error {
	return e.Cause
}

// Dispatcher branches on payment method once an order has been created.
type Dispatcher struct {
	gateway Gateway
	logg    *logger.Logger
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(gateway Gateway, logg *logger.Logger) (*Dispatcher, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{gateway: gateway, logg: logg}, nil
}

// Dispatch finalizes cash on delivery immediately and asks the gateway for a
// redirect URL for prepaid orders. Failures are returned as *InitiationError.
func (d *Dispatcher) Dispatch(ctx context.Context, orderID string, amount decimal.Decimal, method enums.PaymentMethod) (Outcome, error) {
	ctx = d.logg.WithFields(ctx, map[string]any{
		"order_id":       orderID,
		"payment_method": method.String(),
	})

	switch method {
	case enums.PaymentMethodCashOnDelivery:
		d.logg.Info(ctx, "cash on delivery order placed")
		return Outcome{Method: method}, nil
	case enums.PaymentMethodGatewayPrepaid:
		redirect, err := d.gateway.Initiate(ctx, orderID, amount)
		if err != nil {
			d.logg.Error(ctx, "payment initiation failed", err)
			return Outcome{}, &InitiationError{OrderID: orderID, Cause: err}
		}
		if err := validateRedirect(redirect); err != nil {
			d.logg.Error(ctx, "payment gateway returned unusable url", err)
			return Outcome{}, &InitiationError{OrderID: orderID, Cause: err}
		}
		d.logg.Info(ctx, "payment redirect issued")
		return Outcome{Method: method, RedirectURL: redirect}, nil
	default:
		return Outcome{}, &InitiationError{OrderID: orderID, Cause: fmt.Errorf("unsupported payment method %q", method)}
	}
}

func validateRedirect(raw string) error {
	if raw == "" {
		return fmt.Errorf("empty redirect url")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse redirect url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("redirect url must be http(s), got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("redirect url missing host")
	}
	return nil
}
