package checkout

import (
	"github.com/campusbite/orderflow/internal/cart"
	"github.com/campusbite/orderflow/internal/promo"
	"github.com/campusbite/orderflow/pkg/enums"
	"github.com/campusbite/orderflow/pkg/pricing"
)

// OrderSubmission is the immutable snapshot sent to the order service for one attempt.
type OrderSubmission struct {
	items     []cart.LineItem
	details   DeliveryDetails
	totals    pricing.Totals
	method    enums.PaymentMethod
	promoCode string
}

// NewOrderSubmission snapshots the cart, promo and details at submission time.
func NewOrderSubmission(c *cart.Cart, app promo.Application, details DeliveryDetails, method enums.PaymentMethod, calc pricing.Calculator) (OrderSubmission, error) {
	if c == nil || c.IsEmpty() {
		return OrderSubmission{}, ErrEmptyCart
	}
	sub := OrderSubmission{
		items:   c.Items(),
		details: details,
		totals:  calc.Compute(c.Subtotal(), app.EffectiveDiscount()),
		method:  method,
	}
	if app.Active() {
		sub.promoCode = app.Code
	}
	return sub, nil
}

// Items returns a copy of the line items.
func (s OrderSubmission) Items() []cart.LineItem {
	out := make([]cart.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s OrderSubmission) Details() DeliveryDetails           { return s.details }
func (s OrderSubmission) Totals() pricing.Totals             { return s.totals }
func (s OrderSubmission) PaymentMethod() enums.PaymentMethod { return s.method }
func (s OrderSubmission) PromoCode() string                  { return s.promoCode }
