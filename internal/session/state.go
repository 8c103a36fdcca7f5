package session

import (
	"github.com/campusbite/orderflow/internal/cart"
	"github.com/campusbite/orderflow/internal/checkout"
	"github.com/campusbite/orderflow/internal/promo"
	"github.com/campusbite/orderflow/pkg/pricing"
)

// State is everything the service keeps for one session between requests.
type State struct {
	Cart     *cart.Cart        `json:"cart"`
	Promo    promo.Application `json:"promo"`
	Checkout *checkout.Flow    `json:"checkout,omitempty"`
}

// NewState returns an empty session.
func NewState() *State {
	return &State{Cart: cart.New()}
}

func (s *State) ensureCart() {
	if s.Cart == nil {
		s.Cart = cart.New()
	}
}

// AddItem adds one unit of p. Any applied promo is re-checked against the new subtotal.
func (s *State) AddItem(p cart.Product) cart.LineItem {
	s.ensureCart()
	item := s.Cart.AddItem(p)
	s.reconcile()
	return item
}

// RemoveItem drops a product from the cart.
func (s *State) RemoveItem(productID string) {
	s.ensureCart()
	s.Cart.RemoveItem(productID)
	s.reconcile()
}

// SetQuantity updates a line's quantity, clamped to 1. It reports whether the item exists.
func (s *State) SetQuantity(productID string, quantity int) bool {
	s.ensureCart()
	ok := s.Cart.SetQuantity(productID, quantity)
	s.reconcile()
	return ok
}

// ClearCart empties the cart.
func (s *State) ClearCart() {
	s.ensureCart()
	s.Cart.Clear()
	s.reconcile()
}

// OrderPlaced drops the promo once its order exists. The cart itself is cleared by
// the checkout flow.
func (s *State) OrderPlaced() {
	s.Promo.Remove()
}

// Totals prices the current cart with the applied promo.
func (s *State) Totals(calc pricing.Calculator) pricing.Totals {
	s.ensureCart()
	return calc.Compute(s.Cart.Subtotal(), s.Promo.EffectiveDiscount())
}

func (s *State) reconcile() {
	s.Promo.Reconcile(s.Cart.Subtotal())
}
