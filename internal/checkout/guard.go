package checkout

// Guard is the order-in-flight latch. It is set once the order service confirms
// creation and released on arrival at the success view or on failure. While it is
// active the empty cart redirect does not fire.
type Guard struct {
	Placing bool   `json:"placing"`
	OrderID string `json:"order_id,omitempty"`
}

// Set latches the guard for orderID.
func (g *Guard) Set(orderID string) {
	g.Placing = true
	g.OrderID = orderID
}

// Release clears the latch. Releasing an inactive guard is a no-op.
func (g *Guard) Release() {
	g.Placing = false
	g.OrderID = ""
}

// Active reports whether an order is in flight.
func (g Guard) Active() bool {
	return g.Placing
}

// ShouldRedirectToMenu is the empty cart navigation rule. It fires only when the
// cart is empty and no order is being placed.
func ShouldRedirectToMenu(cartEmpty bool, flow *Flow) bool {
	if !cartEmpty {
		return false
	}
	if flow == nil {
		return true
	}
	return !flow.Guard.Active() && flow.State != StateSubmitting
}
