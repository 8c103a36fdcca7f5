package promo

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Application is a validated discount tied to a code, expressed as currency.
type Application struct {
	Code        string          `json:"code,omitempty"`
	Discount    decimal.Decimal `json:"discount"`
	Valid       bool            `json:"valid"`
	OrderAmount decimal.Decimal `json:"order_amount"`
}

// NormalizeCode trims and uppercases a customer supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Active reports whether a discount currently applies.
func (a Application) Active() bool {
	return a.Valid && a.Code != ""
}

// EffectiveDiscount is the amount to subtract from the order, zero when inactive.
func (a Application) EffectiveDiscount() decimal.Decimal {
	if !a.Active() {
		return decimal.Zero
	}
	return a.Discount
}

// Remove clears the application locally without contacting the validator.
func (a *Application) Remove() {
	*a = Application{}
}

// Reconcile invalidates an active application when the cart subtotal no longer
// matches the amount it was validated against. The code is kept so it can be
// re-applied. It reports whether the application was invalidated.
func (a *Application) Reconcile(subtotal decimal.Decimal) bool {
	if !a.Active() || a.OrderAmount.Equal(subtotal) {
		return false
	}
	a.Valid = false
	a.Discount = decimal.Zero
	return true
}
