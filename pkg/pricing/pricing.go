package pricing

import "github.com/shopspring/decimal"

var (
	// DefaultFreeDeliveryThreshold is the subtotal at which delivery becomes free.
	DefaultFreeDeliveryThreshold = decimal.NewFromInt(200)
	// DefaultFlatDeliveryFee is charged below the threshold.
	DefaultFlatDeliveryFee = decimal.NewFromInt(30)
)

// Totals is the derived price breakdown shown at every checkout step.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// Calculator derives Totals from a subtotal and a promo discount.
type Calculator struct {
	threshold decimal.Decimal
	fee       decimal.Decimal
}

// NewCalculator returns a Calculator using the given delivery rule.
func NewCalculator(threshold, fee decimal.Decimal) Calculator {
	return Calculator{threshold: threshold, fee: fee}
}

// Default returns the Calculator with the standard campus delivery rule.
func Default() Calculator {
	return NewCalculator(DefaultFreeDeliveryThreshold, DefaultFlatDeliveryFee)
}

// DeliveryFee returns zero when subtotal reaches the threshold, else the flat fee.
func (c Calculator) DeliveryFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(c.threshold) {
		return decimal.Zero
	}
	return c.fee
}

// Compute returns subtotal + fee - discount. The total is not clamped; an
// oversized discount yields a negative total which the order service rejects.
func (c Calculator) Compute(subtotal, discount decimal.Decimal) Totals {
	fee := c.DeliveryFee(subtotal)
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Discount:    discount,
		Total:       subtotal.Add(fee).Sub(discount),
	}
}

// ComputeTotals applies the default delivery rule.
func ComputeTotals(subtotal, discount decimal.Decimal) Totals {
	return Default().Compute(subtotal, discount)
}
