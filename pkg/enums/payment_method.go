package enums

// PaymentMethod is how a customer settles an order.
type PaymentMethod string

const (
	PaymentMethodGatewayPrepaid PaymentMethod = "gateway_prepaid"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

var paymentMethods = set[PaymentMethod]{PaymentMethodGatewayPrepaid, PaymentMethodCashOnDelivery}

// PaymentMethods lists the methods offered at checkout.
func PaymentMethods() []PaymentMethod { return paymentMethods.values() }

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return paymentMethods.contains(p) }

// RequiresRedirect reports whether the customer is sent to a hosted payment page.
func (p PaymentMethod) RequiresRedirect() bool {
	return p == PaymentMethodGatewayPrepaid
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return paymentMethods.parse("payment method", value)
}
