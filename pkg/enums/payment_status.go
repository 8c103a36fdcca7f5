package enums

// PaymentStatus is the order service's view of whether an order is paid.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

var paymentStatuses = set[PaymentStatus]{PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return paymentStatuses.contains(p) }

// Settled reports whether the payment reached a final answer.
func (p PaymentStatus) Settled() bool {
	return p == PaymentStatusPaid || p == PaymentStatusFailed
}

// ParsePaymentStatus accepts any letter case.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return paymentStatuses.parseFold("payment status", value)
}

// PaymentStatusOrPending maps blank or unrecognised values to pending, which is
// what the order service reports for orders it has not heard back about.
func PaymentStatusOrPending(value string) PaymentStatus {
	status, err := ParsePaymentStatus(value)
	if err != nil {
		return PaymentStatusPending
	}
	return status
}
