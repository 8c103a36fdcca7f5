package checkout

import (
	"github.com/campusbite/orderflow/pkg/enums"
)

// Flow is one customer's checkout progress. All transitions are methods on Flow;
// each returns an error and leaves the flow unchanged when disallowed.
type Flow struct {
	State         State               `json:"state"`
	Details       DeliveryDetails     `json:"details"`
	PaymentMethod enums.PaymentMethod `json:"payment_method,omitempty"`
	AttemptID     string              `json:"attempt_id,omitempty"`
	OrderID       string              `json:"order_id,omitempty"`
	RedirectURL   string              `json:"redirect_url,omitempty"`
	LastError     string              `json:"last_error,omitempty"`
	Guard         Guard               `json:"guard"`
}

// NewFlow starts a flow at CollectingDetails with pre-filled details.
func NewFlow(details DeliveryDetails) *Flow {
	return &Flow{State: StateCollectingDetails, Details: details}
}

// SubmitDetails validates details and advances to SelectingPayment. The draft is
// kept even when validation fails.
func (f *Flow) SubmitDetails(details DeliveryDetails) error {
	if f.State != StateCollectingDetails {
		return &TransitionError{From: f.State, Action: "submit delivery details"}
	}
	details = details.Normalized()
	f.Details = details
	if err := details.Validate(); err != nil {
		f.LastError = err.Error()
		return err
	}
	f.LastError = ""
	f.State = StateSelectingPayment
	return nil
}

// Back returns from SelectingPayment to CollectingDetails without re-validation.
func (f *Flow) Back() error {
	if f.State != StateSelectingPayment {
		return &TransitionError{From: f.State, Action: "go back"}
	}
	f.State = StateCollectingDetails
	f.LastError = ""
	return nil
}

// BeginSubmission moves to Submitting once a payment method is chosen and terms accepted.
func (f *Flow) BeginSubmission(method enums.PaymentMethod, agreedToTerms bool, attemptID string) error {
	if f.State != StateSelectingPayment {
		return &TransitionError{From: f.State, Action: "submit order"}
	}
	if !method.IsValid() {
		err := &ValidationError{Field: FieldPaymentMethod, Message: "choose a payment method"}
		f.LastError = err.Error()
		return err
	}
	if !agreedToTerms {
		err := &ValidationError{Field: FieldTerms, Message: "accept the terms to place the order"}
		f.LastError = err.Error()
		return err
	}
	f.PaymentMethod = method
	f.AttemptID = attemptID
	f.OrderID = ""
	f.RedirectURL = ""
	f.LastError = ""
	f.State = StateSubmitting
	return nil
}

// OrderCreated records the order id and latches the guard.
func (f *Flow) OrderCreated(orderID string) {
	f.OrderID = orderID
	f.Guard.Set(orderID)
}

// Complete finishes a submission.
func (f *Flow) Complete(redirectURL string) error {
	if f.State != StateSubmitting {
		return &TransitionError{From: f.State, Action: "complete order"}
	}
	f.RedirectURL = redirectURL
	f.State = StateCompleted
	return nil
}

// Fail records a failed submission and releases the guard.
func (f *Flow) Fail(cause error) error {
	if f.State != StateSubmitting {
		return &TransitionError{From: f.State, Action: "fail order"}
	}
	if cause != nil {
		f.LastError = cause.Error()
	}
	f.Guard.Release()
	f.State = StateFailed
	return nil
}

// Retry re-enters SelectingPayment after a failure.
func (f *Flow) Retry() error {
	if f.State != StateFailed {
		return &TransitionError{From: f.State, Action: "retry"}
	}
	f.State = StateSelectingPayment
	f.AttemptID = ""
	return nil
}

// ArriveAtSuccess releases the guard. It returns the placed order id, or "" when
// the flow did not complete.
func (f *Flow) ArriveAtSuccess() string {
	f.Guard.Release()
	if f.State != StateCompleted {
		return ""
	}
	return f.OrderID
}
