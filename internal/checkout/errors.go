package checkout

import (
	"errors"
	"fmt"

	"github.com/campusbite/orderflow/internal/payment"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
)

const (
	FieldName          = "name"
	FieldPhone         = "phone"
	FieldHall          = "hall"
	FieldEmail         = "email"
	FieldTerms         = "terms"
	FieldPaymentMethod = "payment_method"
)

// MenuPath is where customers are sent when there is nothing to check out.
const MenuPath = "/menu"

// ErrEmptyCart is returned when checkout starts with nothing to order.
var ErrEmptyCart = errors.New("cart is empty")

// ValidationError blocks a forward transition until the field is corrected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransitionError is an action attempted from a state that does not allow it.
type TransitionError struct {
	From   State
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

// SubmissionError wraps a failure to create the order.
type SubmissionError struct {
	Cause error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("order submission failed: %v", e.Cause)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// ToAPIError maps checkout failures onto coded errors.
func ToAPIError(err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}

	var validation *ValidationError
	var transition *TransitionError
	var submission *SubmissionError
	var initiation *payment.InitiationError

	switch {
	case errors.Is(err, ErrEmptyCart):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart is empty").
			WithDetails(map[string]any{"redirect": MenuPath})
	case errors.As(err, &validation):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, validation.Message).
			WithDetails(map[string]any{"field": validation.Field})
	case errors.As(err, &transition):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, transition.Error()).
			WithDetails(map[string]any{"state": transition.From.String()})
	case errors.As(err, &initiation):
		return pkgerrors.Wrap(pkgerrors.CodePaymentInitiation, err, "payment could not be started").
			WithDetails(map[string]any{"order_id": initiation.OrderID})
	case errors.As(err, &submission):
		return pkgerrors.Wrap(pkgerrors.CodeSubmission, err, submissionMessage(submission))
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
	}
}

type publicMessager interface {
	PublicMessage() string
}

func submissionMessage(err *SubmissionError) string {
	var pm publicMessager
	if errors.As(err.Cause, &pm) && pm.PublicMessage() != "" {
		return pm.PublicMessage()
	}
	return "order could not be placed"
}
