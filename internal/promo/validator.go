package promo

import (
	"context"
	"fmt"

	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/shopspring/decimal"
)

// Verdict is the collaborator's answer for a code and order amount.
type Verdict struct {
	Accepted bool
	Discount decimal.Decimal
	Reason   string
}

// Checker validates a promo code against the order service.
type Checker interface {
	ValidatePromo(ctx context.Context, code string, orderAmount decimal.Decimal) (Verdict, error)
}

// RejectedError carries the human readable reason a code was refused.
type RejectedError struct {
	Code   string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("promo %s rejected: %s", e.Code, e.Reason)
}

// Validator applies promo codes through a Checker.
type Validator struct {
	checker Checker
	logg    *logger.Logger
}

// NewValidator wires a Validator.
func NewValidator(checker Checker, logg *logger.Logger) (*Validator, error) {
	if checker == nil {
		return nil, fmt.Errorf("promo checker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Validator{checker: checker, logg: logg}, nil
}

// Apply validates code against orderAmount and returns the new application.
// Rejections return a PROMO_REJECTED error wrapping *RejectedError; callers keep
// their previous application untouched on any error.
func (v *Validator) Apply(ctx context.Context, code string, orderAmount decimal.Decimal) (Application, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Application{}, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required").
			WithDetails(map[string]any{"field": "code"})
	}

	verdict, err := v.checker.ValidatePromo(ctx, normalized, orderAmount)
	if err != nil {
		v.logg.Error(ctx, "promo validation call failed", err)
		return Application{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promo validation unavailable")
	}
	if !verdict.Accepted {
		reason := verdict.Reason
		if reason == "" {
			reason = "promo code is not valid"
		}
		rejected := &RejectedError{Code: normalized, Reason: reason}
		v.logg.Info(v.logg.WithField(ctx, "promo_code", normalized), "promo rejected")
		return Application{}, pkgerrors.Wrap(pkgerrors.CodePromoRejected, rejected, reason).
			WithDetails(map[string]any{"code": normalized, "reason": reason})
	}
	if verdict.Discount.IsNegative() {
		return Application{}, pkgerrors.New(pkgerrors.CodeDependency, "promo validation returned a negative discount")
	}

	v.logg.Info(v.logg.WithFields(ctx, map[string]any{
		"promo_code": normalized,
		"discount":   verdict.Discount.String(),
	}), "promo applied")

	return Application{
		Code:        normalized,
		Discount:    verdict.Discount,
		Valid:       true,
		OrderAmount: orderAmount,
	}, nil
}
