package promo

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/campusbite/orderflow/pkg/storefront"
)

type storefrontPromoAPI interface {
	ValidatePromo(ctx context.Context, code string, orderAmount decimal.Decimal) (storefront.PromoResult, error)
}

// StorefrontChecker validates codes against the order service's promo endpoint.
type StorefrontChecker struct {
	client storefrontPromoAPI
}

// NewStorefrontChecker wraps the storefront client.
func NewStorefrontChecker(client storefrontPromoAPI) (*StorefrontChecker, error) {
	if client == nil {
		return nil, errors.New("storefront client required")
	}
	return &StorefrontChecker{client: client}, nil
}

// ValidatePromo implements Checker.
func (c *StorefrontChecker) ValidatePromo(ctx context.Context, code string, orderAmount decimal.Decimal) (Verdict, error) {
	result, err := c.client.ValidatePromo(ctx, code, orderAmount)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		Accepted: result.Accepted,
		Discount: result.Discount,
		Reason:   result.Message,
	}, nil
}
