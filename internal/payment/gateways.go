package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/campusbite/orderflow/pkg/stripe"
)

type storefrontPayments interface {
	InitiatePayment(ctx context.Context, orderID string, amount decimal.Decimal) (string, error)
}

// StorefrontGateway initiates payment through the storefront's own gateway endpoint.
type StorefrontGateway struct {
	client storefrontPayments
}

// NewStorefrontGateway wraps the storefront client.
func NewStorefrontGateway(client storefrontPayments) (*StorefrontGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("storefront client required")
	}
	return &StorefrontGateway{client: client}, nil
}

// Initiate implements Gateway.
func (g *StorefrontGateway) Initiate(ctx context.Context, orderID string, amount decimal.Decimal) (string, error) {
	return g.client.InitiatePayment(ctx, orderID, amount)
}

type checkoutSessions interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutRequest) (string, error)
}

// StripeGateway initiates payment through a Stripe hosted Checkout session.
type StripeGateway struct {
	sessions checkoutSessions
}

// NewStripeGateway wraps the stripe client.
func NewStripeGateway(sessions checkoutSessions) (*StripeGateway, error) {
	if sessions == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &StripeGateway{sessions: sessions}, nil
}

// Initiate implements Gateway.
func (g *StripeGateway) Initiate(ctx context.Context, orderID string, amount decimal.Decimal) (string, error) {
	return g.sessions.CreateCheckoutSession(ctx, stripe.CheckoutRequest{OrderID: orderID, Amount: amount})
}
