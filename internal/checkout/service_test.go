package checkout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusbite/orderflow/internal/cart"
	"github.com/campusbite/orderflow/internal/payment"
	"github.com/campusbite/orderflow/internal/promo"
	"github.com/campusbite/orderflow/pkg/auth"
	"github.com/campusbite/orderflow/pkg/enums"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/pricing"
	"github.com/campusbite/orderflow/pkg/storefront"
)

type stubOrders struct {
	err     error
	calls   int
	keys    []string
	lastSub OrderSubmission
}

func (s *stubOrders) CreateOrder(_ context.Context, sub OrderSubmission, key string) (PlacedOrder, error) {
	s.calls++
	s.keys = append(s.keys, key)
	s.lastSub = sub
	if s.err != nil {
		return PlacedOrder{}, s.err
	}
	return PlacedOrder{ID: "ord-1", Status: enums.OrderStatusPending, Total: sub.Totals().Total}, nil
}

type stubGateway struct {
	url string
	err error
}

func (g stubGateway) Initiate(context.Context, string, decimal.Decimal) (string, error) {
	return g.url, g.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, orders OrderCreator, gw payment.Gateway) *Service {
	t.Helper()
	dispatcher, err := payment.NewDispatcher(gw, testLogger())
	require.NoError(t, err)
	svc, err := NewService(orders, dispatcher, pricing.Default(), nil, testLogger())
	require.NoError(t, err)
	return svc
}

func cartWith(t *testing.T, items ...cart.Product) *cart.Cart {
	t.Helper()
	c := cart.New()
	for _, p := range items {
		c.AddItem(p)
	}
	return c
}

func biryani() cart.Product {
	return cart.Product{ProductID: "biryani", Name: "Kacchi Biryani", UnitPrice: decimal.NewFromInt(150)}
}

func readyFlow(t *testing.T) *Flow {
	t.Helper()
	flow := NewFlow(DeliveryDetails{})
	require.NoError(t, flow.SubmitDetails(validDetails()))
	return flow
}

func TestEnterRedirectsOnEmptyCart(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubOrders{}, stubGateway{})
	_, err := svc.Enter(context.Background(), nil, cart.New(), auth.Profile{})
	require.ErrorIs(t, err, ErrEmptyCart)

	apiErr := pkgerrors.As(ToAPIError(err))
	require.NotNil(t, apiErr)
	assert.Equal(t, pkgerrors.CodeConflict, apiErr.Code())
	assert.Equal(t, map[string]any{"redirect": MenuPath}, apiErr.Details())
}

func TestEnterPrefillsAndKeepsInFlightFlow(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubOrders{}, stubGateway{})
	flow, err := svc.Enter(context.Background(), nil, cartWith(t, biryani()), auth.Profile{Name: "Rafi", Phone: "01812345678"})
	require.NoError(t, err)
	assert.Equal(t, StateCollectingDetails, flow.State)
	assert.Equal(t, "Rafi", flow.Details.Name)

	flow.State = StateCompleted
	flow.Guard.Set("ord-1")
	again, err := svc.Enter(context.Background(), flow, cart.New(), auth.Profile{})
	require.NoError(t, err)
	assert.Same(t, flow, again)
}

func TestSubmitCashOnDeliveryCompletes(t *testing.T) {
	t.Parallel()

	orders := &stubOrders{}
	svc := newTestService(t, orders, stubGateway{})
	c := cartWith(t, biryani())
	flow := readyFlow(t)

	app := promo.Application{Code: "WELCOME", Discount: decimal.NewFromInt(15), Valid: true, OrderAmount: decimal.NewFromInt(150)}
	res, err := svc.Submit(context.Background(), SubmitRequest{
		Cart: c, Promo: app, Flow: flow,
		Method: enums.PaymentMethodCashOnDelivery, AgreedToTerms: true,
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Empty(t, res.RedirectURL)
	assert.True(t, c.IsEmpty(), "cart is cleared once completed")
	assert.True(t, flow.Guard.Active(), "guard holds until the success view")
	assert.Equal(t, "ord-1", flow.OrderID)

	totals := orders.lastSub.Totals()
	assert.True(t, totals.DeliveryFee.Equal(decimal.NewFromInt(30)))
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(165)))
	assert.Equal(t, "WELCOME", orders.lastSub.PromoCode())
	require.Len(t, orders.keys, 1)
	assert.Equal(t, flow.AttemptID, orders.keys[0])

	placed := res.StorefrontOrder()
	assert.Equal(t, "ord-1", placed.ID)
	assert.Equal(t, "Pending", placed.Status)
	assert.Equal(t, "cash_on_delivery", placed.PaymentMethod)
	assert.Equal(t, "pending", placed.PaymentStatus)
	assert.Equal(t, enums.HallRokeya.String(), placed.DeliveryDetails.Hall)
	require.Len(t, placed.Items, 1)
	assert.Equal(t, "biryani", placed.Items[0].Product)
	assert.True(t, placed.TotalAmount.Equal(decimal.NewFromInt(165)))

	assert.Equal(t, "ord-1", svc.Success(context.Background(), flow))
	assert.False(t, flow.Guard.Active())
}

func TestSubmitGatewayPrepaidRedirects(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubOrders{}, stubGateway{url: "https://pay.test/s/1"})
	c := cartWith(t, biryani(), biryani())
	flow := readyFlow(t)

	res, err := svc.Submit(context.Background(), SubmitRequest{
		Cart: c, Flow: flow, Method: enums.PaymentMethodGatewayPrepaid, AgreedToTerms: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/s/1", res.RedirectURL)
	assert.Equal(t, StateCompleted, flow.State)
	assert.True(t, res.Submission.Totals().DeliveryFee.IsZero())
	assert.True(t, c.IsEmpty())
}

func TestSubmitPaymentInitiationFailureKeepsCart(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubOrders{}, stubGateway{err: errors.New("gateway 503")})
	c := cartWith(t, biryani())
	before := c.Items()
	flow := readyFlow(t)

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Cart: c, Flow: flow, Method: enums.PaymentMethodGatewayPrepaid, AgreedToTerms: true,
	})
	require.Error(t, err)

	assert.Equal(t, StateFailed, flow.State)
	assert.Equal(t, before, c.Items())
	assert.False(t, flow.Guard.Active())
	assert.Equal(t, pkgerrors.CodePaymentInitiation, pkgerrors.CodeOf(ToAPIError(err)))
	assert.False(t, ShouldRedirectToMenu(false, flow))
}

func TestSubmitOrderServiceFailureKeepsCart(t *testing.T) {
	t.Parallel()

	orders := &stubOrders{err: &storefront.APIError{Status: 400, Message: "kitchen closed"}}
	svc := newTestService(t, orders, stubGateway{})
	c := cartWith(t, biryani())
	flow := readyFlow(t)

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Cart: c, Flow: flow, Method: enums.PaymentMethodCashOnDelivery, AgreedToTerms: true,
	})
	var submission *SubmissionError
	require.True(t, errors.As(err, &submission))

	assert.Equal(t, StateFailed, flow.State)
	assert.Equal(t, 1, c.Len())
	assert.False(t, flow.Guard.Active())
	assert.Empty(t, flow.OrderID)

	apiErr := pkgerrors.As(ToAPIError(err))
	require.NotNil(t, apiErr)
	assert.Equal(t, pkgerrors.CodeSubmission, apiErr.Code())
	assert.Equal(t, "kitchen closed", apiErr.Message())

	require.NoError(t, svc.Retry(context.Background(), flow))
	orders.err = nil
	_, err = svc.Submit(context.Background(), SubmitRequest{
		Cart: c, Flow: flow, Method: enums.PaymentMethodCashOnDelivery, AgreedToTerms: true,
	})
	require.NoError(t, err)
	require.Len(t, orders.keys, 2)
	assert.NotEqual(t, orders.keys[0], orders.keys[1], "each attempt uses a fresh idempotency key")
}

func TestSubmitWithoutTermsNeverReachesSubmitting(t *testing.T) {
	t.Parallel()

	orders := &stubOrders{}
	svc := newTestService(t, orders, stubGateway{})
	flow := readyFlow(t)

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Cart: cartWith(t, biryani()), Flow: flow, Method: enums.PaymentMethodCashOnDelivery,
	})
	requireValidationField(t, err, FieldTerms)
	assert.Equal(t, StateSelectingPayment, flow.State)
	assert.Zero(t, orders.calls)
}

func TestSubmitFromDetailsStepIsStateConflict(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubOrders{}, stubGateway{})
	flow := NewFlow(DeliveryDetails{})
	_, err := svc.Submit(context.Background(), SubmitRequest{
		Cart: cartWith(t, biryani()), Flow: flow, Method: enums.PaymentMethodCashOnDelivery, AgreedToTerms: true,
	})
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(ToAPIError(err)))
}

func TestStorefrontOrdersMapsSubmission(t *testing.T) {
	t.Parallel()

	api := &stubOrderAPI{order: storefront.Order{ID: "abc", Status: "Pending"}}
	creator, err := NewStorefrontOrders(api)
	require.NoError(t, err)

	c := cartWith(t, biryani())
	sub, err := NewOrderSubmission(c, promo.Application{}, validDetails(), enums.PaymentMethodCashOnDelivery, pricing.Default())
	require.NoError(t, err)

	placed, err := creator.CreateOrder(context.Background(), sub, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", placed.ID)
	assert.Equal(t, enums.OrderStatusPending, placed.Status)
	assert.True(t, placed.Total.Equal(decimal.NewFromInt(180)))
	assert.False(t, placed.CreatedAt.IsZero())

	assert.Equal(t, "key-1", api.key)
	assert.Equal(t, "Rokeya Hall", api.req.DeliveryDetails.Hall)
	assert.Equal(t, "180", api.req.TotalAmount.String())
	assert.Empty(t, api.req.PromoCode)
	require.Len(t, api.req.Items, 1)
	assert.Equal(t, "biryani", api.req.Items[0].Product)
}

type stubOrderAPI struct {
	order storefront.Order
	req   storefront.CreateOrderRequest
	key   string
}

func (s *stubOrderAPI) CreateOrder(_ context.Context, req storefront.CreateOrderRequest, key string) (storefront.Order, error) {
	s.req = req
	s.key = key
	return s.order, nil
}

func TestSubmissionIsASnapshot(t *testing.T) {
	t.Parallel()

	c := cartWith(t, biryani())
	sub, err := NewOrderSubmission(c, promo.Application{}, validDetails(), enums.PaymentMethodCashOnDelivery, pricing.Default())
	require.NoError(t, err)

	c.AddItem(biryani())
	items := sub.Items()
	items[0].Quantity = 50

	assert.Equal(t, 1, sub.Items()[0].Quantity)
	assert.True(t, sub.Totals().Subtotal.Equal(decimal.NewFromInt(150)))

	_, err = NewOrderSubmission(cart.New(), promo.Application{}, validDetails(), enums.PaymentMethodCashOnDelivery, pricing.Default())
	assert.ErrorIs(t, err, ErrEmptyCart)
}
