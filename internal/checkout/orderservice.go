package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusbite/orderflow/pkg/enums"
	"github.com/campusbite/orderflow/pkg/storefront"
)

// PlacedOrder is what the order service confirms after creation.
type PlacedOrder struct {
	ID        string
	Status    enums.OrderStatus
	Total     decimal.Decimal
	CreatedAt time.Time
}

// OrderCreator creates orders on the external order service.
type OrderCreator interface {
	CreateOrder(ctx context.Context, sub OrderSubmission, idempotencyKey string) (PlacedOrder, error)
}

type storefrontOrderAPI interface {
	CreateOrder(ctx context.Context, req storefront.CreateOrderRequest, idempotencyKey string) (storefront.Order, error)
}

// StorefrontOrders adapts the storefront client to OrderCreator.
type StorefrontOrders struct {
	client storefrontOrderAPI
	now    func() time.Time
}

// NewStorefrontOrders wraps the storefront client.
func NewStorefrontOrders(client storefrontOrderAPI) (*StorefrontOrders, error) {
	if client == nil {
		return nil, fmt.Errorf("storefront client required")
	}
	return &StorefrontOrders{client: client, now: time.Now}, nil
}

// CreateOrder implements OrderCreator.
func (s *StorefrontOrders) CreateOrder(ctx context.Context, sub OrderSubmission, idempotencyKey string) (PlacedOrder, error) {
	order, err := s.client.CreateOrder(ctx, toCreateOrderRequest(sub), idempotencyKey)
	if err != nil {
		return PlacedOrder{}, err
	}

	status := enums.OrderStatusPending
	if order.Status != "" {
		if parsed, err := enums.ParseOrderStatus(order.Status); err == nil {
			status = parsed
		}
	}
	total := order.TotalAmount
	if total.IsZero() {
		total = sub.Totals().Total
	}
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	return PlacedOrder{ID: order.ID, Status: status, Total: total, CreatedAt: createdAt}, nil
}

func toCreateOrderRequest(sub OrderSubmission) storefront.CreateOrderRequest {
	items := sub.Items()
	wireItems := make([]storefront.OrderLine, 0, len(items))
	for _, item := range items {
		wireItems = append(wireItems, storefront.OrderLine{
			Product:  item.ProductID,
			Name:     item.Name,
			Price:    storefront.Amount(item.UnitPrice),
			Quantity: item.Quantity,
			Image:    item.ImageRef,
		})
	}
	details := sub.Details()
	totals := sub.Totals()
	return storefront.CreateOrderRequest{
		Items: wireItems,
		DeliveryDetails: storefront.DeliveryDetails{
			Name:         details.Name,
			Phone:        details.Phone,
			Email:        details.Email,
			Hall:         details.Hall.String(),
			RoomNumber:   details.RoomNumber,
			Instructions: details.Instructions,
		},
		Subtotal:      storefront.Amount(totals.Subtotal),
		DeliveryFee:   storefront.Amount(totals.DeliveryFee),
		Discount:      storefront.Amount(totals.Discount),
		TotalAmount:   storefront.Amount(totals.Total),
		PaymentMethod: sub.PaymentMethod().String(),
		PromoCode:     sub.PromoCode(),
	}
}

// StorefrontOrder renders a successful submission the way the order service
// would list it, so a live tracker can adopt the order without a refetch.
func (r SubmitResult) StorefrontOrder() storefront.Order {
	items := r.Submission.Items()
	lines := make([]storefront.OrderItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, storefront.OrderItem{
			Product:  item.ProductID,
			Name:     item.Name,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
			Image:    item.ImageRef,
		})
	}
	req := toCreateOrderRequest(r.Submission)
	return storefront.Order{
		ID:              r.Order.ID,
		Items:           lines,
		Status:          r.Order.Status.String(),
		DeliveryDetails: req.DeliveryDetails,
		PaymentMethod:   r.Submission.PaymentMethod().String(),
		PaymentStatus:   enums.PaymentStatusPending.String(),
		TotalAmount:     r.Order.Total,
		CreatedAt:       r.Order.CreatedAt,
	}
}
