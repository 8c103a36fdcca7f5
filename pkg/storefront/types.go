package storefront

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is one line of an order as the order service stores it.
type OrderItem struct {
	Product  string          `json:"product"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image,omitempty"`
}

// OrderLine is one line of an order creation request.
type OrderLine struct {
	Product  string      `json:"product"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
	Image    string      `json:"image,omitempty"`
}

// DeliveryDetails is the order service's delivery block.
type DeliveryDetails struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Hall         string `json:"hall"`
	RoomNumber   string `json:"roomNumber,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// CreateOrderRequest is the order creation payload.
type CreateOrderRequest struct {
	Items           []OrderLine     `json:"items"`
	DeliveryDetails DeliveryDetails `json:"deliveryDetails"`
	Subtotal        json.Number     `json:"subtotal"`
	DeliveryFee     json.Number     `json:"deliveryFee"`
	Discount        json.Number     `json:"discount"`
	TotalAmount     json.Number     `json:"totalAmount"`
	PaymentMethod   string          `json:"paymentMethod"`
	PromoCode       string          `json:"promoCode,omitempty"`
}

// Order is an order as returned by the order service.
type Order struct {
	ID              string          `json:"_id"`
	Items           []OrderItem     `json:"items"`
	Status          string          `json:"status"`
	DeliveryDetails DeliveryDetails `json:"deliveryDetails"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type orderEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Order   Order  `json:"order"`
}

type ordersEnvelope struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	Orders  []Order `json:"orders"`
}

type promoRequest struct {
	Code        string      `json:"code"`
	OrderAmount json.Number `json:"orderAmount"`
}

type promoEnvelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Discount decimal.Decimal `json:"discount"`
}

type paymentRequest struct {
	OrderID string      `json:"orderId"`
	Amount  json.Number `json:"amount"`
}

type paymentEnvelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	GatewayURL string `json:"gatewayURL"`
}

// ReviewRequest is the review submission payload.
type ReviewRequest struct {
	Order   string `json:"order"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type ackEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// PromoResult is the outcome of a promo validation call.
type PromoResult struct {
	Accepted bool
	Discount decimal.Decimal
	Message  string
}

// Amount renders a decimal as a JSON number.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
