package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusbite/orderflow/pkg/db/models"
	"github.com/campusbite/orderflow/pkg/enums"
	"github.com/campusbite/orderflow/pkg/storefront"
)

// EventStatusUpdated is the only feed event the tracker consumes.
const EventStatusUpdated = "order-status-updated"

// ErrUnknownOrder reports a status event for an order the tracker does not hold.
var ErrUnknownOrder = errors.New("tracker: unknown order")

// Order is an order as observed by a session's tracker.
type Order struct {
	ID              string                     `json:"id"`
	Items           []storefront.OrderItem     `json:"items"`
	Status          enums.OrderStatus          `json:"status"`
	Step            int                        `json:"step"`
	DeliveryDetails storefront.DeliveryDetails `json:"delivery_details"`
	PaymentMethod   enums.PaymentMethod        `json:"payment_method"`
	PaymentStatus   enums.PaymentStatus        `json:"payment_status"`
	TotalAmount     decimal.Decimal            `json:"total_amount"`
	CreatedAt       time.Time                  `json:"created_at"`
	Reviewed        bool                       `json:"reviewed"`
	Cancellable     bool                       `json:"cancellable"`
	Reviewable      bool                       `json:"reviewable"`
}

// decorate refreshes the derived affordance fields.
func (o *Order) decorate() {
	o.Step = o.Status.Step()
	o.Cancellable = o.Status.Cancellable()
	o.Reviewable = o.Status.Reviewable() && !o.Reviewed
}

func (o Order) clone() Order {
	o.Items = append([]storefront.OrderItem(nil), o.Items...)
	return o
}

// FromStorefront converts an order service payload. Unrecognized statuses map to
// OrderStatusUnknown rather than failing the whole list.
func FromStorefront(src storefront.Order) Order {
	status, err := enums.ParseOrderStatus(src.Status)
	if err != nil {
		status = enums.OrderStatusUnknown
	}
	order := Order{
		ID:              src.ID,
		Items:           append([]storefront.OrderItem(nil), src.Items...),
		Status:          status,
		DeliveryDetails: src.DeliveryDetails,
		PaymentMethod:   enums.PaymentMethod(src.PaymentMethod),
		PaymentStatus:   enums.PaymentStatusOrPending(src.PaymentStatus),
		TotalAmount:     src.TotalAmount,
		CreatedAt:       src.CreatedAt,
	}
	order.decorate()
	return order
}

func (o Order) toModel(sessionID, userID string) models.TrackedOrder {
	return models.TrackedOrder{
		OrderID:       o.ID,
		SessionID:     sessionID,
		UserID:        userID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		TotalAmount:   o.TotalAmount,
		Reviewed:      o.Reviewed,
		PlacedAt:      o.CreatedAt,
	}
}

// StatusEvent is one status transition pushed by the feed.
type StatusEvent struct {
	OrderID string
	Status  enums.OrderStatus
}

type feedMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type feedPayload struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// ParseFeedMessage decodes a feed frame. ok is false for events other than
// order-status-updated, which callers skip.
func ParseFeedMessage(raw []byte) (event StatusEvent, ok bool, err error) {
	var msg feedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return StatusEvent{}, false, fmt.Errorf("decode feed message: %w", err)
	}
	if msg.Event != EventStatusUpdated {
		return StatusEvent{}, false, nil
	}
	return parsePayload(msg.Data)
}

// ParseStatusPayload decodes a bare {orderId, status} payload, as delivered by the broker.
func ParseStatusPayload(raw []byte) (StatusEvent, error) {
	event, _, err := parsePayload(raw)
	return event, err
}

func parsePayload(raw []byte) (StatusEvent, bool, error) {
	var payload feedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return StatusEvent{}, false, fmt.Errorf("decode status payload: %w", err)
	}
	orderID := strings.TrimSpace(payload.OrderID)
	if orderID == "" {
		return StatusEvent{}, false, errors.New("status payload missing orderId")
	}
	status, err := enums.ParseOrderStatus(payload.Status)
	if err != nil {
		return StatusEvent{}, false, err
	}
	return StatusEvent{OrderID: orderID, Status: status}, true, nil
}
