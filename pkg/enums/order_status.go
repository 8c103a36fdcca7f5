package enums

import (
	"database/sql/driver"
	"fmt"
)

// OrderStatus is the delivery lifecycle of a placed order. The numeric value is the
// progress ordinal: Pending < Preparing < OutForDelivery < Delivered. Cancelled sits
// outside the progression and OrderStatusUnknown is the zero value.
type OrderStatus int

const (
	OrderStatusCancelled      OrderStatus = -1
	OrderStatusUnknown        OrderStatus = 0
	OrderStatusPending        OrderStatus = 1
	OrderStatusPreparing      OrderStatus = 2
	OrderStatusOutForDelivery OrderStatus = 3
	OrderStatusDelivered      OrderStatus = 4
)

var orderStatusNames = map[OrderStatus]string{
	OrderStatusCancelled:      "Cancelled",
	OrderStatusPending:        "Pending",
	OrderStatusPreparing:      "Preparing",
	OrderStatusOutForDelivery: "Out for Delivery",
	OrderStatusDelivered:      "Delivered",
}

// OrderProgression lists the statuses a progress indicator walks through.
var OrderProgression = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// String returns the wire name used by the order service.
func (s OrderStatus) String() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

// IsTerminal reports whether no further transitions are expected.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Before reports whether s precedes other on the delivery progression.
// Cancelled and Unknown are never ordered.
func (s OrderStatus) Before(other OrderStatus) bool {
	return s > OrderStatusUnknown && other > OrderStatusUnknown && s < other
}

// Step is the zero-based position on the progression, or -1 when off it.
func (s OrderStatus) Step() int {
	if s <= OrderStatusUnknown || s > OrderStatusDelivered {
		return -1
	}
	return int(s) - 1
}

// Cancellable reports whether the customer may still cancel.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending
}

// Reviewable reports whether the order can receive a review.
func (s OrderStatus) Reviewable() bool {
	return s == OrderStatusDelivered
}

// MarshalText implements encoding.TextMarshaler.
func (s OrderStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid order status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *OrderStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the wire name.
func (s OrderStatus) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid order status %d", int(s))
	}
	return s.String(), nil
}

// Scan reads the wire name.
func (s *OrderStatus) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	case nil:
		*s = OrderStatusUnknown
		return nil
	default:
		return fmt.Errorf("unsupported order status source %T", src)
	}
}

// ParseOrderStatus converts a wire name into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for status, name := range orderStatusNames {
		if name == value {
			return status, nil
		}
	}
	return OrderStatusUnknown, fmt.Errorf("invalid order status %q", value)
}
