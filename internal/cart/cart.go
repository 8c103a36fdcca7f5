package cart

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is the catalog entry a customer adds to the cart.
type Product struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageRef  string          `json:"image_ref,omitempty"`
	Category  string          `json:"category,omitempty"`
}

// LineItem is one product entry in the cart with its quantity.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref,omitempty"`
	Category  string          `json:"category,omitempty"`
}

// LineTotal is unit price times quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart owns the line items of a session until they are handed to an order.
// The subtotal is recomputed after every mutation and is never stale.
// The zero value is an empty cart.
type Cart struct {
	items    []LineItem
	subtotal decimal.Decimal
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Items returns a copy of the line items.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Item returns the line item for productID.
func (c *Cart) Item(productID string) (LineItem, bool) {
	if idx := c.indexOf(productID); idx >= 0 {
		return c.items[idx], true
	}
	return LineItem{}, false
}

// Subtotal is the sum of every line total.
func (c *Cart) Subtotal() decimal.Decimal {
	return c.subtotal
}

// Len is the number of distinct products.
func (c *Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// AddItem inserts the product with quantity 1, or increments the existing entry.
func (c *Cart) AddItem(p Product) LineItem {
	defer c.recompute()

	if idx := c.indexOf(p.ProductID); idx >= 0 {
		c.items[idx].Quantity++
		return c.items[idx]
	}
	item := LineItem{
		ProductID: p.ProductID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Quantity:  1,
		ImageRef:  p.ImageRef,
		Category:  p.Category,
	}
	c.items = append(c.items, item)
	return item
}

// RemoveItem deletes the entry for productID. Removing an absent product is a no-op.
func (c *Cart) RemoveItem(productID string) {
	defer c.recompute()

	if idx := c.indexOf(productID); idx >= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	}
}

// SetQuantity sets the quantity of an existing entry, clamped to a minimum of 1.
// It reports whether the product was present.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	defer c.recompute()

	idx := c.indexOf(productID)
	if idx < 0 {
		return false
	}
	if quantity < 1 {
		quantity = 1
	}
	c.items[idx].Quantity = quantity
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
	c.subtotal = decimal.Zero
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) recompute() {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	c.subtotal = total
}

type cartJSON struct {
	Items    []LineItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// MarshalJSON implements json.Marshaler.
func (c *Cart) MarshalJSON() ([]byte, error) {
	items := c.items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(cartJSON{Items: items, Subtotal: c.subtotal})
}

// UnmarshalJSON restores a cart and recomputes the subtotal from its items.
// Duplicate product ids are merged and quantities below 1 are rejected.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw cartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored := Cart{}
	for _, item := range raw.Items {
		if item.ProductID == "" {
			return fmt.Errorf("cart item missing product id")
		}
		if item.Quantity < 1 {
			return fmt.Errorf("cart item %s has quantity %d", item.ProductID, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("cart item %s has negative unit price", item.ProductID)
		}
		if idx := restored.indexOf(item.ProductID); idx >= 0 {
			restored.items[idx].Quantity += item.Quantity
			continue
		}
		restored.items = append(restored.items, item)
	}
	restored.recompute()
	*c = restored
	return nil
}
