package cart

import (
	"github.com/shopspring/decimal"

	cartsvc "github.com/campusbite/orderflow/internal/cart"
	"github.com/campusbite/orderflow/internal/promo"
	"github.com/campusbite/orderflow/internal/session"
	"github.com/campusbite/orderflow/pkg/pricing"
)

type lineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	ImageRef  string          `json:"image_ref,omitempty"`
	Category  string          `json:"category,omitempty"`
}

// CartView is the cart as the storefront renders it.
type CartView struct {
	Items     []lineItem        `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	Totals    pricing.Totals    `json:"totals"`
	Promo     promo.Application `json:"promo"`
}

func newCartView(state *session.State, calc pricing.Calculator) CartView {
	totals := state.Totals(calc)
	items := state.Cart.Items()
	view := CartView{
		Items:    make([]lineItem, 0, len(items)),
		Subtotal: state.Cart.Subtotal(),
		Totals:   totals,
		Promo:    state.Promo,
	}
	for _, item := range items {
		view.Items = append(view.Items, toLineItem(item))
		view.ItemCount += item.Quantity
	}
	return view
}

func toLineItem(item cartsvc.LineItem) lineItem {
	return lineItem{
		ProductID: item.ProductID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		Quantity:  item.Quantity,
		LineTotal: item.LineTotal(),
		ImageRef:  item.ImageRef,
		Category:  item.Category,
	}
}
