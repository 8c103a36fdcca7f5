package cart

import (
	"github.com/shopspring/decimal"

	cartsvc "github.com/campusbite/orderflow/internal/cart"
)

type addItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"amount"`
	ImageRef  string          `json:"image_ref"`
	Category  string          `json:"category"`
}

func (r addItemRequest) toProduct() cartsvc.Product {
	return cartsvc.Product{
		ProductID: r.ProductID,
		Name:      r.Name,
		UnitPrice: r.UnitPrice,
		ImageRef:  r.ImageRef,
		Category:  r.Category,
	}
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type applyPromoRequest struct {
	Code string `json:"code" validate:"required"`
}
