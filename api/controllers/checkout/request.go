package checkout

import (
	checkoutsvc "github.com/campusbite/orderflow/internal/checkout"
	"github.com/campusbite/orderflow/pkg/enums"
)

type detailsRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Hall         string `json:"hall"`
	RoomNumber   string `json:"room_number"`
	Instructions string `json:"instructions"`
}

func (r detailsRequest) toDetails() checkoutsvc.DeliveryDetails {
	return checkoutsvc.DeliveryDetails{
		Name:         r.Name,
		Phone:        r.Phone,
		Email:        r.Email,
		Hall:         enums.Hall(r.Hall),
		RoomNumber:   r.RoomNumber,
		Instructions: r.Instructions,
	}
}

type submitRequest struct {
	PaymentMethod string `json:"payment_method"`
	AgreedToTerms bool   `json:"agreed_to_terms"`
}
