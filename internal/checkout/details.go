package checkout

import (
	"strings"

	"github.com/campusbite/orderflow/internal/checkout/helpers"
	"github.com/campusbite/orderflow/pkg/auth"
	"github.com/campusbite/orderflow/pkg/enums"
)

// DeliveryDetails is where and to whom the order is delivered.
type DeliveryDetails struct {
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email,omitempty"`
	Hall         enums.Hall `json:"hall"`
	RoomNumber   string     `json:"room_number,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
}

// DetailsFromProfile pre-fills what the identity service knows about the customer.
func DetailsFromProfile(profile auth.Profile) DeliveryDetails {
	return DeliveryDetails{
		Name:  helpers.NormalizeText(profile.Name),
		Phone: helpers.NormalizePhone(profile.Phone),
		Email: strings.TrimSpace(profile.Email),
	}
}

// Normalized returns a trimmed copy.
func (d DeliveryDetails) Normalized() DeliveryDetails {
	return DeliveryDetails{
		Name:         helpers.NormalizeText(d.Name),
		Phone:        helpers.NormalizePhone(d.Phone),
		Email:        strings.TrimSpace(d.Email),
		Hall:         enums.Hall(strings.TrimSpace(string(d.Hall))),
		RoomNumber:   strings.TrimSpace(d.RoomNumber),
		Instructions: strings.TrimSpace(d.Instructions),
	}
}

// Validate reports the first failing field in the order name, phone, hall, email.
func (d DeliveryDetails) Validate() error {
	switch {
	case d.Name == "":
		return &ValidationError{Field: FieldName, Message: "name is required"}
	case !helpers.IsValidPhone(d.Phone):
		return &ValidationError{Field: FieldPhone, Message: "phone must be a valid mobile number"}
	case !d.Hall.IsValid():
		return &ValidationError{Field: FieldHall, Message: "select a hall from the list"}
	case d.Email != "" && !helpers.IsValidEmail(d.Email):
		return &ValidationError{Field: FieldEmail, Message: "email is not valid"}
	}
	return nil
}
