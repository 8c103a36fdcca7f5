package checkout

import (
	checkoutsvc "github.com/campusbite/orderflow/internal/checkout"
	"github.com/campusbite/orderflow/internal/session"
	"github.com/campusbite/orderflow/pkg/enums"
	"github.com/campusbite/orderflow/pkg/pricing"
)

// FlowView is the checkout page state.
type FlowView struct {
	State          string                      `json:"state"`
	Details        checkoutsvc.DeliveryDetails `json:"details"`
	PaymentMethod  enums.PaymentMethod         `json:"payment_method,omitempty"`
	OrderID        string                      `json:"order_id,omitempty"`
	RedirectURL    string                      `json:"redirect_url,omitempty"`
	Error          string                      `json:"error,omitempty"`
	PlacingOrder   bool                        `json:"placing_order"`
	Totals         pricing.Totals              `json:"totals"`
	PromoCode      string                      `json:"promo_code,omitempty"`
	Halls          []enums.Hall                `json:"halls"`
	PaymentMethods []enums.PaymentMethod       `json:"payment_methods"`
}

func newFlowView(state *session.State, calc pricing.Calculator) FlowView {
	flow := state.Checkout
	view := FlowView{
		Totals: state.Totals(calc),
		Halls:  enums.Halls(),
		PaymentMethods: []enums.PaymentMethod{
			enums.PaymentMethodCashOnDelivery,
			enums.PaymentMethodGatewayPrepaid,
		},
	}
	if state.Promo.Active() {
		view.PromoCode = state.Promo.Code
	}
	if flow == nil {
		return view
	}
	view.State = flow.State.String()
	view.Details = flow.Details
	view.PaymentMethod = flow.PaymentMethod
	view.OrderID = flow.OrderID
	view.RedirectURL = flow.RedirectURL
	view.Error = flow.LastError
	view.PlacingOrder = flow.Guard.Active()
	return view
}

// SubmitView is returned once an order is placed.
type SubmitView struct {
	State       string         `json:"state"`
	OrderID     string         `json:"order_id"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	Totals      pricing.Totals `json:"totals"`
}

// SuccessView is returned when the success page mounts.
type SuccessView struct {
	OrderID string `json:"order_id,omitempty"`
}
