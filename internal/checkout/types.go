package checkout

import (
	"strings"

	"github.com/nahuelcoria/tienda-backend/internal/orders"
	"github.com/nahuelcoria/tienda-backend/internal/shipping"
)

// Step is the wizard position for a checkout session.
type Step string

const (
	StepShipping  Step = "shipping"
	StepPayment   Step = "payment"
	StepReview    Step = "review"
	StepConfirmed Step = "confirmed"
)

// ShippingForm collects the contact and destination fields plus the
// chosen shipping method. All fields are required to leave the
// shipping step.
type ShippingForm struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Province  string `json:"province"`
	ZipCode   string `json:"zip_code"`
	MethodID  string `json:"method_id"`
}

// Complete reports whether every required field is filled.
func (f ShippingForm) Complete() bool {
	for _, field := range []string{
		f.Email, f.FirstName, f.LastName, f.Phone,
		f.Address, f.City, f.Province, f.ZipCode, f.MethodID,
	} {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

// CardDetails is the raw card input handed straight to the payment
// provider. It is never stored; only the returned token survives.
type CardDetails struct {
	Number     string `json:"number"`
	Holder     string `json:"holder"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
	CVV        string `json:"cvv"`
	PostalCode string `json:"postal_code,omitempty"`
}

// State is the externally visible snapshot of a checkout session.
type State struct {
	SessionID    string          `json:"session_id"`
	Step         Step            `json:"step"`
	Shipping     ShippingForm    `json:"shipping"`
	CardToken    string          `json:"card_token,omitempty"`
	Quote        *shipping.Quote `json:"quote,omitempty"`
	QuotePending bool            `json:"quote_pending"`
	Processing   bool            `json:"processing"`
	Order        *orders.Order   `json:"order,omitempty"`
}

// HasCardToken reports whether the payment step has produced a token.
func (s State) HasCardToken() bool {
	return strings.TrimSpace(s.CardToken) != ""
}

type session struct {
	id           string
	step         Step
	shippingForm ShippingForm
	cardToken    string
	quote        *shipping.Quote
	quotePending bool
	processing   bool
	order        *orders.Order
}

func (s *session) state() State {
	st := State{
		SessionID:    s.id,
		Step:         s.step,
		Shipping:     s.shippingForm,
		CardToken:    s.cardToken,
		QuotePending: s.quotePending,
		Processing:   s.processing,
	}
	if s.quote != nil {
		q := *s.quote
		st.Quote = &q
	}
	if s.order != nil {
		o := *s.order
		st.Order = &o
	}
	return st
}
