package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nahuelcoria/tienda-backend/internal/cart"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
	"github.com/nahuelcoria/tienda-backend/pkg/money"
)

// Order statuses. An order is confirmed the moment payment captures;
// nothing downstream mutates it afterwards.
const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
)

// Address is the shipping destination snapshotted into the order.
type Address struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	Province string `json:"province"`
	ZipCode  string `json:"zip_code"`
	Country  string `json:"country"`
}

// Order is an immutable record appended to a user's history at checkout.
type Order struct {
	ID              string      `json:"id"`
	Items           []cart.Item `json:"items"`
	SubtotalCents   int64       `json:"subtotal_cents"`
	ShippingCents   int64       `json:"shipping_cents"`
	TotalCents      int64       `json:"total_cents"`
	TotalDisplay    string      `json:"total_display"`
	Date            string      `json:"date"`
	DateDisplay     string      `json:"date_display"`
	Status          string      `json:"status"`
	ShippingMethod  string      `json:"shipping_method"`
	ShippingAddress Address     `json:"shipping_address"`
	PaymentID       string      `json:"payment_id,omitempty"`
	TrackingNumber  string      `json:"tracking_number"`
}

// BuildParams carries everything needed to assemble an order.
type BuildParams struct {
	Cart           cart.Snapshot
	ShippingCents  int64
	ShippingMethod string
	Address        Address
	PaymentID      string
	Status         string
	Now            time.Time
}

// Build assembles an order from a cart snapshot. The items slice is
// copied so later cart mutations cannot reach into order history.
func Build(params BuildParams) (*Order, error) {
	if len(params.Cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires a non-empty cart")
	}
	if params.ShippingCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping cost cannot be negative")
	}
	status := strings.TrimSpace(params.Status)
	if status == "" {
		status = StatusConfirmed
	}
	if status != StatusConfirmed && status != StatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	items := make([]cart.Item, len(params.Cart.Items))
	copy(items, params.Cart.Items)

	total := params.Cart.SubtotalCents + params.ShippingCents
	return &Order{
		ID:              uuid.NewString(),
		Items:           items,
		SubtotalCents:   params.Cart.SubtotalCents,
		ShippingCents:   params.ShippingCents,
		TotalCents:      total,
		TotalDisplay:    money.FormatPrice(total),
		Date:            money.FormatDate(now),
		DateDisplay:     money.FormatDateDisplay(now),
		Status:          status,
		ShippingMethod:  params.ShippingMethod,
		ShippingAddress: params.Address,
		PaymentID:       params.PaymentID,
		TrackingNumber:  "",
	}, nil
}
