package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahuelcoria/tienda-backend/internal/cart"
)

func sampleSnapshot() cart.Snapshot {
	return cart.Snapshot{
		Items: []cart.Item{
			{ProductID: "remera", Name: "Remera", PriceCents: 1000, Size: "M", Quantity: 2},
		},
		SubtotalCents: 2000,
		ItemCount:     2,
	}
}

func TestBuildComputesTotalAndDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	order, err := Build(BuildParams{
		Cart:           sampleSnapshot(),
		ShippingCents:  550,
		ShippingMethod: "estandar",
		Address:        Address{Street: "Av. Corrientes 1234", City: "CABA", Province: "Ciudad Autónoma de Buenos Aires", ZipCode: "C1043", Country: "Argentina"},
		PaymentID:      "pay-1",
		Now:            now,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2550), order.TotalCents)
	assert.Equal(t, "$25,50", order.TotalDisplay)
	assert.Equal(t, "2026-03-15T10:30:00Z", order.Date)
	assert.Equal(t, "15/03/2026", order.DateDisplay)
	assert.Equal(t, StatusConfirmed, order.Status)
	assert.NotEmpty(t, order.ID)
	assert.Empty(t, order.TrackingNumber)
}

func TestBuildRejectsInvalidParams(t *testing.T) {
	_, err := Build(BuildParams{Cart: cart.Snapshot{}})
	require.Error(t, err, "empty cart must be rejected")

	_, err = Build(BuildParams{Cart: sampleSnapshot(), Status: "enviado"})
	require.Error(t, err, "unknown status must be rejected")

	_, err = Build(BuildParams{Cart: sampleSnapshot(), ShippingCents: -1})
	require.Error(t, err, "negative shipping must be rejected")
}

func TestBuildDetachesItemsFromCart(t *testing.T) {
	snap := sampleSnapshot()
	order, err := Build(BuildParams{Cart: snap})
	require.NoError(t, err)

	snap.Items[0].Quantity = 99
	assert.Equal(t, 2, order.Items[0].Quantity, "order items must not share memory with the cart snapshot")
}
