package cart

// Item is one cart line. Product fields are snapshotted at add time so
// the cart renders without re-reading the catalog. Identity is the
// (ProductID, Size) pair.
type Item struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Image      string `json:"image,omitempty"`
	Size       string `json:"size,omitempty"`
	Quantity   int    `json:"quantity"`
}

// Snapshot is a point-in-time copy of a cart with its derived totals.
// Mutating a snapshot never affects the live cart.
type Snapshot struct {
	Items         []Item `json:"items"`
	SubtotalCents int64  `json:"subtotal_cents"`
	ItemCount     int    `json:"item_count"`
}

// QuantityOf returns the quantity for the (productID, size) line, or 0.
func (s Snapshot) QuantityOf(productID, size string) int {
	for _, item := range s.Items {
		if item.ProductID == productID && item.Size == size {
			return item.Quantity
		}
	}
	return 0
}

func snapshotItems(items []Item) Snapshot {
	snap := Snapshot{Items: make([]Item, len(items))}
	copy(snap.Items, items)
	for _, item := range items {
		snap.SubtotalCents += item.PriceCents * int64(item.Quantity)
		snap.ItemCount += item.Quantity
	}
	return snap
}
