package catalog

// Product is an immutable catalog entry loaded at startup. Prices are
// centavos; Sizes is empty for products sold without a size choice.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	PriceCents  int64    `json:"price_cents"`
	Images      []string `json:"images"`
	Sizes       []string `json:"sizes,omitempty"`
	Stock       int      `json:"stock"`
	IsNew       bool     `json:"is_new"`
	IsFeatured  bool     `json:"is_featured"`
	IsActive    bool     `json:"is_active"`
}

// HasSizes reports whether adding this product to a cart requires a size.
func (p Product) HasSizes() bool {
	return len(p.Sizes) > 0
}

// AllowsSize reports whether the given size is one of the product's options.
func (p Product) AllowsSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// Filter narrows a catalog listing. Zero values match everything.
type Filter struct {
	Category string
	Featured bool
	New      bool
	Query    string
}
