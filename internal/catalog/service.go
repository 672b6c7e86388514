package catalog

import (
	_ "embed"
	"encoding/json"
	"os"
	"strings"

	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
)

//go:embed data/products.json
var embeddedProducts []byte

// Service exposes read access to the immutable product catalog.
type Service interface {
	List(filter Filter) []Product
	Get(productID string) (*Product, error)
	Categories() []string
}

// ServiceParams groups dependencies for the catalog service. FixturePath,
// when set, overrides the embedded catalog with a JSON file on disk.
type ServiceParams struct {
	FixturePath string
}

type service struct {
	products []Product
	byID     map[string]int
}

// NewService loads and validates the catalog once at startup.
func NewService(params ServiceParams) (Service, error) {
	raw := embeddedProducts
	if params.FixturePath != "" {
		data, err := os.ReadFile(params.FixturePath)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read catalog fixture")
		}
		raw = data
	}

	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode catalog")
	}

	byID := make(map[string]int, len(products))
	for i, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog entry missing id")
		}
		if p.PriceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog entry "+p.ID+" has a non-positive price")
		}
		if p.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog entry "+p.ID+" has negative stock")
		}
		if _, dup := byID[p.ID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog entry "+p.ID+" is duplicated")
		}
		byID[p.ID] = i
	}

	return &service{products: products, byID: byID}, nil
}

// List returns active products matching the filter, in catalog order.
func (s *service) List(filter Filter) []Product {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	category := strings.ToLower(strings.TrimSpace(filter.Category))

	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.IsActive {
			continue
		}
		if category != "" && strings.ToLower(p.Category) != category {
			continue
		}
		if filter.Featured && !p.IsFeatured {
			continue
		}
		if filter.New && !p.IsNew {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Get returns the product with the given id, active or not.
func (s *service) Get(productID string) (*Product, error) {
	idx, ok := s.byID[strings.TrimSpace(productID)]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	p := s.products[idx]
	return &p, nil
}

// Categories returns the distinct active categories in first-seen order.
func (s *service) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range s.products {
		if !p.IsActive || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}
