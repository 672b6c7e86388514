package cart

import (
	"context"
	"strings"
	"sync"

	"github.com/nahuelcoria/tienda-backend/internal/catalog"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
)

// Service owns the per-session shopping carts. Carts live in process
// memory for the lifetime of the server; insertion order is display
// order and the (productID, size) pair identifies a line.
type Service interface {
	Get(ctx context.Context, cartID string) (Snapshot, error)
	AddItem(ctx context.Context, cartID, productID, size string) (Snapshot, error)
	UpdateQuantity(ctx context.Context, cartID, productID, size string, quantity int) (Snapshot, error)
	RemoveItem(ctx context.Context, cartID, productID, size string) (Snapshot, error)
	Clear(ctx context.Context, cartID string) error
}

type productLoader interface {
	Get(productID string) (*catalog.Product, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Catalog productLoader
}

type service struct {
	catalog productLoader

	mu    sync.Mutex
	carts map[string][]Item
}

// NewService builds the in-memory cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	}
	return &service{
		catalog: params.Catalog,
		carts:   make(map[string][]Item),
	}, nil
}

// Get returns the current snapshot for the session's cart. An unknown
// cart id yields an empty cart, not an error.
func (s *service) Get(ctx context.Context, cartID string) (Snapshot, error) {
	cartID, err := normalizeCartID(cartID)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotItems(s.carts[cartID]), nil
}

// AddItem appends a new line with quantity 1, or increments the line
// that already matches the (productID, size) pair. Stock is advisory
// and never blocks the add.
func (s *service) AddItem(ctx context.Context, cartID, productID, size string) (Snapshot, error) {
	cartID, err := normalizeCartID(cartID)
	if err != nil {
		return Snapshot{}, err
	}

	product, err := s.catalog.Get(productID)
	if err != nil {
		return Snapshot{}, err
	}
	size = strings.TrimSpace(size)
	if product.HasSizes() {
		if size == "" {
			return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "size is required for this product")
		}
		if !product.AllowsSize(size) {
			return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "size is not offered for this product")
		}
	} else if size != "" {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "product does not take a size")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[cartID]
	if idx := indexOf(items, product.ID, size); idx >= 0 {
		items[idx].Quantity++
	} else {
		var image string
		if len(product.Images) > 0 {
			image = product.Images[0]
		}
		items = append(items, Item{
			ProductID:  product.ID,
			Name:       product.Name,
			PriceCents: product.PriceCents,
			Image:      image,
			Size:       size,
			Quantity:   1,
		})
	}
	s.carts[cartID] = items
	return snapshotItems(items), nil
}

// UpdateQuantity sets the line's quantity. Zero or negative removes the
// line, same as RemoveItem.
func (s *service) UpdateQuantity(ctx context.Context, cartID, productID, size string, quantity int) (Snapshot, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, cartID, productID, size)
	}
	cartID, err := normalizeCartID(cartID)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[cartID]
	idx := indexOf(items, productID, strings.TrimSpace(size))
	if idx < 0 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	items[idx].Quantity = quantity
	return snapshotItems(items), nil
}

// RemoveItem drops the line; a missing line is a no-op.
func (s *service) RemoveItem(ctx context.Context, cartID, productID, size string) (Snapshot, error) {
	cartID, err := normalizeCartID(cartID)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[cartID]
	if idx := indexOf(items, productID, strings.TrimSpace(size)); idx >= 0 {
		items = append(items[:idx], items[idx+1:]...)
		s.carts[cartID] = items
	}
	return snapshotItems(s.carts[cartID]), nil
}

// Clear empties the session's cart, used after a confirmed order.
func (s *service) Clear(ctx context.Context, cartID string) error {
	cartID, err := normalizeCartID(cartID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, cartID)
	return nil
}

func indexOf(items []Item, productID, size string) int {
	for i, item := range items {
		if item.ProductID == productID && item.Size == size {
			return i
		}
	}
	return -1
}

func normalizeCartID(cartID string) (string, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	return cartID, nil
}
