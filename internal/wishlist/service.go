package wishlist

import (
	"context"
	"strings"

	"github.com/nahuelcoria/tienda-backend/internal/catalog"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
	"github.com/nahuelcoria/tienda-backend/pkg/kv"
)

// Service manages the per-user set of saved products. Every operation
// requires an authenticated user id; there is no anonymous wishlist.
type Service interface {
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) error
	Contains(ctx context.Context, userID, productID string) (bool, error)
	List(ctx context.Context, userID string) ([]catalog.Product, error)
}

type productLoader interface {
	Get(productID string) (*catalog.Product, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Store   kv.SetStore
	Catalog productLoader
}

type service struct {
	store   kv.SetStore
	catalog productLoader
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	}
	return &service{store: params.Store, catalog: params.Catalog}, nil
}

// Add ensures the product exists and saves it to the user's set.
func (s *service) Add(ctx context.Context, userID, productID string) error {
	userID, err := requireUser(userID)
	if err != nil {
		return err
	}
	product, err := s.catalog.Get(productID)
	if err != nil {
		return err
	}
	if err := s.store.SAdd(ctx, kv.WishlistKey(userID), product.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wishlist entry")
	}
	return nil
}

// Remove drops the entry regardless of prior state.
func (s *service) Remove(ctx context.Context, userID, productID string) error {
	userID, err := requireUser(userID)
	if err != nil {
		return err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.store.SRem(ctx, kv.WishlistKey(userID), productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist entry")
	}
	return nil
}

// Contains reports whether the product is saved by the user.
func (s *service) Contains(ctx context.Context, userID, productID string) (bool, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return false, err
	}
	ok, err := s.store.SIsMember(ctx, kv.WishlistKey(userID), strings.TrimSpace(productID))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wishlist entry")
	}
	return ok, nil
}

// List resolves the saved ids back to catalog products. Entries whose
// product has left the catalog are silently skipped.
func (s *service) List(ctx context.Context, userID string) ([]catalog.Product, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.SMembers(ctx, kv.WishlistKey(userID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist entries")
	}
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		product, err := s.catalog.Get(id)
		if err != nil {
			continue
		}
		out = append(out, *product)
	}
	return out, nil
}

func requireUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "wishlist requires an authenticated user")
	}
	return userID, nil
}
