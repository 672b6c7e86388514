package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nahuelcoria/tienda-backend/api/responses"
	"github.com/nahuelcoria/tienda-backend/api/validators"
	"github.com/nahuelcoria/tienda-backend/internal/catalog"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
	"github.com/nahuelcoria/tienda-backend/pkg/logger"
)

const maxCatalogQueryLen = 120

// CatalogList returns the active products, optionally narrowed by the
// category, featured, new and q query parameters.
func CatalogList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		featured, err := validators.ParseQueryBool(r, "featured")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		isNew, err := validators.ParseQueryBool(r, "new")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filter := catalog.Filter{
			Category: validators.SanitizeString(r.URL.Query().Get("category"), maxCatalogQueryLen),
			Featured: featured,
			New:      isNew,
			Query:    validators.SanitizeString(r.URL.Query().Get("q"), maxCatalogQueryLen),
		}

		products := svc.List(filter)
		if limit > 0 && limit < len(products) {
			products = products[:limit]
		}

		responses.WriteSuccess(w, products)
	}
}

// CatalogDetail returns a single product by its identifier.
func CatalogDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		product, err := svc.Get(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// CatalogCategories lists the distinct categories carried by the catalog.
func CatalogCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		responses.WriteSuccess(w, svc.Categories())
	}
}
