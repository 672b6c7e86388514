package controllers

import (
	"net/http"

	"github.com/nahuelcoria/tienda-backend/api/middleware"
	"github.com/nahuelcoria/tienda-backend/api/responses"
	"github.com/nahuelcoria/tienda-backend/api/validators"
	"github.com/nahuelcoria/tienda-backend/internal/cart"
	"github.com/nahuelcoria/tienda-backend/internal/shipping"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
	"github.com/nahuelcoria/tienda-backend/pkg/logger"
)

const maxProvinceLen = 60

type shippingQuoteRequest struct {
	Province string `json:"province" validate:"required"`
	MethodID string `json:"method_id" validate:"required"`
}

// ShippingMethods lists the delivery methods that serve a province.
func ShippingMethods(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		province := validators.SanitizeString(r.URL.Query().Get("province"), maxProvinceLen)
		if province == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "province is required"))
			return
		}

		responses.WriteSuccess(w, svc.AvailableMethods(province))
	}
}

// ShippingQuote prices a method against the session's current cart subtotal.
func ShippingQuote(svc shipping.Service, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || carts == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(ctx)
		if sessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session context missing"))
			return
		}

		var body shippingQuoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		snapshot, err := carts.Get(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Standalone quotes race only each other. The checkout wizard
		// quotes under the bare session id, so browsing prices here
		// must never invalidate a quote the wizard is waiting on.
		quote, err := svc.QuoteCost(ctx, "browse:"+sessionID, body.Province, body.MethodID, snapshot.SubtotalCents)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote)
	}
}
