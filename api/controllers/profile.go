package controllers

import (
	"net/http"

	"github.com/nahuelcoria/tienda-backend/api/middleware"
	"github.com/nahuelcoria/tienda-backend/api/responses"
	"github.com/nahuelcoria/tienda-backend/api/validators"
	orderspkg "github.com/nahuelcoria/tienda-backend/internal/orders"
	"github.com/nahuelcoria/tienda-backend/internal/users"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
	"github.com/nahuelcoria/tienda-backend/pkg/logger"
)

type updateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1"`
	Phone     *string `json:"phone" validate:"omitempty,min=6"`
}

func profileEmail(r *http.Request) (string, error) {
	email := middleware.UserEmailFromContext(r.Context())
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return email, nil
}

// ProfileFetch returns the authenticated user's profile with order history.
func ProfileFetch(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		email, err := profileEmail(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := svc.Get(ctx, email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, user.Profile())
	}
}

// ProfileOrders returns the authenticated user's order history, newest last.
func ProfileOrders(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		email, err := profileEmail(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := svc.Get(ctx, email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orders := user.Orders
		if orders == nil {
			orders = []orderspkg.Order{}
		}
		responses.WriteSuccess(w, orders)
	}
}

// ProfileUpdate patches the provided profile fields, leaving the rest intact.
func ProfileUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		email, err := profileEmail(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body updateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := svc.Update(ctx, email, users.UpdateInput{
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Phone:     body.Phone,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, user.Profile())
	}
}
