package controllers

import (
	"net/http"

	"github.com/nahuelcoria/tienda-backend/api/middleware"
	"github.com/nahuelcoria/tienda-backend/api/responses"
	"github.com/nahuelcoria/tienda-backend/api/validators"
	"github.com/nahuelcoria/tienda-backend/internal/checkout"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
	"github.com/nahuelcoria/tienda-backend/pkg/logger"
)

type checkoutShippingRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone" validate:"omitempty,min=6"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	Province  string `json:"province" validate:"required"`
	ZipCode   string `json:"zip_code" validate:"required"`
	MethodID  string `json:"method_id" validate:"required"`
}

type checkoutCardRequest struct {
	Number     string `json:"number" validate:"required,min=12"`
	Holder     string `json:"holder" validate:"required"`
	ExpMonth   string `json:"exp_month" validate:"required"`
	ExpYear    string `json:"exp_year" validate:"required"`
	CVV        string `json:"cvv" validate:"required,min=3"`
	PostalCode string `json:"postal_code"`
}

func checkoutSessionID(r *http.Request) (string, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "session context missing")
	}
	return sessionID, nil
}

// CheckoutState returns the wizard state for the session.
func CheckoutState(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID, err := checkoutSessionID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		state, err := svc.Get(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

// CheckoutShipping stores the shipping form and starts a fresh quote.
func CheckoutShipping(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID, err := checkoutSessionID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body checkoutShippingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		state, err := svc.SetShipping(ctx, sessionID, checkout.ShippingForm{
			Email:     body.Email,
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Phone:     body.Phone,
			Address:   body.Address,
			City:      body.City,
			Province:  body.Province,
			ZipCode:   body.ZipCode,
			MethodID:  body.MethodID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

// CheckoutTokenize swaps raw card details for an opaque gateway token. The
// card fields never leave this request.
func CheckoutTokenize(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID, err := checkoutSessionID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body checkoutCardRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		state, err := svc.Tokenize(ctx, sessionID, checkout.CardDetails{
			Number:     body.Number,
			Holder:     body.Holder,
			ExpMonth:   body.ExpMonth,
			ExpYear:    body.ExpYear,
			CVV:        body.CVV,
			PostalCode: body.PostalCode,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

// CheckoutNext advances the wizard one step when the current step is complete.
func CheckoutNext(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID, err := checkoutSessionID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		state, err := svc.Next(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

// CheckoutBack moves the wizard one step backwards without losing entered data.
func CheckoutBack(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID, err := checkoutSessionID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		state, err := svc.Back(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

// CheckoutSubmit charges the card and turns the review into an order. Only
// authenticated users can place orders.
func CheckoutSubmit(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID, err := checkoutSessionID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		email := middleware.UserEmailFromContext(ctx)
		if email == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to place the order"))
			return
		}

		order, err := svc.Submit(ctx, sessionID, email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
