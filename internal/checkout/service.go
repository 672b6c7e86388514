package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nahuelcoria/tienda-backend/internal/cart"
	"github.com/nahuelcoria/tienda-backend/internal/orders"
	"github.com/nahuelcoria/tienda-backend/internal/shipping"
	"github.com/nahuelcoria/tienda-backend/internal/users"
	"github.com/nahuelcoria/tienda-backend/pkg/config"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
	"github.com/nahuelcoria/tienda-backend/pkg/metrics"
	"github.com/nahuelcoria/tienda-backend/pkg/square"
)

// Service drives the Shipping -> Payment -> Review wizard for each
// session. Guards are strictly sequential: a later step is reachable
// only after every earlier guard has passed, and going back retains
// the already-entered form data.
type Service interface {
	Get(ctx context.Context, sessionID string) (State, error)
	SetShipping(ctx context.Context, sessionID string, form ShippingForm) (State, error)
	Tokenize(ctx context.Context, sessionID string, card CardDetails) (State, error)
	Next(ctx context.Context, sessionID string) (State, error)
	Back(ctx context.Context, sessionID string) (State, error)
	Submit(ctx context.Context, sessionID, userEmail string) (*orders.Order, error)
}

type cartStore interface {
	Get(ctx context.Context, cartID string) (cart.Snapshot, error)
	Clear(ctx context.Context, cartID string) error
}

type quoter interface {
	AvailableMethods(province string) []shipping.Method
	QuoteCost(ctx context.Context, sessionID, province, methodID string, subtotalCents int64) (shipping.Quote, error)
}

type paymentGateway interface {
	TokenizeCard(ctx context.Context, params square.CardTokenizeParams) (string, error)
	CreateCustomer(ctx context.Context, params square.CustomerCreateParams) (string, error)
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*square.Payment, error)
}

type orderAppender interface {
	AppendOrder(ctx context.Context, email string, order orders.Order) (*users.User, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Config   config.CheckoutConfig
	Cart     cartStore
	Shipping quoter
	Payments paymentGateway
	Users    orderAppender
	Metrics  *metrics.StorefrontMetrics
}

type service struct {
	cfg      config.CheckoutConfig
	cart     cartStore
	shipping quoter
	payments paymentGateway
	users    orderAppender
	metrics  *metrics.StorefrontMetrics

	mu       sync.Mutex
	sessions map[string]*session
}

// NewService builds the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart store is required")
	}
	if params.Shipping == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping service is required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment gateway is required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user service is required")
	}
	return &service{
		cfg:      params.Config,
		cart:     params.Cart,
		shipping: params.Shipping,
		payments: params.Payments,
		users:    params.Users,
		metrics:  params.Metrics,
		sessions: make(map[string]*session),
	}, nil
}

// Get returns the session's current state, creating the session at the
// shipping step on first touch.
func (s *service) Get(ctx context.Context, sessionID string) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return sess.state(), nil
}

// SetShipping stores the form and recomputes the shipping quote when a
// destination and method are both chosen. A quote superseded by a newer
// request is discarded without touching state.
func (s *service) SetShipping(ctx context.Context, sessionID string, form ShippingForm) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	if sess.step != StepShipping {
		s.mu.Unlock()
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "shipping details can only change at the shipping step")
	}
	if sess.processing {
		s.mu.Unlock()
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "submission in progress")
	}
	sess.shippingForm = form
	sess.quote = nil

	province := strings.TrimSpace(form.Province)
	methodID := strings.TrimSpace(form.MethodID)
	wantQuote := province != "" && methodID != ""
	if wantQuote {
		if !s.methodEligible(province, methodID) {
			s.mu.Unlock()
			return State{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping method not available for that province")
		}
		sess.quotePending = true
	} else {
		sess.quotePending = false
	}
	s.mu.Unlock()

	if !wantQuote {
		return s.stateOf(sess), nil
	}

	snap, err := s.cart.Get(ctx, sessionID)
	if err != nil {
		s.clearPending(sess)
		return State{}, err
	}

	quote, err := s.shipping.QuoteCost(ctx, sessionID, province, methodID, snap.SubtotalCents)
	if errors.Is(err, shipping.ErrQuoteSuperseded) {
		// A newer request owns the pending flag and the quote slot.
		return s.stateOf(sess), nil
	}
	if err != nil {
		s.clearPending(sess)
		return State{}, err
	}

	s.mu.Lock()
	sess.quote = &quote
	sess.quotePending = false
	state := sess.state()
	s.mu.Unlock()
	return state, nil
}

// Tokenize exchanges raw card data for an opaque token. Failure leaves
// the session in the payment step so the user can retry.
func (s *service) Tokenize(ctx context.Context, sessionID string, card CardDetails) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	if sess.step != StepPayment {
		s.mu.Unlock()
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "card capture only happens at the payment step")
	}
	holder := strings.TrimSpace(card.Holder)
	s.mu.Unlock()

	if strings.TrimSpace(card.Number) == "" || strings.TrimSpace(card.CVV) == "" {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "card number and security code are required")
	}

	token, err := s.payments.TokenizeCard(ctx, square.CardTokenizeParams{
		SourceID:       strings.TrimSpace(card.Number),
		CardholderName: holder,
		ReferenceID:    sessionID,
	})
	if err != nil {
		s.metrics.IncTokenization("failure")
		return State{}, err
	}
	s.metrics.IncTokenization("success")

	s.mu.Lock()
	sess.cardToken = token
	state := sess.state()
	s.mu.Unlock()
	return state, nil
}

// Next advances the wizard when the current step's guard passes.
func (s *service) Next(ctx context.Context, sessionID string) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch sess.step {
	case StepShipping:
		if !sess.shippingForm.Complete() {
			return State{}, pkgerrors.New(pkgerrors.CodeValidation, "complete the contact and address fields first")
		}
		if sess.quotePending {
			return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "shipping cost is still being calculated")
		}
		if sess.quote == nil {
			return State{}, pkgerrors.New(pkgerrors.CodeValidation, "choose a shipping method first")
		}
		sess.step = StepPayment
	case StepPayment:
		if strings.TrimSpace(sess.cardToken) == "" {
			return State{}, pkgerrors.New(pkgerrors.CodeValidation, "capture a payment method first")
		}
		sess.step = StepReview
	case StepReview:
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "review is confirmed by submitting the order")
	default:
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already confirmed")
	}
	return sess.state(), nil
}

// Back returns to the previous step. Entered data survives.
func (s *service) Back(ctx context.Context, sessionID string) (State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch sess.step {
	case StepPayment:
		sess.step = StepShipping
	case StepReview:
		sess.step = StepPayment
	case StepShipping:
		// Already at the first step.
	default:
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already confirmed")
	}
	return sess.state(), nil
}

// Submit captures the payment, builds the order, appends it to the
// user's history, and clears the cart. Only one submission may be in
// flight per session; any failure leaves cart, history, and wizard
// state untouched so the user can retry from review.
func (s *service) Submit(ctx context.Context, sessionID, userEmail string) (*orders.Order, error) {
	userEmail = strings.TrimSpace(userEmail)
	if userEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to place the order")
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if sess.step != StepReview {
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can only be placed from review")
	}
	if sess.processing {
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "submission already in progress")
	}
	sess.processing = true
	form := sess.shippingForm
	cardToken := sess.cardToken
	quote := *sess.quote
	s.mu.Unlock()

	started := time.Now()
	order, err := s.placeOrder(ctx, sess, userEmail, form, cardToken, quote)

	s.mu.Lock()
	sess.processing = false
	if err == nil {
		sess.step = StepConfirmed
		sess.order = order
	}
	s.mu.Unlock()

	if err != nil {
		s.metrics.ObserveSubmit("failure", time.Since(started))
		return nil, err
	}
	s.metrics.ObserveSubmit("confirmed", time.Since(started))
	return order, nil
}

func (s *service) placeOrder(ctx context.Context, sess *session, userEmail string, form ShippingForm, cardToken string, quote shipping.Quote) (*orders.Order, error) {
	if s.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SubmitTimeout)
		defer cancel()
	}

	snap, err := s.cart.Get(ctx, sess.id)
	if err != nil {
		return nil, err
	}
	if len(snap.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}

	customerID, err := s.payments.CreateCustomer(ctx, square.CustomerCreateParams{
		Email:       userEmail,
		GivenName:   form.FirstName,
		FamilyName:  form.LastName,
		ReferenceID: sess.id,
	})
	if err != nil {
		return nil, err
	}

	totalCents := snap.SubtotalCents + quote.CostCents
	payment, err := s.payments.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents: totalCents,
		CustomerID:  customerID,
		SourceID:    cardToken,
		ReferenceID: sess.id,
		Note:        "pedido tienda online",
	})
	if err != nil {
		return nil, err
	}

	order, err := orders.Build(orders.BuildParams{
		Cart:           snap,
		ShippingCents:  quote.CostCents,
		ShippingMethod: quote.MethodID,
		Address: orders.Address{
			Street:   form.Address,
			City:     form.City,
			Province: form.Province,
			ZipCode:  form.ZipCode,
			Country:  "Argentina",
		},
		PaymentID: payment.ID,
		Status:    orders.StatusConfirmed,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.users.AppendOrder(ctx, userEmail, *order); err != nil {
		return nil, err
	}
	if err := s.cart.Clear(ctx, sess.id); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) methodEligible(province, methodID string) bool {
	for _, m := range s.shipping.AvailableMethods(province) {
		if m.ID == methodID {
			return true
		}
	}
	return false
}

func (s *service) session(sessionID string) (*session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{id: sessionID, step: StepShipping}
		s.sessions[sessionID] = sess
	}
	return sess, nil
}

func (s *service) stateOf(sess *session) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sess.state()
}

func (s *service) clearPending(sess *session) {
	s.mu.Lock()
	sess.quotePending = false
	s.mu.Unlock()
}
