package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nahuelcoria/tienda-backend/internal/cart"
	"github.com/nahuelcoria/tienda-backend/internal/orders"
	"github.com/nahuelcoria/tienda-backend/internal/shipping"
	"github.com/nahuelcoria/tienda-backend/internal/users"
	"github.com/nahuelcoria/tienda-backend/pkg/config"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
	"github.com/nahuelcoria/tienda-backend/pkg/square"
)

type stubCart struct {
	mu    sync.Mutex
	snaps map[string]cart.Snapshot
	fail  error
}

func newStubCart() *stubCart {
	return &stubCart{snaps: make(map[string]cart.Snapshot)}
}

func (c *stubCart) set(sessionID string, items ...cart.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := cart.Snapshot{Items: items}
	for _, item := range items {
		snap.SubtotalCents += item.PriceCents * int64(item.Quantity)
		snap.ItemCount += item.Quantity
	}
	c.snaps[sessionID] = snap
}

func (c *stubCart) Get(ctx context.Context, cartID string) (cart.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return cart.Snapshot{}, c.fail
	}
	return c.snaps[cartID], nil
}

func (c *stubCart) Clear(ctx context.Context, cartID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	delete(c.snaps, cartID)
	return nil
}

type stubGateway struct {
	mu          sync.Mutex
	tokenErr    error
	customerErr error
	paymentErr  error
	payments    int
	lastPayment square.PaymentCreateParams
	blockSubmit chan struct{} // when set, CreatePayment waits here
	started     chan struct{}
}

func (g *stubGateway) TokenizeCard(ctx context.Context, params square.CardTokenizeParams) (string, error) {
	if g.tokenErr != nil {
		return "", g.tokenErr
	}
	return "ccof:tok-1", nil
}

func (g *stubGateway) CreateCustomer(ctx context.Context, params square.CustomerCreateParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.customerErr != nil {
		return "", g.customerErr
	}
	return "cust-" + params.Email, nil
}

func (g *stubGateway) CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*square.Payment, error) {
	if g.blockSubmit != nil {
		close(g.started)
		<-g.blockSubmit
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paymentErr != nil {
		return nil, g.paymentErr
	}
	g.payments++
	g.lastPayment = params
	return &square.Payment{ID: "pay-1", Status: "COMPLETED"}, nil
}

type stubUsers struct {
	mu      sync.Mutex
	history map[string][]orders.Order
	fail    error
}

func newStubUsers() *stubUsers {
	return &stubUsers{history: make(map[string][]orders.Order)}
}

func (u *stubUsers) AppendOrder(ctx context.Context, email string, order orders.Order) (*users.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail != nil {
		return nil, u.fail
	}
	u.history[email] = append(u.history[email], order)
	return &users.User{Email: email, Orders: u.history[email]}, nil
}

type fixture struct {
	svc     Service
	cart    *stubCart
	gateway *stubGateway
	users   *stubUsers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	shippingSvc, err := shipping.NewService(shipping.ServiceParams{
		Config: config.ShippingConfig{FreeThresholdCents: 3000, RateTimeout: time.Second},
	})
	if err != nil {
		t.Fatalf("shipping service: %v", err)
	}

	f := &fixture{
		cart:    newStubCart(),
		gateway: &stubGateway{},
		users:   newStubUsers(),
	}
	svc, err := NewService(ServiceParams{
		Config:   config.CheckoutConfig{SubmitTimeout: 5 * time.Second},
		Cart:     f.cart,
		Shipping: shippingSvc,
		Payments: f.gateway,
		Users:    f.users,
	})
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}
	f.svc = svc
	return f
}

func completeForm() ShippingForm {
	return ShippingForm{
		Email:     "ana@tienda.com",
		FirstName: "Ana",
		LastName:  "García",
		Phone:     "+5491122334455",
		Address:   "Av. Rivadavia 5500",
		City:      "La Plata",
		Province:  "Buenos Aires",
		ZipCode:   "B1900",
		MethodID:  "estandar",
	}
}

func (f *fixture) driveToReview(t *testing.T, sessionID string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.SetShipping(ctx, sessionID, completeForm()); err != nil {
		t.Fatalf("set shipping: %v", err)
	}
	if _, err := f.svc.Next(ctx, sessionID); err != nil {
		t.Fatalf("advance to payment: %v", err)
	}
	if _, err := f.svc.Tokenize(ctx, sessionID, CardDetails{Number: "4111111111111111", Holder: "ANA GARCIA", ExpMonth: "11", ExpYear: "2030", CVV: "123"}); err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if _, err := f.svc.Next(ctx, sessionID); err != nil {
		t.Fatalf("advance to review: %v", err)
	}
}

func TestShippingGuardBlocksIncompleteForm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", PriceCents: 1000, Quantity: 2})

	// Fresh session starts at shipping with nothing filled.
	if _, err := f.svc.Next(ctx, "sess"); err == nil {
		t.Fatalf("guard should fail with empty form")
	}

	incomplete := completeForm()
	incomplete.ZipCode = ""
	if _, err := f.svc.SetShipping(ctx, "sess", incomplete); err != nil {
		t.Fatalf("set partial form: %v", err)
	}
	if _, err := f.svc.Next(ctx, "sess"); err == nil {
		t.Fatalf("guard should fail with missing zip code")
	}

	if _, err := f.svc.SetShipping(ctx, "sess", completeForm()); err != nil {
		t.Fatalf("set full form: %v", err)
	}
	state, err := f.svc.Next(ctx, "sess")
	if err != nil {
		t.Fatalf("guard should pass: %v", err)
	}
	if state.Step != StepPayment {
		t.Fatalf("expected payment step, got %s", state.Step)
	}
}

func TestSetShippingRejectsIneligibleMethod(t *testing.T) {
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", PriceCents: 1000, Quantity: 1})

	form := completeForm()
	form.Province = "Formosa"
	form.MethodID = "expres"
	if _, err := f.svc.SetShipping(context.Background(), "sess", form); err == nil {
		t.Fatalf("expres does not deliver to Formosa")
	}
}

func TestPaymentGuardRequiresToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", PriceCents: 1000, Quantity: 2})

	f.svc.SetShipping(ctx, "sess", completeForm())
	f.svc.Next(ctx, "sess")

	if _, err := f.svc.Next(ctx, "sess"); err == nil {
		t.Fatalf("guard should fail without a card token")
	}

	f.gateway.tokenErr = errors.New("declined")
	if _, err := f.svc.Tokenize(ctx, "sess", CardDetails{Number: "4", CVV: "1"}); err == nil {
		t.Fatalf("tokenization failure should surface")
	}
	state, _ := f.svc.Get(ctx, "sess")
	if state.Step != StepPayment || state.HasCardToken() {
		t.Fatalf("failed tokenization should leave payment step untouched: %+v", state)
	}

	f.gateway.tokenErr = nil
	if _, err := f.svc.Tokenize(ctx, "sess", CardDetails{Number: "4111111111111111", CVV: "123"}); err != nil {
		t.Fatalf("retry tokenize: %v", err)
	}
	state, err := f.svc.Next(ctx, "sess")
	if err != nil || state.Step != StepReview {
		t.Fatalf("expected review step, got %+v err=%v", state, err)
	}
}

func TestTokenizeOnlyAtPaymentStep(t *testing.T) {
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", PriceCents: 1000, Quantity: 1})
	if _, err := f.svc.Tokenize(context.Background(), "sess", CardDetails{Number: "4", CVV: "1"}); err == nil {
		t.Fatalf("tokenize should be rejected at the shipping step")
	}
}

func TestBackRetainsFormData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", PriceCents: 1000, Quantity: 2})
	f.driveToReview(t, "sess")

	state, err := f.svc.Back(ctx, "sess")
	if err != nil || state.Step != StepPayment {
		t.Fatalf("back to payment: %+v err=%v", state, err)
	}
	if !state.HasCardToken() {
		t.Fatalf("card token lost on back")
	}

	state, err = f.svc.Back(ctx, "sess")
	if err != nil || state.Step != StepShipping {
		t.Fatalf("back to shipping: %+v err=%v", state, err)
	}
	if state.Shipping != completeForm() {
		t.Fatalf("shipping form lost on back: %+v", state.Shipping)
	}
}

func TestSubmitRequiresAuthenticatedUser(t *testing.T) {
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", PriceCents: 1000, Quantity: 2})
	f.driveToReview(t, "sess")

	_, err := f.svc.Submit(context.Background(), "sess", "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSubmitOnlyFromReview(t *testing.T) {
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", PriceCents: 1000, Quantity: 2})
	if _, err := f.svc.Submit(context.Background(), "sess", "ana@tienda.com"); err == nil {
		t.Fatalf("submit from shipping should be rejected")
	}
}

func TestSubmitCreatesOrderClearsCartAndConfirms(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", Name: "Remera", PriceCents: 1000, Size: "M", Quantity: 2})
	f.driveToReview(t, "sess")

	order, err := f.svc.Submit(ctx, "sess", "ana@tienda.com")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if order.SubtotalCents != 2000 || order.ShippingCents <= 0 {
		t.Fatalf("expected paid shipping below threshold: %+v", order)
	}
	if order.TotalCents != order.SubtotalCents+order.ShippingCents {
		t.Fatalf("total mismatch: %+v", order)
	}
	if order.Status != orders.StatusConfirmed || order.PaymentID != "pay-1" {
		t.Fatalf("order not confirmed: %+v", order)
	}
	if order.ShippingAddress.Country != "Argentina" || order.ShippingAddress.Province != "Buenos Aires" {
		t.Fatalf("address not snapshotted: %+v", order.ShippingAddress)
	}

	if got := len(f.users.history["ana@tienda.com"]); got != 1 {
		t.Fatalf("expected exactly one order appended, got %d", got)
	}
	snap, _ := f.cart.Get(ctx, "sess")
	if snap.ItemCount != 0 {
		t.Fatalf("cart not cleared after submit")
	}
	state, _ := f.svc.Get(ctx, "sess")
	if state.Step != StepConfirmed || state.Order == nil {
		t.Fatalf("session not confirmed: %+v", state)
	}
}

func TestSubmitChargesPaymentAgainstSquareCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", PriceCents: 1000, Quantity: 2})
	f.driveToReview(t, "sess")

	if _, err := f.svc.Submit(ctx, "sess", "ana@tienda.com"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	f.gateway.mu.Lock()
	got := f.gateway.lastPayment
	f.gateway.mu.Unlock()
	if got.CustomerID != "cust-ana@tienda.com" {
		t.Fatalf("payment should reference the created customer, got %q", got.CustomerID)
	}
	if got.CustomerID == "ana@tienda.com" {
		t.Fatalf("payment must not use the raw email as customer id")
	}
}

func TestSubmitCustomerCreationFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", PriceCents: 1000, Quantity: 2})
	f.driveToReview(t, "sess")

	f.gateway.customerErr = errors.New("square down")
	if _, err := f.svc.Submit(ctx, "sess", "ana@tienda.com"); err == nil {
		t.Fatalf("expected submit failure")
	}
	if f.gateway.payments != 0 {
		t.Fatalf("no payment should be attempted without a customer")
	}
	if len(f.users.history["ana@tienda.com"]) != 0 {
		t.Fatalf("order appended despite failure")
	}
	state, _ := f.svc.Get(ctx, "sess")
	if state.Step != StepReview || state.Processing {
		t.Fatalf("session should stay in review and idle: %+v", state)
	}
}

func TestSubmitFailureLeavesEverythingUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", PriceCents: 1000, Quantity: 2})
	f.driveToReview(t, "sess")

	f.gateway.paymentErr = errors.New("gateway down")
	if _, err := f.svc.Submit(ctx, "sess", "ana@tienda.com"); err == nil {
		t.Fatalf("expected submit failure")
	}

	if len(f.users.history["ana@tienda.com"]) != 0 {
		t.Fatalf("order appended despite failure")
	}
	snap, _ := f.cart.Get(ctx, "sess")
	if snap.ItemCount == 0 {
		t.Fatalf("cart cleared despite failure")
	}
	state, _ := f.svc.Get(ctx, "sess")
	if state.Step != StepReview || state.Processing {
		t.Fatalf("session should stay in review and idle: %+v", state)
	}

	// Retry succeeds once the gateway recovers.
	f.gateway.paymentErr = nil
	if _, err := f.svc.Submit(ctx, "sess", "ana@tienda.com"); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cart.set("sess", cart.Item{ProductID: "a", PriceCents: 1000, Quantity: 2})
	f.driveToReview(t, "sess")

	f.gateway.blockSubmit = make(chan struct{})
	f.gateway.started = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Submit(ctx, "sess", "ana@tienda.com")
		done <- err
	}()
	<-f.gateway.started

	_, err := f.svc.Submit(ctx, "sess", "ana@tienda.com")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected in-flight rejection, got %v", err)
	}

	close(f.gateway.blockSubmit)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if got := len(f.users.history["ana@tienda.com"]); got != 1 {
		t.Fatalf("expected exactly one order, got %d", got)
	}
}

func TestFreeShippingScenarioBuenosAires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Two units at 1000 each: below the 3000 threshold, shipping is paid.
	f.cart.set("sess", cart.Item{ProductID: "a", Name: "Remera", PriceCents: 1000, Size: "M", Quantity: 2})
	state, err := f.svc.SetShipping(ctx, "sess", completeForm())
	if err != nil {
		t.Fatalf("set shipping: %v", err)
	}
	if state.Quote == nil || state.Quote.CostCents <= 0 || state.Quote.Free {
		t.Fatalf("expected paid shipping for subtotal 2000: %+v", state.Quote)
	}

	// Raising the quantity to four crosses the threshold.
	f.cart.set("sess", cart.Item{ProductID: "a", Name: "Remera", PriceCents: 1000, Size: "M", Quantity: 4})
	state, err = f.svc.SetShipping(ctx, "sess", completeForm())
	if err != nil {
		t.Fatalf("re-quote: %v", err)
	}
	if state.Quote == nil || state.Quote.CostCents != 0 || !state.Quote.Free {
		t.Fatalf("expected free shipping for subtotal 4000: %+v", state.Quote)
	}

	f.svc.Next(ctx, "sess")
	f.svc.Tokenize(ctx, "sess", CardDetails{Number: "4111111111111111", CVV: "123"})
	f.svc.Next(ctx, "sess")

	order, err := f.svc.Submit(ctx, "sess", "ana@tienda.com")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if order.TotalCents != 4000 || order.ShippingCents != 0 {
		t.Fatalf("expected total 4000 with free shipping, got %+v", order)
	}
}
