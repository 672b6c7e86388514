package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nahuelcoria/tienda-backend/api/controllers"
	"github.com/nahuelcoria/tienda-backend/api/middleware"
	"github.com/nahuelcoria/tienda-backend/internal/auth"
	"github.com/nahuelcoria/tienda-backend/internal/cart"
	"github.com/nahuelcoria/tienda-backend/internal/catalog"
	checkoutsvc "github.com/nahuelcoria/tienda-backend/internal/checkout"
	"github.com/nahuelcoria/tienda-backend/internal/shipping"
	"github.com/nahuelcoria/tienda-backend/internal/users"
	"github.com/nahuelcoria/tienda-backend/internal/wishlist"
	"github.com/nahuelcoria/tienda-backend/pkg/auth/session"
	"github.com/nahuelcoria/tienda-backend/pkg/config"
	"github.com/nahuelcoria/tienda-backend/pkg/kv"
	"github.com/nahuelcoria/tienda-backend/pkg/logger"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	KV             *kv.Client
	SessionManager sessionManager
	Registry       *prometheus.Registry

	Auth     auth.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Shipping shipping.Service
	Checkout checkoutsvc.Service
	Users    users.Service
	Wishlist wishlist.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.KV))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.KV, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.KV, logg)).Post("/register", controllers.AuthRegister(p.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(p.SessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.SessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", controllers.CatalogList(p.Catalog, logg))
			r.Get("/categories", controllers.CatalogCategories(p.Catalog, logg))
			r.Get("/{productId}", controllers.CatalogDetail(p.Catalog, logg))
		})

		r.Route("/shipping", func(r chi.Router) {
			r.Get("/methods", controllers.ShippingMethods(p.Shipping, logg))
			r.Post("/quote", controllers.ShippingQuote(p.Shipping, p.Cart, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(p.Cart, logg))
			r.Delete("/", controllers.CartClear(p.Cart, logg))
			r.Post("/items", controllers.CartAddItem(p.Cart, logg))
			r.Patch("/items", controllers.CartUpdateItem(p.Cart, logg))
			r.Delete("/items", controllers.CartRemoveItem(p.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutState(p.Checkout, logg))
			r.Put("/shipping", controllers.CheckoutShipping(p.Checkout, logg))
			r.Post("/payment", controllers.CheckoutTokenize(p.Checkout, logg))
			r.Post("/next", controllers.CheckoutNext(p.Checkout, logg))
			r.Post("/back", controllers.CheckoutBack(p.Checkout, logg))
			r.With(middleware.Auth(cfg.JWT, p.SessionManager, logg)).Post("/submit", controllers.CheckoutSubmit(p.Checkout, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))

			r.Route("/me", func(r chi.Router) {
				r.Get("/", controllers.ProfileFetch(p.Users, logg))
				r.Patch("/", controllers.ProfileUpdate(p.Users, logg))
				r.Get("/orders", controllers.ProfileOrders(p.Users, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(p.Wishlist, logg))
				r.Post("/{productId}", controllers.WishlistAdd(p.Wishlist, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(p.Wishlist, logg))
				r.Get("/{productId}", controllers.WishlistContains(p.Wishlist, logg))
			})
		})
	})

	return r
}
