package shipping

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nahuelcoria/tienda-backend/pkg/config"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
	"github.com/nahuelcoria/tienda-backend/pkg/metrics"
)

// RateSource answers live per-province carrier rates. Implementations
// must honor context cancellation; the service falls back to the
// method's base price when a lookup fails or times out.
type RateSource interface {
	Rate(ctx context.Context, province, methodID string) (int64, error)
}

// Service computes shipping options and costs for a destination province.
type Service interface {
	AvailableMethods(province string) []Method
	// QuoteCost computes the cost for one method. sessionID scopes
	// supersession: a quote started later for the same session wins, and
	// earlier in-flight quotes resolve to ErrQuoteSuperseded.
	QuoteCost(ctx context.Context, sessionID, province, methodID string, subtotalCents int64) (Quote, error)
}

// ErrQuoteSuperseded reports that a newer quote for the same session
// started while this one was in flight. Callers discard the result.
var ErrQuoteSuperseded = pkgerrors.New(pkgerrors.CodeStateConflict, "shipping quote superseded by a newer request")

// ServiceParams groups dependencies for the shipping service. Rates and
// Metrics are optional; Methods defaults to the built-in table.
type ServiceParams struct {
	Config  config.ShippingConfig
	Rates   RateSource
	Metrics *metrics.StorefrontMetrics
	Methods []Method
}

type service struct {
	cfg     config.ShippingConfig
	rates   RateSource
	metrics *metrics.StorefrontMetrics
	methods []Method
	flight  singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

// NewService builds the shipping calculator.
func NewService(params ServiceParams) (Service, error) {
	methods := params.Methods
	if len(methods) == 0 {
		methods = defaultMethods()
	}
	seen := make(map[string]bool, len(methods))
	for _, m := range methods {
		if strings.TrimSpace(m.ID) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping method without id")
		}
		if seen[m.ID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping method "+m.ID+" is duplicated")
		}
		seen[m.ID] = true
	}
	rates := params.Rates
	if rates == nil {
		rates = staticRates{methods: methods}
	}
	return &service{
		cfg:         params.Config,
		rates:       rates,
		metrics:     params.Metrics,
		methods:     methods,
		generations: make(map[string]uint64),
	}, nil
}

// AvailableMethods returns the configured methods that deliver to the
// province, in table order. An empty province yields an empty list.
func (s *service) AvailableMethods(province string) []Method {
	if normalizeProvince(province) == "" {
		return nil
	}
	var out []Method
	for _, m := range s.methods {
		if m.EligibleFor(province) {
			out = append(out, m)
		}
	}
	return out
}

// QuoteCost resolves the shipping cost for a method. Subtotals at or
// above the free threshold short-circuit to zero without a rate lookup.
func (s *service) QuoteCost(ctx context.Context, sessionID, province, methodID string, subtotalCents int64) (Quote, error) {
	method, ok := s.methodByID(methodID)
	if !ok {
		return Quote{}, pkgerrors.New(pkgerrors.CodeNotFound, "unknown shipping method")
	}

	// Every quote, including the free short-circuit, owns the session
	// generation so that an older in-flight lookup resolves superseded.
	generation := s.nextGeneration(sessionID)

	if s.cfg.FreeThresholdCents > 0 && subtotalCents >= s.cfg.FreeThresholdCents {
		s.metrics.IncShippingQuote(SourceFree)
		return Quote{MethodID: method.ID, CostCents: 0, Free: true, Source: SourceFree}, nil
	}

	cost, source := s.lookupRate(ctx, province, method)

	if !s.isCurrentGeneration(sessionID, generation) {
		return Quote{}, ErrQuoteSuperseded
	}

	s.metrics.IncShippingQuote(source)
	return Quote{MethodID: method.ID, CostCents: cost, Source: source}, nil
}

// lookupRate asks the rate source within the configured timeout and
// masks any failure with the method's static base price.
func (s *service) lookupRate(ctx context.Context, province string, method Method) (int64, string) {
	if s.cfg.RateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RateTimeout)
		defer cancel()
	}

	key := fmt.Sprintf("%s|%s", normalizeProvince(province), method.ID)
	result, err, _ := s.flight.Do(key, func() (any, error) {
		return s.rates.Rate(ctx, province, method.ID)
	})
	if err != nil {
		return method.PriceCents, SourceFallback
	}
	cost, ok := result.(int64)
	if !ok || cost < 0 {
		return method.PriceCents, SourceFallback
	}
	return cost, SourceLive
}

func (s *service) methodByID(methodID string) (Method, bool) {
	methodID = strings.TrimSpace(methodID)
	for _, m := range s.methods {
		if m.ID == methodID {
			return m, true
		}
	}
	return Method{}, false
}

func (s *service) nextGeneration(sessionID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[sessionID]++
	return s.generations[sessionID]
}

func (s *service) isCurrentGeneration(sessionID string, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[sessionID] == generation
}

// staticRates serves the configured base price per method, with a
// surcharge for the far-south provinces the carriers charge extra for.
type staticRates struct {
	methods []Method
}

var patagoniaSurcharge = map[string]bool{
	"chubut":           true,
	"neuquén":          true,
	"río negro":        true,
	"santa cruz":       true,
	"tierra del fuego": true,
}

func (r staticRates) Rate(ctx context.Context, province, methodID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for _, m := range r.methods {
		if m.ID != methodID {
			continue
		}
		cost := m.PriceCents
		if patagoniaSurcharge[normalizeProvince(province)] {
			cost += cost / 5
		}
		return cost, nil
	}
	return 0, pkgerrors.New(pkgerrors.CodeNotFound, "unknown shipping method")
}
