package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records the outcomes of the purchase funnel.
type StorefrontMetrics struct {
	submitDuration *prometheus.HistogramVec
	submits        *prometheus.CounterVec
	tokenizations  *prometheus.CounterVec
	shippingQuotes *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	submitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_submit_duration_seconds",
		Help:    "Duration of checkout submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	submits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submits_total",
		Help: "Checkout submissions by result.",
	}, []string{"result"})
	tokenizations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "card_tokenizations_total",
		Help: "Card tokenization attempts by result.",
	}, []string{"result"})
	shippingQuotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_quotes_total",
		Help: "Shipping quotes by source (live or fallback).",
	}, []string{"source"})
	reg.MustRegister(submitDuration, submits, tokenizations, shippingQuotes)
	return &StorefrontMetrics{
		submitDuration: submitDuration,
		submits:        submits,
		tokenizations:  tokenizations,
		shippingQuotes: shippingQuotes,
	}
}

// ObserveSubmit records one checkout submission and its duration.
func (m *StorefrontMetrics) ObserveSubmit(result string, duration time.Duration) {
	if m == nil || m.submits == nil {
		return
	}
	label := normalizeLabel(result)
	m.submits.WithLabelValues(label).Inc()
	m.submitDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncTokenization counts one card tokenization attempt.
func (m *StorefrontMetrics) IncTokenization(result string) {
	if m == nil || m.tokenizations == nil {
		return
	}
	m.tokenizations.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncShippingQuote counts one shipping quote by source.
func (m *StorefrontMetrics) IncShippingQuote(source string) {
	if m == nil || m.shippingQuotes == nil {
		return
	}
	m.shippingQuotes.WithLabelValues(normalizeLabel(source)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
