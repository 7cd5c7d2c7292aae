package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics covers checkout, discounts, order lifecycle and HTTP traffic.
type StorefrontMetrics struct {
	ordersPlaced       prometheus.Counter
	checkoutFailures   *prometheus.CounterVec
	checkoutDuration   prometheus.Histogram
	identifierRetries  prometheus.Counter
	discountsRedeemed  prometheus.Counter
	statusTransitions  *prometheus.CounterVec
	cartAdjustments    *prometheus.CounterVec
	eventPublishErrors prometheus.Counter
	httpRequests       *prometheus.HistogramVec
}

func NewStorefrontMetrics() *StorefrontMetrics {
	return NewStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Total number of orders created",
		}),
		checkoutFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_failures_total",
			Help: "Checkouts that did not produce an order, by error kind",
		}, []string{"kind"}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Duration of checkout transactions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		identifierRetries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_order_identifier_retries_total",
			Help: "Checkout retries caused by a duplicate order or tracking number",
		}),
		discountsRedeemed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_discounts_redeemed_total",
			Help: "Discount codes redeemed by placed orders",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Order status changes, by source and target status",
		}, []string{"from", "to"}),
		cartAdjustments: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_adjustments_total",
			Help: "Cart lines changed by stock or catalog reconciliation, by reason",
		}, []string{"reason"}),
		eventPublishErrors: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_event_publish_errors_total",
			Help: "Order events that could not be published",
		}),
		httpRequests: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

func (m *StorefrontMetrics) RecordOrderPlaced(duration time.Duration) {
	m.ordersPlaced.Inc()
	m.checkoutDuration.Observe(duration.Seconds())
}

func (m *StorefrontMetrics) RecordCheckoutFailure(kind string) {
	m.checkoutFailures.WithLabelValues(kind).Inc()
}

func (m *StorefrontMetrics) RecordIdentifierRetry() {
	m.identifierRetries.Inc()
}

func (m *StorefrontMetrics) RecordDiscountRedeemed() {
	m.discountsRedeemed.Inc()
}

func (m *StorefrontMetrics) RecordStatusTransition(from, to string) {
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

func (m *StorefrontMetrics) RecordCartAdjustment(reason string) {
	m.cartAdjustments.WithLabelValues(reason).Inc()
}

func (m *StorefrontMetrics) RecordEventPublishError() {
	m.eventPublishErrors.Inc()
}

func (m *StorefrontMetrics) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Observe(duration.Seconds())
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
