package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OfferSnapshotRefreshTotal counts snapshot refreshes by source (cache, db, empty) and result.
	OfferSnapshotRefreshTotal *prometheus.CounterVec
	// OfferSnapshotOffers reports how many offers the current snapshot holds.
	OfferSnapshotOffers prometheus.Gauge
	// OfferSnapshotAge records the age of the snapshot in seconds at refresh time.
	OfferSnapshotAge prometheus.Gauge
	// PricingRequestsTotal counts pricing calls by kind (product, cart) and result.
	PricingRequestsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers offer pricing collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OfferSnapshotRefreshTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offer_snapshot_refresh_total",
			Help:      "Count of offer snapshot refreshes by source and outcome.",
		}, []string{"source", "result"}))
		OfferSnapshotOffers = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offer_snapshot_offers",
			Help:      "Number of offers in the published snapshot.",
		}))
		OfferSnapshotAge = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offer_snapshot_age_seconds",
			Help:      "Age of the published snapshot when it was last refreshed.",
		}))
		PricingRequestsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_requests_total",
			Help:      "Count of pricing calculations by kind and outcome.",
		}, []string{"kind", "result"}))
	})
}

// RecordSnapshotRefresh updates the refresh counters. The gauges follow every
// published snapshot, including an empty one; "error" only counts. It is a
// no-op until MustRegisterDomainMetrics has run.
func RecordSnapshotRefresh(source, result string, offers int, ageSeconds float64) {
	if OfferSnapshotRefreshTotal == nil {
		return
	}
	OfferSnapshotRefreshTotal.WithLabelValues(source, result).Inc()
	if result == "ok" || result == "empty" {
		OfferSnapshotOffers.Set(float64(offers))
		OfferSnapshotAge.Set(ageSeconds)
	}
}

// RecordPricing increments the pricing request counter.
func RecordPricing(kind, result string) {
	if PricingRequestsTotal == nil {
		return
	}
	PricingRequestsTotal.WithLabelValues(kind, result).Inc()
}
