package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-offers/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("offers", []float64{10, 1}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/health/ready"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/health/ready", "204")))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))
}

func TestHTTPMetricsReuseRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("offers", nil, registry)
	second := obs.NewHTTPMetrics("offers", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestHTTPMetricsUseChiRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("offers", nil, registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Post("/api/v1/pricing/{kind}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/pricing/cart", nil))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPost, "/api/v1/pricing/{kind}", "200")))
}

func TestRoutePatternSharedWithOuterLayers(t *testing.T) {
	metrics := obs.NewHTTPMetrics("offers", nil, prometheus.NewRegistry())
	var seen string

	r := chi.NewRouter()
	r.Use(obs.RoutePatternMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			seen = obs.RoutePatternFromContext(r.Context())
		})
	})
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/api/v1/offers/{id}", func(w http.ResponseWriter, _ *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/offers/o1", nil))
	require.Equal(t, "/api/v1/offers/{id}", seen)
}

func TestRequestLoggerWritesStructuredEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Get("/api/v1/offers", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/offers", nil))

	var evt map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &evt))
	require.Equal(t, "http_request", evt["message"])
	require.Equal(t, "/api/v1/offers", evt["route"])
	require.EqualValues(t, 200, evt["status"])
	require.EqualValues(t, 2, evt["bytes"])
}

func TestDomainMetricsRecord(t *testing.T) {
	obs.MustRegisterDomainMetrics("offers_test", prometheus.NewRegistry())

	obs.RecordSnapshotRefresh("db", "ok", 4, 1.5)
	obs.RecordPricing("cart", "ok")

	require.Equal(t, float64(4), testutil.ToFloat64(obs.OfferSnapshotOffers))
	require.Equal(t, float64(1), testutil.ToFloat64(obs.OfferSnapshotRefreshTotal.WithLabelValues("db", "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(obs.PricingRequestsTotal.WithLabelValues("cart", "ok")))

	obs.RecordSnapshotRefresh("db", "error", 0, 0)
	require.Equal(t, float64(4), testutil.ToFloat64(obs.OfferSnapshotOffers))

	obs.RecordSnapshotRefresh("empty", "empty", 0, 0)
	require.Equal(t, float64(0), testutil.ToFloat64(obs.OfferSnapshotOffers))
	require.Equal(t, float64(0), testutil.ToFloat64(obs.OfferSnapshotAge))
	require.Equal(t, float64(1), testutil.ToFloat64(obs.OfferSnapshotRefreshTotal.WithLabelValues("empty", "empty")))
}
