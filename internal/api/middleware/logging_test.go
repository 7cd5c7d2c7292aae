package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogging_RecordsMatchedRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewStorefrontMetricsWithRegisterer(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := Logging(m)(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/o-1", nil))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/o-2", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	count, err := testutil.GatherAndCount(reg, "storefront_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "both requests share one route series")
}

func TestLogging_NilMetrics(t *testing.T) {
	handler := Logging(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIsAdmin(t *testing.T) {
	admin := withClaims(context.Background(), &auth.Claims{UserID: "u1", Role: user.RoleAdmin})
	customer := withClaims(context.Background(), &auth.Claims{UserID: "u2", Role: user.RoleCustomer})

	assert.True(t, IsAdmin(admin))
	assert.False(t, IsAdmin(customer))
	assert.False(t, IsAdmin(context.Background()))
}
