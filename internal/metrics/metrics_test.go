package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/siteflow/internal/metrics"
	"github.com/stretchr/testify/require"
)

func TestCollectors_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg)

	c.Routed("O&M")
	c.Routed("AMC")
	c.Routed("AMC")
	c.Transition("complete")
	c.FanoutFailure("AMC")
	c.ExclusionRecorded()
	c.StaleExclusionServed()

	require.Equal(t, 2, seriesCount(t, reg, "siteflow_routed_destinations_total"), "one series per role")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 5)
}

func TestCollectors_NilSafe(t *testing.T) {
	var c *metrics.Collectors
	require.NotPanics(t, func() {
		c.Routed("O&M")
		c.Transition("complete")
		c.FanoutFailure("AMC")
		c.ExclusionRecorded()
		c.StaleExclusionServed()
	})
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMiddleware(reg)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/sites/{siteCode}/status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, code := range []string{"BLR001", "MYS002"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sites/"+code+"/status", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	require.Equal(t, 1, seriesCount(t, reg, "siteflow_http_requests_total"))
}

func seriesCount(t *testing.T, reg *prometheus.Registry, name string) int {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return len(f.GetMetric())
		}
	}
	return 0
}
