package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayRequestsTotal(t *testing.T) {
	before := testutil.ToFloat64(RelayRequestsTotal.WithLabelValues("http", OutcomeSuccess))
	RelayRequestsTotal.WithLabelValues("http", OutcomeSuccess).Inc()
	after := testutil.ToFloat64(RelayRequestsTotal.WithLabelValues("http", OutcomeSuccess))
	assert.Equal(t, before+1, after)
}

func TestHandler(t *testing.T) {
	RateLimitedTotal.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "portfolio_http_rate_limited_total")
}
