package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/whiskeyjimbo/CertMate/internal/check"
	"github.com/whiskeyjimbo/CertMate/internal/health"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(zap.NewNop().Sugar(), "hq", reg), reg
}

func TestUpdateCheck(t *testing.T) {
	m, _ := newTestMetrics(t)
	days := 12.5

	m.UpdateCheck(CheckMetrics{
		Target:        "web",
		Protocol:      "TLS",
		Tags:          []string{"prod", "eu"},
		Report:        check.NewCollection(check.Notice("Serial: 01"), check.Warn("Public key size is 2048 but expected 4096"), check.Notice("Issuer O: Acme")),
		DaysRemaining: &days,
		Issuer:        "Acme CA",
		Latency:       150 * time.Millisecond,
		CheckedAt:     time.Unix(1700000000, 0),
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkStatus.WithLabelValues("hq", "web", "TLS", "eu,prod")))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.certExpiryDays.WithLabelValues("hq", "web", "TLS", "Acme CA")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkResults.WithLabelValues("hq", "web", "NOTICE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkResults.WithLabelValues("hq", "web", "WARN")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.checkResults.WithLabelValues("hq", "web", "CRIT")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastCheck.WithLabelValues("hq", "web")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fetchLatency))
	assert.Equal(t, 0, testutil.CollectAndCount(m.fetchFailures))
}

func TestUpdateCheckFetchFailure(t *testing.T) {
	m, _ := newTestMetrics(t)

	for i := 0; i < 2; i++ {
		m.UpdateCheck(CheckMetrics{
			Target:      "mail",
			Protocol:    "SMTP",
			Report:      check.Abort("Failed to fetch certificate: connection refused"),
			FetchFailed: true,
		})
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.checkStatus.WithLabelValues("hq", "mail", "SMTP", "none")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetchFailures.WithLabelValues("hq", "mail", "SMTP")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.certExpiryDays))
	assert.Equal(t, 0, testutil.CollectAndCount(m.fetchLatency))
}

func TestServerRoutes(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.UpdateCheck(CheckMetrics{Target: "web", Protocol: "TLS", Report: check.Collection{}})

	h := health.New()
	h.SetReady(true)
	srv := NewServer(zap.NewNop().Sugar(), ":0", reg, h)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `certmate_check_status{protocol="TLS",site="hq",tags="none",target="web"} 0`))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, health.ReadyPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
