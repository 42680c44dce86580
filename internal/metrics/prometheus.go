// Copyright (C) 2025 Jeff Rose
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/whiskeyjimbo/CertMate/internal/check"
	"github.com/whiskeyjimbo/CertMate/internal/health"
	"github.com/whiskeyjimbo/CertMate/internal/tags"
)

const namespace = "certmate"

var severities = []check.Severity{check.OKSeverity, check.NoticeSeverity, check.WarnSeverity, check.CritSeverity}

type PrometheusMetrics struct {
	logger      *zap.SugaredLogger
	monitorSite string

	checkStatus    *prometheus.GaugeVec
	checkResults   *prometheus.GaugeVec
	certExpiryDays *prometheus.GaugeVec
	fetchLatency   *prometheus.HistogramVec
	fetchFailures  *prometheus.CounterVec
	lastCheck      *prometheus.GaugeVec
}

// CheckMetrics is what one check run of a target reports.
type CheckMetrics struct {
	Target   string
	Protocol string
	Tags     []string
	Report   check.Collection
	// DaysRemaining is nil when no certificate was read.
	DaysRemaining *float64
	Issuer        string
	Latency       time.Duration
	FetchFailed   bool
	CheckedAt     time.Time
}

func NewPrometheusMetrics(logger *zap.SugaredLogger, monitorSite string, reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		logger:      logger,
		monitorSite: monitorSite,
		checkStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "check_status",
			Help:      "Overall status of the last certificate check (0 OK, 1 NOTICE, 2 WARN, 3 CRIT)",
		}, []string{"site", "target", "protocol", "tags"}),
		checkResults: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "check_results",
			Help:      "Number of results per severity in the last certificate check",
		}, []string{"site", "target", "severity"}),
		certExpiryDays: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cert_expiry_days",
			Help:      "Days until certificate expiration",
		}, []string{"site", "target", "protocol", "issuer"}),
		fetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_latency_seconds",
			Help:      "Time taken to retrieve the certificate",
			Buckets:   prometheus.DefBuckets,
		}, []string{"site", "target", "protocol"}),
		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Number of failed certificate retrievals",
		}, []string{"site", "target", "protocol"}),
		lastCheck: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_check_timestamp_seconds",
			Help:      "Unix time of the last certificate check",
		}, []string{"site", "target"}),
	}
}

func (p *PrometheusMetrics) UpdateCheck(m CheckMetrics) {
	site := p.monitorSite

	p.checkStatus.WithLabelValues(site, m.Target, m.Protocol, tags.Label(m.Tags)).Set(float64(m.Report.Status()))
	if !m.CheckedAt.IsZero() {
		p.lastCheck.WithLabelValues(site, m.Target).Set(float64(m.CheckedAt.Unix()))
	}

	counts := make(map[check.Severity]int, len(severities))
	for _, r := range m.Report.Results() {
		counts[r.Severity]++
	}
	for _, s := range severities {
		p.checkResults.WithLabelValues(site, m.Target, s.String()).Set(float64(counts[s]))
	}

	if m.FetchFailed {
		p.fetchFailures.WithLabelValues(site, m.Target, m.Protocol).Inc()
		return
	}
	p.fetchLatency.WithLabelValues(site, m.Target, m.Protocol).Observe(m.Latency.Seconds())

	if m.DaysRemaining != nil {
		p.certExpiryDays.WithLabelValues(site, m.Target, m.Protocol, m.Issuer).Set(*m.DaysRemaining)
	}
}

type Server struct {
	logger *zap.SugaredLogger
	server *http.Server
}

// NewServer exposes gatherer on /metrics next to the health endpoints.
func NewServer(logger *zap.SugaredLogger, addr string, gatherer prometheus.Gatherer, h *health.Health) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	h.Register(mux)

	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       30 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves in the background. A listen failure is fatal.
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Fatalf("Failed to start metrics server: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
