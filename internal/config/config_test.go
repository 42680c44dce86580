package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiskeyjimbo/CertMate/internal/certificate"
	"github.com/whiskeyjimbo/CertMate/internal/check"
)

const sampleConfig = `
monitor_site: hq
targets:
  - name: web
    protocol: tls
    address: example.com:443
    interval: 300
    tags: [prod, web]
    expect:
      subject_cn: example.com
      subject_alt_names: [example.com, www.example.com]
      serial: "AA:11"
      signature_algorithm: RSASSA_PSS-SHA256
      pubkey_algorithm: RSA
      pubkey_size: 2048
      issuer_o: Let's Encrypt
      not_after:
        warn: 30d
        crit: 7
      max_validity: 2160h
  - name: local
    protocol: FILE
    path: ./cert.pem
    expect:
      subject_alt_names: []
rules:
  - name: expiring
    type: cert
    minDaysValidity: 14
    notifications: [slack]
notifications:
  - type: log
  - type: slack
    webhook_url: ${SLACK_WEBHOOK}
database:
  type: sqlite
  dsn: ./history.db
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfiguration(t *testing.T) {
	t.Setenv("SLACK_WEBHOOK", "https://hooks.slack.com/services/T/B/X")

	cfg, err := LoadConfiguration(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "hq", cfg.MonitorSite)
	assert.Equal(t, DefaultMetricsAddress, cfg.MetricsAddress)
	require.Len(t, cfg.Targets, 2)
	assert.Equal(t, "https://hooks.slack.com/services/T/B/X", cfg.Notifications[1].WebhookURL)
	assert.Equal(t, &DatabaseConfig{Type: "sqlite", DSN: "./history.db"}, cfg.Database)

	web := cfg.Targets[0]
	assert.Equal(t, "TLS", web.Protocol)
	assert.Equal(t, "300s", web.Interval)
	interval, err := web.IntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, interval)

	local := cfg.Targets[1]
	assert.Equal(t, DefaultInterval, local.Interval)
	timeout, err := local.TimeoutDuration()
	require.NoError(t, err)
	assert.Zero(t, timeout)
}

func TestExpectationsCertificate(t *testing.T) {
	t.Setenv("SLACK_WEBHOOK", "https://hooks.slack.com/services/T/B/X")
	cfg, err := LoadConfiguration(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	web, err := cfg.Targets[0].Expect.Certificate()
	require.NoError(t, err)
	assert.Equal(t, "example.com", *web.SubjectCN)
	assert.Equal(t, []string{"example.com", "www.example.com"}, *web.SubjectAltNames)
	assert.Equal(t, "AA:11", *web.Serial)
	assert.Equal(t, &certificate.SignatureAlgorithm{Kind: certificate.SignatureRSASSAPSS, Hash: "SHA256"}, web.SignatureAlgorithm)
	assert.Equal(t, 2048, *web.PubkeySize)
	assert.Equal(t, "Let's Encrypt", *web.IssuerO)
	assert.Nil(t, web.IssuerCN)
	assert.Equal(t, check.LowerLevels(30*day, 7*day), *web.NotAfter)
	assert.Equal(t, 90*day, *web.MaxValidity)

	local, err := cfg.Targets[1].Expect.Certificate()
	require.NoError(t, err)
	require.NotNil(t, local.SubjectAltNames)
	assert.Empty(t, *local.SubjectAltNames)
	assert.Nil(t, local.SubjectCN)
	assert.Nil(t, local.NotAfter)
}

func TestLoadConfigurationRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing monitor site", content: "targets: [{name: a, protocol: TLS, address: a:443}]"},
		{name: "no targets", content: "monitor_site: hq"},
		{name: "unnamed target", content: "monitor_site: hq\ntargets: [{protocol: TLS, address: a:443}]"},
		{name: "duplicate target", content: "monitor_site: hq\ntargets: [{name: a, protocol: TLS, address: a:443}, {name: a, protocol: TLS, address: b:443}]"},
		{name: "file without path", content: "monitor_site: hq\ntargets: [{name: a, protocol: FILE}]"},
		{name: "ssh without path", content: "monitor_site: hq\ntargets: [{name: a, protocol: SSH, address: a:22}]"},
		{name: "tls without address", content: "monitor_site: hq\ntargets: [{name: a, protocol: TLS}]"},
		{name: "bad interval", content: "monitor_site: hq\ntargets: [{name: a, protocol: TLS, address: a:443, interval: soon}]"},
		{name: "bad signature", content: "monitor_site: hq\ntargets: [{name: a, protocol: TLS, address: a:443, expect: {signature_algorithm: RSASSA_PSS}}]"},
		{name: "inverted levels", content: "monitor_site: hq\ntargets: [{name: a, protocol: TLS, address: a:443, expect: {not_after: {warn: 5d, crit: 30d}}}]"},
		{name: "bad duration", content: "monitor_site: hq\ntargets: [{name: a, protocol: TLS, address: a:443, expect: {max_validity: forever}}]"},
		{name: "unknown key", content: "monitor_site: hq\ntargets: [{name: a, protocol: TLS, address: a:443, expect: {subject: x}}]"},
		{name: "bad database", content: "monitor_site: hq\ntargets: [{name: a, protocol: TLS, address: a:443}]\ndatabase: {type: mysql, dsn: x}"},
		{name: "bad rule", content: "monitor_site: hq\ntargets: [{name: a, protocol: TLS, address: a:443}]\nrules: [{name: r, type: weird}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfiguration(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30d", 30 * day},
		{"7", 7 * day},
		{"0", 0},
		{"36h", 36 * time.Hour},
		{" 1h30m ", 90 * time.Minute},
		{"106751d", 106751 * day},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	for _, input := range []string{"", "d", "ten days", "1w", "106752d", "110000d", "300000d", "-300000d"} {
		_, err := ParseDuration(input)
		assert.Error(t, err, input)
	}
}
