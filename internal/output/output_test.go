package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiskeyjimbo/CertMate/internal/check"
)

func TestStateOf(t *testing.T) {
	tests := []struct {
		severity check.Severity
		want     State
		exit     int
	}{
		{check.OKSeverity, StateOK, 0},
		{check.NoticeSeverity, StateOK, 0},
		{check.WarnSeverity, StateWarn, 1},
		{check.CritSeverity, StateCrit, 2},
	}

	for _, tt := range tests {
		t.Run(tt.severity.String(), func(t *testing.T) {
			got := StateOf(tt.severity)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.exit, got.ExitCode())
		})
	}
	assert.Equal(t, 3, StateUnknown.ExitCode())
}

func TestFormat(t *testing.T) {
	levels := check.LowerLevels(30.0, 5.0)
	expiry := levels.Check(10, "validity", "Certificate expires in 10 day(s) (Jan 11 00:00:00 2020 +00:00)")

	tests := []struct {
		name   string
		report check.Collection
		want   string
	}{
		{
			name:   "empty",
			report: check.Collection{},
			want:   "OK",
		},
		{
			name:   "notices stay out of the summary",
			report: check.NewCollection(check.OKWithDetails("CN=example.com", "Subject CN: example.com"), check.Notice("Serial: 01")),
			want:   "OK - CN=example.com\nSubject CN: example.com\nSerial: 01",
		},
		{
			name:   "markers and perf data",
			report: check.NewCollection(check.Warn("Public key size is 2048 but expected 4096"), &expiry),
			want: "WARN - Public key size is 2048 but expected 4096(!), Certificate expires in 10 day(s) (Jan 11 00:00:00 2020 +00:00)(!) | validity=10;30;5\n" +
				"Public key size is 2048 but expected 4096(!)\n" +
				"Certificate expires in 10 day(s) (Jan 11 00:00:00 2020 +00:00)(!)",
		},
		{
			name:   "abort",
			report: check.Abort("Failed to parse certificate"),
			want:   "CRIT - Failed to parse certificate(!!)\nFailed to parse certificate(!!)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.report))
		})
	}
}

func TestPerfDataWithoutLevels(t *testing.T) {
	assert.Equal(t, "a=1.5;; b=2;3;4", perfData([]check.Metric{
		{Label: "a", Value: 1.5},
		{Label: "b", Value: 2, Warn: ptr(3.0), Crit: ptr(4.0)},
	}))
	assert.Equal(t, "", perfData(nil))
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	state, err := Write(&buf, check.NewCollection(check.Crit("Certificate expired (Jan 11 00:00:00 2020 +00:00)")))
	require.NoError(t, err)
	assert.Equal(t, StateCrit, state)
	assert.Contains(t, buf.String(), "CRIT - Certificate expired")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestUnknown(t *testing.T) {
	var buf bytes.Buffer
	state := Unknown(&buf, errors.New("no certificate source given"))
	assert.Equal(t, StateUnknown, state)
	assert.Equal(t, "UNKNOWN - no certificate source given\n", buf.String())
}

func ptr(v float64) *float64 {
	return &v
}

func TestSummary(t *testing.T) {
	report := check.NewCollection(
		check.Notice("Serial: 01"),
		check.Warn("Issuer O is Acme but expected Example"),
		check.OKWithDetails("CN=web", "Subject CN: web"),
		check.Crit("Certificate expired (Jan  1 00:00:00 2020 +00:00)"),
	)
	assert.Equal(t, "Issuer O is Acme but expected Example(!), CN=web, Certificate expired (Jan  1 00:00:00 2020 +00:00)(!!)", Summary(report))
	assert.Empty(t, Summary(check.NewCollection(check.Notice("Serial: 01"))))
}
