package monitor

import (
	"time"

	"go.uber.org/zap"

	"github.com/whiskeyjimbo/CertMate/internal/certificate"
	"github.com/whiskeyjimbo/CertMate/internal/check"
	"github.com/whiskeyjimbo/CertMate/internal/config"
	"github.com/whiskeyjimbo/CertMate/internal/database"
	"github.com/whiskeyjimbo/CertMate/internal/fetchers"
	"github.com/whiskeyjimbo/CertMate/internal/metrics"
	"github.com/whiskeyjimbo/CertMate/internal/notifications"
	"github.com/whiskeyjimbo/CertMate/internal/rules"
)

// Recorder receives the metrics of every finished check run.
type Recorder interface {
	UpdateCheck(m metrics.CheckMetrics)
}

// BaseContext is shared by all target loops. Metrics and Database may be nil.
type BaseContext struct {
	Logger      *zap.SugaredLogger
	Site        string
	Metrics     Recorder
	Database    database.Database
	Rules       []rules.Rule
	NotifierMap map[string]notifications.Notifier
}

type MonitoringContext struct {
	Base     BaseContext
	Target   config.TargetConfig
	Tags     []string
	Expect   certificate.Config
	Fetcher  fetchers.Fetcher
	Interval time.Duration
}

// CheckOutcome is what one iteration of a target loop produced.
type CheckOutcome struct {
	Report check.Collection
	// DaysRemaining and Issuer are only set when a certificate was decoded.
	DaysRemaining *float64
	Issuer        string
	FetchErr      error
	Elapsed       time.Duration
	CheckedAt     time.Time
}
