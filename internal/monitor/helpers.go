package monitor

import (
	"context"
	"time"

	"github.com/whiskeyjimbo/CertMate/internal/check"
	"github.com/whiskeyjimbo/CertMate/internal/database"
	"github.com/whiskeyjimbo/CertMate/internal/metrics"
	"github.com/whiskeyjimbo/CertMate/internal/notifications"
	"github.com/whiskeyjimbo/CertMate/internal/output"
	"github.com/whiskeyjimbo/CertMate/internal/rules"
	"github.com/whiskeyjimbo/CertMate/internal/tags"
)

func processOutcome(ctx context.Context, mc MonitoringContext, outcome CheckOutcome) {
	summary := output.Summary(outcome.Report)

	if mc.Base.Metrics != nil {
		mc.Base.Metrics.UpdateCheck(metrics.CheckMetrics{
			Target:        mc.Target.Name,
			Protocol:      mc.Target.Protocol,
			Tags:          mc.Tags,
			Report:        outcome.Report,
			DaysRemaining: outcome.DaysRemaining,
			Issuer:        outcome.Issuer,
			Latency:       outcome.Elapsed,
			FetchFailed:   outcome.FetchErr != nil,
			CheckedAt:     outcome.CheckedAt,
		})
	}

	recordHistory(ctx, mc, outcome, summary)
	logCheckResult(mc, outcome, summary)
	processRules(ctx, mc, outcome, summary)
}

func recordHistory(ctx context.Context, mc MonitoringContext, outcome CheckOutcome, summary string) {
	if mc.Base.Database == nil {
		return
	}

	err := mc.Base.Database.InsertCheck(ctx, database.Record{
		Target:        mc.Target.Name,
		Protocol:      mc.Target.Protocol,
		Status:        outcome.Report.Status().String(),
		Summary:       summary,
		DaysRemaining: outcome.DaysRemaining,
		ElapsedMS:     outcome.Elapsed.Milliseconds(),
		CheckedAt:     outcome.CheckedAt,
	})
	if err != nil {
		mc.Base.Logger.Errorw("Failed to record check", "target", mc.Target.Name, "error", err)
	}
}

func logCheckResult(mc MonitoringContext, outcome CheckOutcome, summary string) {
	status := outcome.Report.Status()
	l := mc.Base.Logger.With(
		"site", mc.Base.Site,
		"target", mc.Target.Name,
		"protocol", mc.Target.Protocol,
		"status", status.String(),
		"latency_ms", outcome.Elapsed.Milliseconds(),
		"tags", mc.Tags,
	)
	if outcome.DaysRemaining != nil {
		l = l.With("days_remaining", *outcome.DaysRemaining)
	}

	switch {
	case outcome.FetchErr != nil:
		l.Warn(outcome.FetchErr)
	case !status.Healthy():
		l.Warn(summary)
	default:
		l.Info("Check passed")
	}
}

func processRules(ctx context.Context, mc MonitoringContext, outcome CheckOutcome, summary string) {
	status := outcome.Report.Status()
	params := rules.EvaluationParams{
		Target:        mc.Target.Name,
		Tags:          mc.Tags,
		Status:        status,
		DaysRemaining: outcome.DaysRemaining,
		FetchFailed:   outcome.FetchErr != nil,
		ResponseTime:  outcome.Elapsed,
	}
	event := notifications.Event{
		Site:          mc.Base.Site,
		Target:        mc.Target.Name,
		Address:       targetAddress(mc),
		Protocol:      mc.Target.Protocol,
		Tags:          mc.Tags,
		Status:        status,
		Summary:       summary,
		Details:       unhealthyDetails(outcome.Report),
		Issuer:        outcome.Issuer,
		DaysRemaining: outcome.DaysRemaining,
	}

	for _, rule := range mc.Base.Rules {
		if !tags.HasMatching(mc.Tags, rule.Tags) {
			continue
		}

		ruleResult := rules.EvaluateRule(rule, params)
		if ruleResult.Error == nil && !ruleResult.Satisfied {
			continue
		}

		notification := notifications.Build(rule, ruleResult, event)
		if err := notifications.SendRuleNotifications(ctx, rule, notification, mc.Base.NotifierMap); err != nil {
			mc.Base.Logger.Errorw("Failed to send notification", "rule", rule.Name, "target", mc.Target.Name, "error", err)
		}
	}
}

func unhealthyDetails(report check.Collection) []string {
	var details []string
	for _, r := range report.Results() {
		if !r.Severity.Healthy() {
			details = append(details, r.Detail())
		}
	}
	return details
}

// targetAddress names where the certificate came from.
func targetAddress(mc MonitoringContext) string {
	if mc.Target.Address == "" {
		return mc.Target.Path
	}
	if mc.Target.Path != "" {
		return mc.Target.Address + ":" + mc.Target.Path
	}
	return mc.Target.Address
}

// waitForNextCheck sleeps out the rest of the interval. It returns false when
// ctx was cancelled first.
func waitForNextCheck(ctx context.Context, interval, elapsed time.Duration) bool {
	wait := interval - elapsed
	if wait <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
