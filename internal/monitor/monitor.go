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

package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/whiskeyjimbo/CertMate/internal/certificate"
	"github.com/whiskeyjimbo/CertMate/internal/check"
	"github.com/whiskeyjimbo/CertMate/internal/config"
	"github.com/whiskeyjimbo/CertMate/internal/fetchers"
	"github.com/whiskeyjimbo/CertMate/internal/rules"
	"github.com/whiskeyjimbo/CertMate/internal/tags"
)

// Start launches one loop per target. All targets are resolved before any
// loop starts, so a bad target fails the whole start.
func Start(ctx context.Context, wg *sync.WaitGroup, base BaseContext, targets []config.TargetConfig) error {
	contexts := make([]MonitoringContext, 0, len(targets))
	for _, target := range targets {
		mc, err := NewMonitoringContext(base, target)
		if err != nil {
			return fmt.Errorf("target %s: %w", target.Name, err)
		}
		contexts = append(contexts, mc)
	}

	for _, mc := range contexts {
		wg.Add(1)
		go func(mc MonitoringContext) {
			defer wg.Done()
			MonitorTarget(ctx, mc)
		}(mc)
	}
	return nil
}

func NewMonitoringContext(base BaseContext, target config.TargetConfig) (MonitoringContext, error) {
	interval, err := target.IntervalDuration()
	if err != nil {
		return MonitoringContext{}, err
	}
	timeout, err := target.TimeoutDuration()
	if err != nil {
		return MonitoringContext{}, err
	}
	expect, err := target.Expect.Certificate()
	if err != nil {
		return MonitoringContext{}, err
	}

	protocol := fetchers.Protocol(target.Protocol).Normalize()
	if !protocol.IsValid() {
		return MonitoringContext{}, fmt.Errorf("unsupported protocol %q. Supported protocols: %v", protocol, fetchers.ListProtocols())
	}
	fetcher, err := fetchers.NewFetcher(protocol, base.Logger)
	if err != nil {
		return MonitoringContext{}, fmt.Errorf("failed to create fetcher: %w", err)
	}
	if timeout > 0 {
		if err := fetcher.SetTimeout(timeout); err != nil {
			base.Logger.Warnw("Timeout out of range, clamped",
				"target", target.Name,
				"timeout", fetcher.GetTimeout(),
				"error", err,
			)
		}
	}

	return MonitoringContext{
		Base:     base,
		Target:   target,
		Tags:     tags.Merge(target.Tags),
		Expect:   expect,
		Fetcher:  fetcher,
		Interval: interval,
	}, nil
}

// MonitorTarget checks the target every interval until ctx is cancelled.
func MonitorTarget(ctx context.Context, mc MonitoringContext) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			checkStart := time.Now()
			outcome := RunCheck(ctx, mc)
			if ctx.Err() != nil {
				return
			}
			processOutcome(ctx, mc, outcome)

			if !waitForNextCheck(ctx, mc.Interval, time.Since(checkStart)) {
				return
			}
		}
	}
}

// RunCheck fetches the target's certificate once and verifies it.
func RunCheck(ctx context.Context, mc MonitoringContext) CheckOutcome {
	start := time.Now()
	der, err := mc.Fetcher.Fetch(ctx, fetchTarget(mc.Target))
	outcome := CheckOutcome{
		Elapsed:   time.Since(start),
		CheckedAt: start,
	}
	if err != nil {
		outcome.FetchErr = err
		outcome.Report = certificate.FetchFailure(err)
		return outcome
	}

	cert, err := certificate.Parse(der)
	if err != nil {
		outcome.Report = check.Abort(certificate.ParseFailure)
		return outcome
	}

	days := rules.DaysUntil(cert.NotAfter(), start)
	outcome.DaysRemaining = &days
	outcome.Issuer = cert.IssuerAttribute(certificate.OIDCommonName)
	outcome.Report = certificate.Verify(cert, mc.Expect, start)
	return outcome
}

func fetchTarget(t config.TargetConfig) fetchers.Target {
	return fetchers.Target{
		Name:       t.Name,
		Address:    t.Address,
		ServerName: t.ServerName,
		Path:       t.Path,
	}
}
