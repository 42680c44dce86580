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

package notifications

import (
	"context"
	"fmt"

	"github.com/whiskeyjimbo/CertMate/internal/check"
	"github.com/whiskeyjimbo/CertMate/internal/rules"
)

// Event is a finished check run of one target that a rule fired on.
type Event struct {
	Site     string
	Target   string
	Address  string
	Protocol string
	Tags     []string
	Status   check.Severity
	Summary  string
	Details  []string
	// Issuer and DaysRemaining are empty when no certificate was read.
	Issuer        string
	DaysRemaining *float64
}

// Build turns a fired rule into the notification sent for ev.
func Build(rule rules.Rule, result rules.RuleResult, ev Event) Notification {
	return Notification{
		Message:       BuildMessage(rule, result, ev.Target, ev.Summary),
		Level:         GetLevel(result, ev.Status),
		Rule:          rule.Name,
		Site:          ev.Site,
		Target:        ev.Target,
		Address:       ev.Address,
		Protocol:      ev.Protocol,
		Status:        ev.Status.String(),
		Tags:          ev.Tags,
		Issuer:        ev.Issuer,
		DaysRemaining: ev.DaysRemaining,
		Details:       ev.Details,
	}
}

// BuildMessage is the one-line text of a fired rule.
func BuildMessage(rule rules.Rule, result rules.RuleResult, target, summary string) string {
	if result.Error != nil {
		return fmt.Sprintf("Rule %s evaluation failed for %s: %v", rule.Name, target, result.Error)
	}

	msg := result.Message
	if msg == "" {
		msg = fmt.Sprintf("Rule condition met: %s", rule.Name)
	}
	if summary == "" {
		return fmt.Sprintf("%s [%s]", msg, target)
	}
	return fmt.Sprintf("%s [%s]: %s", msg, target, summary)
}

// GetLevel maps a fired rule onto a notification level. Evaluation errors and
// critical reports are errors, everything else a warning.
func GetLevel(result rules.RuleResult, status check.Severity) NotificationLevel {
	if result.Error != nil || status == check.CritSeverity {
		return ErrorLevel
	}
	return WarningLevel
}

// SendRuleNotifications delivers to the notifiers the rule names, or to all of
// them when the rule names none.
func SendRuleNotifications(
	ctx context.Context,
	rule rules.Rule,
	notification Notification,
	notifierMap map[string]Notifier,
) error {
	if len(rule.Notifications) == 0 {
		for _, notifier := range notifierMap {
			if err := notifier.SendNotification(ctx, notification); err != nil {
				return fmt.Errorf("failed to send notification: %w", err)
			}
		}
		return nil
	}

	for _, notificationType := range rule.Notifications {
		if notifier, ok := notifierMap[notificationType]; ok {
			if err := notifier.SendNotification(ctx, notification); err != nil {
				return fmt.Errorf("failed to send notification %s: %w", notificationType, err)
			}
		}
	}
	return nil
}
