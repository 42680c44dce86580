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
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

type NotificationType string

const (
	LogNotification   NotificationType = "log"
	SlackNotification NotificationType = "slack"
)

type NotificationLevel string

const (
	InfoLevel    NotificationLevel = "info"
	WarningLevel NotificationLevel = "warning"
	ErrorLevel   NotificationLevel = "error"
)

var (
	ErrMissingLogger     = errors.New("log notifier requires a logger")
	ErrInvalidWebhookURL = errors.New("invalid Slack webhook URL format")
)

// Notification describes a fired rule for one target.
type Notification struct {
	Message  string
	Level    NotificationLevel
	Rule     string
	Site     string
	Target   string
	Address  string
	Protocol string
	Status   string
	Tags     []string
	// Issuer and DaysRemaining are empty when no certificate was read.
	Issuer        string
	DaysRemaining *float64
	// Details holds one line per unhealthy check result.
	Details []string
}

// Expiry renders the remaining validity, or "unknown" without a certificate.
func (n Notification) Expiry() string {
	if n.DaysRemaining == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*n.DaysRemaining, 'f', 1, 64) + " days"
}

type Notifier interface {
	SendNotification(ctx context.Context, notification Notification) error
	Type() NotificationType
	Initialize(ctx context.Context) error
	Close() error
}

// Options carries what the individual notifier types need.
type Options struct {
	Logger     *zap.SugaredLogger
	WebhookURL string
}

func NewNotifier(notifierType string, opts Options) (Notifier, error) {
	switch NotificationType(notifierType) {
	case LogNotification:
		if opts.Logger == nil {
			return nil, ErrMissingLogger
		}
		return NewLogNotifier(opts.Logger), nil
	case SlackNotification:
		return NewSlackNotifier(opts.WebhookURL)
	default:
		return nil, fmt.Errorf("unsupported notification type: %s", notifierType)
	}
}
