package notifications

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the service log.
type LogNotifier struct {
	logger *zap.SugaredLogger
}

func NewLogNotifier(logger *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{
		logger: logger.Named("notify"),
	}
}

func (n *LogNotifier) SendNotification(_ context.Context, notification Notification) error {
	fields := []interface{}{
		"rule", notification.Rule,
		"site", notification.Site,
		"target", notification.Target,
		"address", notification.Address,
		"protocol", notification.Protocol,
		"status", notification.Status,
		"expires_in", notification.Expiry(),
		"tags", notification.Tags,
	}
	if notification.Issuer != "" {
		fields = append(fields, "issuer", notification.Issuer)
	}
	if len(notification.Details) > 0 {
		fields = append(fields, "details", notification.Details)
	}

	switch notification.Level {
	case ErrorLevel:
		n.logger.Errorw(notification.Message, fields...)
	case WarningLevel:
		n.logger.Warnw(notification.Message, fields...)
	default:
		n.logger.Infow(notification.Message, fields...)
	}
	return nil
}

func (n *LogNotifier) Type() NotificationType {
	return LogNotification
}

func (n *LogNotifier) Initialize(context.Context) error {
	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}
