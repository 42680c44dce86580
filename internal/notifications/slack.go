package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	slackWebhookPrefix = "https://hooks.slack.com/services/"
	slackTimeout       = 10 * time.Second
)

// SlackNotifier posts notifications to an incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color    string       `json:"color"`
	Fields   []slackField `json:"fields"`
	Text     string       `json:"text,omitempty"`
	Footer   string       `json:"footer,omitempty"`
	MrkdwnIn []string     `json:"mrkdwn_in,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func NewSlackNotifier(webhookURL string) (*SlackNotifier, error) {
	if !strings.HasPrefix(webhookURL, slackWebhookPrefix) {
		return nil, ErrInvalidWebhookURL
	}

	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: slackTimeout},
	}, nil
}

func (s *SlackNotifier) SendNotification(ctx context.Context, notification Notification) error {
	payload, err := json.Marshal(newSlackMessage(notification))
	if err != nil {
		return fmt.Errorf("failed to marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CertMate/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("rate limited by Slack API (retry after %q)", resp.Header.Get("Retry-After"))
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("slack notification failed with status: %d", resp.StatusCode)
	}
	return nil
}

func newSlackMessage(n Notification) slackMessage {
	fields := []slackField{
		{Title: "Target", Value: n.Target, Short: true},
		{Title: "Status", Value: n.Status, Short: true},
		{Title: "Expires in", Value: n.Expiry(), Short: true},
	}
	for _, f := range []slackField{
		{Title: "Issuer", Value: n.Issuer, Short: true},
		{Title: "Address", Value: n.Address, Short: true},
		{Title: "Protocol", Value: n.Protocol, Short: true},
		{Title: "Site", Value: n.Site, Short: true},
		{Title: "Tags", Value: strings.Join(n.Tags, ", ")},
	} {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}

	attachment := slackAttachment{
		Color:  getColorForLevel(n.Level),
		Fields: fields,
	}
	if len(n.Details) > 0 {
		attachment.Text = "```" + strings.Join(n.Details, "\n") + "```"
		attachment.MrkdwnIn = []string{"text"}
	}
	if n.Rule != "" {
		attachment.Footer = "rule " + n.Rule
	}

	return slackMessage{
		Text:        n.Message,
		Attachments: []slackAttachment{attachment},
	}
}

func getColorForLevel(level NotificationLevel) string {
	switch level {
	case ErrorLevel:
		return "#FF0000"
	case WarningLevel:
		return "#FFA500"
	default:
		return "#36a64f"
	}
}

func (s *SlackNotifier) Type() NotificationType {
	return SlackNotification
}

func (s *SlackNotifier) Initialize(context.Context) error {
	return nil
}

func (s *SlackNotifier) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
