package fetchers

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

var ErrStartTLSUnsupported = errors.New("server does not offer STARTTLS")

type SMTPFetcher struct {
	BaseFetcher
}

func NewSMTPFetcher(logger *zap.SugaredLogger) *SMTPFetcher {
	return &SMTPFetcher{
		BaseFetcher: NewBaseFetcher(logger, TimeoutBounds{}),
	}
}

func (f *SMTPFetcher) Protocol() Protocol {
	return SMTP
}

func (f *SMTPFetcher) Fetch(ctx context.Context, target Target) ([]byte, error) {
	if target.Address == "" {
		return nil, ErrMissingAddress
	}
	return f.fetch(ctx, func(ctx context.Context) ([]byte, error) {
		conn, err := dial(ctx, target.Address)
		if err != nil {
			return nil, err
		}

		client, err := smtp.NewClient(conn, target.Host())
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("smtp greeting failed: %w", err)
		}
		defer client.Close()

		if ok, _ := client.Extension("STARTTLS"); !ok {
			return nil, ErrStartTLSUnsupported
		}
		if err := client.StartTLS(clientConfig(target.SNI())); err != nil {
			return nil, fmt.Errorf("starttls failed: %w", err)
		}

		state, ok := client.TLSConnectionState()
		if !ok {
			return nil, ErrNoCertificate
		}
		der, err := leaf(state)
		if err != nil {
			return nil, err
		}

		if err := client.Quit(); err != nil {
			f.logger.Debugw("smtp quit failed", "target", target.Name, "error", err)
		}
		return der, nil
	})
}

func init() {
	RegisterFetcher(SMTP, func(logger *zap.SugaredLogger) Fetcher { return NewSMTPFetcher(logger) })
}
