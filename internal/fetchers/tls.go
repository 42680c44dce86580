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

package fetchers

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"
)

type TLSFetcher struct {
	BaseFetcher
}

func NewTLSFetcher(logger *zap.SugaredLogger) *TLSFetcher {
	return &TLSFetcher{
		BaseFetcher: NewBaseFetcher(logger, TimeoutBounds{}),
	}
}

func (f *TLSFetcher) Protocol() Protocol {
	return TLS
}

func (f *TLSFetcher) Fetch(ctx context.Context, target Target) ([]byte, error) {
	if target.Address == "" {
		return nil, ErrMissingAddress
	}
	return f.fetch(ctx, func(ctx context.Context) ([]byte, error) {
		conn, err := dial(ctx, target.Address)
		if err != nil {
			return nil, err
		}
		defer conn.Close()

		client := tls.Client(conn, clientConfig(target.SNI()))
		if err := client.HandshakeContext(ctx); err != nil {
			return nil, fmt.Errorf("tls handshake failed: %w", err)
		}
		return leaf(client.ConnectionState())
	})
}

// clientConfig accepts any chain. Trust is not what is being checked here.
func clientConfig(serverName string) *tls.Config {
	return &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: true, //nolint:gosec // G402
		MinVersion:         tls.VersionTLS10,
	}
}

func leaf(state tls.ConnectionState) ([]byte, error) {
	if len(state.PeerCertificates) == 0 {
		return nil, ErrNoCertificate
	}
	return state.PeerCertificates[0].Raw, nil
}

func init() {
	RegisterFetcher(TLS, func(logger *zap.SugaredLogger) Fetcher { return NewTLSFetcher(logger) })
}
