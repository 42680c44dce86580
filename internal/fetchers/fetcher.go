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
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

const (
	GlobalMinTimeout     = 1 * time.Second
	GlobalMaxTimeout     = 60 * time.Second
	GlobalDefaultTimeout = 10 * time.Second
)

var (
	ErrNoCertificate   = errors.New("no certificate found")
	ErrTimeoutTooShort = errors.New("timeout is less than the minimum allowed")
	ErrTimeoutTooLong  = errors.New("timeout is greater than the maximum allowed")
	ErrMissingAddress  = errors.New("target address is required")
	ErrMissingPath     = errors.New("target path is required")
)

// Target says where a certificate lives. Which fields matter depends on the protocol.
type Target struct {
	Name       string
	Address    string
	ServerName string
	Path       string
}

// Host is the host part of Address, or Address itself when it has no port.
func (t Target) Host() string {
	host, _, err := net.SplitHostPort(t.Address)
	if err != nil {
		return t.Address
	}
	return host
}

// SNI is the name presented during the TLS handshake.
func (t Target) SNI() string {
	if t.ServerName != "" {
		return t.ServerName
	}
	return t.Host()
}

// Fetcher retrieves the DER encoding of a target's certificate.
type Fetcher interface {
	Protocol() Protocol
	Fetch(ctx context.Context, target Target) ([]byte, error)
	GetTimeout() time.Duration
	SetTimeout(timeout time.Duration) error
}

type TimeoutBounds struct {
	Min     time.Duration
	Max     time.Duration
	Default time.Duration
}

type BaseFetcher struct {
	logger  *zap.SugaredLogger
	timeout time.Duration
	bounds  TimeoutBounds
}

func NewBaseFetcher(logger *zap.SugaredLogger, bounds TimeoutBounds) BaseFetcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if bounds.Min == 0 {
		bounds.Min = GlobalMinTimeout
	}
	if bounds.Max == 0 {
		bounds.Max = GlobalMaxTimeout
	}
	if bounds.Default == 0 {
		bounds.Default = GlobalDefaultTimeout
	}

	return BaseFetcher{
		logger:  logger,
		timeout: bounds.Default,
		bounds:  bounds,
	}
}

// fetch runs fetchFn under the configured timeout.
func (b *BaseFetcher) fetch(ctx context.Context, fetchFn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	der, err := fetchFn(ctx)
	if err != nil {
		return nil, err
	}
	if len(der) == 0 {
		return nil, ErrNoCertificate
	}
	return der, nil
}

func (b *BaseFetcher) GetTimeout() time.Duration {
	return b.timeout
}

// SetTimeout clamps timeout into the bounds. An out of range value is
// clamped and reported.
func (b *BaseFetcher) SetTimeout(timeout time.Duration) error {
	var err error
	b.timeout, err = b.ValidateTimeout(timeout)
	return err
}

func (b *BaseFetcher) ValidateTimeout(timeout time.Duration) (time.Duration, error) {
	if timeout == 0 {
		return b.bounds.Default, nil
	}
	if timeout < b.bounds.Min {
		return b.bounds.Min, fmt.Errorf("%w: %s", ErrTimeoutTooShort, timeout)
	}
	if timeout > b.bounds.Max {
		return b.bounds.Max, fmt.Errorf("%w: %s", ErrTimeoutTooLong, timeout)
	}
	return timeout, nil
}

// dial opens a TCP connection whose deadline follows ctx.
func dial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("tcp connection failed: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}
