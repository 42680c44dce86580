package fetchers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type Protocol string

const (
	FILE Protocol = "FILE"
	TLS  Protocol = "TLS"
	SMTP Protocol = "SMTP"
	SSH  Protocol = "SSH"
)

type FetcherFactory func(logger *zap.SugaredLogger) Fetcher

type Registry struct {
	mu       sync.RWMutex
	fetchers map[Protocol]FetcherFactory
}

var defaultRegistry = &Registry{
	fetchers: make(map[Protocol]FetcherFactory),
}

func RegisterFetcher(protocol Protocol, factory FetcherFactory) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.fetchers[protocol] = factory
}

func NewFetcher(protocol Protocol, logger *zap.SugaredLogger) (Fetcher, error) {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()

	factory, exists := defaultRegistry.fetchers[protocol.Normalize()]
	if !exists {
		return nil, fmt.Errorf("no fetcher registered for protocol: %s", protocol)
	}

	return factory(logger), nil
}

// ListProtocols returns the registered protocols in sorted order.
func ListProtocols() []Protocol {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()

	protocols := make([]Protocol, 0, len(defaultRegistry.fetchers))
	for p := range defaultRegistry.fetchers {
		protocols = append(protocols, p)
	}
	sort.Slice(protocols, func(i, j int) bool { return protocols[i] < protocols[j] })
	return protocols
}

func (p Protocol) Normalize() Protocol {
	return Protocol(strings.ToUpper(strings.TrimSpace(string(p))))
}

func (p Protocol) IsValid() bool {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	_, exists := defaultRegistry.fetchers[p.Normalize()]
	return exists
}

func (p Protocol) String() string {
	return string(p)
}
