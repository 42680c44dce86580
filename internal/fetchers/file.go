package fetchers

import (
	"bytes"
	"context"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const pemCertificate = "CERTIFICATE"

type FileFetcher struct {
	BaseFetcher
}

func NewFileFetcher(logger *zap.SugaredLogger) *FileFetcher {
	return &FileFetcher{
		BaseFetcher: NewBaseFetcher(logger, TimeoutBounds{}),
	}
}

func (f *FileFetcher) Protocol() Protocol {
	return FILE
}

func (f *FileFetcher) Fetch(ctx context.Context, target Target) ([]byte, error) {
	if target.Path == "" {
		return nil, ErrMissingPath
	}
	return f.fetch(ctx, func(context.Context) ([]byte, error) {
		data, err := os.ReadFile(filepath.Clean(target.Path))
		if err != nil {
			return nil, fmt.Errorf("unable to read certificate file: %w", err)
		}
		return DecodeCertificate(data)
	})
}

// DecodeCertificate returns the first CERTIFICATE block of PEM input.
// Input without any PEM block is taken to be DER already.
func DecodeCertificate(data []byte) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoCertificate
	}

	rest := data
	sawPEM := false
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		sawPEM = true
		if block.Type == pemCertificate {
			return block.Bytes, nil
		}
	}

	if sawPEM {
		return nil, fmt.Errorf("%w: no %s block in PEM input", ErrNoCertificate, pemCertificate)
	}
	return data, nil
}

func init() {
	RegisterFetcher(FILE, func(logger *zap.SugaredLogger) Fetcher { return NewFileFetcher(logger) })
}
