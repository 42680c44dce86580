package certificate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/whiskeyjimbo/CertMate/internal/check"
)

var ErrInvalidSignatureAlgorithm = errors.New("invalid signature algorithm")

type SignatureKind int

const (
	SignatureRSA SignatureKind = iota + 1
	SignatureRSASSAPSS
	SignatureRSAESOAEP
	SignatureDSA
	SignatureECDSA
	SignatureEd25519
)

var signatureKindNames = map[SignatureKind]string{
	SignatureRSA:       "RSA",
	SignatureRSASSAPSS: "RSASSA_PSS",
	SignatureRSAESOAEP: "RSAAES_OAEP",
	SignatureDSA:       "DSA",
	SignatureECDSA:     "ECDSA",
	SignatureEd25519:   "ED25519",
}

func (k SignatureKind) String() string {
	if name, ok := signatureKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SignatureKind(%d)", int(k))
}

func (k SignatureKind) hashed() bool {
	return k == SignatureRSASSAPSS || k == SignatureRSAESOAEP
}

// SignatureAlgorithm is a signature family and, for RSASSA-PSS and
// RSAES-OAEP, the name of the hash parameter.
type SignatureAlgorithm struct {
	Kind SignatureKind
	Hash string
}

func (s SignatureAlgorithm) String() string {
	if s.Kind.hashed() {
		return fmt.Sprintf("%s-%s", s.Kind, strings.ToUpper(s.Hash))
	}
	return s.Kind.String()
}

// ParseSignatureAlgorithm reads the display form, e.g. "ECDSA" or "RSASSA_PSS-SHA256".
func ParseSignatureAlgorithm(s string) (SignatureAlgorithm, error) {
	family, hash, hasHash := strings.Cut(strings.TrimSpace(s), "-")
	for kind, name := range signatureKindNames {
		if !strings.EqualFold(family, name) {
			continue
		}
		if kind.hashed() != hasHash || (hasHash && hash == "") {
			break
		}
		return SignatureAlgorithm{Kind: kind, Hash: strings.ToUpper(hash)}, nil
	}
	return SignatureAlgorithm{}, fmt.Errorf("%w: %q", ErrInvalidSignatureAlgorithm, s)
}

// Config holds the expected attribute values for one verification run.
// A nil field disables the corresponding rule. SubjectAltNames pointing at
// an empty slice expects the certificate to carry no DNS names at all.
type Config struct {
	PubkeyAlgorithm    *string
	PubkeySize         *int
	Serial             *string
	SignatureAlgorithm *SignatureAlgorithm
	SubjectCN          *string
	SubjectAltNames    *[]string
	SubjectO           *string
	SubjectOU          *string
	IssuerCN           *string
	IssuerO            *string
	IssuerOU           *string
	IssuerST           *string
	IssuerC            *string
	NotAfter           *check.Levels[time.Duration]
	MaxValidity        *time.Duration
}

// Expect returns a pointer to v, for filling Config literals.
func Expect[T any](v T) *T {
	return &v
}

// Empty reports whether no rule is enabled.
func (c Config) Empty() bool {
	return c == Config{}
}

func (c Config) Validate() error {
	if c.NotAfter != nil {
		if c.NotAfter.Direction != check.LowerIsBad {
			return fmt.Errorf("not_after levels must be lower bounds")
		}
		if err := c.NotAfter.Validate(); err != nil {
			return fmt.Errorf("not_after: %w", err)
		}
	}
	if c.MaxValidity != nil && *c.MaxValidity < 0 {
		return fmt.Errorf("max_validity must not be negative")
	}
	if c.PubkeySize != nil && *c.PubkeySize <= 0 {
		return fmt.Errorf("pubkey_size must be positive")
	}
	return nil
}
