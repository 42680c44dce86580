package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/whiskeyjimbo/CertMate/internal/certificate"
	"github.com/whiskeyjimbo/CertMate/internal/check"
)

const (
	day = 24 * time.Hour

	// maxDays is the largest day count a time.Duration holds.
	maxDays = math.MaxInt64 / int64(day)
)

// Expectations is the YAML form of certificate.Config. Absent keys stay nil.
type Expectations struct {
	PubkeyAlgorithm    *string       `yaml:"pubkey_algorithm,omitempty"`
	PubkeySize         *int          `yaml:"pubkey_size,omitempty"`
	Serial             *string       `yaml:"serial,omitempty"`
	SignatureAlgorithm *string       `yaml:"signature_algorithm,omitempty"`
	SubjectCN          *string       `yaml:"subject_cn,omitempty"`
	SubjectAltNames    *[]string     `yaml:"subject_alt_names,omitempty"`
	SubjectO           *string       `yaml:"subject_o,omitempty"`
	SubjectOU          *string       `yaml:"subject_ou,omitempty"`
	IssuerCN           *string       `yaml:"issuer_cn,omitempty"`
	IssuerO            *string       `yaml:"issuer_o,omitempty"`
	IssuerOU           *string       `yaml:"issuer_ou,omitempty"`
	IssuerST           *string       `yaml:"issuer_st,omitempty"`
	IssuerC            *string       `yaml:"issuer_c,omitempty"`
	NotAfter           *ExpiryLevels `yaml:"not_after,omitempty"`
	MaxValidity        *Duration     `yaml:"max_validity,omitempty"`
}

type ExpiryLevels struct {
	Warn Duration `yaml:"warn"`
	Crit Duration `yaml:"crit"`
}

// Duration accepts Go duration syntax, a day count with a "d" suffix, or a
// bare integer meaning days.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(strings.TrimSuffix(s, "d"), 10, 64); err == nil {
		if n > maxDays || n < -maxDays {
			return 0, fmt.Errorf("duration %q out of range", s)
		}
		return time.Duration(n) * day, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// Certificate resolves the expectations into a validated certificate.Config.
func (e Expectations) Certificate() (certificate.Config, error) {
	cfg := certificate.Config{
		PubkeyAlgorithm: e.PubkeyAlgorithm,
		PubkeySize:      e.PubkeySize,
		Serial:          e.Serial,
		SubjectCN:       e.SubjectCN,
		SubjectAltNames: e.SubjectAltNames,
		SubjectO:        e.SubjectO,
		SubjectOU:       e.SubjectOU,
		IssuerCN:        e.IssuerCN,
		IssuerO:         e.IssuerO,
		IssuerOU:        e.IssuerOU,
		IssuerST:        e.IssuerST,
		IssuerC:         e.IssuerC,
	}

	if e.SignatureAlgorithm != nil {
		sig, err := certificate.ParseSignatureAlgorithm(*e.SignatureAlgorithm)
		if err != nil {
			return certificate.Config{}, err
		}
		cfg.SignatureAlgorithm = &sig
	}
	if e.NotAfter != nil {
		cfg.NotAfter = certificate.Expect(check.LowerLevels(
			time.Duration(e.NotAfter.Warn), time.Duration(e.NotAfter.Crit)))
	}
	if e.MaxValidity != nil {
		cfg.MaxValidity = certificate.Expect(time.Duration(*e.MaxValidity))
	}

	if err := cfg.Validate(); err != nil {
		return certificate.Config{}, err
	}
	return cfg, nil
}
