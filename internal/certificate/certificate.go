// Package certificate verifies a decoded X.509 certificate against a set of
// expected attribute values. Every configured rule yields one leveled result;
// unconfigured rules yield nothing.
package certificate

import (
	"encoding/asn1"
	"fmt"
	"time"

	"github.com/whiskeyjimbo/CertMate/internal/check"
)

const ParseFailure = "Failed to parse certificate"

// evaluator runs one rule. It returns nil when the rule is not configured.
type evaluator func(c *Certificate, cfg Config, now time.Time) *check.Result

func subjectMatch(label string, oid asn1.ObjectIdentifier, expected func(Config) *string) evaluator {
	return attributeMatch(label, CaseSensitive, expected, func(c *Certificate) string {
		return c.SubjectAttribute(oid)
	})
}

func issuerMatch(label string, oid asn1.ObjectIdentifier, expected func(Config) *string) evaluator {
	return attributeMatch(label, CaseSensitive, expected, func(c *Certificate) string {
		return c.IssuerAttribute(oid)
	})
}

func attributeMatch(label string, cs Case, expected func(Config) *string, actual func(*Certificate) string) evaluator {
	return func(c *Certificate, cfg Config, _ time.Time) *check.Result {
		want := expected(cfg)
		if want == nil {
			return nil
		}
		return checkEqual(label, actual(c), *want, cs)
	}
}

// evaluators is the fixed report order.
var evaluators = []evaluator{
	func(c *Certificate, cfg Config, _ time.Time) *check.Result {
		if cfg.SubjectCN == nil {
			return nil
		}
		return checkSubjectCN(c.SubjectAttribute(OIDCommonName), cfg.SubjectCN)
	},
	func(c *Certificate, cfg Config, _ time.Time) *check.Result {
		if cfg.SubjectAltNames == nil {
			return nil
		}
		sans, err := c.SubjectAltNames()
		return checkSubjectAltNames(sans, err, cfg.SubjectAltNames)
	},
	subjectMatch("Subject O", OIDOrganization, func(cfg Config) *string { return cfg.SubjectO }),
	subjectMatch("Subject OU", OIDOrganizationalUnit, func(cfg Config) *string { return cfg.SubjectOU }),
	func(c *Certificate, cfg Config, _ time.Time) *check.Result {
		if cfg.Serial == nil {
			return nil
		}
		return checkSerial(c.Serial(), cfg.Serial)
	},
	issuerMatch("Issuer CN", OIDCommonName, func(cfg Config) *string { return cfg.IssuerCN }),
	issuerMatch("Issuer O", OIDOrganization, func(cfg Config) *string { return cfg.IssuerO }),
	issuerMatch("Issuer OU", OIDOrganizationalUnit, func(cfg Config) *string { return cfg.IssuerOU }),
	issuerMatch("Issuer ST", OIDStateOrProvince, func(cfg Config) *string { return cfg.IssuerST }),
	issuerMatch("Issuer C", OIDCountry, func(cfg Config) *string { return cfg.IssuerC }),
	func(c *Certificate, cfg Config, _ time.Time) *check.Result {
		if cfg.SignatureAlgorithm == nil {
			return nil
		}
		sig, err := c.SignatureAlgorithm()
		return checkSignatureAlgorithm(sig, err, cfg.SignatureAlgorithm)
	},
	func(c *Certificate, cfg Config, _ time.Time) *check.Result {
		if cfg.PubkeyAlgorithm == nil {
			return nil
		}
		pk, err := c.PublicKey()
		return checkPubkeyAlgorithm(pk, err, cfg.PubkeyAlgorithm)
	},
	func(c *Certificate, cfg Config, _ time.Time) *check.Result {
		if cfg.PubkeySize == nil {
			return nil
		}
		pk, err := c.PublicKey()
		return checkPubkeySize(pk, err, cfg.PubkeySize)
	},
	func(c *Certificate, cfg Config, now time.Time) *check.Result {
		return checkValidityNotAfter(c.NotAfter(), now, cfg.NotAfter)
	},
	func(c *Certificate, cfg Config, _ time.Time) *check.Result {
		return checkMaxValidity(c.NotBefore(), c.NotAfter(), cfg.MaxValidity)
	},
}

// Check verifies der against cfg at the current time.
func Check(der []byte, cfg Config) check.Collection {
	return CheckAt(der, cfg, time.Now())
}

// CheckAt verifies der against cfg as of now. Input that does not decode
// produces a single CRIT result and no rule runs.
func CheckAt(der []byte, cfg Config, now time.Time) check.Collection {
	cert, err := Parse(der)
	if err != nil {
		return check.Abort(ParseFailure)
	}
	return Verify(cert, cfg, now)
}

// FetchFailure is the report for a certificate that could not be retrieved.
func FetchFailure(err error) check.Collection {
	return check.Abort(fmt.Sprintf("Failed to fetch certificate: %v", err))
}

// Verify runs every configured rule against an already decoded certificate.
func Verify(cert *Certificate, cfg Config, now time.Time) check.Collection {
	var report check.Collection
	for _, evaluate := range evaluators {
		report.Add(evaluate(cert, cfg, now))
	}
	return report
}
