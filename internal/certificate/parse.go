package certificate

import (
	"encoding/asn1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	ErrMalformedCertificate = errors.New("malformed certificate")
	ErrMalformedAlgorithm   = errors.New("malformed algorithm identifier")
	ErrUnknownSignature     = errors.New("unknown signature algorithm")
	ErrMalformedPublicKey   = errors.New("malformed public key")
	ErrMalformedSAN         = errors.New("malformed subject alternative name extension")
)

var (
	tagExplicit0  = cbasn1.Tag(0).Constructed().ContextSpecific()
	tagIssuerUID  = cbasn1.Tag(1).ContextSpecific()
	tagSubjectUID = cbasn1.Tag(2).ContextSpecific()
	tagExtensions = cbasn1.Tag(3).Constructed().ContextSpecific()
	tagDNSName    = cbasn1.Tag(2).ContextSpecific()

	tagNumericString   = cbasn1.Tag(18)
	tagVisibleString   = cbasn1.Tag(26)
	tagUniversalString = cbasn1.Tag(28)
	tagBMPString       = cbasn1.Tag(30)
)

// Certificate is a read-only view over a DER X.509 certificate exposing the
// attributes the verifier compares. Only the Certificate and TBSCertificate
// framing must decode; extension contents and the key are read on demand so a
// broken one fails only the rule that looks at it.
type Certificate struct {
	raw        []byte
	serial     []byte
	issuer     []attribute
	subject    []attribute
	notBefore  time.Time
	notAfter   time.Time
	spki       []byte
	extensions []extension
}

type attribute struct {
	oid   asn1.ObjectIdentifier
	value string
}

type extension struct {
	oid   asn1.ObjectIdentifier
	value []byte
}

// Parse decodes a DER certificate. Trailing bytes after the certificate are ignored.
func Parse(der []byte) (*Certificate, error) {
	input := cryptobyte.String(der)
	var raw, body, tbs cryptobyte.String
	if !input.ReadASN1Element(&raw, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: not a DER sequence", ErrMalformedCertificate)
	}
	outer := raw
	if !outer.ReadASN1(&body, cbasn1.SEQUENCE) ||
		!body.ReadASN1(&tbs, cbasn1.SEQUENCE) ||
		!body.SkipASN1(cbasn1.SEQUENCE) ||
		!body.SkipASN1(cbasn1.BIT_STRING) {
		return nil, fmt.Errorf("%w: invalid certificate framing", ErrMalformedCertificate)
	}

	c := &Certificate{raw: raw}
	var serial, issuer, validity, subject, spki cryptobyte.String
	if !tbs.SkipOptionalASN1(tagExplicit0) ||
		!tbs.ReadASN1(&serial, cbasn1.INTEGER) ||
		!tbs.SkipASN1(cbasn1.SEQUENCE) ||
		!tbs.ReadASN1(&issuer, cbasn1.SEQUENCE) ||
		!tbs.ReadASN1(&validity, cbasn1.SEQUENCE) ||
		!tbs.ReadASN1(&subject, cbasn1.SEQUENCE) ||
		!tbs.ReadASN1Element(&spki, cbasn1.SEQUENCE) ||
		!tbs.SkipOptionalASN1(tagIssuerUID) ||
		!tbs.SkipOptionalASN1(tagSubjectUID) {
		return nil, fmt.Errorf("%w: invalid tbs certificate", ErrMalformedCertificate)
	}
	c.serial = serial
	c.spki = spki

	var err error
	if c.issuer, err = parseName(issuer); err != nil {
		return nil, fmt.Errorf("%w: issuer: %v", ErrMalformedCertificate, err)
	}
	if c.subject, err = parseName(subject); err != nil {
		return nil, fmt.Errorf("%w: subject: %v", ErrMalformedCertificate, err)
	}
	if !readTime(&validity, &c.notBefore) || !readTime(&validity, &c.notAfter) {
		return nil, fmt.Errorf("%w: invalid validity", ErrMalformedCertificate)
	}
	if c.extensions, err = parseExtensions(tbs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCertificate, err)
	}
	return c, nil
}

func readTime(s *cryptobyte.String, out *time.Time) bool {
	switch {
	case s.PeekASN1Tag(cbasn1.UTCTime):
		return s.ReadASN1UTCTime(out)
	case s.PeekASN1Tag(cbasn1.GeneralizedTime):
		return s.ReadASN1GeneralizedTime(out)
	default:
		return false
	}
}

// parseName flattens an RDNSequence in encoding order.
func parseName(rdns cryptobyte.String) ([]attribute, error) {
	var attrs []attribute
	for !rdns.Empty() {
		var set cryptobyte.String
		if !rdns.ReadASN1(&set, cbasn1.SET) {
			return nil, errors.New("invalid relative distinguished name")
		}
		for !set.Empty() {
			var atv, value cryptobyte.String
			var a attribute
			var tag cbasn1.Tag
			if !set.ReadASN1(&atv, cbasn1.SEQUENCE) ||
				!atv.ReadASN1ObjectIdentifier(&a.oid) ||
				!atv.ReadAnyASN1(&value, &tag) {
				return nil, errors.New("invalid attribute")
			}
			a.value = attributeString(tag, value)
			attrs = append(attrs, a)
		}
	}
	return attrs, nil
}

// attributeString renders a directory string. Content is taken as is, so
// invalid UTF-8 degrades the value instead of the certificate.
func attributeString(tag cbasn1.Tag, value []byte) string {
	switch tag {
	case cbasn1.UTF8String, cbasn1.PrintableString, cbasn1.T61String, cbasn1.IA5String, tagVisibleString, tagNumericString:
		return string(value)
	case tagBMPString:
		if len(value)%2 != 0 {
			return ""
		}
		units := make([]uint16, len(value)/2)
		for i := range units {
			units[i] = uint16(value[2*i])<<8 | uint16(value[2*i+1])
		}
		return string(utf16.Decode(units))
	case tagUniversalString:
		if len(value)%4 != 0 {
			return ""
		}
		runes := make([]rune, len(value)/4)
		for i := range runes {
			runes[i] = rune(value[4*i])<<24 | rune(value[4*i+1])<<16 | rune(value[4*i+2])<<8 | rune(value[4*i+3])
		}
		return string(runes)
	default:
		return ""
	}
}

func parseExtensions(tbs cryptobyte.String) ([]extension, error) {
	var outer, exts cryptobyte.String
	var present bool
	if !tbs.ReadOptionalASN1(&outer, &present, tagExtensions) {
		return nil, errors.New("invalid extensions")
	}
	if !present {
		return nil, nil
	}
	if !outer.ReadASN1(&exts, cbasn1.SEQUENCE) {
		return nil, errors.New("invalid extensions")
	}

	var out []extension
	for !exts.Empty() {
		var ext, value cryptobyte.String
		var e extension
		if !exts.ReadASN1(&ext, cbasn1.SEQUENCE) ||
			!ext.ReadASN1ObjectIdentifier(&e.oid) {
			return nil, errors.New("invalid extension")
		}
		if ext.PeekASN1Tag(cbasn1.BOOLEAN) && !ext.SkipASN1(cbasn1.BOOLEAN) {
			return nil, errors.New("invalid extension")
		}
		if !ext.ReadASN1(&value, cbasn1.OCTET_STRING) {
			return nil, errors.New("invalid extension")
		}
		e.value = value
		out = append(out, e)
	}
	return out, nil
}

func (c *Certificate) NotBefore() time.Time {
	return c.notBefore
}

func (c *Certificate) NotAfter() time.Time {
	return c.notAfter
}

// SubjectAttribute returns the first subject attribute of type oid, or "".
func (c *Certificate) SubjectAttribute(oid asn1.ObjectIdentifier) string {
	return firstAttribute(c.subject, oid)
}

// IssuerAttribute returns the first issuer attribute of type oid, or "".
func (c *Certificate) IssuerAttribute(oid asn1.ObjectIdentifier) string {
	return firstAttribute(c.issuer, oid)
}

func firstAttribute(attrs []attribute, oid asn1.ObjectIdentifier) string {
	for _, a := range attrs {
		if a.oid.Equal(oid) {
			return a.value
		}
	}
	return ""
}

// Serial renders the raw serial number octets as lower-case colon separated hex.
// A leading zero octet of the DER INTEGER is kept.
func (c *Certificate) Serial() string {
	return FormatSerial(c.serial)
}

func FormatSerial(raw []byte) string {
	parts := make([]string, len(raw))
	for i, b := range raw {
		parts[i] = hex.EncodeToString([]byte{b})
	}
	return strings.Join(parts, ":")
}

type AlgorithmIdentifier struct {
	Algorithm asn1.ObjectIdentifier
	// Parameters is the complete DER element of the parameters, nil when absent.
	Parameters []byte
}

// SignatureAlgorithmIdentifier reads the outer signatureAlgorithm field.
func (c *Certificate) SignatureAlgorithmIdentifier() (AlgorithmIdentifier, error) {
	input := cryptobyte.String(c.raw)
	var body, algorithm cryptobyte.String
	if !input.ReadASN1(&body, cbasn1.SEQUENCE) ||
		!body.SkipASN1(cbasn1.SEQUENCE) ||
		!body.ReadASN1(&algorithm, cbasn1.SEQUENCE) {
		return AlgorithmIdentifier{}, ErrMalformedAlgorithm
	}
	return parseAlgorithmIdentifier(algorithm)
}

func parseAlgorithmIdentifier(der cryptobyte.String) (AlgorithmIdentifier, error) {
	var ai AlgorithmIdentifier
	if !der.ReadASN1ObjectIdentifier(&ai.Algorithm) {
		return AlgorithmIdentifier{}, ErrMalformedAlgorithm
	}
	if der.Empty() {
		return ai, nil
	}
	var params cryptobyte.String
	var tag cbasn1.Tag
	if !der.ReadAnyASN1Element(&params, &tag) || !der.Empty() {
		return AlgorithmIdentifier{}, ErrMalformedAlgorithm
	}
	ai.Parameters = params
	return ai, nil
}

// SignatureAlgorithm classifies the signature algorithm of the certificate.
func (c *Certificate) SignatureAlgorithm() (SignatureAlgorithm, error) {
	ai, err := c.SignatureAlgorithmIdentifier()
	if err != nil {
		return SignatureAlgorithm{}, err
	}
	return ClassifySignatureAlgorithm(ai)
}

// ClassifySignatureAlgorithm maps an AlgorithmIdentifier onto its display family.
func ClassifySignatureAlgorithm(ai AlgorithmIdentifier) (SignatureAlgorithm, error) {
	kind, ok := signatureKinds[ai.Algorithm.String()]
	if !ok {
		return SignatureAlgorithm{}, fmt.Errorf("%w: %s", ErrUnknownSignature, ai.Algorithm)
	}

	switch kind {
	case SignatureRSASSAPSS, SignatureRSAESOAEP:
		hash, err := hashAlgorithmParameter(ai.Parameters)
		if err != nil {
			return SignatureAlgorithm{}, err
		}
		return SignatureAlgorithm{Kind: kind, Hash: hashDisplayName(hash)}, nil
	default:
		return SignatureAlgorithm{Kind: kind}, nil
	}
}

// hashAlgorithmParameter reads the [0] hash algorithm both RSASSA-PSS-params and
// RSAES-OAEP-params start with. Absent parameters or field mean SHA-1.
func hashAlgorithmParameter(params []byte) (asn1.ObjectIdentifier, error) {
	if len(params) == 0 {
		return OIDHashSHA1, nil
	}

	input := cryptobyte.String(params)
	var seq, explicit, hashAlgorithm cryptobyte.String
	var present bool
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) ||
		!seq.ReadOptionalASN1(&explicit, &present, tagExplicit0) {
		return nil, ErrMalformedAlgorithm
	}
	if !present {
		return OIDHashSHA1, nil
	}
	if !explicit.ReadASN1(&hashAlgorithm, cbasn1.SEQUENCE) {
		return nil, ErrMalformedAlgorithm
	}
	ai, err := parseAlgorithmIdentifier(hashAlgorithm)
	if err != nil {
		return nil, err
	}
	return ai.Algorithm, nil
}

type PublicKey struct {
	Algorithm string
	Size      int
}

// PublicKey decodes the subject public key info.
func (c *Certificate) PublicKey() (PublicKey, error) {
	return ParsePublicKeyInfo(c.spki)
}

func ParsePublicKeyInfo(spki []byte) (PublicKey, error) {
	input := cryptobyte.String(spki)
	var body, algorithm cryptobyte.String
	var key asn1.BitString
	if !input.ReadASN1(&body, cbasn1.SEQUENCE) ||
		!body.ReadASN1(&algorithm, cbasn1.SEQUENCE) ||
		!body.ReadASN1BitString(&key) {
		return PublicKey{}, ErrMalformedPublicKey
	}
	ai, err := parseAlgorithmIdentifier(algorithm)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrMalformedPublicKey, err)
	}

	pk := PublicKey{Algorithm: publicKeyAlgorithmName(ai.Algorithm)}
	switch {
	case ai.Algorithm.Equal(OIDPublicKeyRSA):
		pk.Size, err = rsaKeySize(key.Bytes)
	case ai.Algorithm.Equal(OIDPublicKeyEC):
		pk.Size = ecKeySize(key.Bytes)
	default:
		pk.Size = 8 * len(key.Bytes)
	}
	if err != nil {
		return PublicKey{}, err
	}
	return pk, nil
}

// rsaKeySize is the modulus length in bits with leading zero octets stripped.
func rsaKeySize(der []byte) (int, error) {
	input := cryptobyte.String(der)
	var seq, modulus cryptobyte.String
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) ||
		!seq.ReadASN1(&modulus, cbasn1.INTEGER) ||
		!seq.SkipASN1(cbasn1.INTEGER) {
		return 0, fmt.Errorf("%w: invalid RSA public key", ErrMalformedPublicKey)
	}
	for len(modulus) > 0 && modulus[0] == 0 {
		modulus = modulus[1:]
	}
	return 8 * len(modulus), nil
}

// ecKeySize derives the field size from the encoded point.
func ecKeySize(point []byte) int {
	if len(point) == 0 {
		return 0
	}
	switch point[0] {
	case 0x04:
		return (len(point) - 1) * 8 / 2
	case 0x02, 0x03:
		return (len(point) - 1) * 8
	default:
		return 0
	}
}

type SubjectAltNames struct {
	DNSNames []string
}

// SubjectAltNames decodes the first SAN extension. It returns nil, nil when
// the certificate carries no such extension. Only dNSName entries are kept.
func (c *Certificate) SubjectAltNames() (*SubjectAltNames, error) {
	for _, ext := range c.extensions {
		if ext.oid.Equal(OIDExtSubjectAltName) {
			return ParseSubjectAltNames(ext.value)
		}
	}
	return nil, nil
}

func ParseSubjectAltNames(value []byte) (*SubjectAltNames, error) {
	input := cryptobyte.String(value)
	var names cryptobyte.String
	if !input.ReadASN1(&names, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, ErrMalformedSAN
	}

	sans := &SubjectAltNames{}
	for !names.Empty() {
		var name cryptobyte.String
		var tag cbasn1.Tag
		if !names.ReadAnyASN1(&name, &tag) {
			return nil, ErrMalformedSAN
		}
		if tag == tagDNSName {
			sans.DNSNames = append(sans.DNSNames, string(name))
		}
	}
	return sans, nil
}
