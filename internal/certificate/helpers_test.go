package certificate

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	rsaKeyOnce sync.Once
	rsaKey     *rsa.PrivateKey
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	rsaKeyOnce.Do(func() {
		var err error
		rsaKey, err = rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
	})
	return rsaKey
}

type certOptions struct {
	subject     pkix.Name
	issuer      *pkix.Name
	dnsNames    []string
	ipAddresses []net.IP
	serial      *big.Int
	notBefore   time.Time
	notAfter    time.Time
	key         crypto.Signer
	sigAlg      x509.SignatureAlgorithm
}

type certOption func(*certOptions)

func withSubject(name pkix.Name) certOption {
	return func(o *certOptions) { o.subject = name }
}

func withIssuer(name pkix.Name) certOption {
	return func(o *certOptions) { o.issuer = &name }
}

func withDNSNames(names ...string) certOption {
	return func(o *certOptions) { o.dnsNames = names }
}

func withIPAddresses(ips ...net.IP) certOption {
	return func(o *certOptions) { o.ipAddresses = ips }
}

func withSerial(serial int64) certOption {
	return func(o *certOptions) { o.serial = big.NewInt(serial) }
}

func withValidity(notBefore, notAfter time.Time) certOption {
	return func(o *certOptions) {
		o.notBefore = notBefore
		o.notAfter = notAfter
	}
}

func withKey(key crypto.Signer, sigAlg x509.SignatureAlgorithm) certOption {
	return func(o *certOptions) {
		o.key = key
		o.sigAlg = sigAlg
	}
}

func withRSA(t *testing.T, sigAlg x509.SignatureAlgorithm) certOption {
	return withKey(testRSAKey(t), sigAlg)
}

func withEd25519(t *testing.T) certOption {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return withKey(key, x509.PureEd25519)
}

// newTestCertificate returns the DER of a certificate signed by its own key.
func newTestCertificate(t *testing.T, opts ...certOption) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	o := certOptions{
		subject:   pkix.Name{CommonName: "example.com"},
		serial:    big.NewInt(0x1a2b3c),
		notBefore: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		notAfter:  time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		key:       key,
		sigAlg:    x509.ECDSAWithSHA256,
	}
	for _, opt := range opts {
		opt(&o)
	}

	template := &x509.Certificate{
		SerialNumber:       o.serial,
		Subject:            o.subject,
		NotBefore:          o.notBefore,
		NotAfter:           o.notAfter,
		DNSNames:           o.dnsNames,
		IPAddresses:        o.ipAddresses,
		SignatureAlgorithm: o.sigAlg,
	}
	parent := template
	if o.issuer != nil {
		parent = &x509.Certificate{Subject: *o.issuer}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, o.key.Public(), o.key)
	require.NoError(t, err)
	return der
}

func parseTestCertificate(t *testing.T, opts ...certOption) *Certificate {
	t.Helper()
	cert, err := Parse(newTestCertificate(t, opts...))
	require.NoError(t, err)
	return cert
}

var (
	oidP384DER      = []byte{0x06, 0x05, 0x2b, 0x81, 0x04, 0x00, 0x22}
	oidSecp256k1DER = []byte{0x06, 0x05, 0x2b, 0x81, 0x04, 0x00, 0x0a}
)

// newSecp256k1Certificate returns a P-384 certificate whose key curve is
// relabelled as secp256k1, which crypto/x509 cannot load.
func newSecp256k1Certificate(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	der := newTestCertificate(t, withKey(key, x509.ECDSAWithSHA384))
	require.Equal(t, 1, bytes.Count(der, oidP384DER))
	return bytes.Replace(der, oidP384DER, oidSecp256k1DER, 1)
}

type rawAttribute struct {
	oid   asn1.ObjectIdentifier
	tag   cbasn1.Tag
	value []byte
}

func rawName(attrs ...rawAttribute) []byte {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for _, a := range attrs {
			b.AddASN1(cbasn1.SET, func(b *cryptobyte.Builder) {
				b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1ObjectIdentifier(a.oid)
					b.AddASN1(a.tag, func(b *cryptobyte.Builder) { b.AddBytes(a.value) })
				})
			})
		}
	})
	return b.BytesOrPanic()
}

func rawExtension(oid asn1.ObjectIdentifier, value []byte) []byte {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oid)
		b.AddASN1OctetString(value)
	})
	return b.BytesOrPanic()
}

// rawCertificate assembles certificate DER field by field so tests can place
// content crypto/x509 refuses to emit. The signature is empty.
type rawCertificate struct {
	serial     []byte
	subject    []byte
	spki       []byte
	extensions [][]byte
}

func (rc rawCertificate) der() []byte {
	if rc.serial == nil {
		rc.serial = []byte{0x01}
	}
	if rc.subject == nil {
		rc.subject = rawName(rawAttribute{oid: OIDCommonName, tag: cbasn1.UTF8String, value: []byte("example.com")})
	}
	if rc.spki == nil {
		rc.spki = spki(OIDPublicKeyEC, append([]byte{0x04}, make([]byte, 64)...))
	}
	issuer := rawName(rawAttribute{oid: OIDCommonName, tag: cbasn1.PrintableString, value: []byte("Test CA")})

	sigAlg := func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(OIDSignatureECDSAWithSHA256)
		})
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1(cbasn1.Tag(0).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
				b.AddASN1Int64(2)
			})
			b.AddASN1(cbasn1.INTEGER, func(b *cryptobyte.Builder) { b.AddBytes(rc.serial) })
			sigAlg(b)
			b.AddBytes(issuer)
			b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1UTCTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
				b.AddASN1UTCTime(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
			})
			b.AddBytes(rc.subject)
			b.AddBytes(rc.spki)
			if len(rc.extensions) > 0 {
				b.AddASN1(cbasn1.Tag(3).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
					b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
						for _, ext := range rc.extensions {
							b.AddBytes(ext)
						}
					})
				})
			}
		})
		sigAlg(b)
		b.AddASN1BitString(nil)
	})
	return b.BytesOrPanic()
}
