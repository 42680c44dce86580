package certificate

import (
	"encoding/asn1"
	"strings"
)

// Name attribute OIDs.
var (
	OIDCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
	OIDCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	OIDStateOrProvince    = asn1.ObjectIdentifier{2, 5, 4, 8}
	OIDOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	OIDOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
)

// Subject Alternative Name extension
var OIDExtSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}

// Signature algorithm OIDs.
var (
	OIDSignatureMD2WithRSA      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 2}
	OIDSignatureMD4WithRSA      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 3}
	OIDSignatureMD5WithRSA      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 4}
	OIDSignatureSHA1WithRSA     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	OIDSignatureSHA224WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 14}
	OIDSignatureSHA256WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	OIDSignatureSHA384WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	OIDSignatureSHA512WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}
	OIDSignatureRSASSAPSS       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}
	OIDSignatureRSAESOAEP       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 7}
	OIDSignatureDSAWithSHA1     = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 3}
	OIDSignatureDSAWithSHA224   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 1}
	OIDSignatureDSAWithSHA256   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 2}
	OIDSignatureECDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	OIDSignatureECDSAWithSHA224 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 1}
	OIDSignatureECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	OIDSignatureECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	OIDSignatureECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
	OIDSignatureEd25519         = asn1.ObjectIdentifier{1, 3, 101, 112}
)

// Public key algorithm OIDs.
var (
	OIDPublicKeyRSA           = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	OIDPublicKeyEC            = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	OIDPublicKeyDSA           = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 1}
	OIDPublicKeyGostR3410     = asn1.ObjectIdentifier{1, 2, 643, 2, 2, 19}
	OIDPublicKeyGostR3410_256 = asn1.ObjectIdentifier{1, 2, 643, 7, 1, 1, 1, 1}
	OIDPublicKeyGostR3410_512 = asn1.ObjectIdentifier{1, 2, 643, 7, 1, 1, 1, 2}
)

// Hash algorithm OIDs, as found in RSASSA-PSS and RSAES-OAEP parameters.
var (
	OIDHashMD2       = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 2}
	OIDHashMD5       = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 5}
	OIDHashSHA1      = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	OIDHashSHA256    = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	OIDHashSHA384    = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	OIDHashSHA512    = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
	OIDHashSHA224    = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 4}
	OIDHashSHA512224 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 5}
	OIDHashSHA512256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 6}
	OIDHashSHA3224   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 7}
	OIDHashSHA3256   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 8}
	OIDHashSHA3384   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 9}
	OIDHashSHA3512   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 10}
)

// OIDNames maps an OID to its short name.
type OIDNames map[string]string

func (n OIDNames) Register(oid asn1.ObjectIdentifier, name string) {
	n[oid.String()] = name
}

// Name returns the registered short name of oid, or its dotted form.
func (n OIDNames) Name(oid asn1.ObjectIdentifier) string {
	if name, ok := n[oid.String()]; ok {
		return name
	}
	return oid.String()
}

// HashNames is consulted when naming the hash of RSASSA-PSS and RSAES-OAEP signatures.
var HashNames = OIDNames{
	OIDHashMD2.String():       "md2",
	OIDHashMD5.String():       "md5",
	OIDHashSHA1.String():      "sha1",
	OIDHashSHA224.String():    "sha224",
	OIDHashSHA256.String():    "sha256",
	OIDHashSHA384.String():    "sha384",
	OIDHashSHA512.String():    "sha512",
	OIDHashSHA512224.String(): "sha512-224",
	OIDHashSHA512256.String(): "sha512-256",
	OIDHashSHA3224.String():   "sha3-224",
	OIDHashSHA3256.String():   "sha3-256",
	OIDHashSHA3384.String():   "sha3-384",
	OIDHashSHA3512.String():   "sha3-512",
}

const unknownPublicKeyAlgorithm = "Unknown"

// PublicKeyAlgorithmNames maps SPKI algorithm OIDs to the family names used in expectations.
var PublicKeyAlgorithmNames = OIDNames{
	OIDPublicKeyRSA.String():           "RSA",
	OIDPublicKeyEC.String():            "EC",
	OIDPublicKeyDSA.String():           "DSA",
	OIDPublicKeyGostR3410.String():     "GostR3410",
	OIDPublicKeyGostR3410_256.String(): "GostR3410_2012",
	OIDPublicKeyGostR3410_512.String(): "GostR3410_2012",
}

func publicKeyAlgorithmName(oid asn1.ObjectIdentifier) string {
	if name, ok := PublicKeyAlgorithmNames[oid.String()]; ok {
		return name
	}
	return unknownPublicKeyAlgorithm
}

var signatureKinds = map[string]SignatureKind{
	OIDSignatureMD2WithRSA.String():      SignatureRSA,
	OIDSignatureMD4WithRSA.String():      SignatureRSA,
	OIDSignatureMD5WithRSA.String():      SignatureRSA,
	OIDSignatureSHA1WithRSA.String():     SignatureRSA,
	OIDSignatureSHA224WithRSA.String():   SignatureRSA,
	OIDSignatureSHA256WithRSA.String():   SignatureRSA,
	OIDSignatureSHA384WithRSA.String():   SignatureRSA,
	OIDSignatureSHA512WithRSA.String():   SignatureRSA,
	OIDPublicKeyRSA.String():             SignatureRSA,
	OIDSignatureRSASSAPSS.String():       SignatureRSASSAPSS,
	OIDSignatureRSAESOAEP.String():       SignatureRSAESOAEP,
	OIDSignatureDSAWithSHA1.String():     SignatureDSA,
	OIDSignatureDSAWithSHA224.String():   SignatureDSA,
	OIDSignatureDSAWithSHA256.String():   SignatureDSA,
	OIDSignatureECDSAWithSHA1.String():   SignatureECDSA,
	OIDSignatureECDSAWithSHA224.String(): SignatureECDSA,
	OIDSignatureECDSAWithSHA256.String(): SignatureECDSA,
	OIDSignatureECDSAWithSHA384.String(): SignatureECDSA,
	OIDSignatureECDSAWithSHA512.String(): SignatureECDSA,
	OIDSignatureEd25519.String():         SignatureEd25519,
}

func hashDisplayName(oid asn1.ObjectIdentifier) string {
	return strings.ToUpper(HashNames.Name(oid))
}
