// Package testutil genera credenciales desechables para los tests: llave RSA, certificado
// autofirmado y subjectAltName al estilo ICP-Brasil.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// CNPJ de prueba embebido por CertificateWithTaxID.
const TestCNPJ = "12345678000195"

// OIDs ICP-Brasil del otherName.
var (
	OIDResponsibleName = asn1.ObjectIdentifier{2, 16, 76, 1, 3, 2}
	OIDCNPJ            = asn1.ObjectIdentifier{2, 16, 76, 1, 3, 3}
	OIDResponsibleData = asn1.ObjectIdentifier{2, 16, 76, 1, 3, 4}

	oidSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}
)

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
	keyErr  error
)

// RSAKey devuelve una llave de 2048 bits compartida por todo el paquete de tests.
func RSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		key, keyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, keyErr, "generar llave RSA de prueba")
	return key
}

// CertOptions personaliza el certificado de prueba.
type CertOptions struct {
	CommonName string
	NotBefore  time.Time
	NotAfter   time.Time
	// SubjectAltName DER completo (GeneralNames); nil = sin extensión.
	SubjectAltName []byte
}

// Certificate emite un certificado autofirmado con la llave compartida.
func Certificate(t testing.TB, opts CertOptions) *x509.Certificate {
	t.Helper()
	if opts.CommonName == "" {
		opts.CommonName = "EMPRESA TESTE LTDA:" + TestCNPJ
	}
	if opts.NotBefore.IsZero() {
		opts.NotBefore = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if opts.NotAfter.IsZero() {
		opts.NotAfter = time.Date(2030, 6, 30, 23, 59, 59, 0, time.UTC)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(0x5EED),
		Subject: pkix.Name{
			CommonName:   opts.CommonName,
			Organization: []string{"ICP-Brasil"},
			Country:      []string{"BR"},
		},
		NotBefore:   opts.NotBefore,
		NotAfter:    opts.NotAfter,
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	if opts.SubjectAltName != nil {
		tmpl.ExtraExtensions = []pkix.Extension{{Id: oidSubjectAltName, Value: opts.SubjectAltName}}
	}
	k := RSAKey(t)
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &k.PublicKey, k)
	require.NoError(t, err, "emitir certificado de prueba")
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

// CertificateWithTaxID emite un certificado con otherName CNPJ en el subjectAltName.
func CertificateWithTaxID(t testing.TB) *x509.Certificate {
	t.Helper()
	return Certificate(t, CertOptions{SubjectAltName: ICPBrasilSAN(t, TestCNPJ)})
}

// ICPBrasilSAN arma GeneralNames con los otherName usuales de un e-CNPJ y un rfc822Name.
// cnpj vacío omite la entrada 2.16.76.1.3.3.
func ICPBrasilSAN(t testing.TB, cnpj string) []byte {
	t.Helper()
	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		addOtherName(b, OIDResponsibleName, "FULANO DE TAL")
		if cnpj != "" {
			addOtherName(b, OIDCNPJ, cnpj)
		}
		addOtherName(b, OIDResponsibleData, "01011980123456789010000000000000000000")
		b.AddASN1(cryptobyte_asn1.Tag(1).ContextSpecific(), func(b *cryptobyte.Builder) {
			b.AddBytes([]byte("contato@empresa.com.br"))
		})
	})
	der, err := b.Bytes()
	require.NoError(t, err, "armar subjectAltName")
	return der
}

func addOtherName(b *cryptobyte.Builder, oid asn1.ObjectIdentifier, value string) {
	b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oid)
		b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
			b.AddASN1OctetString([]byte(value))
		})
	})
}

// CertificatePEM codifica el certificado en PEM.
func CertificatePEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

// KeyPEM codifica la llave compartida en PKCS#1 sin cifrar.
func KeyPEM(t testing.TB) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(RSAKey(t))})
}

// LegacyEncryptedKeyPEM cifra la llave con el formato Proc-Type: 4,ENCRYPTED.
func LegacyEncryptedKeyPEM(t testing.TB, passphrase string) []byte {
	t.Helper()
	//nolint:staticcheck // formato legado que todavía emiten algunas AC
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY",
		x509.MarshalPKCS1PrivateKey(RSAKey(t)), []byte(passphrase), x509.PEMCipherAES256)
	require.NoError(t, err)
	return pem.EncodeToMemory(block)
}

// PKCS8EncryptedKeyPEM cifra la llave como ENCRYPTED PRIVATE KEY (PKCS#8).
func PKCS8EncryptedKeyPEM(t testing.TB, passphrase string) []byte {
	t.Helper()
	der, err := pkcs8.ConvertPrivateKeyToPKCS8(RSAKey(t), []byte(passphrase))
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})
}
