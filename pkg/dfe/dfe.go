// Package dfe expone la firma XML-DSig (enveloped, RSA-SHA1) de documentos fiscales
// electrónicos y la lectura de identidad de certificados ICP-Brasil.
//
//	signed, err := dfe.SignXML(xml, certPEM, keyPEM, "", "NFe", "infNFe")
//	id, err := dfe.CertificateInformation(certPEM)
package dfe

import (
	"github.com/jhoicas/signer-dfe/internal/domain"
	"github.com/jhoicas/signer-dfe/internal/domain/entity"
	"github.com/jhoicas/signer-dfe/internal/infrastructure/certinfo"
	"github.com/jhoicas/signer-dfe/internal/infrastructure/xmldsig"
)

// Errores devueltos; comparar con errors.Is.
var (
	ErrParse           = domain.ErrParse
	ErrCertificate     = domain.ErrCertificate
	ErrKey             = domain.ErrKey
	ErrElementNotFound = domain.ErrElementNotFound
	ErrSigning         = domain.ErrSigning
	ErrExtensionDecode = domain.ErrExtensionDecode
)

// CertificateIdentity vencimiento, CNPJ y datos de emisión de un certificado.
type CertificateIdentity = entity.CertificateIdentity

// SignXML firma el primer elemento que coincide con targetSelector y embebe el
// Signature en el elemento raíz. Devuelve el documento sin declaración XML.
func SignXML(documentXML, certificatePEM, privateKeyPEM []byte, passphrase, rootSelector, targetSelector string) (string, error) {
	b, err := xmldsig.NewBuilder(documentXML, certificatePEM, privateKeyPEM, passphrase, rootSelector, targetSelector)
	if err != nil {
		return "", err
	}
	if err := b.Sign(); err != nil {
		return "", err
	}
	return b.Serialize()
}

// CertificateInformation lee el vencimiento y el CNPJ (OID 2.16.76.1.3.3) del certificado.
func CertificateInformation(certificatePEM []byte) (*CertificateIdentity, error) {
	ex, err := certinfo.NewExtractor(certificatePEM)
	if err != nil {
		return nil, err
	}
	return ex.Extract()
}

// Signer firma documentos con credenciales cargadas una sola vez.
type Signer interface {
	// Sign devuelve el XML con ds:Signature embebido bajo el elemento raíz.
	Sign(documentXML []byte, rootSelector, targetSelector string) (string, error)
	// Identity describe el certificado del firmante.
	Identity() (*CertificateIdentity, error)
}

type credentialSigner struct {
	creds *xmldsig.Credentials
}

// NewSigner carga certificado y llave PEM (la llave puede venir cifrada).
func NewSigner(certificatePEM, privateKeyPEM []byte, passphrase string) (Signer, error) {
	creds, err := xmldsig.LoadPEM(certificatePEM, privateKeyPEM, passphrase)
	if err != nil {
		return nil, err
	}
	return &credentialSigner{creds: creds}, nil
}

// NewSignerFromP12 carga un contenedor PKCS#12 (.pfx) como los emitidos por las AC ICP-Brasil.
func NewSignerFromP12(data []byte, password string) (Signer, error) {
	creds, err := xmldsig.LoadP12(data, password)
	if err != nil {
		return nil, err
	}
	return &credentialSigner{creds: creds}, nil
}

func (s *credentialSigner) Sign(documentXML []byte, rootSelector, targetSelector string) (string, error) {
	b, err := xmldsig.NewBuilderFromCredentials(documentXML, s.creds, rootSelector, targetSelector)
	if err != nil {
		return "", err
	}
	if err := b.Sign(); err != nil {
		return "", err
	}
	return b.Serialize()
}

func (s *credentialSigner) Identity() (*CertificateIdentity, error) {
	ex, err := certinfo.NewExtractorFromCertificate(s.creds.Certificate)
	if err != nil {
		return nil, err
	}
	return ex.Extract()
}
