// Identidad del titular a partir del certificado X.509: vigencia y CNPJ embebido en
// el subjectAltName (otherName 2.16.76.1.3.3 de ICP-Brasil).

package certinfo

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"

	"github.com/jhoicas/signer-dfe/internal/domain"
	"github.com/jhoicas/signer-dfe/internal/domain/entity"
	"github.com/jhoicas/signer-dfe/internal/infrastructure/xmldsig"
)

// OIDTaxID otherName con el CNPJ del titular.
var OIDTaxID = asn1.ObjectIdentifier{2, 16, 76, 1, 3, 3}

var oidSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}

// Extractor lee la identidad de un certificado ya parseado. No guarda estado mutable,
// puede compartirse entre goroutines.
type Extractor struct {
	cert *x509.Certificate
}

// NewExtractor parsea el certificado PEM (o DER).
func NewExtractor(certPEM []byte) (*Extractor, error) {
	cert, err := xmldsig.ParseCertificate(certPEM)
	if err != nil {
		return nil, err
	}
	return &Extractor{cert: cert}, nil
}

// NewExtractorFromCertificate usa un certificado ya cargado (p. ej. desde un .p12).
func NewExtractorFromCertificate(cert *x509.Certificate) (*Extractor, error) {
	if cert == nil {
		return nil, fmt.Errorf("certinfo: %w: certificado nulo", domain.ErrCertificate)
	}
	return &Extractor{cert: cert}, nil
}

// Extract devuelve la vigencia, los nombres y el CNPJ si el certificado lo trae.
// La ausencia de subjectAltName o del OID no es error.
func (e *Extractor) Extract() (*entity.CertificateIdentity, error) {
	id := &entity.CertificateIdentity{
		NotBefore:    e.cert.NotBefore,
		NotAfter:     e.cert.NotAfter,
		Subject:      e.cert.Subject.String(),
		Issuer:       e.cert.Issuer.String(),
		SerialNumber: fmt.Sprintf("%X", e.cert.SerialNumber),
	}
	ext, ok := Extension(e.cert, oidSubjectAltName)
	if !ok {
		return id, nil
	}
	der, err := asn1.Marshal(ext)
	if err != nil {
		return nil, fmt.Errorf("certinfo: %w: %w", domain.ErrExtensionDecode, err)
	}
	taxID, found, err := TaxIDFromExtension(der)
	if err != nil {
		return nil, err
	}
	if found {
		id.TaxID = &taxID
	}
	return id, nil
}

// TaxIDFromExtension recorre el DER completo de una pkix.Extension subjectAltName:
// toma el OCTET STRING, lo decodifica como GeneralNames y busca el primer miembro
// cuyo primer elemento es OIDTaxID. El valor está dos niveles dentro del segundo
// elemento ([0] EXPLICIT → OCTET STRING). Una estructura distinta se reporta como
// ausente; solo el DER mal formado es error.
func TaxIDFromExtension(extDER []byte) (string, bool, error) {
	ext, err := Decode(extDER)
	if err != nil {
		return "", false, err
	}
	if ext.Kind != KindSequence {
		return "", false, nil
	}
	payload, ok := firstOfKind(ext.Children, KindOctetString)
	if !ok {
		return "", false, nil
	}
	names, err := Decode(payload.Bytes)
	if err != nil {
		return "", false, err
	}
	if names.Kind != KindSequence {
		return "", false, nil
	}
	for _, member := range names.Children {
		if member.Kind != KindSequence || len(member.Children) < 2 {
			continue
		}
		oid := member.Children[0]
		if oid.Kind != KindObjectIdentifier || !oid.OID.Equal(OIDTaxID) {
			continue
		}
		return nestedValue(member.Children[1])
	}
	return "", false, nil
}

func nestedValue(n Node) (string, bool, error) {
	if n.Kind != KindSequence || len(n.Children) == 0 {
		return "", false, nil
	}
	value := n.Children[0]
	if value.Kind == KindSequence || len(value.Bytes) == 0 {
		return "", false, nil
	}
	return string(value.Bytes), true, nil
}

func firstOfKind(nodes []Node, k Kind) (Node, bool) {
	for _, n := range nodes {
		if n.Kind == k {
			return n, true
		}
	}
	return Node{}, false
}

// Extension devuelve la primera extensión con el OID indicado.
func Extension(cert *x509.Certificate, oid asn1.ObjectIdentifier) (pkix.Extension, bool) {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oid) {
			return ext, true
		}
	}
	return pkix.Extension{}, false
}
