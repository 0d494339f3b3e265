package entity

import "time"

// SignedDocument registro de auditoría de una firma XML-DSig producida por el servicio.
// No guarda el XML firmado; solo lo necesario para rastrear qué se firmó y con qué certificado.
type SignedDocument struct {
	ID                 string
	ReferenceURI       string // "#<Id>" del elemento firmado, o "" si no tenía Id
	DigestValue        string // SHA-1 en Base64 del elemento firmado
	Fingerprint        string // SHA-256 hex del XML firmado en forma canónica
	RootSelector       string
	TargetSelector     string
	CertificateSerial  string
	CertificateSubject string
	TaxID              string // CNPJ del certificado firmante, "" si no tiene
	CertificateExpiry  time.Time
	SignedBy           string // subject del token que solicitó la firma
	SignedAt           time.Time
}
