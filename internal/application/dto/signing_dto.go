package dto

import "time"

// SignRequest entrada de POST /api/sign. Si certificate_pem y private_key_pem vienen
// vacíos se usan las credenciales configuradas en el servicio.
type SignRequest struct {
	XML            string `json:"xml"`
	CertificatePEM string `json:"certificate_pem,omitempty"`
	PrivateKeyPEM  string `json:"private_key_pem,omitempty"`
	Passphrase     string `json:"passphrase,omitempty"`
	RootSelector   string `json:"root_selector,omitempty"`
	TargetSelector string `json:"target_selector,omitempty"`
}

// SignResponse XML firmado más los datos de la Reference.
type SignResponse struct {
	ID           string    `json:"id"`
	SignedXML    string    `json:"signed_xml"`
	ReferenceURI string    `json:"reference_uri"`
	DigestValue  string    `json:"digest_value"`
	Fingerprint  string    `json:"fingerprint"`
	TaxID        *string   `json:"tax_id,omitempty"`
	SignedAt     time.Time `json:"signed_at"`
	Audited      bool      `json:"audited"`
}

// SignedDocumentResponse registro de auditoría de una firma.
type SignedDocumentResponse struct {
	ID                 string    `json:"id"`
	ReferenceURI       string    `json:"reference_uri"`
	DigestValue        string    `json:"digest_value"`
	Fingerprint        string    `json:"fingerprint"`
	RootSelector       string    `json:"root_selector"`
	TargetSelector     string    `json:"target_selector"`
	CertificateSerial  string    `json:"certificate_serial"`
	CertificateSubject string    `json:"certificate_subject"`
	TaxID              string    `json:"tax_id,omitempty"`
	CertificateExpiry  time.Time `json:"certificate_expiry"`
	SignedBy           string    `json:"signed_by"`
	SignedAt           time.Time `json:"signed_at"`
}

// SignedDocumentListResponse listado paginado de registros.
type SignedDocumentListResponse struct {
	Items []SignedDocumentResponse `json:"items"`
	Page  PageResponse             `json:"page"`
}

// InspectCertificateRequest entrada de POST /api/certificates/inspect.
type InspectCertificateRequest struct {
	CertificatePEM string `json:"certificate_pem"`
}

// CertificateIdentityResponse identidad del certificado; tax_id se omite si no existe.
type CertificateIdentityResponse struct {
	Subject      string    `json:"subject"`
	Issuer       string    `json:"issuer"`
	SerialNumber string    `json:"serial_number"`
	NotBefore    time.Time `json:"not_before"`
	NotAfter     time.Time `json:"not_after"`
	TaxID        *string   `json:"tax_id,omitempty"`
	DaysToExpiry int       `json:"days_to_expiry"`
	Expired      bool      `json:"expired"`
}
