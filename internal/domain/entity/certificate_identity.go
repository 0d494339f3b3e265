package entity

import "time"

// CertificateIdentity datos de identidad extraídos de un certificado X.509 (ICP-Brasil).
type CertificateIdentity struct {
	NotBefore    time.Time
	NotAfter     time.Time // tal cual viene en el campo de validez del certificado
	TaxID        *string   // CNPJ del subjectAltName (OID 2.16.76.1.3.3); nil si no existe
	Subject      string
	Issuer       string
	SerialNumber string // hexadecimal
}

// HasTaxID indica si el certificado trae CNPJ.
func (c *CertificateIdentity) HasTaxID() bool {
	return c.TaxID != nil
}

// TaxIDOrEmpty devuelve el CNPJ o "" cuando no está presente.
func (c *CertificateIdentity) TaxIDOrEmpty() string {
	if c.TaxID == nil {
		return ""
	}
	return *c.TaxID
}

// DaysToExpiry días completos hasta NotAfter respecto a now (negativo si ya venció).
func (c *CertificateIdentity) DaysToExpiry(now time.Time) int {
	return int(c.NotAfter.Sub(now).Hours() / 24)
}
