package signing

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/signer-dfe/internal/application/dto"
	"github.com/jhoicas/signer-dfe/internal/domain"
	"github.com/jhoicas/signer-dfe/internal/domain/entity"
	"github.com/jhoicas/signer-dfe/internal/infrastructure/certinfo"
)

// CertificateUseCase inspecciona certificados sin firmar nada.
type CertificateUseCase struct {
	now func() time.Time
}

// NewCertificateUseCase construye el caso de uso.
func NewCertificateUseCase() *CertificateUseCase {
	return &CertificateUseCase{now: time.Now}
}

// Inspect extrae vencimiento y CNPJ del certificado PEM.
func (uc *CertificateUseCase) Inspect(in dto.InspectCertificateRequest) (*dto.CertificateIdentityResponse, error) {
	if strings.TrimSpace(in.CertificatePEM) == "" {
		return nil, fmt.Errorf("%w: certificate_pem es obligatorio", domain.ErrInvalidInput)
	}
	ex, err := certinfo.NewExtractor([]byte(in.CertificatePEM))
	if err != nil {
		return nil, err
	}
	id, err := ex.Extract()
	if err != nil {
		return nil, err
	}
	return toCertificateIdentityResponse(id, uc.now()), nil
}

func toCertificateIdentityResponse(id *entity.CertificateIdentity, now time.Time) *dto.CertificateIdentityResponse {
	return &dto.CertificateIdentityResponse{
		Subject:      id.Subject,
		Issuer:       id.Issuer,
		SerialNumber: id.SerialNumber,
		NotBefore:    id.NotBefore,
		NotAfter:     id.NotAfter,
		TaxID:        id.TaxID,
		DaysToExpiry: id.DaysToExpiry(now),
		Expired:      now.After(id.NotAfter),
	}
}
