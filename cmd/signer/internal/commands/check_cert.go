package commands

import (
	"context"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/jhoicas/signer-dfe/internal/application/dto"
	"github.com/jhoicas/signer-dfe/internal/application/signing"
	"github.com/jhoicas/signer-dfe/internal/infrastructure/xmldsig"
)

var (
	errCertExpired  = errors.New("certificado vencido")
	errCertExpiring = errors.New("certificado próximo a vencer")
)

// CheckCertCmd verifica que el .p12 exista, que la contraseña abra el contenedor y que
// el certificado no esté vencido ni por vencer.
type CheckCertCmd struct {
	P12      string `arg:"" help:"Contenedor .p12/.pfx" env:"SIGNER_P12_PATH"`
	Password string `help:"Contraseña del .p12" env:"SIGNER_P12_PASSWORD"`
	WarnDays int    `help:"Fallar si vence en menos de N días" default:"30"`
}

func (c *CheckCertCmd) Run(_ context.Context, g *Globals) error {
	log := g.Log.With().Str("path", c.P12).Logger()

	// 1. Archivo
	data, err := os.ReadFile(c.P12)
	if err != nil {
		log.Error().Err(err).Msg("no se puede abrir el archivo")
		return fmt.Errorf("leer %s: %w", c.P12, err)
	}
	log.Info().Int("bytes", len(data)).Msg("archivo encontrado")

	// 2. Contraseña y formato
	creds, err := xmldsig.LoadP12(data, c.Password)
	if err != nil {
		log.Error().Err(err).Msg("la contraseña no abre el contenedor o el archivo está corrupto")
		return err
	}
	log.Info().Msg("contraseña correcta, llave RSA y certificado cargados")

	// 3. Vigencia e identidad
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: creds.Certificate.Raw})
	id, err := signing.NewCertificateUseCase().Inspect(dto.InspectCertificateRequest{CertificatePEM: string(certPEM)})
	if err != nil {
		return err
	}
	printIdentity(g.Out, id)

	switch {
	case id.Expired:
		log.Error().Time("not_after", id.NotAfter).Msg("certificado vencido")
		return errCertExpired
	case id.DaysToExpiry < c.WarnDays:
		log.Warn().Int("days_to_expiry", id.DaysToExpiry).Msg("certificado próximo a vencer")
		return fmt.Errorf("%w: %d días", errCertExpiring, id.DaysToExpiry)
	}
	if id.TaxID == nil {
		log.Warn().Msg("el certificado no trae CNPJ en el subjectAltName")
	}
	log.Info().Msg("certificado listo para firmar")
	return nil
}
