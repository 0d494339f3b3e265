package commands

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jhoicas/signer-dfe/internal/application/dto"
	"github.com/jhoicas/signer-dfe/internal/application/signing"
	"github.com/jhoicas/signer-dfe/internal/infrastructure/xmldsig"
)

// CertInfoCmd muestra vencimiento y CNPJ de un certificado PEM/DER o de un .p12.
type CertInfoCmd struct {
	Cert        string `arg:"" optional:"" help:"Certificado PEM/DER" type:"path"`
	P12         string `help:"Leer el certificado de un contenedor .p12/.pfx" type:"path" env:"SIGNER_P12_PATH"`
	P12Password string `help:"Contraseña del .p12" env:"SIGNER_P12_PASSWORD"`
	JSON        bool   `help:"Salida en JSON."`
}

func (c *CertInfoCmd) Run(_ context.Context, g *Globals) error {
	certPEM, err := c.certificate()
	if err != nil {
		return err
	}
	out, err := signing.NewCertificateUseCase().Inspect(dto.InspectCertificateRequest{CertificatePEM: string(certPEM)})
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printIdentity(g.Out, out)
	return nil
}

func (c *CertInfoCmd) certificate() ([]byte, error) {
	switch {
	case c.P12 != "":
		creds, err := xmldsig.LoadP12File(c.P12, c.P12Password)
		if err != nil {
			return nil, err
		}
		return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: creds.Certificate.Raw}), nil
	case c.Cert != "":
		raw, err := os.ReadFile(c.Cert)
		if err != nil {
			return nil, fmt.Errorf("leer %s: %w", c.Cert, err)
		}
		return raw, nil
	}
	return nil, errMissingCredentials
}

func printIdentity(w io.Writer, id *dto.CertificateIdentityResponse) {
	taxID := "(sin CNPJ)"
	if id.TaxID != nil {
		taxID = *id.TaxID
	}
	fmt.Fprintf(w, "Sujeto:        %s\n", id.Subject)
	fmt.Fprintf(w, "Emisor:        %s\n", id.Issuer)
	fmt.Fprintf(w, "Serie:         %s\n", id.SerialNumber)
	fmt.Fprintf(w, "CNPJ:          %s\n", taxID)
	fmt.Fprintf(w, "Válido desde:  %s\n", id.NotBefore.Format(time.RFC3339))
	fmt.Fprintf(w, "Válido hasta:  %s (%d días)\n", id.NotAfter.Format(time.RFC3339), id.DaysToExpiry)
	if id.Expired {
		fmt.Fprintln(w, "Estado:        VENCIDO")
	}
}
