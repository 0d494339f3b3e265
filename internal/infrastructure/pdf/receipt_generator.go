// Package pdf genera el comprobante de firma: una página A4 con los datos de la
// Reference firmada, el certificado usado y un QR con la huella del XML firmado.
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Comprobante de firma XML-DSig │ ID + Fecha          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DOCUMENTO: Reference URI / Selectores / DigestValue         │
//	│  CERTIFICADO: Sujeto / Serie / CNPJ / Vencimiento            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  HUELLA: SHA-256 + QR                                        │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/signer-dfe/internal/application/signing"
	"github.com/jhoicas/signer-dfe/internal/domain/entity"
)

var _ signing.ReceiptGenerator = (*MarotoReceiptGenerator)(nil)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

const dateLayout = "02/01/2006 15:04:05 MST"

// MarotoReceiptGenerator implementa signing.ReceiptGenerator con Maroto v2.
type MarotoReceiptGenerator struct {
	issuer string
}

// NewMarotoReceiptGenerator construye el generador; issuer aparece como autor del PDF.
func NewMarotoReceiptGenerator(issuer string) *MarotoReceiptGenerator {
	return &MarotoReceiptGenerator{issuer: issuer}
}

// GenerateReceipt genera el PDF del registro y devuelve sus bytes.
func (g *MarotoReceiptGenerator) GenerateReceipt(_ context.Context, doc *entity.SignedDocument) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("pdf: registro de firma nulo")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante de firma XML-DSig", true).
		WithAuthor(nonEmpty(g.issuer, "signer-dfe"), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(section("DOCUMENTO FIRMADO",
		field("Reference URI", nonEmpty(doc.ReferenceURI, `"" (elemento sin Id)`)),
		field("Selector raíz", doc.RootSelector),
		field("Selector firmado", doc.TargetSelector),
		field("DigestValue (SHA-1)", doc.DigestValue),
	)...)
	m.AddRows(section("CERTIFICADO DEL FIRMANTE",
		field("Sujeto", doc.CertificateSubject),
		field("Número de serie", doc.CertificateSerial),
		field("CNPJ", nonEmpty(doc.TaxID, "—")),
		field("Vencimiento", doc.CertificateExpiry.UTC().Format(dateLayout)),
		field("Solicitado por", nonEmpty(doc.SignedBy, "—")),
	)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(fingerprintRows(doc.Fingerprint)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar comprobante: %w", err)
	}
	return out.GetBytes(), nil
}

func headerRow(doc *entity.SignedDocument) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("COMPROBANTE DE FIRMA", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("XML-DSig envolvente RSA-SHA1", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(doc.ID, props.Text{
				Style: fontstyle.Bold, Size: 7, Align: align.Right, Top: 2,
			}),
			text.New("Firmado: "+doc.SignedAt.UTC().Format(dateLayout), props.Text{
				Size: 8, Align: align.Right, Top: 10, Color: colorGray,
			}),
		),
	)
}

type labeled struct {
	label, value string
}

func field(label, value string) labeled { return labeled{label: label, value: value} }

func section(title string, fields ...labeled) []core.Row {
	rows := []core.Row{
		row.New(7).Add(col.New(12).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2}),
		)),
	}
	for _, f := range fields {
		rows = append(rows, row.New(6).Add(
			col.New(3).Add(text.New(f.label+":", props.Text{Style: fontstyle.Bold, Size: 8, Top: 1})),
			col.New(9).Add(text.New(f.value, props.Text{Size: 8, Top: 1, Color: colorGray})),
		))
	}
	return rows
}

// fingerprintRows: huella partida + QR con la huella completa.
func fingerprintRows(fingerprint string) []core.Row {
	rows := []core.Row{
		row.New(7).Add(col.New(12).Add(
			text.New("HUELLA DEL XML FIRMADO (SHA-256, forma canónica)", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2,
			}),
		)),
	}
	if fingerprint == "" {
		return append(rows, row.New(6).Add(col.New(12).Add(
			text.New("—", props.Text{Size: 8, Top: 1}),
		)))
	}
	for _, chunk := range splitEvery(fingerprint, 32) {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(chunk, props.Text{Size: 7, Color: colorGray, Top: 0.5, Left: 2}),
		)))
	}
	rows = append(rows, row.New(3), row.New(45).Add(
		col.New(4).Add(code.NewQr(fingerprint, props.Rect{Percent: 95, Center: true})),
		col.New(8).Add(
			text.New("Recalcule el SHA-256 de la forma canónica del XML\nfirmado y compárelo con esta huella.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
		),
	))
	return rows
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
