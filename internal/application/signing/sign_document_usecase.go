package signing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/signer-dfe/internal/application/dto"
	"github.com/jhoicas/signer-dfe/internal/domain"
	"github.com/jhoicas/signer-dfe/internal/domain/entity"
	"github.com/jhoicas/signer-dfe/internal/domain/repository"
	"github.com/jhoicas/signer-dfe/internal/infrastructure/certinfo"
	"github.com/jhoicas/signer-dfe/internal/infrastructure/xmldsig"
)

// Defaults credenciales y selectores usados cuando la petición no trae los suyos.
type Defaults struct {
	Credentials    *xmldsig.Credentials // nil = toda petición debe traer certificado y llave
	RootSelector   string
	TargetSelector string
}

// SignDocumentUseCase firma documentos y mantiene el registro de auditoría.
type SignDocumentUseCase struct {
	repo     repository.SignedDocumentRepository // nil = sin auditoría
	receipts ReceiptGenerator
	defaults Defaults
	log      zerolog.Logger
	now      func() time.Time
}

// NewSignDocumentUseCase construye el caso de uso. repo y receipts pueden ser nil.
func NewSignDocumentUseCase(
	repo repository.SignedDocumentRepository,
	receipts ReceiptGenerator,
	defaults Defaults,
	log zerolog.Logger,
) *SignDocumentUseCase {
	return &SignDocumentUseCase{
		repo:     repo,
		receipts: receipts,
		defaults: defaults,
		log:      log.With().Str("component", "signing").Logger(),
		now:      time.Now,
	}
}

// Sign firma el elemento indicado y devuelve el XML con Signature embebido.
//
// Retorna:
//   - domain.ErrInvalidInput     si falta el XML, los selectores o las credenciales.
//   - domain.ErrParse, ErrCertificate, ErrKey, ErrElementNotFound, ErrSigning del builder.
//   - el error del repositorio si la auditoría está habilitada y no se pudo registrar.
func (uc *SignDocumentUseCase) Sign(ctx context.Context, signedBy string, in dto.SignRequest) (*dto.SignResponse, error) {
	start := uc.now()

	if strings.TrimSpace(in.XML) == "" {
		return nil, fmt.Errorf("%w: xml es obligatorio", domain.ErrInvalidInput)
	}
	root := firstNonEmpty(in.RootSelector, uc.defaults.RootSelector)
	target := firstNonEmpty(in.TargetSelector, uc.defaults.TargetSelector)
	if root == "" || target == "" {
		return nil, fmt.Errorf("%w: root_selector y target_selector son obligatorios", domain.ErrInvalidInput)
	}
	creds, err := uc.credentials(in)
	if err != nil {
		return nil, err
	}

	// ── 1. Firmar ──────────────────────────────────────────────────────────────
	b, err := xmldsig.NewBuilderFromCredentials([]byte(in.XML), creds, root, target)
	if err != nil {
		return nil, err
	}
	if err := b.Sign(); err != nil {
		uc.log.Warn().Err(err).Str("root_selector", root).Str("target_selector", target).Msg("firma fallida")
		return nil, err
	}
	signed, err := b.Serialize()
	if err != nil {
		return nil, err
	}
	uri, digest := b.Reference()

	// ── 2. Huella e identidad del firmante ─────────────────────────────────────
	fingerprint, err := xmldsig.Fingerprint([]byte(signed))
	if err != nil {
		return nil, fmt.Errorf("signing: huella del documento firmado: %w", err)
	}
	identity := uc.identity(creds)

	now := uc.now().UTC()
	record := &entity.SignedDocument{
		ID:                 uuid.New().String(),
		ReferenceURI:       uri,
		DigestValue:        digest,
		Fingerprint:        fingerprint,
		RootSelector:       root,
		TargetSelector:     target,
		CertificateSerial:  identity.SerialNumber,
		CertificateSubject: identity.Subject,
		TaxID:              identity.TaxIDOrEmpty(),
		CertificateExpiry:  identity.NotAfter,
		SignedBy:           signedBy,
		SignedAt:           now,
	}

	// ── 3. Auditoría ───────────────────────────────────────────────────────────
	if uc.repo != nil {
		if err := uc.repo.Create(ctx, record); err != nil {
			uc.log.Error().Err(err).Str("id", record.ID).Msg("no se pudo registrar la firma")
			return nil, fmt.Errorf("signing: registrar firma: %w", err)
		}
	}

	uc.log.Info().
		Str("id", record.ID).
		Str("reference_uri", uri).
		Str("root_selector", root).
		Str("target_selector", target).
		Str("cert_serial", identity.SerialNumber).
		Str("signed_by", signedBy).
		Dur("duration", uc.now().Sub(start)).
		Msg("documento firmado")

	return &dto.SignResponse{
		ID:           record.ID,
		SignedXML:    signed,
		ReferenceURI: uri,
		DigestValue:  digest,
		Fingerprint:  fingerprint,
		TaxID:        identity.TaxID,
		SignedAt:     now,
		Audited:      uc.repo != nil,
	}, nil
}

func (uc *SignDocumentUseCase) credentials(in dto.SignRequest) (*xmldsig.Credentials, error) {
	hasCert, hasKey := strings.TrimSpace(in.CertificatePEM) != "", strings.TrimSpace(in.PrivateKeyPEM) != ""
	switch {
	case hasCert && hasKey:
		return xmldsig.LoadPEM([]byte(in.CertificatePEM), []byte(in.PrivateKeyPEM), in.Passphrase)
	case hasCert || hasKey:
		return nil, fmt.Errorf("%w: certificate_pem y private_key_pem deben enviarse juntos", domain.ErrInvalidInput)
	case uc.defaults.Credentials != nil:
		return uc.defaults.Credentials, nil
	default:
		return nil, fmt.Errorf("%w: no hay credenciales configuradas, envíe certificate_pem y private_key_pem", domain.ErrInvalidInput)
	}
}

// identity no falla la firma: un subjectAltName ilegible solo deja el CNPJ vacío.
func (uc *SignDocumentUseCase) identity(creds *xmldsig.Credentials) *entity.CertificateIdentity {
	ex, err := certinfo.NewExtractorFromCertificate(creds.Certificate)
	if err == nil {
		id, extractErr := ex.Extract()
		if extractErr == nil {
			return id
		}
		err = extractErr
	}
	uc.log.Warn().Err(err).Msg("no se pudo leer la identidad del certificado")
	return &entity.CertificateIdentity{
		NotBefore:    creds.Certificate.NotBefore,
		NotAfter:     creds.Certificate.NotAfter,
		Subject:      creds.Certificate.Subject.String(),
		Issuer:       creds.Certificate.Issuer.String(),
		SerialNumber: fmt.Sprintf("%X", creds.Certificate.SerialNumber),
	}
}

// Get devuelve un registro de firma por ID.
func (uc *SignDocumentUseCase) Get(ctx context.Context, id string) (*dto.SignedDocumentResponse, error) {
	doc, err := uc.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSignedDocumentResponse(doc), nil
}

// List lista los registros más recientes. Sin auditoría devuelve una lista vacía.
func (uc *SignDocumentUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.SignedDocumentListResponse, error) {
	page.DefaultPage()
	out := &dto.SignedDocumentListResponse{
		Items: []dto.SignedDocumentResponse{},
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	if uc.repo == nil {
		return out, nil
	}
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("signing: listar firmas: %w", err)
	}
	for _, d := range list {
		out.Items = append(out.Items, *toSignedDocumentResponse(d))
	}
	return out, nil
}

// Receipt genera el comprobante PDF de una firma registrada.
func (uc *SignDocumentUseCase) Receipt(ctx context.Context, id string) (pdfBytes []byte, filename string, err error) {
	if uc.receipts == nil {
		return nil, "", fmt.Errorf("%w: generador de comprobantes no configurado", domain.ErrNotFound)
	}
	doc, err := uc.find(ctx, id)
	if err != nil {
		return nil, "", err
	}
	pdfBytes, err = uc.receipts.GenerateReceipt(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("signing: generar comprobante: %w", err)
	}
	return pdfBytes, "comprobante_" + doc.ID + ".pdf", nil
}

func (uc *SignDocumentUseCase) find(ctx context.Context, id string) (*entity.SignedDocument, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: id inválido", domain.ErrInvalidInput)
	}
	if uc.repo == nil {
		return nil, fmt.Errorf("%w: auditoría deshabilitada", domain.ErrNotFound)
	}
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("signing: obtener firma: %w", err)
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func toSignedDocumentResponse(d *entity.SignedDocument) *dto.SignedDocumentResponse {
	return &dto.SignedDocumentResponse{
		ID:                 d.ID,
		ReferenceURI:       d.ReferenceURI,
		DigestValue:        d.DigestValue,
		Fingerprint:        d.Fingerprint,
		RootSelector:       d.RootSelector,
		TargetSelector:     d.TargetSelector,
		CertificateSerial:  d.CertificateSerial,
		CertificateSubject: d.CertificateSubject,
		TaxID:              d.TaxID,
		CertificateExpiry:  d.CertificateExpiry,
		SignedBy:           d.SignedBy,
		SignedAt:           d.SignedAt,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
