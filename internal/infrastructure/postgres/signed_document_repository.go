package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/signer-dfe/internal/domain"
	"github.com/jhoicas/signer-dfe/internal/domain/entity"
	"github.com/jhoicas/signer-dfe/internal/domain/repository"
)

var _ repository.SignedDocumentRepository = (*SignedDocumentRepo)(nil)

const signedDocumentColumns = `id, reference_uri, digest_value, fingerprint, root_selector, target_selector,
	certificate_serial, certificate_subject, tax_id, certificate_expiry, signed_by, signed_at`

// SignedDocumentRepo implementación de SignedDocumentRepository (usable con pool o tx).
type SignedDocumentRepo struct {
	q Querier
}

// NewSignedDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSignedDocumentRepository(q Querier) *SignedDocumentRepo {
	return &SignedDocumentRepo{q: q}
}

// Create persiste el registro de una firma.
func (r *SignedDocumentRepo) Create(ctx context.Context, d *entity.SignedDocument) error {
	query := `INSERT INTO signed_documents (` + signedDocumentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.ReferenceURI, d.DigestValue, d.Fingerprint, d.RootSelector, d.TargetSelector,
		d.CertificateSerial, d.CertificateSubject, d.TaxID, d.CertificateExpiry, d.SignedBy, d.SignedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: registro de firma %s duplicado", domain.ErrInvalidInput, d.ID)
		}
		return fmt.Errorf("insert signed_document: %w", err)
	}
	return nil
}

// GetByID obtiene un registro por ID; domain.ErrNotFound si no existe.
func (r *SignedDocumentRepo) GetByID(ctx context.Context, id string) (*entity.SignedDocument, error) {
	query := `SELECT ` + signedDocumentColumns + ` FROM signed_documents WHERE id = $1`
	d, err := scanSignedDocument(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get signed_document: %w", err)
	}
	return d, nil
}

// List devuelve los registros más recientes primero.
func (r *SignedDocumentRepo) List(ctx context.Context, limit, offset int) ([]*entity.SignedDocument, error) {
	query := `SELECT ` + signedDocumentColumns + ` FROM signed_documents
		ORDER BY signed_at DESC, id LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list signed_documents: %w", err)
	}
	defer rows.Close()
	var list []*entity.SignedDocument
	for rows.Next() {
		d, err := scanSignedDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signed_document: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func scanSignedDocument(row pgx.Row) (*entity.SignedDocument, error) {
	var d entity.SignedDocument
	err := row.Scan(
		&d.ID, &d.ReferenceURI, &d.DigestValue, &d.Fingerprint, &d.RootSelector, &d.TargetSelector,
		&d.CertificateSerial, &d.CertificateSubject, &d.TaxID, &d.CertificateExpiry, &d.SignedBy, &d.SignedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
