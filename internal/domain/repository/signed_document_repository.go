package repository

import (
	"context"

	"github.com/jhoicas/signer-dfe/internal/domain/entity"
)

// SignedDocumentRepository define el puerto de persistencia para los registros de firma.
type SignedDocumentRepository interface {
	Create(ctx context.Context, doc *entity.SignedDocument) error
	GetByID(ctx context.Context, id string) (*entity.SignedDocument, error)
	List(ctx context.Context, limit, offset int) ([]*entity.SignedDocument, error)
}
