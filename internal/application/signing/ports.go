package signing

import (
	"context"

	"github.com/jhoicas/signer-dfe/internal/domain/entity"
)

// ReceiptGenerator genera el comprobante (PDF) de una firma registrada.
type ReceiptGenerator interface {
	GenerateReceipt(ctx context.Context, doc *entity.SignedDocument) ([]byte, error)
}
