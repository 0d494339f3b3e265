package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/signer-dfe/internal/application/dto"
	"github.com/jhoicas/signer-dfe/internal/application/signing"
)

// CertificateHandler inspección de certificados.
type CertificateHandler struct {
	uc *signing.CertificateUseCase
}

// NewCertificateHandler construye el handler.
func NewCertificateHandler(uc *signing.CertificateUseCase) *CertificateHandler {
	return &CertificateHandler{uc: uc}
}

// Inspect godoc
// @Summary      Vencimiento y CNPJ de un certificado
// @Tags         certificates
// @Accept       json
// @Produce      json
// @Param        body  body  dto.InspectCertificateRequest  true  "Certificado PEM"
// @Success      200   {object}  dto.CertificateIdentityResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/certificates/inspect [post]
func (h *CertificateHandler) Inspect(c *fiber.Ctx) error {
	var in dto.InspectCertificateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Inspect(in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
