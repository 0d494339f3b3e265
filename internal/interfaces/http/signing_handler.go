package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/signer-dfe/internal/application/dto"
	"github.com/jhoicas/signer-dfe/internal/application/signing"
)

// SigningHandler firma documentos y expone el registro de auditoría.
type SigningHandler struct {
	uc *signing.SignDocumentUseCase
}

// NewSigningHandler construye el handler inyectando el caso de uso.
func NewSigningHandler(uc *signing.SignDocumentUseCase) *SigningHandler {
	return &SigningHandler{uc: uc}
}

// Sign godoc
// @Summary      Firmar documento XML (XML-DSig envolvente RSA-SHA1)
// @Tags         signatures
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SignRequest  true  "Documento, credenciales opcionales y selectores"
// @Success      201   {object}  dto.SignResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/sign [post]
func (h *SigningHandler) Sign(c *fiber.Ctx) error {
	var in dto.SignRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Sign(c.UserContext(), GetSubject(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar firmas registradas
// @Tags         signatures
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.SignedDocumentListResponse
// @Router       /api/signatures [get]
func (h *SigningHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "limit y offset deben ser enteros"})
	}
	out, err := h.uc.List(c.UserContext(), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener firma por ID
// @Tags         signatures
// @Produce      json
// @Param        id   path  string  true  "ID de la firma"
// @Success      200  {object}  dto.SignedDocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/signatures/{id} [get]
func (h *SigningHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Receipt godoc
// @Summary      Descargar comprobante PDF de una firma
// @Tags         signatures
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la firma"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/signatures/{id}/receipt [get]
func (h *SigningHandler) Receipt(c *fiber.Ctx) error {
	pdfBytes, filename, err := h.uc.Receipt(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}
