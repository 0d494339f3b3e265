package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/signer-dfe/internal/application/dto"
	"github.com/jhoicas/signer-dfe/internal/domain"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// El orden importa: un error puede envolver más de un sentinel.
var errorMappings = []errorMapping{
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrParse, fiber.StatusUnprocessableEntity, "PARSE_ERROR"},
	{domain.ErrCertificate, fiber.StatusUnprocessableEntity, "CERTIFICATE_ERROR"},
	{domain.ErrKey, fiber.StatusUnprocessableEntity, "KEY_ERROR"},
	{domain.ErrElementNotFound, fiber.StatusUnprocessableEntity, "ELEMENT_NOT_FOUND"},
	{domain.ErrExtensionDecode, fiber.StatusUnprocessableEntity, "EXTENSION_DECODE_ERROR"},
	{domain.ErrSigning, fiber.StatusInternalServerError, "SIGNING_ERROR"},
}

// errorStatus traduce un error de dominio a status HTTP y código.
func errorStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// writeError responde con dto.ErrorResponse. Los errores internos no exponen detalle.
func writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	if code == "INTERNAL" {
		msg = "error interno, consulte el request id " + GetRequestID(c)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
