package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// La infraestructura los envuelve con %w para que los llamadores usen errors.Is.
var (
	ErrParse           = errors.New("XML mal formado")
	ErrCertificate     = errors.New("certificado inválido")
	ErrKey             = errors.New("llave privada inválida o contraseña incorrecta")
	ErrElementNotFound = errors.New("elemento no encontrado para el selector")
	ErrSigning         = errors.New("falló la operación de firma")
	ErrExtensionDecode = errors.New("extensión del certificado con ASN.1 inválido")
	ErrNotFound        = errors.New("recurso no encontrado")
	ErrInvalidInput    = errors.New("entrada inválida")
	ErrUnauthorized    = errors.New("no autorizado")
)
