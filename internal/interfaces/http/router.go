package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/signer-dfe/internal/application/signing"
	"github.com/jhoicas/signer-dfe/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	SignUC    *signing.SignDocumentUseCase
	CertUC    *signing.CertificateUseCase
	JWTSecret string
	AppName   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	signingHandler := NewSigningHandler(deps.SignUC)
	api.Post("/sign", RequireRole(jwt.RoleSigner), signingHandler.Sign)

	signatures := api.Group("/signatures", RequireRole(jwt.RoleSigner, jwt.RoleAuditor))
	signatures.Get("/", signingHandler.List)
	signatures.Get("/:id", signingHandler.GetByID)
	signatures.Get("/:id/receipt", signingHandler.Receipt)

	certificateHandler := NewCertificateHandler(deps.CertUC)
	api.Post("/certificates/inspect", RequireRole(jwt.RoleSigner, jwt.RoleAuditor), certificateHandler.Inspect)
}
