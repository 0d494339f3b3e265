package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/signer-dfe/internal/application/signing"
	"github.com/jhoicas/signer-dfe/internal/domain/repository"
	infrapdf "github.com/jhoicas/signer-dfe/internal/infrastructure/pdf"
	"github.com/jhoicas/signer-dfe/internal/infrastructure/postgres"
	"github.com/jhoicas/signer-dfe/internal/infrastructure/xmldsig"
	httpRouter "github.com/jhoicas/signer-dfe/internal/interfaces/http"
	"github.com/jhoicas/signer-dfe/pkg/config"
	"github.com/jhoicas/signer-dfe/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	creds, err := loadCredentials(cfg.Signer)
	if err != nil {
		log.Fatal().Err(err).Msg("credenciales del firmante")
	}
	if creds != nil {
		log.Info().
			Str("subject", creds.Certificate.Subject.String()).
			Time("not_after", creds.Certificate.NotAfter).
			Msg("credenciales por defecto cargadas")
	} else {
		log.Warn().Msg("sin credenciales por defecto: cada petición debe traer certificado y llave")
	}

	// Auditoría opcional: sin DB_HOST ni DATABASE_URL se firma sin registrar.
	ctx := context.Background()
	var signedDocs repository.SignedDocumentRepository
	if cfg.DB.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool, log.Component("migrations").Zerolog()); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		signedDocs = postgres.NewSignedDocumentRepository(pool)
	} else {
		log.Warn().Msg("base de datos no configurada: auditoría deshabilitada")
	}

	signUC := signing.NewSignDocumentUseCase(
		signedDocs,
		infrapdf.NewMarotoReceiptGenerator(cfg.App.Name),
		signing.Defaults{
			Credentials:    creds,
			RootSelector:   cfg.Signer.RootSelector,
			TargetSelector: cfg.Signer.TargetSelector,
		},
		log.Zerolog(),
	)
	certUC := signing.NewCertificateUseCase()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.HTTP.BodyLimitMB * 1024 * 1024,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestID(log.Component("http").Zerolog()))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Signer DFE API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		SignUC:    signUC,
		CertUC:    certUC,
		JWTSecret: cfg.JWT.Secret,
		AppName:   cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// loadCredentials devuelve nil si no hay credenciales por defecto configuradas.
func loadCredentials(cfg config.SignerConfig) (*xmldsig.Credentials, error) {
	switch {
	case cfg.P12Path != "":
		return xmldsig.LoadP12File(cfg.P12Path, cfg.P12Password)
	case cfg.CertPath != "":
		return xmldsig.LoadFiles(cfg.CertPath, cfg.KeyPath, cfg.KeyPassword)
	}
	return nil, nil
}
