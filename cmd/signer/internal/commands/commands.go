package commands

import (
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/jhoicas/signer-dfe/internal/infrastructure/xmldsig"
	"github.com/jhoicas/signer-dfe/pkg/logger"
)

// Globals opciones compartidas por todos los subcomandos.
type Globals struct {
	Debug   bool
	Version string
	In      io.Reader
	Out     io.Writer // salida de resultados; los logs van a stderr
	Log     zerolog.Logger
}

var errMissingCredentials = errors.New("indique --cert o --p12")

// NewGlobals arma las opciones globales con un logger de consola.
func NewGlobals(debug bool, version string, out io.Writer) *Globals {
	level := "info"
	if debug {
		level = "debug"
	}
	return &Globals{
		Debug:   debug,
		Version: version,
		In:      os.Stdin,
		Out:     out,
		Log:     logger.New(logger.Config{Env: "development", Level: level, Output: os.Stderr}).Zerolog(),
	}
}

// CredentialFlags certificado y llave del firmante: PEM (uno o dos archivos) o .p12.
type CredentialFlags struct {
	Cert        string `help:"Certificado PEM/DER (puede incluir la llave)" type:"path" env:"SIGNER_CERT_PATH"`
	Key         string `help:"Llave privada PEM; vacío = dentro de --cert" type:"path" env:"SIGNER_KEY_PATH"`
	KeyPassword string `help:"Contraseña de la llave" env:"SIGNER_KEY_PASSWORD"`
	P12         string `help:"Contenedor .p12/.pfx" type:"path" env:"SIGNER_P12_PATH"`
	P12Password string `help:"Contraseña del .p12" env:"SIGNER_P12_PASSWORD"`
}

// Load carga las credenciales; el .p12 tiene prioridad.
func (f CredentialFlags) Load() (*xmldsig.Credentials, error) {
	if f.P12 != "" {
		return xmldsig.LoadP12File(f.P12, f.P12Password)
	}
	if f.Cert == "" {
		return nil, errMissingCredentials
	}
	return xmldsig.LoadFiles(f.Cert, f.Key, f.KeyPassword)
}
