package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"

	"github.com/jhoicas/signer-dfe/cmd/signer/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Sign      commands.SignCmd      `cmd:"" help:"Firmar un documento XML (XML-DSig enveloped RSA-SHA1)"`
		CertInfo  commands.CertInfoCmd  `cmd:"" name:"cert-info" help:"Mostrar vencimiento y CNPJ de un certificado"`
		CheckCert commands.CheckCertCmd `cmd:"" name:"check-cert" help:"Diagnosticar un contenedor .p12/.pfx y su contraseña"`
		Token     commands.TokenCmd     `cmd:"" help:"Generar un token JWT para la API"`
		Debug     bool                  `help:"Habilitar logs de depuración."`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Description("Firma de documentos fiscales electrónicos."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(commands.NewGlobals(cli.Debug, version, os.Stdout))
	cmd.FatalIfErrorf(err)
}
