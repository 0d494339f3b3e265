package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jhoicas/signer-dfe/internal/infrastructure/xmldsig"
)

// SignCmd firma un XML y escribe el documento con el Signature embebido.
type SignCmd struct {
	CredentialFlags `embed:""`

	Input  string `arg:"" help:"XML a firmar; '-' lee de stdin" default:"-"`
	Output string `short:"o" help:"Archivo de salida; vacío = stdout"`
	Root   string `help:"Selector del elemento que recibe el Signature" default:"NFe" env:"SIGNER_ROOT_SELECTOR"`
	Target string `help:"Selector del elemento a firmar" default:"infNFe" env:"SIGNER_TARGET_SELECTOR"`
}

func (c *SignCmd) Run(_ context.Context, g *Globals) error {
	start := time.Now()

	raw, err := c.readInput(g.In)
	if err != nil {
		return err
	}
	creds, err := c.Load()
	if err != nil {
		return err
	}
	b, err := xmldsig.NewBuilderFromCredentials(raw, creds, c.Root, c.Target)
	if err != nil {
		return err
	}
	if err := b.Sign(); err != nil {
		return err
	}
	signed, err := b.Serialize()
	if err != nil {
		return err
	}

	if c.Output == "" {
		if _, err := fmt.Fprintln(g.Out, signed); err != nil {
			return err
		}
	} else if err := os.WriteFile(c.Output, []byte(signed), 0o644); err != nil {
		return fmt.Errorf("escribir %s: %w", c.Output, err)
	}

	uri, digest := b.Reference()
	g.Log.Info().
		Str("reference_uri", uri).
		Str("digest", digest).
		Str("output", c.Output).
		Dur("duration", time.Since(start)).
		Msg("documento firmado")
	return nil
}

func (c *SignCmd) readInput(stdin io.Reader) ([]byte, error) {
	if c.Input == "" || c.Input == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(c.Input)
	if err != nil {
		return nil, fmt.Errorf("leer %s: %w", c.Input, err)
	}
	return raw, nil
}
