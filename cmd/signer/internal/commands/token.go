package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/signer-dfe/pkg/jwt"
)

type TokenCmd struct {
	Subject string        `help:"Integrador o usuario que firma" required:""`
	Role    string        `help:"Rol del token" default:"signer" enum:"admin,signer,auditor"`
	TTL     time.Duration `help:"Vigencia del token" default:"1h"`
	Secret  string        `help:"Secreto HS256 de la API" required:"" env:"JWT_SECRET"`
	Issuer  string        `help:"Emisor del token" default:"signer-dfe" env:"JWT_ISSUER"`
}

func (t *TokenCmd) Run(_ context.Context, g *Globals) error {
	if t.TTL < time.Minute {
		return fmt.Errorf("--ttl debe ser de al menos 1m")
	}
	token, err := jwt.Generate(t.Secret, t.Subject, t.Role, t.Issuer, int(t.TTL/time.Minute))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(g.Out, token)
	return err
}
