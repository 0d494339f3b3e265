package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/signer-dfe/pkg/jwt"
)

const secret = "test-secret-key-for-unit-tests"

func TestGenerateAndParse(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "erp-loja-01", pkgjwt.RoleSigner, "signer-dfe-test", 60)
	require.NoError(t, err)

	subject, role, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "erp-loja-01", subject)
	assert.Equal(t, pkgjwt.RoleSigner, role)
}

func TestParse_Errores(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "erp-loja-01", pkgjwt.RoleAdmin, "signer-dfe-test", 60)
	require.NoError(t, err)
	expired, err := pkgjwt.Generate(secret, "erp-loja-01", pkgjwt.RoleAdmin, "signer-dfe-test", -1)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse("otro-secret", tok)
	assert.Error(t, err, "secret incorrecto")

	_, _, err = pkgjwt.Parse(secret, expired)
	assert.Error(t, err, "token expirado")

	_, _, err = pkgjwt.Parse(secret, "token.invalido.aqui")
	assert.Error(t, err)

	_, _, err = pkgjwt.Parse("", tok)
	assert.Error(t, err)
}

func TestGenerate_Validaciones(t *testing.T) {
	_, err := pkgjwt.Generate("", "sub", pkgjwt.RoleAdmin, "iss", 60)
	assert.Error(t, err)

	_, err = pkgjwt.Generate(secret, "", pkgjwt.RoleAdmin, "iss", 60)
	assert.Error(t, err)
}
