// Carga del certificado y la llave privada del firmante (PEM, DER o PKCS#12).

package xmldsig

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/signer-dfe/internal/domain"
)

// Credentials certificado y llave privada RSA del firmante.
type Credentials struct {
	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
}

// LoadPEM decodifica el par certificado/llave. La contraseña puede ser vacía si la
// llave no está cifrada.
func LoadPEM(certPEM, keyPEM []byte, passphrase string) (*Credentials, error) {
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(keyPEM, passphrase)
	if err != nil {
		return nil, err
	}
	return &Credentials{Certificate: cert, PrivateKey: key}, nil
}

// LoadFiles lee el certificado y la llave desde disco. Si keyPath está vacío se
// asume que certPath contiene ambos bloques PEM.
func LoadFiles(certPath, keyPath, passphrase string) (*Credentials, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("leer certificado: %w", err)
	}
	keyPEM := certPEM
	if keyPath != "" {
		if keyPEM, err = os.ReadFile(keyPath); err != nil {
			return nil, fmt.Errorf("leer llave privada: %w", err)
		}
	}
	return LoadPEM(certPEM, keyPEM, passphrase)
}

// LoadP12 carga certificado y llave privada desde un contenedor .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadP12(data []byte, password string) (*Credentials, error) {
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, fmt.Errorf("xmldsig: decodificar p12: %w: %w", domain.ErrKey, err)
		}
		return nil, fmt.Errorf("xmldsig: decodificar p12: %w: %w", domain.ErrCertificate, err)
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("xmldsig: %w: el p12 debe incluir llave privada RSA", domain.ErrKey)
	}
	return &Credentials{Certificate: cert, PrivateKey: key}, nil
}

// LoadP12File lee y decodifica un .p12/.pfx desde disco.
func LoadP12File(path, password string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer p12: %w", err)
	}
	return LoadP12(data, password)
}

// ParseCertificate acepta el primer bloque CERTIFICATE de un PEM o, si no hay PEM, DER.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	der := data
	if blocks := pemBlocks(data); len(blocks) > 0 {
		der = nil
		for _, b := range blocks {
			if b.Type == "CERTIFICATE" {
				der = b.Bytes
				break
			}
		}
		if der == nil {
			return nil, fmt.Errorf("xmldsig: %w: el PEM no contiene un bloque CERTIFICATE", domain.ErrCertificate)
		}
	}
	if len(der) == 0 {
		return nil, fmt.Errorf("xmldsig: %w: certificado vacío", domain.ErrCertificate)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("xmldsig: parsear certificado: %w: %w", domain.ErrCertificate, err)
	}
	return cert, nil
}

// ParsePrivateKey decodifica una llave RSA en PKCS#1, PKCS#8, PKCS#8 cifrado o PEM
// cifrado tradicional (Proc-Type: 4,ENCRYPTED).
func ParsePrivateKey(data []byte, passphrase string) (*rsa.PrivateKey, error) {
	var block *pem.Block
	for _, b := range pemBlocks(data) {
		if strings.HasSuffix(b.Type, "PRIVATE KEY") {
			block = b
			break
		}
	}
	if block == nil {
		return nil, fmt.Errorf("xmldsig: %w: no se encontró bloque PEM de llave privada", domain.ErrKey)
	}

	var (
		key any
		err error
	)
	switch {
	case block.Type == "ENCRYPTED PRIVATE KEY":
		key, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(passphrase))
	case x509.IsEncryptedPEMBlock(block): //nolint:staticcheck // llaves legadas de las AC siguen usando este formato
		var der []byte
		der, err = x509.DecryptPEMBlock(block, []byte(passphrase)) //nolint:staticcheck
		if err == nil {
			key, err = parseUnencryptedKey(block.Type, der)
		}
	default:
		key, err = parseUnencryptedKey(block.Type, block.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("xmldsig: decodificar llave privada: %w: %w", domain.ErrKey, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("xmldsig: %w: se requiere llave RSA, se recibió %T", domain.ErrKey, key)
	}
	return rsaKey, nil
}

func parseUnencryptedKey(pemType string, der []byte) (any, error) {
	if pemType == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(der)
	}
	return x509.ParsePKCS8PrivateKey(der)
}

func pemBlocks(data []byte) []*pem.Block {
	var blocks []*pem.Block
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			return blocks
		}
		blocks = append(blocks, block)
		data = rest
	}
}
