package xmldsig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/russellhaering/goxmldsig/etreeutils"
	"github.com/ucarion/c14n"
)

// Variant versión de Canonical XML (inclusiva, sin comentarios).
type Variant int

const (
	C14N10 Variant = iota
	C14N11
)

// Algorithm URI del algoritmo de canonicalización.
func (v Variant) Algorithm() string {
	if v == C14N11 {
		return AlgC14N11
	}
	return AlgC14N
}

func (v Variant) canonicalizer() dsig.Canonicalizer {
	if v == C14N11 {
		return dsig.MakeC14N11Canonicalizer()
	}
	return dsig.MakeC14N10RecCanonicalizer()
}

// Canonicalize serializa en forma canónica el subárbol de el. El elemento se desprende
// con todas las declaraciones de namespace que hereda de sus ancestros y con los
// atributos xml:* heredables según la variante; el documento no se modifica.
func Canonicalize(el *etree.Element, v Variant) ([]byte, error) {
	ctx, err := etreeutils.NSBuildParentContext(el)
	if err != nil {
		return nil, fmt.Errorf("contexto de namespaces: %w", err)
	}
	detached, err := etreeutils.NSDetatch(ctx, el)
	if err != nil {
		return nil, fmt.Errorf("desprender <%s>: %w", el.Tag, err)
	}
	inheritXMLAttrs(el, detached, v)
	out, err := v.canonicalizer().Canonicalize(detached)
	if err != nil {
		return nil, fmt.Errorf("canonicalizar <%s>: %w", el.Tag, err)
	}
	return out, nil
}

// C14N 1.0 hereda todos los xml:*; 1.1 solo xml:lang y xml:space.
func inheritXMLAttrs(src, dst *etree.Element, v Variant) {
	for p := src.Parent(); isElement(p); p = p.Parent() {
		for _, a := range p.Attr {
			if a.Space != "xml" {
				continue
			}
			if v == C14N11 && a.Key != "lang" && a.Key != "space" {
				continue
			}
			if dst.SelectAttr("xml:"+a.Key) != nil {
				continue
			}
			dst.CreateAttr("xml:"+a.Key, a.Value)
		}
	}
}

// CanonicalizeDocument canonicaliza un documento XML completo ya serializado.
func CanonicalizeDocument(raw []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("xmldsig: canonicalizar documento: %w", err)
	}
	return out, nil
}

// Fingerprint SHA-256 (hex) de la forma canónica del documento. Dos serializaciones
// equivalentes del mismo XML firmado producen la misma huella.
func Fingerprint(raw []byte) (string, error) {
	canonical, err := CanonicalizeDocument(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
