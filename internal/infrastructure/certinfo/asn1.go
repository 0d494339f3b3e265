package certinfo

import (
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jhoicas/signer-dfe/internal/domain"
)

// Kind variante de un nodo ASN.1 decodificado.
type Kind int

const (
	KindOther Kind = iota
	KindObjectIdentifier
	KindOctetString
	KindSequence // SEQUENCE, SET o cualquier tag construido ([0] EXPLICIT, etc.)
)

func (k Kind) String() string {
	switch k {
	case KindObjectIdentifier:
		return "object_identifier"
	case KindOctetString:
		return "octet_string"
	case KindSequence:
		return "sequence"
	default:
		return "other"
	}
}

// Node árbol DER decodificado. OID solo se llena en KindObjectIdentifier; Bytes guarda
// el contenido de los nodos primitivos; Children los miembros de los construidos.
type Node struct {
	Kind     Kind
	Tag      cryptobyte_asn1.Tag
	OID      asn1.ObjectIdentifier
	Bytes    []byte
	Children []Node
}

const maxDepth = 32

// Decode decodifica un único elemento DER con todo su anidamiento. Bytes sobrantes
// después del elemento se consideran error.
func Decode(der []byte) (Node, error) {
	input := cryptobyte.String(der)
	n, err := decodeElement(&input, 0)
	if err != nil {
		return Node{}, err
	}
	if !input.Empty() {
		return Node{}, fmt.Errorf("certinfo: %w: %d bytes después del elemento", domain.ErrExtensionDecode, len(input))
	}
	return n, nil
}

func decodeElement(s *cryptobyte.String, depth int) (Node, error) {
	if depth > maxDepth {
		return Node{}, fmt.Errorf("certinfo: %w: anidamiento mayor a %d", domain.ErrExtensionDecode, maxDepth)
	}
	var (
		element cryptobyte.String
		content cryptobyte.String
		tag     cryptobyte_asn1.Tag
	)
	if !s.ReadAnyASN1Element(&element, &tag) {
		return Node{}, fmt.Errorf("certinfo: %w: elemento DER inválido", domain.ErrExtensionDecode)
	}
	full := element
	if !element.ReadAnyASN1(&content, &tag) {
		return Node{}, fmt.Errorf("certinfo: %w: contenido DER inválido", domain.ErrExtensionDecode)
	}

	n := Node{Tag: tag}
	switch {
	case tag == cryptobyte_asn1.OBJECT_IDENTIFIER:
		n.Kind = KindObjectIdentifier
		if !full.ReadASN1ObjectIdentifier(&n.OID) {
			return Node{}, fmt.Errorf("certinfo: %w: OBJECT IDENTIFIER inválido", domain.ErrExtensionDecode)
		}
	case tag == cryptobyte_asn1.OCTET_STRING:
		n.Kind = KindOctetString
		n.Bytes = content
	case tag&0x20 != 0:
		n.Kind = KindSequence
		for !content.Empty() {
			child, err := decodeElement(&content, depth+1)
			if err != nil {
				return Node{}, err
			}
			n.Children = append(n.Children, child)
		}
	default:
		n.Kind = KindOther
		n.Bytes = content
	}
	return n, nil
}
