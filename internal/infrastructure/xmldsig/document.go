package xmldsig

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/signer-dfe/internal/domain"
)

// ParseDocument parsea el XML una sola vez y elimina los nodos de texto que solo
// contienen espacios (indentación, saltos de línea entre etiquetas).
func ParseDocument(raw []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("xmldsig: parsear XML: %w: %w", domain.ErrParse, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("xmldsig: %w: documento sin elemento raíz", domain.ErrParse)
	}
	stripBlankText(&doc.Element)
	return doc, nil
}

// Los documentos fiscales antiguos aún se emiten en ISO-8859-1.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return input, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	}
	return nil, fmt.Errorf("charset no soportado: %s", label)
}

func stripBlankText(e *etree.Element) {
	for i := len(e.Child) - 1; i >= 0; i-- {
		switch t := e.Child[i].(type) {
		case *etree.CharData:
			if !t.IsCData() && t.IsWhitespace() {
				e.RemoveChildAt(i)
			}
		case *etree.Element:
			stripBlankText(t)
		}
	}
}

// serializeWithoutDeclaration escribe el documento sin la declaración <?xml ...?> y
// colapsa solo el primer salto de línea. No aplica ningún otro formateo.
func serializeWithoutDeclaration(doc *etree.Document) (string, error) {
	out := doc.Copy()
	for i := len(out.Child) - 1; i >= 0; i-- {
		if p, ok := out.Child[i].(*etree.ProcInst); ok && p.Target == "xml" {
			out.RemoveChildAt(i)
		}
	}
	s, err := out.WriteToString()
	if err != nil {
		return "", fmt.Errorf("xmldsig: serializar documento: %w", err)
	}
	return strings.Replace(s, "\n", "", 1), nil
}

// findDS busca en orden de documento el primer descendiente de scope con nombre local
// tag en el namespace XML-DSig, sin importar el prefijo.
func findDS(scope *etree.Element, tag string) *etree.Element {
	for _, child := range scope.ChildElements() {
		if child.Tag == tag && child.NamespaceURI() == NamespaceDS {
			return child
		}
		if found := findDS(child, tag); found != nil {
			return found
		}
	}
	return nil
}
