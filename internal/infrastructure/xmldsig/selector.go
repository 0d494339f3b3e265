package xmldsig

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/jhoicas/signer-dfe/internal/domain"
)

// Selector localiza elementos con la sintaxis CSS reducida que usan los integradores:
//
//	infNFe                 nombre de etiqueta (cualquier prefijo)
//	NFe infNFe             descendiente
//	NFe > infNFe           hijo directo
//	#NFe3519...            atributo Id (o id)
//	infEvento[versao=1.00] atributo con valor; [Id] solo presencia
//	ds:Signature           etiqueta con prefijo exacto
//
// Si empieza por "/" o "." se interpreta como path de etree sin traducir.
type Selector struct {
	raw   string
	path  *etree.Path
	steps []selectorStep
}

type selectorStep struct {
	combinator byte // ' ' descendiente, '>' hijo; se ignora en el primer paso
	tag        string
	id         string
	attrs      []attrFilter
}

type attrFilter struct {
	key      string
	value    string
	hasValue bool
}

// CompileSelector valida y compila el selector.
func CompileSelector(s string) (*Selector, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, fmt.Errorf("xmldsig: %w: selector vacío", domain.ErrInvalidInput)
	}
	if raw[0] == '/' || raw[0] == '.' {
		p, err := etree.CompilePath(raw)
		if err != nil {
			return nil, fmt.Errorf("xmldsig: %w: path %q: %w", domain.ErrInvalidInput, raw, err)
		}
		return &Selector{raw: raw, path: &p}, nil
	}
	steps, err := parseSteps(raw)
	if err != nil {
		return nil, fmt.Errorf("xmldsig: %w: selector %q: %w", domain.ErrInvalidInput, raw, err)
	}
	return &Selector{raw: raw, steps: steps}, nil
}

// String devuelve el selector tal como fue escrito.
func (s *Selector) String() string {
	return s.raw
}

// First devuelve el primer elemento, en orden de documento, que cumple el selector
// dentro de scope (sin incluir a scope). Devuelve nil si no hay coincidencias.
func (s *Selector) First(scope *etree.Element) *etree.Element {
	if s.path != nil {
		return scope.FindElementPath(*s.path)
	}
	return s.firstIn(scope)
}

func (s *Selector) firstIn(scope *etree.Element) *etree.Element {
	for _, child := range scope.ChildElements() {
		if s.matchAt(child, len(s.steps)-1) {
			return child
		}
		if found := s.firstIn(child); found != nil {
			return found
		}
	}
	return nil
}

func (s *Selector) matchAt(e *etree.Element, i int) bool {
	if !s.steps[i].matches(e) {
		return false
	}
	if i == 0 {
		return true
	}
	if s.steps[i].combinator == '>' {
		parent := e.Parent()
		return isElement(parent) && s.matchAt(parent, i-1)
	}
	for p := e.Parent(); isElement(p); p = p.Parent() {
		if s.matchAt(p, i-1) {
			return true
		}
	}
	return false
}

// El Document de etree también es un *Element, pero sin etiqueta.
func isElement(e *etree.Element) bool {
	return e != nil && e.Tag != ""
}

func (st selectorStep) matches(e *etree.Element) bool {
	switch {
	case st.tag == "" || st.tag == "*":
	case strings.Contains(st.tag, ":"):
		if e.FullTag() != st.tag {
			return false
		}
	default:
		if e.Tag != st.tag {
			return false
		}
	}
	if st.id != "" && e.SelectAttrValue("Id", "") != st.id && e.SelectAttrValue("id", "") != st.id {
		return false
	}
	for _, f := range st.attrs {
		a := e.SelectAttr(f.key)
		if a == nil || (f.hasValue && a.Value != f.value) {
			return false
		}
	}
	return true
}

// parseSteps separa los pasos por espacios o '>' fuera de corchetes.
func parseSteps(raw string) ([]selectorStep, error) {
	var (
		steps      []selectorStep
		current    strings.Builder
		combinator byte = ' '
		depth      int
	)
	flush := func() error {
		if current.Len() == 0 {
			return nil
		}
		st, err := parseCompound(current.String())
		if err != nil {
			return err
		}
		st.combinator = combinator
		steps = append(steps, st)
		current.Reset()
		combinator = ' '
		return nil
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '[':
			depth++
			current.WriteByte(c)
		case c == ']':
			depth--
			current.WriteByte(c)
		case depth == 0 && (c == ' ' || c == '\t' || c == '\n'):
			if err := flush(); err != nil {
				return nil, err
			}
		case depth == 0 && c == '>':
			if err := flush(); err != nil {
				return nil, err
			}
			if len(steps) == 0 {
				return nil, fmt.Errorf("combinador '>' sin elemento previo")
			}
			combinator = '>'
		default:
			current.WriteByte(c)
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("corchetes desbalanceados")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(steps) == 0 || combinator == '>' {
		return nil, fmt.Errorf("selector incompleto")
	}
	return steps, nil
}

// parseCompound interpreta "tag#id[attr=valor][attr]".
func parseCompound(s string) (selectorStep, error) {
	var st selectorStep
	end := strings.IndexAny(s, "#[")
	if end < 0 {
		end = len(s)
	}
	st.tag = s[:end]
	rest := s[end:]
	for rest != "" {
		switch rest[0] {
		case '#':
			next := strings.IndexAny(rest[1:], "#[")
			if next < 0 {
				next = len(rest) - 1
			}
			st.id = rest[1 : next+1]
			if st.id == "" {
				return st, fmt.Errorf("id vacío")
			}
			rest = rest[next+1:]
		case '[':
			closing := strings.IndexByte(rest, ']')
			if closing < 0 {
				return st, fmt.Errorf("falta ']'")
			}
			f, err := parseAttrFilter(rest[1:closing])
			if err != nil {
				return st, err
			}
			st.attrs = append(st.attrs, f)
			rest = rest[closing+1:]
		default:
			return st, fmt.Errorf("carácter inesperado %q", rest[0])
		}
	}
	return st, nil
}

func parseAttrFilter(s string) (attrFilter, error) {
	key, value, hasValue := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return attrFilter{}, fmt.Errorf("atributo vacío")
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		value = value[1 : len(value)-1]
	}
	return attrFilter{key: key, value: value, hasValue: hasValue}, nil
}
