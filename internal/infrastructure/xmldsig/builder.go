// Firma XML-DSig envolvente (RSA-SHA1) sobre un elemento de un documento fiscal.
// El nodo Signature queda dentro del documento y lleva el certificado en KeyInfo.

package xmldsig

import (
	"crypto"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // RSA-SHA1 es el algoritmo exigido por el esquema del documento
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/jhoicas/signer-dfe/internal/domain"
)

// Encoder convierte bytes binarios a texto (Base64 por defecto). Puede devolver saltos
// de línea; el Builder los elimina donde el valor debe ser un único token.
type Encoder func([]byte) string

// Digester calcula el digest de la forma canónica del elemento firmado (SHA-1 por defecto).
type Digester func([]byte) []byte

// Option configura un Builder.
type Option func(*Builder)

// WithEncoder reemplaza la codificación Base64.
func WithEncoder(enc Encoder) Option {
	return func(b *Builder) { b.encode = enc }
}

// WithDigester reemplaza el cálculo SHA-1 del DigestValue.
func WithDigester(d Digester) Option {
	return func(b *Builder) { b.digest = d }
}

// WithSigner firma con s en lugar de la llave privada cargada (p. ej. HSM o token A3).
func WithSigner(s crypto.Signer) Option {
	return func(b *Builder) { b.signer = s }
}

// Builder arma la estructura Signature sobre un documento que posee en exclusiva.
//
// Cada operación muta el documento en el lugar y nunca elimina nodos: llamar Sign dos
// veces agrega una segunda Reference, un segundo SignatureValue y un segundo KeyInfo.
// Sign debe llamarse una sola vez por documento. Ante cualquier error el documento
// queda en un estado parcial y el Builder debe descartarse. No es seguro para uso
// concurrente.
type Builder struct {
	doc            *etree.Document
	certificate    *x509.Certificate
	signer         crypto.Signer
	rootSelector   *Selector
	targetSelector *Selector

	// root se resuelve una sola vez; rootResolved distingue "sin resolver" de
	// "resuelto sin coincidencias".
	root         *etree.Element
	rootResolved bool

	encode Encoder
	digest Digester

	referenceURI string
	digestValue  string
}

// NewBuilder parsea el documento y las credenciales PEM. rootSelector indica dónde se
// insertará Signature si el documento no lo trae; targetSelector el elemento a firmar.
func NewBuilder(documentXML, certificatePEM, privateKeyPEM []byte, passphrase, rootSelector, targetSelector string, opts ...Option) (*Builder, error) {
	doc, err := ParseDocument(documentXML)
	if err != nil {
		return nil, err
	}
	creds, err := LoadPEM(certificatePEM, privateKeyPEM, passphrase)
	if err != nil {
		return nil, err
	}
	return newBuilder(doc, creds, rootSelector, targetSelector, opts)
}

// NewBuilderFromCredentials igual que NewBuilder pero con credenciales ya cargadas
// (p. ej. desde un .p12).
func NewBuilderFromCredentials(documentXML []byte, creds *Credentials, rootSelector, targetSelector string, opts ...Option) (*Builder, error) {
	doc, err := ParseDocument(documentXML)
	if err != nil {
		return nil, err
	}
	if creds == nil || creds.Certificate == nil {
		return nil, fmt.Errorf("xmldsig: %w: credenciales sin certificado", domain.ErrCertificate)
	}
	if creds.PrivateKey == nil {
		return nil, fmt.Errorf("xmldsig: %w: credenciales sin llave privada", domain.ErrKey)
	}
	return newBuilder(doc, creds, rootSelector, targetSelector, opts)
}

func newBuilder(doc *etree.Document, creds *Credentials, rootSelector, targetSelector string, opts []Option) (*Builder, error) {
	rootSel, err := CompileSelector(rootSelector)
	if err != nil {
		return nil, err
	}
	targetSel, err := CompileSelector(targetSelector)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		doc:            doc,
		certificate:    creds.Certificate,
		signer:         creds.PrivateKey,
		rootSelector:   rootSel,
		targetSelector: targetSel,
		encode:         base64.StdEncoding.EncodeToString,
		digest:         sha1Digest,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func sha1Digest(data []byte) []byte {
	sum := sha1.Sum(data) //nolint:gosec
	return sum[:]
}

// Document devuelve el árbol en memoria. Sigue siendo propiedad del Builder.
func (b *Builder) Document() *etree.Document {
	return b.doc
}

// Certificate devuelve el certificado que se incrusta en KeyInfo.
func (b *Builder) Certificate() *x509.Certificate {
	return b.certificate
}

// Reference devuelve la URI y el DigestValue de la última Reference agregada por Digest.
func (b *Builder) Reference() (uri, digestValue string) {
	return b.referenceURI, b.digestValue
}

// SetRootSelector cambia el selector raíz. Si RootNode ya fue resuelto, el nodo
// cacheado se mantiene.
func (b *Builder) SetRootSelector(selector string) error {
	sel, err := CompileSelector(selector)
	if err != nil {
		return err
	}
	b.rootSelector = sel
	return nil
}

// RootNode devuelve el elemento que alojará Signature. Se resuelve en el primer acceso
// y no se vuelve a calcular aunque cambien el selector o el árbol.
func (b *Builder) RootNode() (*etree.Element, error) {
	if !b.rootResolved {
		b.root = b.rootSelector.First(&b.doc.Element)
		b.rootResolved = true
	}
	if b.root == nil {
		return nil, fmt.Errorf("xmldsig: %w: raíz %q", domain.ErrElementNotFound, b.rootSelector)
	}
	return b.root, nil
}

// SignatureNode devuelve el primer Signature del documento en el namespace XML-DSig o
// lo crea como último hijo de RootNode con ese namespace por defecto.
func (b *Builder) SignatureNode() (*etree.Element, error) {
	if sig := findDS(&b.doc.Element, tagSignature); sig != nil {
		return sig, nil
	}
	root, err := b.RootNode()
	if err != nil {
		return nil, err
	}
	sig := root.CreateElement(tagSignature)
	sig.CreateAttr("xmlns", NamespaceDS)
	return sig, nil
}

// SignedInfoNode devuelve el SignedInfo de Signature o lo crea con
// CanonicalizationMethod (C14N 1.0) y SignatureMethod (RSA-SHA1).
func (b *Builder) SignedInfoNode() (*etree.Element, error) {
	sig, err := b.SignatureNode()
	if err != nil {
		return nil, err
	}
	if signedInfo := findDS(sig, tagSignedInfo); signedInfo != nil {
		return signedInfo, nil
	}
	signedInfo := newChild(sig, tagSignedInfo)
	setAlgorithm(newChild(signedInfo, tagCanonicalizationMethod), AlgC14N)
	setAlgorithm(newChild(signedInfo, tagSignatureMethod), AlgRSASHA1)
	return signedInfo, nil
}

// Digest calcula el SHA-1 de la forma canónica (C14N 1.1) del elemento a firmar y
// agrega la Reference correspondiente a SignedInfo.
//
// La Reference anuncia el transform C14N 1.0 aunque el digest se calcula con 1.1;
// los validadores del esquema fiscal esperan exactamente esa URI.
func (b *Builder) Digest() error {
	target := b.targetSelector.First(&b.doc.Element)
	if target == nil {
		return fmt.Errorf("xmldsig: %w: elemento a firmar %q", domain.ErrElementNotFound, b.targetSelector)
	}
	id := target.SelectAttrValue(attrID, "")

	canonical, err := Canonicalize(target, C14N11)
	if err != nil {
		return fmt.Errorf("xmldsig: %w: %w", domain.ErrParse, err)
	}
	digestValue := strings.TrimSpace(b.encode(b.digest(canonical)))

	signedInfo, err := b.SignedInfoNode()
	if err != nil {
		return err
	}
	uri := ""
	if id != "" {
		uri = "#" + id
	}
	addReference(signedInfo, uri, digestValue)
	b.referenceURI, b.digestValue = uri, digestValue
	return nil
}

func addReference(signedInfo *etree.Element, uri, digestValue string) {
	ref := newChild(signedInfo, tagReference)
	ref.CreateAttr(attrURI, uri)

	transforms := newChild(ref, tagTransforms)
	setAlgorithm(newChild(transforms, tagTransform), TransformEnveloped)
	setAlgorithm(newChild(transforms, tagTransform), AlgC14N)

	setAlgorithm(newChild(ref, tagDigestMethod), AlgSHA1)
	newChild(ref, tagDigestValue).SetText(digestValue)
}

// EmbedCertificate inserta KeyInfo/X509Data/X509Certificate como hermano siguiente de
// SignedInfo y devuelve el nodo X509Data. Debe ejecutarse después de Digest y antes de
// firmar: la firma cubre SignedInfo, no KeyInfo.
func (b *Builder) EmbedCertificate() (*etree.Element, error) {
	signedInfo, err := b.SignedInfoNode()
	if err != nil {
		return nil, err
	}
	keyInfo := newSibling(signedInfo, tagKeyInfo)
	data := newChild(keyInfo, tagX509Data)
	newChild(data, tagX509Certificate).SetText(stripNewlines(b.encode(b.certificate.Raw)))
	insertAfter(signedInfo, keyInfo)
	return data, nil
}

// Sign ejecuta Digest, EmbedCertificate y firma la forma canónica (C14N 1.1) de
// SignedInfo con RSA-SHA1. El SignatureValue queda inmediatamente después de
// SignedInfo: SignedInfo, SignatureValue, KeyInfo.
func (b *Builder) Sign() error {
	if err := b.Digest(); err != nil {
		return err
	}
	if _, err := b.EmbedCertificate(); err != nil {
		return err
	}
	signedInfo, err := b.SignedInfoNode()
	if err != nil {
		return err
	}
	canonical, err := Canonicalize(signedInfo, C14N11)
	if err != nil {
		return fmt.Errorf("xmldsig: %w: %w", domain.ErrParse, err)
	}
	hashed := sha1.Sum(canonical) //nolint:gosec
	signature, err := b.signer.Sign(rand.Reader, hashed[:], crypto.SHA1)
	if err != nil {
		return fmt.Errorf("xmldsig: firmar SignedInfo: %w: %w", domain.ErrSigning, err)
	}

	signatureValue := newSibling(signedInfo, tagSignatureValue)
	signatureValue.SetText(stripNewlines(b.encode(signature)))
	insertAfter(signedInfo, signatureValue)
	return nil
}

// Serialize devuelve el documento sin declaración XML.
func (b *Builder) Serialize() (string, error) {
	return serializeWithoutDeclaration(b.doc)
}

// newChild crea el hijo con el mismo prefijo que el padre, así los nodos nuevos quedan
// en el namespace XML-DSig tanto con xmlns por defecto como con prefijo ds:.
func newChild(parent *etree.Element, tag string) *etree.Element {
	return parent.CreateElement(qualified(parent, tag))
}

func newSibling(sibling *etree.Element, tag string) *etree.Element {
	return etree.NewElement(qualified(sibling, tag))
}

func qualified(ref *etree.Element, tag string) string {
	if ref.Space == "" {
		return tag
	}
	return ref.Space + ":" + tag
}

func insertAfter(ref, el *etree.Element) {
	ref.Parent().InsertChildAt(ref.Index()+1, el)
}

func setAlgorithm(el *etree.Element, uri string) {
	el.CreateAttr(attrAlgorithm, uri)
}

var newlineStripper = strings.NewReplacer("\r", "", "\n", "")

func stripNewlines(s string) string {
	return newlineStripper.Replace(s)
}
