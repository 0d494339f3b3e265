package xmldsig_test

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/signer-dfe/internal/domain"
	"github.com/jhoicas/signer-dfe/internal/infrastructure/xmldsig"
	"github.com/jhoicas/signer-dfe/internal/testutil"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

const (
	xmlEntrada = "<?xml version=\"1.0\"?> <xml><ass Id=\"123456\"> <a> AAA </a><b>BBB</b>\n<c>CCCC</c>\n</ass>\n</xml>"

	xmlConSignature = "<?xml version=\"1.0\"?> <xml><ass Id=\"123456\"> <a> AAA </a><b>BBB</b>\n<c>CCCC</c>\n</ass>" +
		"<Signature xmlns=\"http://www.w3.org/2000/09/xmldsig#\"><adafa>dsfa</adafa></Signature>\n</xml>"

	xmlConSignedInfo = "<?xml version=\"1.0\"?> <xml><ass Id=\"123456\"> <a> AAA </a><b>BBB</b>\n<c>CCCC</c>\n</ass>" +
		"<Signature xmlns=\"http://www.w3.org/2000/09/xmldsig#\"><SignedInfo><adafa>dsfa</adafa></SignedInfo></Signature>\n</xml>"

	signedInfoVacio = `<SignedInfo>` +
		`<CanonicalizationMethod Algorithm="http://www.w3.org/TR/2001/REC-xml-c14n-20010315"/>` +
		`<SignatureMethod Algorithm="http://www.w3.org/2000/09/xmldsig#rsa-sha1"/>` +
		`</SignedInfo>`

	referenceFija = `<Reference URI="#123456"><Transforms>` +
		`<Transform Algorithm="http://www.w3.org/2000/09/xmldsig#enveloped-signature"/>` +
		`<Transform Algorithm="http://www.w3.org/TR/2001/REC-xml-c14n-20010315"/>` +
		`</Transforms>` +
		`<DigestMethod Algorithm="http://www.w3.org/2000/09/xmldsig#sha1"/>` +
		`<DigestValue>123456</DigestValue></Reference>`

	documentoBase = `<xml><ass Id="123456"><a> AAA </a><b>BBB</b><c>CCCC</c></ass>`

	xmlDigerido = documentoBase +
		`<Signature xmlns="http://www.w3.org/2000/09/xmldsig#"><SignedInfo>` +
		`<CanonicalizationMethod Algorithm="http://www.w3.org/TR/2001/REC-xml-c14n-20010315"/>` +
		`<SignatureMethod Algorithm="http://www.w3.org/2000/09/xmldsig#rsa-sha1"/>` +
		referenceFija + `</SignedInfo></Signature></xml>`

	xmlFirmado = documentoBase +
		`<Signature xmlns="http://www.w3.org/2000/09/xmldsig#"><SignedInfo>` +
		`<CanonicalizationMethod Algorithm="http://www.w3.org/TR/2001/REC-xml-c14n-20010315"/>` +
		`<SignatureMethod Algorithm="http://www.w3.org/2000/09/xmldsig#rsa-sha1"/>` +
		referenceFija + `</SignedInfo>` +
		`<SignatureValue>123456</SignatureValue>` +
		`<KeyInfo><X509Data><X509Certificate>123456</X509Certificate></X509Data></KeyInfo>` +
		`</Signature></xml>`

	// SHA-1/Base64 de <ass Id="123456"><a> AAA </a><b>BBB</b><c>CCCC</c></ass>
	digestAss = "zN/C4lAwsZyYQZkbHTKQpUhU7fo="
	// SHA-1/Base64 de <ass><a> AAA </a></ass>
	digestAssSinID = "k99Rf/QMYeEpa1v7RqK3lSV5SLY="
	// SHA-1/Base64 de <infNFe xmlns="http://www.portalfiscal.inf.br/nfe" Id="NFe35" versao="4.00"><ide><cUF>35</cUF></ide></infNFe>
	digestInfNFe = "bYrc+R9j7pxUx3LGYZu0+PZFqsM="
)

func fixedEncoder(_ []byte) string { return "123456" }

func newBuilder(t *testing.T, xml, root, target string, opts ...xmldsig.Option) *xmldsig.Builder {
	t.Helper()
	cert := testutil.Certificate(t, testutil.CertOptions{})
	b, err := xmldsig.NewBuilder([]byte(xml), testutil.CertificatePEM(cert), testutil.KeyPEM(t), "34343", root, target, opts...)
	require.NoError(t, err, "NewBuilder no debe fallar con credenciales válidas")
	return b
}

// nodeXML serializa un nodo suelto, igual que se vería dentro del documento.
func nodeXML(t *testing.T, el *etree.Element) string {
	t.Helper()
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	s, err := doc.WriteToString()
	require.NoError(t, err)
	return s
}

// ──────────────────────────────────────────────────────────────────────────────
// Serialize / RootNode
// ──────────────────────────────────────────────────────────────────────────────

func TestSerialize_SinDeclaracionNiEspacios(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "ass")
	require.NotNil(t, b.Document())

	out, err := b.Serialize()
	require.NoError(t, err)
	assert.Equal(t, documentoBase+`</xml>`, out,
		"la salida no debe tener declaración XML ni nodos de texto en blanco")
}

func TestRootNode_ResuelvePorSelector(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "ass")

	root, err := b.RootNode()
	require.NoError(t, err)
	assert.Equal(t, "xml", root.Tag)
}

func TestRootNode_NoSeRecalculaAlCambiarSelector(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "ass")
	first, err := b.RootNode()
	require.NoError(t, err)

	require.NoError(t, b.SetRootSelector("ass"))
	second, err := b.RootNode()
	require.NoError(t, err)

	assert.Same(t, first, second, "el nodo raíz queda cacheado aunque cambie el selector")
}

func TestRootNode_SinCoincidenciaEsElementNotFound(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "NFe", "ass")

	_, err := b.RootNode()
	assert.ErrorIs(t, err, domain.ErrElementNotFound)

	_, err = b.SignatureNode()
	assert.ErrorIs(t, err, domain.ErrElementNotFound,
		"sin raíz no se puede crear Signature")
}

// ──────────────────────────────────────────────────────────────────────────────
// SignatureNode / SignedInfoNode
// ──────────────────────────────────────────────────────────────────────────────

func TestSignatureNode_DevuelveElExistente(t *testing.T) {
	b := newBuilder(t, xmlConSignature, "xml", "ass")

	sig, err := b.SignatureNode()
	require.NoError(t, err)
	assert.Equal(t,
		`<Signature xmlns="http://www.w3.org/2000/09/xmldsig#"><adafa>dsfa</adafa></Signature>`,
		nodeXML(t, sig))
}

func TestSignatureNode_CreaConNamespaceXMLDSig(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "ass")

	sig, err := b.SignatureNode()
	require.NoError(t, err)
	assert.Equal(t, `<Signature xmlns="http://www.w3.org/2000/09/xmldsig#"/>`, nodeXML(t, sig))
	assert.Equal(t, "xml", sig.Parent().Tag, "Signature se crea como hijo de la raíz")
	assert.Equal(t, xmldsig.NamespaceDS, sig.NamespaceURI())
}

func TestSignatureNode_IgnoraSignatureDeOtroNamespace(t *testing.T) {
	in := `<xml><ass Id="1"/><Signature xmlns="urn:otro"/></xml>`
	b := newBuilder(t, in, "xml", "ass")

	sig, err := b.SignatureNode()
	require.NoError(t, err)
	assert.Equal(t, xmldsig.NamespaceDS, sig.NamespaceURI())
	assert.Len(t, b.Document().Root().ChildElements(), 3, "se crea un Signature nuevo")
}

func TestSignedInfoNode_DevuelveElExistente(t *testing.T) {
	b := newBuilder(t, xmlConSignedInfo, "xml", "ass")

	si, err := b.SignedInfoNode()
	require.NoError(t, err)
	assert.Equal(t, `<SignedInfo><adafa>dsfa</adafa></SignedInfo>`, nodeXML(t, si))
}

func TestSignedInfoNode_CreaConMetodosFijos(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "ass")

	si, err := b.SignedInfoNode()
	require.NoError(t, err)
	assert.Equal(t, signedInfoVacio, nodeXML(t, si))
}

func TestSignedInfoNode_RespetaPrefijoDS(t *testing.T) {
	in := `<doc><item Id="x"/><ds:Signature xmlns:ds="http://www.w3.org/2000/09/xmldsig#"/></doc>`
	b := newBuilder(t, in, "doc", "item")

	si, err := b.SignedInfoNode()
	require.NoError(t, err)
	assert.Equal(t, "ds:SignedInfo", si.FullTag())
	assert.Equal(t, xmldsig.NamespaceDS, si.NamespaceURI())
}

// ──────────────────────────────────────────────────────────────────────────────
// EmbedCertificate
// ──────────────────────────────────────────────────────────────────────────────

func TestEmbedCertificate_GeneraX509Data(t *testing.T) {
	b := newBuilder(t, xmlConSignedInfo, "xml", "ass", xmldsig.WithEncoder(fixedEncoder))

	data, err := b.EmbedCertificate()
	require.NoError(t, err)
	assert.Equal(t, `<X509Data><X509Certificate>123456</X509Certificate></X509Data>`, nodeXML(t, data))

	si, err := b.SignedInfoNode()
	require.NoError(t, err)
	keyInfo := si.Parent().Child[si.Index()+1].(*etree.Element)
	assert.Equal(t, "KeyInfo", keyInfo.Tag, "KeyInfo queda como hermano siguiente de SignedInfo")
}

func TestEmbedCertificate_CertificadoEnUnSoloToken(t *testing.T) {
	wrapped := func(p []byte) string {
		s := base64.StdEncoding.EncodeToString(p)
		var sb strings.Builder
		for len(s) > 60 {
			sb.WriteString(s[:60] + "\n")
			s = s[60:]
		}
		sb.WriteString(s + "\n")
		return sb.String()
	}
	b := newBuilder(t, xmlEntrada, "xml", "ass", xmldsig.WithEncoder(wrapped))

	data, err := b.EmbedCertificate()
	require.NoError(t, err)
	value := data.SelectElement("X509Certificate").Text()
	assert.NotContains(t, value, "\n")

	der, err := base64.StdEncoding.DecodeString(value)
	require.NoError(t, err)
	assert.Equal(t, b.Certificate().Raw, der, "X509Certificate es el DER del certificado")
}

// ──────────────────────────────────────────────────────────────────────────────
// Digest
// ──────────────────────────────────────────────────────────────────────────────

func TestDigest_AgregaReference(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "ass", xmldsig.WithEncoder(fixedEncoder))

	require.NoError(t, b.Digest())
	out, err := b.Serialize()
	require.NoError(t, err)
	assert.Equal(t, xmlDigerido, out)
}

func TestDigest_ValorSHA1DeLaFormaCanonica(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "ass")

	require.NoError(t, b.Digest())
	uri, digest := b.Reference()
	assert.Equal(t, "#123456", uri)
	assert.Equal(t, digestAss, digest)

	dv := b.Document().FindElement("//DigestValue")
	require.NotNil(t, dv)
	assert.Equal(t, digestAss, dv.Text())
}

func TestDigest_SinIdGeneraURIVacia(t *testing.T) {
	b := newBuilder(t, `<xml><ass><a> AAA </a></ass></xml>`, "xml", "ass")

	require.NoError(t, b.Digest())
	ref := b.Document().FindElement("//Reference")
	require.NotNil(t, ref)
	attr := ref.SelectAttr("URI")
	require.NotNil(t, attr, "el atributo URI siempre existe")
	assert.Equal(t, "", attr.Value)

	_, digest := b.Reference()
	assert.Equal(t, digestAssSinID, digest)
}

func TestDigest_IncluyeNamespaceHeredado(t *testing.T) {
	in := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe Id="NFe35" versao="4.00"><ide><cUF>35</cUF></ide></infNFe></NFe>`
	b := newBuilder(t, in, "NFe", "infNFe")

	require.NoError(t, b.Digest())
	uri, digest := b.Reference()
	assert.Equal(t, "#NFe35", uri)
	assert.Equal(t, digestInfNFe, digest,
		"la forma canónica del elemento debe declarar el namespace heredado del padre")
}

func TestDigest_UsaElDigesterInyectado(t *testing.T) {
	var received []byte
	digester := func(p []byte) []byte {
		received = append([]byte(nil), p...)
		return []byte{0xCA, 0xFE}
	}
	b := newBuilder(t, xmlEntrada, "xml", "ass", xmldsig.WithDigester(digester))

	require.NoError(t, b.Digest())
	assert.Equal(t, `<ass Id="123456"><a> AAA </a><b>BBB</b><c>CCCC</c></ass>`, string(received))
	_, digest := b.Reference()
	assert.Equal(t, "yv4=", digest)
}

func TestDigest_ElementoNoEncontrado(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "infNFe")

	err := b.Digest()
	assert.ErrorIs(t, err, domain.ErrElementNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sign
// ──────────────────────────────────────────────────────────────────────────────

func TestSign_EstructuraCompleta(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "ass", xmldsig.WithEncoder(fixedEncoder))

	require.NoError(t, b.Sign())
	out, err := b.Serialize()
	require.NoError(t, err)
	assert.Equal(t, xmlFirmado, out,
		"orden esperado bajo Signature: SignedInfo, SignatureValue, KeyInfo")
}

func TestSign_FirmaVerificableConLaLlavePublica(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "ass")
	require.NoError(t, b.Sign())
	out, err := b.Serialize()
	require.NoError(t, err)

	// Re-parsear la salida como lo haría un validador.
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))
	sig := doc.FindElement("//Signature")
	require.NotNil(t, sig)
	assert.Equal(t, xmldsig.NamespaceDS, sig.SelectAttrValue("xmlns", ""))

	children := sig.ChildElements()
	require.Len(t, children, 3)
	assert.Equal(t, []string{"SignedInfo", "SignatureValue", "KeyInfo"},
		[]string{children[0].Tag, children[1].Tag, children[2].Tag})

	canonical, err := xmldsig.Canonicalize(children[0], xmldsig.C14N11)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(canonical), `<SignedInfo xmlns="http://www.w3.org/2000/09/xmldsig#">`))

	sigBytes, err := base64.StdEncoding.DecodeString(children[1].Text())
	require.NoError(t, err)
	hashed := sha1.Sum(canonical) //nolint:gosec
	pub := b.Certificate().PublicKey.(*rsa.PublicKey)
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA1, hashed[:], sigBytes),
		"SignatureValue debe verificar contra SignedInfo canónico")
}

func TestSign_DosVecesDuplicaLaSubestructura(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "ass")

	require.NoError(t, b.Sign())
	require.NoError(t, b.Sign())

	sigs := b.Document().FindElements("//Signature")
	require.Len(t, sigs, 1, "se reutiliza el mismo Signature")
	count := func(tag string) int { return len(sigs[0].SelectElements(tag)) }
	assert.Equal(t, 1, count("SignedInfo"))
	assert.Equal(t, 2, count("SignatureValue"))
	assert.Equal(t, 2, count("KeyInfo"))
	assert.Len(t, sigs[0].SelectElement("SignedInfo").SelectElements("Reference"), 2)
}

type failingSigner struct{ pub crypto.PublicKey }

func (f failingSigner) Public() crypto.PublicKey { return f.pub }

func (f failingSigner) Sign(io.Reader, []byte, crypto.SignerOpts) ([]byte, error) {
	return nil, errors.New("token desconectado")
}

func TestSign_ErrorDelFirmante(t *testing.T) {
	b := newBuilder(t, xmlEntrada, "xml", "ass",
		xmldsig.WithSigner(failingSigner{pub: testutil.RSAKey(t).Public()}))

	err := b.Sign()
	assert.ErrorIs(t, err, domain.ErrSigning)
	assert.Contains(t, err.Error(), "token desconectado")
}

// ──────────────────────────────────────────────────────────────────────────────
// Construcción
// ──────────────────────────────────────────────────────────────────────────────

func TestNewBuilder_XMLMalFormado(t *testing.T) {
	cert := testutil.Certificate(t, testutil.CertOptions{})
	_, err := xmldsig.NewBuilder([]byte("<xml><ass>"), testutil.CertificatePEM(cert), testutil.KeyPEM(t), "", "xml", "ass")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestNewBuilder_DocumentoVacio(t *testing.T) {
	cert := testutil.Certificate(t, testutil.CertOptions{})
	_, err := xmldsig.NewBuilder(nil, testutil.CertificatePEM(cert), testutil.KeyPEM(t), "", "xml", "ass")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestNewBuilder_CertificadoInvalido(t *testing.T) {
	_, err := xmldsig.NewBuilder([]byte(xmlEntrada), []byte("afasdfa"), testutil.KeyPEM(t), "", "xml", "ass")
	assert.ErrorIs(t, err, domain.ErrCertificate)
}

func TestNewBuilder_LlaveInvalida(t *testing.T) {
	cert := testutil.Certificate(t, testutil.CertOptions{})
	_, err := xmldsig.NewBuilder([]byte(xmlEntrada), testutil.CertificatePEM(cert), []byte("asdfasdf"), "", "xml", "ass")
	assert.ErrorIs(t, err, domain.ErrKey)
}

func TestNewBuilder_SelectorInvalido(t *testing.T) {
	cert := testutil.Certificate(t, testutil.CertOptions{})
	_, err := xmldsig.NewBuilder([]byte(xmlEntrada), testutil.CertificatePEM(cert), testutil.KeyPEM(t), "", "xml", "ass[Id")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewBuilderFromCredentials_FirmaIgual(t *testing.T) {
	creds := &xmldsig.Credentials{
		Certificate: testutil.Certificate(t, testutil.CertOptions{}),
		PrivateKey:  testutil.RSAKey(t),
	}
	b, err := xmldsig.NewBuilderFromCredentials([]byte(xmlEntrada), creds, "xml", "ass", xmldsig.WithEncoder(fixedEncoder))
	require.NoError(t, err)

	require.NoError(t, b.Sign())
	out, err := b.Serialize()
	require.NoError(t, err)
	assert.Equal(t, xmlFirmado, out)
}

func TestNewBuilderFromCredentials_SinLlave(t *testing.T) {
	creds := &xmldsig.Credentials{Certificate: testutil.Certificate(t, testutil.CertOptions{})}
	_, err := xmldsig.NewBuilderFromCredentials([]byte(xmlEntrada), creds, "xml", "ass")
	assert.ErrorIs(t, err, domain.ErrKey)
}

func TestParseDocument_ISO88591(t *testing.T) {
	raw := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><xml><ass Id="1">`), 0xC7, 0xC3, 'O')
	raw = append(raw, []byte(`</ass></xml>`)...)

	doc, err := xmldsig.ParseDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, "ÇÃO", doc.FindElement("//ass").Text())
}
