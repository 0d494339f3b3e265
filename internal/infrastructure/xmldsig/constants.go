// Constantes XML-DSig para firma envolvente (enveloped) RSA-SHA1 de documentos fiscales.

package xmldsig

// Namespaces y algoritmos XMLDSig.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgC14N11          = "http://www.w3.org/2006/12/xml-c14n11"
	AlgRSASHA1         = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1            = "http://www.w3.org/2000/09/xmldsig#sha1"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// Nombres de los nodos de la estructura Signature.
const (
	tagSignature              = "Signature"
	tagSignedInfo             = "SignedInfo"
	tagCanonicalizationMethod = "CanonicalizationMethod"
	tagSignatureMethod        = "SignatureMethod"
	tagReference              = "Reference"
	tagTransforms             = "Transforms"
	tagTransform              = "Transform"
	tagDigestMethod           = "DigestMethod"
	tagDigestValue            = "DigestValue"
	tagSignatureValue         = "SignatureValue"
	tagKeyInfo                = "KeyInfo"
	tagX509Data               = "X509Data"
	tagX509Certificate        = "X509Certificate"

	attrAlgorithm = "Algorithm"
	attrURI       = "URI"
	attrID        = "Id"
)
